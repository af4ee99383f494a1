package bracket

import (
	"slices"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

// roster is the participant bookkeeping shared by every generator.
type roster struct {
	users        []*identity.User
	busy         map[identity.UserID]bool
	disqualified map[identity.UserID]bool
	frozen       bool
}

func newRoster() roster {
	return roster{
		busy:         make(map[identity.UserID]bool),
		disqualified: make(map[identity.UserID]bool),
	}
}

func (r *roster) position(id identity.UserID) int {
	return slices.IndexFunc(r.users, func(u *identity.User) bool { return u.ID == id })
}

func (r *roster) Add(u *identity.User) error {
	if r.frozen {
		return ErrFrozen
	}
	if r.position(u.ID) >= 0 {
		return ErrAlreadyAdded
	}
	r.users = append(r.users, u)
	return nil
}

func (r *roster) Remove(u *identity.User) error {
	if r.frozen {
		return ErrFrozen
	}
	i := r.position(u.ID)
	if i < 0 {
		return ErrNotAdded
	}
	r.users = slices.Delete(r.users, i, i+1)
	return nil
}

func (r *roster) replace(old, replacement *identity.User) error {
	i := r.position(old.ID)
	if i < 0 {
		return ErrNotAdded
	}
	if r.position(replacement.ID) >= 0 {
		return ErrAlreadyAdded
	}
	r.users[i] = replacement
	r.busy[replacement.ID] = r.busy[old.ID]
	delete(r.busy, old.ID)
	delete(r.disqualified, old.ID)
	return nil
}

func (r *roster) Participants() []*identity.User { return slices.Clone(r.users) }

func (r *roster) SetBusy(u *identity.User, busy bool) {
	if busy {
		r.busy[u.ID] = true
		return
	}
	delete(r.busy, u.ID)
}

func (r *roster) Busy(u *identity.User) bool { return r.busy[u.ID] }

// idle reports whether u may be offered a match right now.
func (r *roster) idle(u *identity.User) bool {
	return !r.busy[u.ID] && !r.disqualified[u.ID]
}

// markDisqualified validates u and records the disqualification. It reports
// false when u was already disqualified.
func (r *roster) markDisqualified(u *identity.User) (bool, error) {
	if !r.frozen {
		return false, ErrNotFrozen
	}
	if r.position(u.ID) < 0 {
		return false, ErrNotAdded
	}
	if r.disqualified[u.ID] {
		return false, nil
	}
	r.disqualified[u.ID] = true
	return true, nil
}
