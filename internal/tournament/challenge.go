package tournament

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

type confirmKind int

const (
	confirmChallenge confirmKind = iota
	confirmAccept
)

// confirmation is a match setup request waiting for its outcome.
type confirmation struct {
	kind      confirmKind
	issuer    *identity.User
	recipient *identity.User
}

func newConfirmationID() ConfirmationID { return ConfirmationID(uuid.NewString()) }

// lockPair marks both participants busy, or neither.
func (t *Tournament) lockPair(a, b *identity.User) error {
	if t.generator.Busy(a) || t.generator.Busy(b) {
		return t.violation("challenge", "%s or %s is busy but was offered as available", a.ID, b.ID)
	}
	t.generator.SetBusy(a, true)
	t.generator.SetBusy(b, true)
	return nil
}

func (t *Tournament) releasePair(a, b *identity.User) {
	t.generator.SetBusy(a, false)
	t.generator.SetBusy(b, false)
}

// Challenge claims the pairing from -> to and asks match setup to confirm
// that from is ready. The pending challenge is recorded on confirmation.
func (t *Tournament) Challenge(from, to *identity.User) error {
	if !t.started.Load() {
		return ErrNotStarted
	}
	ef, et := t.entrants[from.ID], t.entrants[to.ID]
	if ef == nil || et == nil || !ef.available[to.ID] {
		return ErrInvalidMatch
	}
	from, to = ef.user, et.user
	if err := t.lockPair(from, to); err != nil {
		return err
	}

	// Registered before purging ghosts so a disqualification in between
	// releases both sides.
	id := newConfirmationID()
	t.awaiting[id] = confirmation{kind: confirmChallenge, issuer: from, recipient: to}

	t.availabilityDirty = true
	t.purgeGhosts()
	t.broadcastUpdate()

	if _, ok := t.awaiting[id]; !ok || t.finished {
		return nil
	}
	t.setup.Prepare(from, t.format, id)
	return nil
}

// Confirm resumes the request named by id with the match setup outcome.
// Unknown ids are ignored.
func (t *Tournament) Confirm(id ConfirmationID, ok bool) {
	if t.finished {
		return
	}
	c, found := t.awaiting[id]
	if !found {
		t.logger.Debug("ignoring unknown confirmation", zap.String("id", string(id)))
		return
	}
	delete(t.awaiting, id)

	switch c.kind {
	case confirmChallenge:
		t.finishChallenge(c.issuer, c.recipient, ok)
	case confirmAccept:
		t.finishAccept(c.recipient, ok)
	}
}

func (t *Tournament) finishChallenge(from, to *identity.User, ok bool) {
	ef, et := t.entrants[from.ID], t.entrants[to.ID]
	if !ok || ef.disqualified || et.disqualified {
		t.releasePair(from, to)
		t.availabilityDirty = true
		t.broadcastUpdate()
		return
	}

	team := from.Team()
	ef.challenge = &pendingChallenge{opponent: to, role: RoleChallenging, team: team}
	et.challenge = &pendingChallenge{opponent: from, role: RoleChallenged, team: team}
	t.session.SendTo(from.ID, update(Fields{"challenging": to.Name}))
	t.session.SendTo(to.ID, update(Fields{"challenged": from.Name}))
	t.bracketDirty = true
	t.broadcastUpdate()
}

// CancelChallenge withdraws u's outgoing challenge. Only the issuer can
// cancel; anything else is a no-op.
func (t *Tournament) CancelChallenge(u *identity.User) error {
	if !t.started.Load() {
		return ErrNotStarted
	}
	e := t.entrants[u.ID]
	if e == nil || e.challenge == nil || e.challenge.role != RoleChallenging {
		return nil
	}

	opp := e.challenge.opponent
	t.releasePair(e.user, opp)
	e.challenge = nil
	if eo := t.entrants[opp.ID]; eo != nil {
		eo.challenge = nil
	}
	t.session.SendTo(e.user.ID, update(Fields{"challenging": nil}))
	t.session.SendTo(opp.ID, update(Fields{"challenged": nil}))
	t.bracketDirty = true
	t.availabilityDirty = true
	t.broadcastUpdate()
	return nil
}

// AcceptChallenge asks match setup to confirm that u, the recipient of a
// pending challenge, is ready. The match starts on confirmation.
func (t *Tournament) AcceptChallenge(u *identity.User) error {
	if !t.started.Load() {
		return ErrNotStarted
	}
	e := t.entrants[u.ID]
	if e == nil || e.challenge == nil || e.challenge.role != RoleChallenged {
		return nil
	}

	id := newConfirmationID()
	t.awaiting[id] = confirmation{kind: confirmAccept, issuer: e.challenge.opponent, recipient: e.user}
	t.setup.Prepare(e.user, t.format, id)
	return nil
}

func (t *Tournament) finishAccept(u *identity.User, ok bool) {
	if !ok {
		return
	}
	e := t.entrants[u.ID]
	if e == nil || e.challenge == nil || e.challenge.role != RoleChallenged {
		return // already accepted or withdrawn
	}
	ch := e.challenge
	from := ch.opponent
	ef := t.entrants[from.ID]

	handle := t.host.Start(from, u, t.format, t.rated, ch.team, u.Team())
	if handle == nil {
		t.logger.Info("match host declined", zap.String("p1", string(from.ID)), zap.String("p2", string(u.ID)))
		return
	}

	e.challenge = nil
	ef.challenge = nil
	t.session.SendTo(from.ID, update(Fields{"challenging": nil}))
	t.session.SendTo(u.ID, update(Fields{"challenged": nil}))
	ef.match = &liveMatch{opponent: u, handle: handle}

	if t.session.AnnounceBattles() {
		t.session.Broadcast(Event{Kind: KindBattleStart, Data: Fields{"p1": from.Name, "p2": u.Name, "room": handle.ID()}})
	}
	t.metrics.MatchStarted()
	t.bracketDirty = true
	t.broadcastUpdate()

	handle.OnComplete(func(winner identity.UserID, score []int) {
		t.matchEnded(handle, winner, score)
	})
}
