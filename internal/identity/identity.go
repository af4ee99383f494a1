package identity

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

var ErrUnknownUser = errors.New("unknown user")

// UserID is the stable identity of a user. Display names may change, ids do not.
type UserID string

type Role int

const (
	RoleUser Role = iota
	RoleCreator
	RoleModerator
)

type User struct {
	ID   UserID
	Name string
	Role Role

	mu          sync.Mutex
	team        string
	connections int
}

func (u *User) Team() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.team
}

func (u *User) SetTeam(team string) {
	u.mu.Lock()
	u.team = team
	u.mu.Unlock()
}

func (u *User) Connected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.connections > 0
}

// ToID folds case and strips everything except ASCII letters and digits.
func ToID(name string) UserID {
	folded := cases.Fold().String(name)
	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return UserID(b.String())
}

// Registry resolves stable ids to the live User object. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users map[UserID]*User
	alts  map[UserID]map[UserID]struct{}
	roles map[UserID]Role
}

func NewRegistry(roles map[UserID]Role) *Registry {
	if roles == nil {
		roles = map[UserID]Role{}
	}
	return &Registry{
		users: make(map[UserID]*User),
		alts:  make(map[UserID]map[UserID]struct{}),
		roles: roles,
	}
}

// Connect returns the live user for name, creating it on first sight, and
// counts one more open connection for it.
func (r *Registry) Connect(name string) *User {
	id := ToID(name)
	r.mu.Lock()
	u, ok := r.users[id]
	if !ok {
		u = &User{ID: id, Name: strings.TrimSpace(name), Role: r.roles[id]}
		r.users[id] = u
	}
	r.mu.Unlock()

	u.mu.Lock()
	u.connections++
	u.mu.Unlock()
	return u
}

func (r *Registry) Disconnect(id UserID) {
	r.mu.RLock()
	u, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	u.mu.Lock()
	if u.connections > 0 {
		u.connections--
	}
	u.mu.Unlock()
}

func (r *Registry) Lookup(id UserID) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return u, ok
}

// Forget drops an identity entirely. Anything still holding the old object
// will no longer resolve.
func (r *Registry) Forget(id UserID) {
	r.mu.Lock()
	delete(r.users, id)
	r.mu.Unlock()
}

// Merge makes from resolve to the live object of into and links them as alts.
func (r *Registry) Merge(from, into UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.users[into]
	if !ok {
		return ErrUnknownUser
	}
	r.users[from] = target
	r.link(from, into)
	return nil
}

func (r *Registry) LinkAlts(a, b UserID) {
	if a == b {
		return
	}
	r.mu.Lock()
	r.link(a, b)
	r.mu.Unlock()
}

func (r *Registry) link(a, b UserID) {
	if r.alts[a] == nil {
		r.alts[a] = make(map[UserID]struct{})
	}
	if r.alts[b] == nil {
		r.alts[b] = make(map[UserID]struct{})
	}
	r.alts[a][b] = struct{}{}
	r.alts[b][a] = struct{}{}
}

// Alts returns the known alternate identities of id, sorted, excluding id itself.
func (r *Registry) Alts(id UserID) []UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]UserID, 0, len(r.alts[id]))
	for alt := range r.alts[id] {
		if alt != id {
			out = append(out, alt)
		}
	}
	slices.Sort(out)
	return out
}
