package bracket

import (
	"fmt"
	"slices"
	"strings"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

// Factory builds a generator from the comma separated arguments given after its kind.
type Factory func(args []string) (Generator, error)

// Registry maps generator kinds to factories. It is built once and then only read.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{
		"elimination": NewElimination,
		"roundrobin":  NewRoundRobin,
	}}
}

func (r *Registry) New(kind string, args []string) (Generator, error) {
	f, ok := r.factories[string(identity.ToID(kind))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return f(args)
}

func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// nonEmpty drops blank arguments left over from splitting on commas.
func nonEmpty(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
