package bracket

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

type elimNode struct {
	team     *identity.User
	children []*elimNode
	finished bool
	result   Outcome
	score    []int
}

// ready reports whether n is an undecided match with both sides known.
func (n *elimNode) ready() bool {
	return len(n.children) == 2 && !n.finished &&
		n.children[0].team != nil && n.children[1].team != nil
}

// Elimination is a single elimination bracket. Byes go to the top seeds.
type Elimination struct {
	roster
	root *elimNode
}

func NewElimination(args []string) (Generator, error) {
	if len(nonEmpty(args)) > 0 {
		return nil, fmt.Errorf("%w: elimination takes no arguments", ErrInvalidArguments)
	}
	return &Elimination{roster: newRoster()}, nil
}

func (e *Elimination) Name() string        { return "Single Elimination" }
func (e *Elimination) SupportsDraws() bool { return false }

func (e *Elimination) Replace(old, replacement *identity.User) error {
	if err := e.replace(old, replacement); err != nil {
		return err
	}
	walk(e.root, func(n *elimNode) {
		if n.team != nil && n.team.ID == old.ID {
			n.team = replacement
		}
	})
	return nil
}

func (e *Elimination) Freeze() {
	if e.frozen {
		return
	}
	e.frozen = true
	e.root = buildTree(e.users)
}

// seedOrder lists seed indices in slot order for a bracket with size slots,
// so seed 0 meets seed size-1 in the first round.
func seedOrder(size int) []int {
	order := []int{0}
	for n := 1; n < size; n *= 2 {
		next := make([]int, 0, n*2)
		for _, s := range order {
			next = append(next, s, 2*n-1-s)
		}
		order = next
	}
	return order
}

func buildTree(users []*identity.User) *elimNode {
	if len(users) == 0 {
		return nil
	}
	size := 1
	for size < len(users) {
		size *= 2
	}

	level := make([]*elimNode, 0, size)
	for _, s := range seedOrder(size) {
		if s < len(users) {
			level = append(level, &elimNode{team: users[s]})
		} else {
			level = append(level, nil) // bye
		}
	}
	for len(level) > 1 {
		next := make([]*elimNode, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, pair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

// pair joins two subtrees under a new match, collapsing byes.
func pair(a, b *elimNode) *elimNode {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &elimNode{children: []*elimNode{a, b}}
}

func walk(n *elimNode, fn func(*elimNode)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.children {
		walk(c, fn)
	}
}

// breadthFirst visits nodes level by level starting at the final.
func breadthFirst(root *elimNode, fn func(*elimNode)) {
	if root == nil {
		return
	}
	queue := []*elimNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		fn(n)
		queue = append(queue, n.children...)
	}
}

func (e *Elimination) LegalPairings() ([]Pairing, error) {
	if !e.frozen {
		return nil, ErrNotFrozen
	}
	var pairs []Pairing
	breadthFirst(e.root, func(n *elimNode) {
		if !n.ready() {
			return
		}
		a, b := n.children[0].team, n.children[1].team
		if e.idle(a) && e.idle(b) {
			pairs = append(pairs, Pairing{Issuer: a, Recipient: b})
		}
	})
	return pairs, nil
}

func (e *Elimination) RecordResult(p Pairing, outcome Outcome, score []int) (bool, error) {
	if !e.frozen {
		return false, ErrNotFrozen
	}
	if outcome == Draw {
		return false, ErrUnsupportedOutcome
	}

	var match *elimNode
	flipped := false
	walk(e.root, func(n *elimNode) {
		if match != nil || !n.ready() {
			return
		}
		a, b := n.children[0].team.ID, n.children[1].team.ID
		switch {
		case a == p.Issuer.ID && b == p.Recipient.ID:
			match = n
		case a == p.Recipient.ID && b == p.Issuer.ID:
			match, flipped = n, true
		}
	})
	if match == nil {
		return false, ErrNoSuchMatch
	}
	if flipped {
		outcome = outcome.flip()
		score = reversed(score)
	}

	finish(match, outcome, score)
	e.resolveWalkovers(e.root)
	return e.root.finished, nil
}

func finish(n *elimNode, outcome Outcome, score []int) {
	n.finished = true
	n.result = outcome
	n.score = slices.Clone(score)
	if outcome == Win {
		n.team = n.children[0].team
	} else {
		n.team = n.children[1].team
	}
}

// resolveWalkovers advances the opponent of every disqualified participant
// whose match is ready, bottom up.
func (e *Elimination) resolveWalkovers(n *elimNode) {
	if n == nil || len(n.children) == 0 {
		return
	}
	for _, c := range n.children {
		e.resolveWalkovers(c)
	}
	if !n.ready() {
		return
	}
	switch {
	case e.disqualified[n.children[1].team.ID]:
		finish(n, Win, nil)
	case e.disqualified[n.children[0].team.ID]:
		finish(n, Loss, nil)
	}
}

func (e *Elimination) Disqualify(u *identity.User) (bool, error) {
	changed, err := e.markDisqualified(u)
	if err != nil || !changed {
		return false, err
	}
	e.resolveWalkovers(e.root)
	return e.root.finished, nil
}

func (e *Elimination) Results() [][]*identity.User {
	if e.root == nil || !e.root.finished {
		return nil
	}
	results := [][]*identity.User{{e.root.team}}
	level := []*elimNode{e.root}
	for len(level) > 0 {
		var losers []*identity.User
		var next []*elimNode
		for _, n := range level {
			if len(n.children) == 0 {
				continue
			}
			if n.finished {
				for _, c := range n.children {
					if c.team != nil && c.team.ID != n.team.ID {
						losers = append(losers, c.team)
					}
				}
			}
			next = append(next, n.children...)
		}
		if len(losers) > 0 {
			results = append(results, losers)
		}
		level = next
	}
	return results
}

func (e *Elimination) Describe() Description {
	root := e.root
	if !e.frozen {
		root = buildTree(e.users)
	}
	return Description{Shape: ShapeTree, Root: e.describe(root)}
}

func (e *Elimination) describe(n *elimNode) *Node {
	if n == nil {
		return nil
	}
	out := &Node{Team: n.team, Children: make([]*Node, 0, len(n.children))}
	for _, c := range n.children {
		out.Children = append(out.Children, e.describe(c))
	}
	if len(n.children) == 0 {
		return out
	}
	switch {
	case n.finished:
		out.State, out.Result, out.Score = StateFinished, n.result, slices.Clone(n.score)
	case e.frozen && n.ready():
		out.State = StateAvailable
	default:
		out.State = StateUnavailable
	}
	return out
}

func reversed(score []int) []int {
	out := slices.Clone(score)
	slices.Reverse(out)
	return out
}
