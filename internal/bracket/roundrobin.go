package bracket

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

type rrMatch struct {
	finished bool
	result   Outcome
	score    []int
}

// RoundRobin pairs everyone against everyone once, or twice with the
// "doubles" option. A win is worth one point and a draw half a point.
type RoundRobin struct {
	roster
	doubles   bool
	matches   [][]*rrMatch
	remaining int
}

func NewRoundRobin(args []string) (Generator, error) {
	rr := &RoundRobin{roster: newRoster()}
	for _, a := range nonEmpty(args) {
		switch identity.ToID(a) {
		case "doubles", "double":
			rr.doubles = true
		default:
			return nil, fmt.Errorf("%w: unknown round robin option %q", ErrInvalidArguments, a)
		}
	}
	return rr, nil
}

func (rr *RoundRobin) Name() string {
	if rr.doubles {
		return "Double Round Robin"
	}
	return "Round Robin"
}

func (rr *RoundRobin) SupportsDraws() bool { return true }

func (rr *RoundRobin) Replace(old, replacement *identity.User) error {
	return rr.replace(old, replacement)
}

// plays reports whether row r meets column c.
func (rr *RoundRobin) plays(r, c int) bool {
	return r != c && (rr.doubles || r < c)
}

func (rr *RoundRobin) Freeze() {
	if rr.frozen {
		return
	}
	rr.frozen = true
	n := len(rr.users)
	rr.matches = make([][]*rrMatch, n)
	for r := range rr.matches {
		rr.matches[r] = make([]*rrMatch, n)
		for c := range rr.matches[r] {
			if rr.plays(r, c) {
				rr.matches[r][c] = &rrMatch{}
				rr.remaining++
			}
		}
	}
}

func (rr *RoundRobin) LegalPairings() ([]Pairing, error) {
	if !rr.frozen {
		return nil, ErrNotFrozen
	}
	var pairs []Pairing
	for r, row := range rr.matches {
		for c, m := range row {
			if m == nil || m.finished {
				continue
			}
			a, b := rr.users[r], rr.users[c]
			if rr.idle(a) && rr.idle(b) {
				pairs = append(pairs, Pairing{Issuer: a, Recipient: b})
			}
		}
	}
	return pairs, nil
}

// lookup finds the undecided match between r and c. flipped means the match
// is stored with c as the row.
func (rr *RoundRobin) lookup(r, c int) (m *rrMatch, flipped bool) {
	if m := rr.matches[r][c]; m != nil && !m.finished {
		return m, false
	}
	if !rr.doubles {
		if m := rr.matches[c][r]; m != nil && !m.finished {
			return m, true
		}
	}
	return nil, false
}

func (rr *RoundRobin) RecordResult(p Pairing, outcome Outcome, score []int) (bool, error) {
	if !rr.frozen {
		return false, ErrNotFrozen
	}
	r, c := rr.position(p.Issuer.ID), rr.position(p.Recipient.ID)
	if r < 0 || c < 0 || r == c {
		return false, ErrNoSuchMatch
	}
	m, flipped := rr.lookup(r, c)
	if m == nil {
		return false, ErrNoSuchMatch
	}
	if flipped {
		outcome = outcome.flip()
		score = reversed(score)
	}
	rr.finish(m, outcome, score)
	return rr.remaining == 0, nil
}

func (rr *RoundRobin) finish(m *rrMatch, outcome Outcome, score []int) {
	m.finished = true
	m.result = outcome
	m.score = slices.Clone(score)
	rr.remaining--
}

// Disqualify forfeits every undecided match of u.
func (rr *RoundRobin) Disqualify(u *identity.User) (bool, error) {
	changed, err := rr.markDisqualified(u)
	if err != nil || !changed {
		return false, err
	}
	i := rr.position(u.ID)
	for r, row := range rr.matches {
		for c, m := range row {
			if m == nil || m.finished || (r != i && c != i) {
				continue
			}
			if r == i {
				rr.finish(m, Loss, nil)
			} else {
				rr.finish(m, Win, nil)
			}
		}
	}
	return rr.remaining == 0, nil
}

func (rr *RoundRobin) scores() []float64 {
	s := make([]float64, len(rr.users))
	for r, row := range rr.matches {
		for c, m := range row {
			if m == nil || !m.finished {
				continue
			}
			switch m.result {
			case Win:
				s[r]++
			case Loss:
				s[c]++
			case Draw:
				s[r] += 0.5
				s[c] += 0.5
			}
		}
	}
	return s
}

func (rr *RoundRobin) Results() [][]*identity.User {
	if !rr.frozen || len(rr.users) == 0 {
		return nil
	}
	scores := rr.scores()
	order := make([]int, len(rr.users))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(scores[b], scores[a]) })

	var results [][]*identity.User
	for i, idx := range order {
		if i == 0 || scores[idx] != scores[order[i-1]] {
			results = append(results, nil)
		}
		last := len(results) - 1
		results[last] = append(results[last], rr.users[idx])
	}
	return results
}

func (rr *RoundRobin) Describe() Description {
	n := len(rr.users)
	table := &Table{
		Rows:   slices.Clone(rr.users),
		Cols:   slices.Clone(rr.users),
		Cells:  make([][]*Cell, n),
		Scores: make([]float64, n),
	}
	if rr.frozen {
		table.Scores = rr.scores()
	}
	for r := range table.Cells {
		table.Cells[r] = make([]*Cell, n)
		for c := range table.Cells[r] {
			if !rr.plays(r, c) {
				continue
			}
			cell := &Cell{State: StateUnavailable}
			if rr.frozen {
				m := rr.matches[r][c]
				switch {
				case m.finished:
					cell.State, cell.Result, cell.Score = StateFinished, m.result, slices.Clone(m.score)
				case rr.idle(rr.users[r]) && rr.idle(rr.users[c]):
					cell.State = StateAvailable
				}
			}
			table.Cells[r][c] = cell
		}
	}
	return Description{Shape: ShapeTable, Table: table}
}
