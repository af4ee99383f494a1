package tournament

import (
	"github.com/DoyleJ11/tournament-backend/internal/bracket"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/pkg/types"
)

type availability struct {
	challenges   map[identity.UserID][]*identity.User
	challengeBys map[identity.UserID][]*identity.User
}

// Update pushes state to the room. With a nil target it rebuilds whatever is
// dirty and broadcasts the deltas. With a target it sends that user a full
// snapshot, which requires both caches to be clean.
func (t *Tournament) Update(target *identity.User) error {
	if target == nil {
		t.broadcastUpdate()
		return nil
	}
	staleAvailability := t.started.Load() && t.availabilityDirty
	if t.bracketDirty || staleAvailability {
		return t.violation("update", "targeted update for %s with dirty caches (bracket=%t availability=%t)",
			target.ID, t.bracketDirty, staleAvailability)
	}

	joined := t.isJoined(target.ID)
	t.session.SendTo(target.ID, update(Fields{
		"format":      t.format,
		"generator":   t.generator.Name(),
		"isStarted":   t.started.Load(),
		"isJoined":    joined,
		"bracketData": t.bracketCache,
	}))
	if t.started.Load() && joined && t.availability != nil {
		t.session.SendTo(target.ID, update(Fields{
			"challenges":   names(t.availability.challenges[target.ID]),
			"challengeBys": names(t.availability.challengeBys[target.ID]),
		}))
		if e := t.entrants[target.ID]; e != nil && e.challenge != nil {
			t.session.SendTo(target.ID, update(Fields{string(e.challenge.role): e.challenge.opponent.Name}))
		}
	}
	t.session.SendTo(target.ID, Event{Kind: KindUpdateEnd})
	return nil
}

func (t *Tournament) broadcastUpdate() {
	if t.bracketDirty {
		t.bracketCache = t.buildBracket()
		t.bracketDirty = false
		t.session.Broadcast(update(Fields{"bracketData": t.bracketCache}))
	}

	if t.started.Load() && t.availabilityDirty {
		av, err := t.buildAvailability()
		if err != nil {
			_ = t.violation("availability", "legal pairings: %v", err)
		} else {
			t.availability = av
			t.availabilityDirty = false
			users := t.generator.Participants()
			for _, u := range users {
				t.session.SendTo(u.ID, update(Fields{"challenges": names(av.challenges[u.ID])}))
			}
			for _, u := range users {
				t.session.SendTo(u.ID, update(Fields{"challengeBys": names(av.challengeBys[u.ID])}))
			}
		}
	}
	t.session.Broadcast(Event{Kind: KindUpdateEnd})
}

// buildAvailability resets every availability row and refills it from the
// generator's legal pairings, keeping the generator's order.
func (t *Tournament) buildAvailability() (*availability, error) {
	pairs, err := t.generator.LegalPairings()
	if err != nil {
		return nil, err
	}

	users := t.generator.Participants()
	av := &availability{
		challenges:   make(map[identity.UserID][]*identity.User, len(users)),
		challengeBys: make(map[identity.UserID][]*identity.User, len(users)),
	}
	for _, u := range users {
		av.challenges[u.ID] = []*identity.User{}
		av.challengeBys[u.ID] = []*identity.User{}
		if e := t.entrants[u.ID]; e != nil {
			for opp := range e.available {
				e.available[opp] = false
			}
		}
	}
	for _, p := range pairs {
		av.challenges[p.Issuer.ID] = append(av.challenges[p.Issuer.ID], p.Recipient)
		av.challengeBys[p.Recipient.ID] = append(av.challengeBys[p.Recipient.ID], p.Issuer)
		if e := t.entrants[p.Issuer.ID]; e != nil {
			e.available[p.Recipient.ID] = true
		}
	}
	return av, nil
}

// buildBracket renders the generator's topology with live challenge and
// match state laid over it.
func (t *Tournament) buildBracket() *types.BracketData {
	desc := t.generator.Describe()
	data := &types.BracketData{Type: string(desc.Shape)}
	switch desc.Shape {
	case bracket.ShapeTree:
		if desc.Root != nil {
			data.RootNode = t.treeView(desc.Root)
		}
	case bracket.ShapeTable:
		if desc.Table != nil {
			t.tableView(desc.Table, data)
		}
	}
	return data
}

func (t *Tournament) treeView(n *bracket.Node) *types.BracketNode {
	v := &types.BracketNode{
		State:    string(n.State),
		Result:   string(n.Result),
		Score:    n.Score,
		Children: make([]*types.BracketNode, 0, len(n.Children)),
	}
	if n.Team != nil {
		v.Team = n.Team.Name
	}
	if n.State == bracket.StateAvailable && len(n.Children) == 2 {
		a, b := n.Children[0].Team, n.Children[1].Team
		if a != nil && b != nil {
			if state, room := t.overlay(a, b); state != "" {
				v.State, v.Room = state, room
			} else if state, room := t.overlay(b, a); state != "" {
				v.State, v.Room = state, room
			}
		}
	}
	for _, c := range n.Children {
		v.Children = append(v.Children, t.treeView(c))
	}
	return v
}

func (t *Tournament) tableView(tbl *bracket.Table, data *types.BracketData) {
	data.TableHeaders = &types.TableHeaders{Rows: names(tbl.Rows), Cols: names(tbl.Cols)}
	data.Scores = tbl.Scores
	data.TableContents = make([][]*types.TableCell, len(tbl.Cells))
	for r, row := range tbl.Cells {
		data.TableContents[r] = make([]*types.TableCell, len(row))
		for c, cell := range row {
			if cell == nil {
				continue
			}
			v := &types.TableCell{State: string(cell.State), Result: string(cell.Result), Score: cell.Score}
			if state, room := t.overlay(tbl.Rows[r], tbl.Cols[c]); state != "" {
				v.State, v.Room = state, room
			}
			data.TableContents[r][c] = v
		}
	}
}

// overlay reports the live state of issuer a against b, or "" when idle.
func (t *Tournament) overlay(a, b *identity.User) (state, room string) {
	e := t.entrants[a.ID]
	if e == nil {
		return "", ""
	}
	if m := e.match; m != nil && m.opponent.ID == b.ID {
		return string(bracket.StateInProgress), m.handle.ID()
	}
	if c := e.challenge; c != nil && c.role == RoleChallenging && c.opponent.ID == b.ID {
		return string(bracket.StateChallenging), ""
	}
	return "", ""
}

func names(users []*identity.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Name)
	}
	return out
}
