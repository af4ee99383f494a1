package tournament

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/bracket"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

// matchEnded records the outcome of a tournament match. An empty winner is
// a draw, which becomes a no-contest when the generator has no draws.
func (t *Tournament) matchEnded(h MatchHandle, winner identity.UserID, score []int) {
	if t.finished {
		return
	}
	p1, p2 := h.Players()
	ef, et := t.entrants[p1], t.entrants[p2]
	if ef == nil || et == nil {
		_ = t.violation("matchEnded", "match %s between unknown participants %s and %s", h.ID(), p1, p2)
		return
	}
	from, to := ef.user, et.user

	outcome := bracket.Draw
	switch {
	case winner != "" && winner == p1:
		outcome = bracket.Win
	case winner != "" && winner == p2:
		outcome = bracket.Loss
	}

	if outcome == bracket.Draw && !t.generator.SupportsDraws() {
		if t.session.AnnounceWins() {
			t.session.Broadcast(Event{Kind: KindBattleEnd, Data: Fields{
				"p1": from.Name, "p2": to.Name, "result": string(outcome), "score": score, "recorded": false,
			}})
		}
		t.releasePair(from, to)
		ef.match = nil
		t.bracketDirty = true
		t.availabilityDirty = true
		t.metrics.MatchEnded("nocontest")
		t.broadcastUpdate()
		return
	}

	ended, err := t.generator.RecordResult(bracket.Pairing{Issuer: from, Recipient: to}, outcome, score)
	if err != nil {
		_ = t.violation("matchEnded", "recording %s %s vs %s: %v", outcome, p1, p2, err)
		return
	}

	if t.session.AnnounceWins() {
		t.session.Broadcast(Event{Kind: KindBattleEnd, Data: Fields{
			"p1": from.Name, "p2": to.Name, "result": string(outcome), "score": score, "recorded": true,
		}})
	}
	t.releasePair(from, to)
	ef.match = nil
	t.bracketDirty = true
	t.availabilityDirty = true
	t.metrics.MatchEnded(string(outcome))

	if t.rewards != nil {
		switch outcome {
		case bracket.Win:
			t.rewards.RecordLoss(t.format, to)
		case bracket.Loss:
			t.rewards.RecordLoss(t.format, from)
		}
	}

	if ended {
		t.complete()
	} else {
		t.broadcastUpdate()
	}
}

// complete publishes the final results and retires the tournament.
func (t *Tournament) complete() {
	t.finished = true
	results := t.generator.Results()
	t.bracketCache = t.buildBracket()
	t.bracketDirty = false

	placings := make([][]string, 0, len(results))
	for _, group := range results {
		placings = append(placings, names(group))
	}
	t.session.Broadcast(Event{Kind: KindEnd, Data: Fields{"results": placings, "bracketData": t.bracketCache}})
	if len(results) > 0 && len(results[0]) > 0 {
		t.session.Announce(fmt.Sprintf("Congratulations to %s for winning the %s tournament!", results[0][0].Name, t.format))
	}
	t.registry.remove(t)

	if t.rewards != nil {
		lines := t.rewards.Complete(Completion{
			Session:  t.session.ID(),
			Official: t.session.Official(),
			Format:   t.format,
			Size:     len(t.generator.Participants()),
			Results:  results,
		})
		for _, line := range lines {
			t.session.Announce(line)
		}
	}
	t.metrics.TournamentEnded("completed")
	t.logger.Info("tournament completed", zap.Int("placings", len(results)))
}

// Reminder lists who was nudged about an available match and who is offline.
type Reminder struct {
	Reminded []string
	Offline  []string
}

// Remind pops up a nudge for every connected participant with a match
// available right now. It does not change tournament state.
func (t *Tournament) Remind() (Reminder, error) {
	var r Reminder
	if !t.started.Load() {
		return r, ErrNotStarted
	}
	pairs, err := t.generator.LegalPairings()
	if err != nil {
		return r, t.violation("remind", "legal pairings: %v", err)
	}

	seen := make(map[identity.UserID]bool)
	msg := fmt.Sprintf("You have a tournament battle in the room %q. If you do not start soon you may be disqualified.", t.session.ID())
	for _, p := range pairs {
		for _, u := range []*identity.User{p.Issuer, p.Recipient} {
			if seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			if live, ok := t.identities.Lookup(u.ID); !ok || !live.Connected() {
				r.Offline = append(r.Offline, u.Name)
				continue
			}
			t.session.SendTo(u.ID, Event{Kind: KindPopup, Data: Fields{"message": msg}})
			r.Reminded = append(r.Reminded, u.Name)
		}
	}
	return r, nil
}
