package tournament

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

// Disqualify removes u from play. Any pending challenge is dropped, and any
// running match is forfeited on u's behalf with the opponent released.
func (t *Tournament) Disqualify(u *identity.User) error {
	if !t.started.Load() {
		return ErrNotStarted
	}
	ended, err := t.generator.Disqualify(u)
	if err != nil {
		return err
	}
	e := t.entrants[u.ID]
	if e == nil {
		return t.violation("disqualify", "generator accepted unknown participant %s", u.ID)
	}
	if e.disqualified {
		return ErrAlreadyDisqualified
	}
	u = e.user

	e.disqualified = true
	t.generator.SetBusy(u, false)

	if c := e.challenge; c != nil {
		e.challenge = nil
		t.generator.SetBusy(c.opponent, false)
		if eo := t.entrants[c.opponent.ID]; eo != nil {
			eo.challenge = nil
		}
		if c.role == RoleChallenging {
			t.session.SendTo(c.opponent.ID, update(Fields{"challenged": nil}))
		} else {
			t.session.SendTo(c.opponent.ID, update(Fields{"challenging": nil}))
		}
	}

	if m := e.match; m != nil {
		e.match = nil
		t.generator.SetBusy(m.opponent, false)
		abandon(m.handle, u)
	}
	for _, other := range t.entrants {
		if m := other.match; m != nil && m.opponent.ID == u.ID {
			other.match = nil
			t.generator.SetBusy(other.user, false)
			abandon(m.handle, u)
		}
	}
	t.dropConfirmations(u)

	t.session.Broadcast(Event{Kind: KindDisqualify, Data: Fields{"user": u.Name}})
	t.session.SendTo(u.ID, update(Fields{"isJoined": false}))
	t.bracketDirty = true
	t.availabilityDirty = true
	if t.rewards != nil {
		t.rewards.RecordLoss(t.format, u)
	}
	t.metrics.Disqualified()
	t.logger.Info("participant disqualified", zap.String("user", string(u.ID)))

	if ended {
		t.complete()
	} else {
		t.broadcastUpdate()
	}
	return nil
}

// abandon detaches the completion hook before forfeiting, so the forfeit is
// not reported back as a result.
func abandon(h MatchHandle, loser *identity.User) {
	h.OnComplete(nil)
	h.Forfeit(loser.ID)
}

// dropConfirmations forgets setup requests involving u. An outstanding
// challenge request still holds both busy flags, so they are released.
func (t *Tournament) dropConfirmations(u *identity.User) {
	for id, c := range t.awaiting {
		if c.issuer.ID != u.ID && c.recipient.ID != u.ID {
			continue
		}
		if c.kind == confirmChallenge {
			t.releasePair(c.issuer, c.recipient)
		}
		delete(t.awaiting, id)
	}
}

// purgeGhosts drops participants whose identity no longer resolves to the
// object that joined, e.g. after an account merge.
func (t *Tournament) purgeGhosts() {
	for _, u := range t.generator.Participants() {
		if live, ok := t.identities.Lookup(u.ID); ok && live == u {
			continue
		}
		t.logger.Info("purging ghost participant", zap.String("user", string(u.ID)))

		var err error
		if t.started.Load() {
			if e := t.entrants[u.ID]; e != nil && !e.disqualified {
				err = t.Disqualify(u)
			}
		} else {
			err = t.Leave(u)
		}
		if err != nil {
			t.logger.Warn("purging ghost participant failed", zap.String("user", string(u.ID)), zap.Error(err))
		}
		if t.finished {
			return
		}
	}
}
