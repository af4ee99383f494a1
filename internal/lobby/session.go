package lobby

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/battle"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/tournament"
	"github.com/DoyleJ11/tournament-backend/pkg/types"
)

// The methods below are called by the room's tournament and command router,
// both of which only run on the loop goroutine.

func (l *Lobby) ID() string            { return l.code }
func (l *Lobby) Official() bool        { return l.official }
func (l *Lobby) AnnounceWins() bool    { return l.announceWins }
func (l *Lobby) AnnounceBattles() bool { return l.announceBattles }

func (l *Lobby) SetAnnounceWins(on bool)    { l.announceWins = on }
func (l *Lobby) SetAnnounceBattles(on bool) { l.announceBattles = on }

func (l *Lobby) Announce(line string) {
	l.broadcast(types.ServerMessage{Type: types.ServerLog, Line: line})
}

func (l *Lobby) Broadcast(ev tournament.Event) {
	l.broadcast(eventFrame(ev))
}

// SendTo reaches every connection of the user.
func (l *Lobby) SendTo(id identity.UserID, ev tournament.Event) {
	frame := eventFrame(ev)
	for cid, c := range l.clients {
		if c.user.ID == id {
			l.send(cid, c, frame)
		}
	}
}

func eventFrame(ev tournament.Event) types.ServerMessage {
	return types.ServerMessage{Type: types.ServerTournament, Event: string(ev.Kind), Data: ev.Data}
}

// Prepare checks u's team. The outcome comes back through the inbox so the
// tournament never re-enters itself.
func (l *Lobby) Prepare(u *identity.User, format string, id tournament.ConfirmationID) {
	err := battle.Ready(u, format)
	if err != nil {
		l.SendTo(u.ID, tournament.Event{Kind: tournament.KindPopup, Data: tournament.Fields{"message": err.Error()}})
	}
	l.post(Confirmation{ID: id, OK: err == nil})
}

// Start opens a match on the shared host and routes its end back into this room.
func (l *Lobby) Start(a, b *identity.User, format string, rated bool, teamA, teamB string) tournament.MatchHandle {
	if l.deps.Host == nil {
		return nil
	}
	m := l.deps.Host.Start(a, b, format, rated, teamA, teamB)
	if m == nil {
		return nil
	}
	h := &matchHandle{match: m}
	m.SetOnEnd(func(winner identity.UserID, score []int) {
		l.post(MatchEnded{handle: h, Winner: winner, Score: score})
	})
	l.logger.Debug("tournament match opened", zap.String("match", m.ID()))
	return h
}

// matchHandle adapts a hosted match for the tournament. Its hook is only
// touched on the loop goroutine.
type matchHandle struct {
	match *battle.Match
	hook  func(identity.UserID, []int)
}

func (h *matchHandle) ID() string                                  { return h.match.ID() }
func (h *matchHandle) Players() (identity.UserID, identity.UserID) { return h.match.Players() }
func (h *matchHandle) Forfeit(loser identity.UserID)               { h.match.Forfeit(loser) }

func (h *matchHandle) OnComplete(hook func(winner identity.UserID, score []int)) {
	h.hook = hook
}
