package lobby

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tournament-backend/internal/battle"
	"github.com/DoyleJ11/tournament-backend/internal/command"
	"github.com/DoyleJ11/tournament-backend/internal/identity"
	"github.com/DoyleJ11/tournament-backend/internal/metrics"
	"github.com/DoyleJ11/tournament-backend/internal/tournament"
	"github.com/DoyleJ11/tournament-backend/pkg/types"
)

type Msg interface{ isLobbyMsg() }

// FromClient is a frame read from one client's connection.
type FromClient struct {
	ClientID string
	Msg      types.ClientMessage
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	User     *identity.User
	Outbox   chan types.ServerMessage // where this client wants to receive frames
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

// Confirmation carries the outcome of a match setup request back to the
// room's tournament.
type Confirmation struct {
	ID tournament.ConfirmationID
	OK bool
}

func (Confirmation) isLobbyMsg() {}

// MatchEnded is posted by a hosted match when it ends.
type MatchEnded struct {
	handle *matchHandle
	Winner identity.UserID
	Score  []int
}

func (MatchEnded) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Code            string
	NumClients      int
	AnnounceWins    bool
	AnnounceBattles bool
	Tournament      *types.TournamentSummary
}

type Deps struct {
	Registry *tournament.Registry
	Router   *command.Router
	Host     *battle.Host
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

type client struct {
	user *identity.User
	out  chan types.ServerMessage
}

// Lobby is one room. Every tournament operation for the room runs on its
// loop goroutine.
type Lobby struct {
	code     string
	official bool
	deps     Deps
	logger   *zap.Logger

	inbox   chan Msg
	clients map[string]*client

	announceWins    bool
	announceBattles bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var _ command.Room = (*Lobby)(nil)

func NewLobby(parent context.Context, code string, official bool, deps Deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	l := &Lobby{
		code:            code,
		official:        official,
		deps:            deps,
		logger:          deps.Logger.With(zap.String("room", code)),
		inbox:           make(chan Msg, 64), // Small buffer
		clients:         make(map[string]*client),
		announceWins:    true,
		announceBattles: true,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = &client{user: msg.User, out: msg.Outbox}
				l.deps.Metrics.ClientConnected()
				if t := l.tournament(); t != nil {
					if err := t.Update(msg.User); err != nil {
						l.logger.Warn("initial tournament update", zap.String("user", string(msg.User.ID)), zap.Error(err))
					}
				}

			case Leave:
				if c, ok := l.clients[msg.ClientID]; ok {
					close(c.out) // Stops the client's writer
					delete(l.clients, msg.ClientID)
					l.deps.Metrics.ClientDisconnected()
				}

			case FromClient:
				l.handleClient(msg)

			case Confirmation:
				if t := l.tournament(); t != nil {
					t.Confirm(msg.ID, msg.OK)
				}

			case MatchEnded:
				if hook := msg.handle.hook; hook != nil {
					hook(msg.Winner, msg.Score)
				}

			case GetState:
				// test-only: reflect internal state without data races
				v := View{
					Code:            l.code,
					NumClients:      len(l.clients),
					AnnounceWins:    l.announceWins,
					AnnounceBattles: l.announceBattles,
				}
				if t := l.tournament(); t != nil {
					v.Tournament = &types.TournamentSummary{
						Room:      l.code,
						Format:    t.Format(),
						Generator: t.GeneratorName(),
						IsStarted: t.Started(),
					}
				}
				msg.Reply <- v

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleClient(msg FromClient) {
	c := l.clients[msg.ClientID]
	if c == nil {
		return
	}
	switch msg.Msg.Type {
	case types.ClientCommand:
		err := l.deps.Router.Dispatch(command.Request{
			Room:  l,
			User:  c.user,
			Reply: func(line string) { l.send(msg.ClientID, c, types.ServerMessage{Type: types.ServerReply, Line: line}) },
		}, msg.Msg.Line)
		l.sendErrors(msg.ClientID, c, err)

	case types.ClientTeam:
		if err := battle.ValidateTeam(msg.Msg.Team); err != nil {
			l.sendErrors(msg.ClientID, c, err)
			return
		}
		c.user.SetTeam(msg.Msg.Team)
		l.send(msg.ClientID, c, types.ServerMessage{Type: types.ServerReply, Line: "Your team has been saved."})

	default:
		l.send(msg.ClientID, c, types.ServerMessage{Type: types.ServerError, Error: "unknown type"})
	}
}

// sendErrors reports every error aggregated in err to one client.
func (l *Lobby) sendErrors(id string, c *client, err error) {
	for _, e := range multierr.Errors(err) {
		l.send(id, c, types.ServerMessage{Type: types.ServerError, Error: e.Error()})
	}
}

func (l *Lobby) tournament() *tournament.Tournament {
	return l.deps.Registry.Get(l.code)
}

func (l *Lobby) shutdown() {
	l.cancel()
	if t := l.tournament(); t != nil {
		t.ForceEnd()
	}
	for id, c := range l.clients {
		close(c.out) // Tell client no more frames
		delete(l.clients, id)
		l.deps.Metrics.ClientDisconnected()
	}
}

// send delivers to one client. A slow or full client is dropped.
func (l *Lobby) send(id string, c *client, msg types.ServerMessage) {
	if l.clients[id] != c {
		return // already dropped
	}
	select {
	case c.out <- msg:
		//ok
	default:
		l.logger.Info("dropping slow client", zap.String("client", id))
		close(c.out)
		delete(l.clients, id)
		l.deps.Metrics.ClientDisconnected()
	}
}

func (l *Lobby) broadcast(msg types.ServerMessage) {
	for id, c := range l.clients {
		l.send(id, c, msg)
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers m unless the lobby has shut down. It may block, so never
// call it from the loop goroutine.
func (l *Lobby) Send(m Msg) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// post queues m from any goroutine, including the loop itself.
func (l *Lobby) post(m Msg) { go l.Send(m) }

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby has stopped.
func (l *Lobby) Done() <-chan struct{} { return l.done }
