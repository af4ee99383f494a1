package tournament

import "github.com/DoyleJ11/tournament-backend/internal/identity"

// Sink delivers tournament output to a room.
type Sink interface {
	Announce(line string)
	Broadcast(ev Event)
	SendTo(id identity.UserID, ev Event)
}

// Session is the room hosting a tournament.
type Session interface {
	Sink
	ID() string
	Official() bool
	AnnounceWins() bool
	AnnounceBattles() bool
}

type Identities interface {
	Lookup(id identity.UserID) (*identity.User, bool)
	Alts(id identity.UserID) []identity.UserID
}

// ConfirmationID names one outstanding match setup request.
type ConfirmationID string

// MatchSetup checks asynchronously that a participant is ready to play format.
// The outcome must come back through Tournament.Confirm with the same id.
type MatchSetup interface {
	Prepare(u *identity.User, format string, id ConfirmationID)
}

// MatchHost starts matches. A nil handle means the host declined.
type MatchHost interface {
	Start(a, b *identity.User, format string, rated bool, teamA, teamB string) MatchHandle
}

type MatchHandle interface {
	ID() string
	Players() (p1, p2 identity.UserID)
	// OnComplete replaces the completion hook; nil detaches it. An empty
	// winner means nobody won.
	OnComplete(hook func(winner identity.UserID, score []int))
	Forfeit(loser identity.UserID)
}

// Completion is what a reward collaborator sees when a tournament finishes.
type Completion struct {
	Session  string
	Official bool
	Format   string
	Size     int
	Results  [][]*identity.User
}

// Rewarder keeps win/loss records and pays out prizes. The returned lines
// are announced to the room.
type Rewarder interface {
	RecordLoss(format string, u *identity.User)
	Complete(c Completion) []string
}
