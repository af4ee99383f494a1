package bracket

import (
	"errors"

	"github.com/DoyleJ11/tournament-backend/internal/identity"
)

// Named generator errors. The text is the wire error code.
var (
	ErrAlreadyAdded       = errors.New("UserAlreadyAdded")
	ErrNotAdded           = errors.New("UserNotAdded")
	ErrFrozen             = errors.New("BracketFrozen")
	ErrNotFrozen          = errors.New("BracketNotFrozen")
	ErrNoSuchMatch        = errors.New("NoSuchMatch")
	ErrUnsupportedOutcome = errors.New("UnsupportedOutcome")
	ErrInvalidArguments   = errors.New("InvalidArguments")
	ErrUnknownKind        = errors.New("UnknownGeneratorType")
)

type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
	Draw Outcome = "draw"
)

// flip returns the outcome seen from the other side.
func (o Outcome) flip() Outcome {
	switch o {
	case Win:
		return Loss
	case Loss:
		return Win
	}
	return o
}

type Pairing struct {
	Issuer    *identity.User
	Recipient *identity.User
}

type Shape string

const (
	ShapeTree  Shape = "tree"
	ShapeTable Shape = "table"
)

type State string

const (
	StateUnavailable State = "unavailable"
	StateAvailable   State = "available"
	StateChallenging State = "challenging"
	StateInProgress  State = "inprogress"
	StateFinished    State = "finished"
)

// Node is one slot of a tree bracket. Leaves have no children. Result is
// relative to Children[0].
type Node struct {
	Team     *identity.User
	State    State
	Result   Outcome
	Score    []int
	Children []*Node
}

// Cell is one match of a table bracket. Result is relative to the row participant.
type Cell struct {
	State  State
	Result Outcome
	Score  []int
}

type Table struct {
	Rows   []*identity.User
	Cols   []*identity.User
	Cells  [][]*Cell // nil where the pair does not play
	Scores []float64 // per row
}

// Description is a freshly built topology. Callers may mutate it.
type Description struct {
	Shape Shape
	Root  *Node
	Table *Table
}

// Generator owns the pairing algorithm and bracket topology of one tournament.
type Generator interface {
	Name() string
	SupportsDraws() bool

	Add(u *identity.User) error
	Remove(u *identity.User) error
	Replace(old, replacement *identity.User) error
	Participants() []*identity.User

	// Freeze fixes the topology. Called once, at start.
	Freeze()

	// LegalPairings lists the (issuer, recipient) pairs that may be
	// challenged right now, excluding busy and disqualified participants.
	LegalPairings() ([]Pairing, error)
	SetBusy(u *identity.User, busy bool)
	Busy(u *identity.User) bool

	Disqualify(u *identity.User) (ended bool, err error)
	RecordResult(p Pairing, outcome Outcome, score []int) (ended bool, err error)

	// Results groups participants by final placing, best first.
	Results() [][]*identity.User
	Describe() Description
}
