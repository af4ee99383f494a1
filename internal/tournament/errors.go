package tournament

import (
	"errors"
	"fmt"
	"strings"
)

// Protocol errors. The text is the wire error code.
var (
	ErrAlreadyStarted        = errors.New("AlreadyStarted")
	ErrNotStarted            = errors.New("NotStarted")
	ErrNotEnoughParticipants = errors.New("NotEnoughUsers")
	ErrAlreadyDisqualified   = errors.New("AlreadyDisqualified")
	ErrInvalidMatch          = errors.New("InvalidMatch")
	ErrAltAlreadyJoined      = errors.New("AltUserAlreadyAdded")
	ErrParticipantBusy       = errors.New("UserBusy")
)

var (
	ErrTournamentExists = errors.New("a tournament is already running in this room")
	ErrLockdown         = errors.New("the server is restarting soon, so a tournament cannot be created")
	ErrNoTournament     = errors.New("there is currently no tournament running in this room")

	// ErrContractViolation marks internal inconsistencies. They are logged and
	// abort the operation that found them.
	ErrContractViolation = errors.New("internal tournament error")
)

// ValidationError rejects a requested format or generator type and lists the valid ones.
type ValidationError struct {
	Field string
	Value string
	Valid []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is not a valid %s. Valid %ss: %s", e.Value, e.Field, e.Field, strings.Join(e.Valid, ", "))
}
