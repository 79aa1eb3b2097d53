package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("invalid input")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrInsufficientPlayers = errors.New("not enough players to start a round")
	ErrNoWordsAvailable    = errors.New("no words available for difficulty")
	ErrPermissionDenied    = errors.New("only the host can perform this action")
	ErrDuplicateVote       = errors.New("player has already voted this round")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrNotMember           = errors.New("player is not a member of the room")
	ErrWrongPhase          = errors.New("action not allowed in the current phase")
)

// Validation wraps ErrValidation with a description of the bad input.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
