package board

import (
	"errors"
	"fmt"

	"lukechampine.com/uint128"
)

var (
	// ErrKeyNotFound is returned by Tx.Get for absent keys. Store
	// implementations must translate their own not-found errors to it.
	ErrKeyNotFound = errors.New("board: key not found")

	// ErrNotInitialized is returned when any operation runs before
	// Initialize has persisted the stipend config.
	ErrNotInitialized = errors.New("board: not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("board: already initialized")

	// ErrInvalidStipend rejects an initialization with an unnamed coin or
	// an amount below 1.
	ErrInvalidStipend = errors.New("board: a named coin with an amount of at least 1 is required")

	// ErrInvalidMessageID is returned when liking a message that does not
	// exist.
	ErrInvalidMessageID = errors.New("board: no message with that id")
)

// An InvalidFundsError reports attached funds that do not match the
// configured stipend. It carries the expected payment so the caller can
// reconstruct what was required.
type InvalidFundsError struct {
	ExpectedDenom  string
	ExpectedAmount uint128.Uint128
}

func (e *InvalidFundsError) Error() string {
	return fmt.Sprintf("invalid funds: exactly %s %s must be attached", e.ExpectedAmount, e.ExpectedDenom)
}

// A MessageNotFoundError reports a point lookup of an absent message.
type MessageNotFoundError struct {
	ID uint128.Uint128
}

func (e *MessageNotFoundError) Error() string {
	return fmt.Sprintf("board: message %s not found", e.ID)
}

// A LikesNotFoundError reports a like lookup for a message that has never
// been liked.
type LikesNotFoundError struct {
	MessageID uint128.Uint128
}

func (e *LikesNotFoundError) Error() string {
	return fmt.Sprintf("board: no likes recorded for message %s", e.MessageID)
}
