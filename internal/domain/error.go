package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrIncompleteOrder   = errors.New("order has unspecified required customizations")
	ErrProtocolViolation = errors.New("tool not permitted in current agent mode")
	ErrSessionBusy       = errors.New("another turn is in progress for this session")
	ErrDraftNotReady     = errors.New("draft is not awaiting confirmation")
	ErrEmptyDraft        = errors.New("draft has no line items")
)

// StaleOrderError reports line items that stopped validating against the
// catalog between confirmation and approval. The draft reverts to building
// so the conversation can repair it.
type StaleOrderError struct {
	SessionID    string
	InvalidLines []int
	Reasons      []string
}

func (e *StaleOrderError) Error() string {
	return fmt.Sprintf("order is stale: line items %v no longer valid (%s)",
		e.InvalidLines, strings.Join(e.Reasons, "; "))
}
