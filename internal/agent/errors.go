package agent

import (
	"errors"
	"fmt"

	"barista-ai-ordering/internal/domain"
)

// Error kinds surfaced into the conversation as tool results. These are
// recoverable within a turn: the model reads them and self-corrects or asks
// a clarifying question.
const (
	KindValidation        = "ValidationError"
	KindInvalidQuantity   = "InvalidQuantity"
	KindNotFound          = "NotFound"
	KindIncompleteOrder   = "IncompleteOrder"
	KindProtocolViolation = "ProtocolViolation"
)

// ToolError is a recoverable tool-level failure. The orchestrator appends
// it to history as a tool-result message instead of failing the turn.
type ToolError struct {
	Kind    string
	Message string
}

func (e *ToolError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func toolErrf(kind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// asToolError classifies domain sentinels into conversation-surfaceable
// kinds. Anything unclassified is an infrastructure failure and terminates
// the turn instead.
func asToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return &ToolError{Kind: KindValidation, Message: err.Error()}, true
	case errors.Is(err, domain.ErrInvalidQuantity):
		return &ToolError{Kind: KindInvalidQuantity, Message: err.Error()}, true
	case errors.Is(err, domain.ErrNotFound):
		return &ToolError{Kind: KindNotFound, Message: err.Error()}, true
	case errors.Is(err, domain.ErrIncompleteOrder), errors.Is(err, domain.ErrEmptyDraft):
		return &ToolError{Kind: KindIncompleteOrder, Message: err.Error()}, true
	case errors.Is(err, domain.ErrProtocolViolation):
		return &ToolError{Kind: KindProtocolViolation, Message: err.Error()}, true
	}
	return nil, false
}
