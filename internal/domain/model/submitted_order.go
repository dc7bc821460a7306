package model

import "time"

// SubmittedOrder is the immutable snapshot of a confirmed draft. Created
// exactly once per confirmed draft by the approval path and never mutated.
type SubmittedOrder struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	OwnerID     string          `json:"owner_id"`
	Lines       []OrderLineItem `json:"lines"`
	TotalCents  int64           `json:"total_cents"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

func NewSubmittedOrder(id string, draft *OrderDraft, ownerID string) *SubmittedOrder {
	lines := make([]OrderLineItem, len(draft.Lines))
	copy(lines, draft.Lines)
	return &SubmittedOrder{
		ID:          id,
		SessionID:   draft.SessionID,
		OwnerID:     ownerID,
		Lines:       lines,
		TotalCents:  draft.TotalCents(),
		SubmittedAt: time.Now(),
	}
}
