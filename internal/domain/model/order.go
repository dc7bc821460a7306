package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"barista-ai-ordering/internal/domain"
)

type DraftStatus string

const (
	DraftBuilding             DraftStatus = "building"
	DraftAwaitingConfirmation DraftStatus = "awaiting_confirmation"
	DraftConfirmed            DraftStatus = "confirmed"
	DraftAbandoned            DraftStatus = "abandoned"
)

// OrderLineItem references a beverage with chosen customization values.
// Mutable only through the order tools; every mutation re-validates the
// whole item against the live catalog.
type OrderLineItem struct {
	BeverageID     string            `json:"beverage_id"`
	BeverageName   string            `json:"beverage_name"`
	Customizations map[string]string `json:"customizations"`
	Quantity       int               `json:"quantity"`
	UnitPriceCents int64             `json:"unit_price_cents"`
}

func (li OrderLineItem) LineTotalCents() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// OrderDraft is the in-progress order attached to exactly one session.
// While building it may be empty; transitioning to awaiting_confirmation
// requires at least one fully specified line item.
type OrderDraft struct {
	SessionID string          `json:"session_id"`
	Status    DraftStatus     `json:"status"`
	Lines     []OrderLineItem `json:"lines"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewOrderDraft(sessionID string) *OrderDraft {
	return &OrderDraft{
		SessionID: sessionID,
		Status:    DraftBuilding,
		Lines:     make([]OrderLineItem, 0, 4),
		UpdatedAt: time.Now(),
	}
}

// Active reports whether this draft still accepts mutation.
func (d *OrderDraft) Active() bool {
	return d.Status == DraftBuilding || d.Status == DraftAwaitingConfirmation
}

func (d *OrderDraft) Line(index int) (*OrderLineItem, error) {
	if index < 0 || index >= len(d.Lines) {
		return nil, fmt.Errorf("%w: line %d (draft has %d)", domain.ErrNotFound, index, len(d.Lines))
	}
	return &d.Lines[index], nil
}

func (d *OrderDraft) AppendLine(li OrderLineItem) {
	d.Lines = append(d.Lines, li)
	d.touch()
}

func (d *OrderDraft) RemoveLine(index int) error {
	if _, err := d.Line(index); err != nil {
		return err
	}
	d.Lines = append(d.Lines[:index], d.Lines[index+1:]...)
	d.touch()
	return nil
}

func (d *OrderDraft) TotalCents() int64 {
	var total int64
	for _, li := range d.Lines {
		total += li.LineTotalCents()
	}
	return total
}

// MarkAwaitingConfirmation transitions building -> awaiting_confirmation.
// Completeness (non-empty, fully specified lines) is the caller's job since
// it needs the catalog; this only guards the state transition itself.
func (d *OrderDraft) MarkAwaitingConfirmation() error {
	if len(d.Lines) == 0 {
		return domain.ErrEmptyDraft
	}
	d.Status = DraftAwaitingConfirmation
	d.touch()
	return nil
}

func (d *OrderDraft) RevertToBuilding() {
	d.Status = DraftBuilding
	d.touch()
}

func (d *OrderDraft) MarkConfirmed() {
	d.Status = DraftConfirmed
	d.touch()
}

func (d *OrderDraft) MarkAbandoned() {
	d.Status = DraftAbandoned
	d.touch()
}

func (d *OrderDraft) touch() { d.UpdatedAt = time.Now() }

// Summary renders a human-readable draft summary the agent presents back
// to the customer.
func (d *OrderDraft) Summary() string {
	if len(d.Lines) == 0 {
		return "Your order is empty."
	}
	var b strings.Builder
	for i, li := range d.Lines {
		fmt.Fprintf(&b, "%d. %dx %s", i+1, li.Quantity, li.BeverageName)
		if len(li.Customizations) > 0 {
			parts := make([]string, 0, len(li.Customizations))
			for _, a := range sortedKeys(li.Customizations) {
				parts = append(parts, fmt.Sprintf("%s: %s", a, li.Customizations[a]))
			}
			fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
		}
		fmt.Fprintf(&b, " = $%.2f\n", float64(li.LineTotalCents())/100)
	}
	fmt.Fprintf(&b, "Total: $%.2f", float64(d.TotalCents())/100)
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
