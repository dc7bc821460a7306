package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"barista-ai-ordering/internal/domain"
)

func latteLine(qty int) OrderLineItem {
	return OrderLineItem{
		BeverageID:     "latte",
		BeverageName:   "Latte",
		Customizations: map[string]string{"size": "large", "milk": "oat"},
		Quantity:       qty,
		UnitPriceCents: 450,
	}
}

func TestOrderDraft_Lifecycle(t *testing.T) {
	d := NewOrderDraft("sess-1")
	if d.Status != DraftBuilding {
		t.Fatalf("new draft status = %s, want building", d.Status)
	}
	if !d.Active() {
		t.Fatal("new draft should be active")
	}

	if err := d.MarkAwaitingConfirmation(); !errors.Is(err, domain.ErrEmptyDraft) {
		t.Fatalf("empty draft confirmation err = %v, want ErrEmptyDraft", err)
	}

	d.AppendLine(latteLine(2))
	if err := d.MarkAwaitingConfirmation(); err != nil {
		t.Fatalf("MarkAwaitingConfirmation: %v", err)
	}
	if !d.Active() {
		t.Fatal("awaiting_confirmation draft should still be active")
	}

	d.RevertToBuilding()
	if d.Status != DraftBuilding {
		t.Fatalf("status after revert = %s, want building", d.Status)
	}

	d.MarkConfirmed()
	if d.Active() {
		t.Fatal("confirmed draft must not be active")
	}
}

func TestOrderDraft_LineOps(t *testing.T) {
	d := NewOrderDraft("sess-1")
	d.AppendLine(latteLine(1))
	d.AppendLine(OrderLineItem{BeverageID: "espresso", BeverageName: "Espresso", Quantity: 1, UnitPriceCents: 300})

	if _, err := d.Line(2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("out-of-range Line err = %v, want ErrNotFound", err)
	}
	if _, err := d.Line(-1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("negative Line err = %v, want ErrNotFound", err)
	}

	if err := d.RemoveLine(0); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if len(d.Lines) != 1 || d.Lines[0].BeverageID != "espresso" {
		t.Fatalf("lines after remove = %+v", d.Lines)
	}
	if err := d.RemoveLine(5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("RemoveLine out-of-range err = %v, want ErrNotFound", err)
	}
}

func TestOrderDraft_TotalsAndSummary(t *testing.T) {
	d := NewOrderDraft("sess-1")
	if got := d.Summary(); got != "Your order is empty." {
		t.Fatalf("empty summary = %q", got)
	}

	d.AppendLine(latteLine(2))                                                                               // 900
	d.AppendLine(OrderLineItem{BeverageID: "espresso", BeverageName: "Espresso", Quantity: 1, UnitPriceCents: 300}) // 300
	if got := d.TotalCents(); got != 1200 {
		t.Fatalf("TotalCents = %d, want 1200", got)
	}

	s := d.Summary()
	for _, want := range []string{"1. 2x Latte", "milk: oat, size: large", "$9.00", "2. 1x Espresso", "Total: $12.00"} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestOrderDraft_JSONRoundTrip(t *testing.T) {
	d := NewOrderDraft("sess-1")
	d.AppendLine(latteLine(2))
	d.AppendLine(OrderLineItem{BeverageID: "espresso", BeverageName: "Espresso", Quantity: 1, UnitPriceCents: 300})
	if err := d.MarkAwaitingConfirmation(); err != nil {
		t.Fatalf("MarkAwaitingConfirmation: %v", err)
	}

	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got OrderDraft
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SessionID != d.SessionID || got.Status != d.Status {
		t.Fatalf("reloaded draft = %s/%s, want %s/%s", got.SessionID, got.Status, d.SessionID, d.Status)
	}
	if !reflect.DeepEqual(got.Lines, d.Lines) {
		t.Fatalf("reloaded lines = %+v, want %+v", got.Lines, d.Lines)
	}
	if !got.UpdatedAt.Equal(d.UpdatedAt) {
		t.Fatalf("reloaded UpdatedAt = %v, want %v", got.UpdatedAt, d.UpdatedAt)
	}
	if got.TotalCents() != 1200 {
		t.Fatalf("reloaded TotalCents = %d, want 1200", got.TotalCents())
	}

	// Reloaded lines still validate against the catalog entry they reference.
	if err := testLatte().ValidateLineItem(got.Lines[0]); err != nil {
		t.Fatalf("reloaded line invalid: %v", err)
	}
}

func TestSession_AppendMessageAndDraft(t *testing.T) {
	s := NewSession("sess-1", "owner-1")
	if s.Mode != ModeRecommendation {
		t.Fatalf("new session mode = %s, want recommendation", s.Mode)
	}

	m1 := s.AppendMessage(ChatMessage{Role: RoleUser, Content: "hi"})
	m2 := s.AppendMessage(ChatMessage{Role: RoleAgent, Content: "hello"})
	if m1.Seq != 0 || m2.Seq != 1 {
		t.Fatalf("seqs = %d, %d; want 0, 1", m1.Seq, m2.Seq)
	}
	if m1.SessionID != "sess-1" {
		t.Fatalf("message session id = %q", m1.SessionID)
	}

	d := s.ActiveDraft()
	d.AppendLine(latteLine(1))
	if s.ActiveDraft() != d {
		t.Fatal("ActiveDraft must return the same draft while it is active")
	}

	d.MarkConfirmed()
	fresh := s.ActiveDraft()
	if fresh == d {
		t.Fatal("confirmed draft is terminal; ActiveDraft must create a new one")
	}
	if len(fresh.Lines) != 0 {
		t.Fatalf("fresh draft has %d lines, want 0", len(fresh.Lines))
	}
}

func TestSession_SwitchModeIsSticky(t *testing.T) {
	s := NewSession("sess-1", "owner-1")
	s.SwitchMode(ModeOrdering)
	if s.Mode != ModeOrdering {
		t.Fatalf("mode = %s, want ordering", s.Mode)
	}
	// Switching to the same mode is a no-op.
	before := s.UpdatedAt
	s.SwitchMode(ModeOrdering)
	if !s.UpdatedAt.Equal(before) {
		t.Fatal("same-mode switch must not touch UpdatedAt")
	}
}

func TestNewSubmittedOrder_IsSnapshot(t *testing.T) {
	d := NewOrderDraft("sess-1")
	d.AppendLine(latteLine(2))
	o := NewSubmittedOrder("order-1", d, "owner-1")

	if o.TotalCents != 900 {
		t.Fatalf("TotalCents = %d, want 900", o.TotalCents)
	}
	// Mutating the draft afterwards must not reach the snapshot.
	d.Lines[0].Quantity = 99
	if o.Lines[0].Quantity != 2 {
		t.Fatal("submitted order shares line storage with the draft")
	}
}
