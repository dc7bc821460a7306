package agent

import (
	"context"
	"errors"
	"fmt"

	"barista-ai-ordering/internal/domain"
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/adapter"
	"barista-ai-ordering/internal/domain/ports/repository"
)

// Toolkit executes tool calls against a session's draft. Every mutation
// validates against the live catalog at write time; nothing from the
// model's prior turns is trusted.
type Toolkit struct {
	catalog repository.CatalogRepository
	orders  repository.SubmittedOrderRepository
}

func NewToolkit(catalog repository.CatalogRepository, orders repository.SubmittedOrderRepository) *Toolkit {
	return &Toolkit{catalog: catalog, orders: orders}
}

// Execute dispatches one tool call. The returned string becomes the
// tool-result message content. A *ToolError is recoverable and is surfaced
// into the conversation; any other error is infrastructure and terminates
// the turn.
func (t *Toolkit) Execute(ctx context.Context, mode model.AgentMode, call adapter.ToolCall, sess *model.Session) (string, error) {
	if !permitted(mode, call.Name) {
		return "", toolErrf(KindProtocolViolation, "tool %q is not available in %s mode", call.Name, mode)
	}
	switch call.Name {
	case ToolAddItem:
		return t.addItem(ctx, call.Args, sess.ActiveDraft())
	case ToolModifyItem:
		return t.modifyItem(ctx, call.Args, sess.ActiveDraft())
	case ToolRemoveItem:
		return t.removeItem(call.Args, sess.ActiveDraft())
	case ToolSetQuantity:
		return t.setQuantity(ctx, call.Args, sess.ActiveDraft())
	case ToolRequestConfirmation:
		return t.requestConfirmation(ctx, sess.ActiveDraft())
	case ToolSuggest:
		return t.suggest(ctx, call.Args, sess.OwnerID)
	default:
		return "", toolErrf(KindProtocolViolation, "unknown tool %q", call.Name)
	}
}

func (t *Toolkit) addItem(ctx context.Context, args map[string]any, draft *model.OrderDraft) (string, error) {
	beverageID, err := stringArg(args, "beverage_id", true)
	if err != nil {
		return "", err
	}
	customizations, err := mapArg(args, "customizations")
	if err != nil {
		return "", err
	}
	quantity, err := intArg(args, "quantity", 1)
	if err != nil {
		return "", err
	}
	if quantity <= 0 {
		return "", toolErrf(KindInvalidQuantity, "quantity must be positive, got %d", quantity)
	}

	bev, err := t.getBeverage(ctx, beverageID)
	if err != nil {
		return "", err
	}
	if err := bev.ValidateCustomizations(customizations); err != nil {
		return "", toolErrFrom(err)
	}

	draft.AppendLine(model.OrderLineItem{
		BeverageID:     bev.ID,
		BeverageName:   bev.Name,
		Customizations: bev.ApplyDefaults(customizations),
		Quantity:       quantity,
		UnitPriceCents: bev.BasePriceCents,
	})
	return "Added to order.\n" + draft.Summary(), nil
}

func (t *Toolkit) modifyItem(ctx context.Context, args map[string]any, draft *model.OrderDraft) (string, error) {
	index, err := intArg(args, "line_index", -1)
	if err != nil {
		return "", err
	}
	line, lerr := draft.Line(index)
	if lerr != nil {
		return "", toolErrFrom(lerr)
	}

	// Build the patched line, then re-validate it as a whole against the
	// live catalog. Untouched values are re-checked too.
	patched := *line
	patched.Customizations = make(map[string]string, len(line.Customizations))
	for k, v := range line.Customizations {
		patched.Customizations[k] = v
	}
	if raw, ok := args["beverage_id"]; ok && raw != nil {
		id, err := stringArg(args, "beverage_id", true)
		if err != nil {
			return "", err
		}
		patched.BeverageID = id
	}
	if patch, err := mapArg(args, "customizations"); err != nil {
		return "", err
	} else {
		for k, v := range patch {
			patched.Customizations[k] = v
		}
	}
	if raw, ok := args["quantity"]; ok && raw != nil {
		q, err := intArg(args, "quantity", patched.Quantity)
		if err != nil {
			return "", err
		}
		if q <= 0 {
			return "", toolErrf(KindInvalidQuantity, "quantity must be positive, got %d", q)
		}
		patched.Quantity = q
	}

	bev, err := t.getBeverage(ctx, patched.BeverageID)
	if err != nil {
		return "", err
	}
	if err := bev.ValidateCustomizations(patched.Customizations); err != nil {
		return "", toolErrFrom(err)
	}
	patched.BeverageName = bev.Name
	patched.UnitPriceCents = bev.BasePriceCents
	patched.Customizations = bev.ApplyDefaults(patched.Customizations)

	*line = patched
	draft.RevertToBuilding()
	return "Updated.\n" + draft.Summary(), nil
}

func (t *Toolkit) removeItem(args map[string]any, draft *model.OrderDraft) (string, error) {
	index, err := intArg(args, "line_index", -1)
	if err != nil {
		return "", err
	}
	if err := draft.RemoveLine(index); err != nil {
		return "", toolErrFrom(err)
	}
	draft.RevertToBuilding()
	return "Removed.\n" + draft.Summary(), nil
}

func (t *Toolkit) setQuantity(ctx context.Context, args map[string]any, draft *model.OrderDraft) (string, error) {
	index, err := intArg(args, "line_index", -1)
	if err != nil {
		return "", err
	}
	quantity, err := intArg(args, "quantity", 0)
	if err != nil {
		return "", err
	}
	if quantity <= 0 {
		return "", toolErrf(KindInvalidQuantity, "quantity must be positive, got %d", quantity)
	}
	line, lerr := draft.Line(index)
	if lerr != nil {
		return "", toolErrFrom(lerr)
	}
	// Re-validate the whole line so a beverage removed from the catalog
	// since the last turn is caught here, not at approval.
	bev, err := t.getBeverage(ctx, line.BeverageID)
	if err != nil {
		return "", err
	}
	if err := bev.ValidateCustomizations(line.Customizations); err != nil {
		return "", toolErrFrom(err)
	}
	line.Quantity = quantity
	draft.RevertToBuilding()
	return "Quantity updated.\n" + draft.Summary(), nil
}

func (t *Toolkit) requestConfirmation(ctx context.Context, draft *model.OrderDraft) (string, error) {
	if len(draft.Lines) == 0 {
		return "", toolErrf(KindIncompleteOrder, "the order is empty")
	}
	for i, li := range draft.Lines {
		bev, err := t.getBeverage(ctx, li.BeverageID)
		if err != nil {
			return "", err
		}
		if err := bev.ValidateLineItem(li); err != nil {
			if te, ok := asToolError(err); ok {
				te.Message = fmt.Sprintf("line %d: %s", i, te.Message)
				return "", te
			}
			return "", err
		}
	}
	if err := draft.MarkAwaitingConfirmation(); err != nil {
		return "", toolErrFrom(err)
	}
	return "Please confirm this order:\n" + draft.Summary(), nil
}

// getBeverage resolves a catalog id, converting not-found into a
// ValidationError the model can react to. Other failures are infrastructure.
func (t *Toolkit) getBeverage(ctx context.Context, id string) (*model.Beverage, error) {
	bev, err := t.catalog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, toolErrf(KindValidation, "unknown beverage %q", id)
		}
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	return bev, nil
}

func toolErrFrom(err error) error {
	if te, ok := asToolError(err); ok {
		return te
	}
	return err
}

// ---- argument decoding ----
// Model-provided arguments arrive as decoded JSON (map[string]any), so
// numbers are float64 and everything needs checking before use.

func stringArg(args map[string]any, key string, required bool) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return "", toolErrf(KindValidation, "missing required argument %q", key)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", toolErrf(KindValidation, "argument %q must be a string", key)
	}
	return s, nil
}

func intArg(args map[string]any, key string, def int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if def < 0 {
			return 0, toolErrf(KindValidation, "missing required argument %q", key)
		}
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, toolErrf(KindValidation, "argument %q must be an integer", key)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, toolErrf(KindValidation, "argument %q must be an integer", key)
	}
}

func mapArg(args map[string]any, key string) (map[string]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return map[string]string{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, toolErrf(KindValidation, "argument %q must be an object", key)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, toolErrf(KindValidation, "customization %q must be a string value", k)
		}
		out[k] = s
	}
	return out, nil
}
