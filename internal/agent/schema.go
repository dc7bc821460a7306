// Package agent holds the conversational core: the schema-typed tools the
// model may invoke, their mode scoping, and the executor that applies them
// to a session's order draft with live-catalog validation.
package agent

import (
	"barista-ai-ordering/internal/domain/model"
	"barista-ai-ordering/internal/domain/ports/adapter"
)

const (
	ToolAddItem             = "add_item"
	ToolModifyItem          = "modify_item"
	ToolRemoveItem          = "remove_item"
	ToolSetQuantity         = "set_quantity"
	ToolRequestConfirmation = "request_confirmation"
	ToolSuggest             = "suggest_beverages"
)

var orderToolSchemas = []adapter.ToolSchema{
	{
		Name:        ToolAddItem,
		Description: "Add a beverage to the customer's order. Customizations must use the catalog's axis names and values.",
		Params: map[string]adapter.ParamSpec{
			"beverage_id":    {Type: "string", Description: "Catalog id of the beverage", Required: true},
			"customizations": {Type: "object", Description: "Chosen customization values keyed by axis name (e.g. size, milk)"},
			"quantity":       {Type: "integer", Description: "Number of units, defaults to 1"},
		},
	},
	{
		Name:        ToolModifyItem,
		Description: "Patch an existing order line. Only provided fields change; the patched line is re-validated as a whole.",
		Params: map[string]adapter.ParamSpec{
			"line_index":     {Type: "integer", Description: "Zero-based index of the line to modify", Required: true},
			"beverage_id":    {Type: "string", Description: "Replacement beverage id"},
			"customizations": {Type: "object", Description: "Customization values to set or change"},
			"quantity":       {Type: "integer", Description: "New quantity"},
		},
	},
	{
		Name:        ToolRemoveItem,
		Description: "Remove a line from the order.",
		Params: map[string]adapter.ParamSpec{
			"line_index": {Type: "integer", Description: "Zero-based index of the line to remove", Required: true},
		},
	},
	{
		Name:        ToolSetQuantity,
		Description: "Change the quantity of an existing order line.",
		Params: map[string]adapter.ParamSpec{
			"line_index": {Type: "integer", Description: "Zero-based index of the line", Required: true},
			"quantity":   {Type: "integer", Description: "New quantity, must be positive", Required: true},
		},
	},
	{
		Name:        ToolRequestConfirmation,
		Description: "Ask the customer to confirm the completed order. Fails while any line is missing a required customization.",
		Params:      map[string]adapter.ParamSpec{},
	},
}

var recommendationToolSchemas = []adapter.ToolSchema{
	{
		Name:        ToolSuggest,
		Description: "Suggest beverages from the catalog matching the customer's stated preferences. Read-only.",
		Params: map[string]adapter.ParamSpec{
			"preference_hints": {Type: "string", Description: "Free-form preference hints, e.g. 'something cold and sweet'"},
		},
	},
}

// ToolsForMode is the single source of truth for which tools each agent
// mode exposes. Recommendation mode never sees the draft-mutating tools.
func ToolsForMode(mode model.AgentMode) []adapter.ToolSchema {
	switch mode {
	case model.ModeOrdering:
		out := make([]adapter.ToolSchema, 0, len(orderToolSchemas)+len(recommendationToolSchemas))
		out = append(out, orderToolSchemas...)
		return append(out, recommendationToolSchemas...)
	case model.ModeRecommendation:
		return recommendationToolSchemas
	default:
		return nil
	}
}

func permitted(mode model.AgentMode, name string) bool {
	for _, t := range ToolsForMode(mode) {
		if t.Name == name {
			return true
		}
	}
	return false
}
