package model

import (
	"fmt"

	"barista-ai-ordering/internal/domain"
)

// CustomizationAxis is one configurable dimension of a beverage (size, milk,
// syrup, ...) with an enumerated set of valid values. Required axes must be
// chosen before an order can be confirmed; optional axes fall back to Default.
type CustomizationAxis struct {
	Name     string   `json:"name"`
	Values   []string `json:"values"`
	Default  string   `json:"default,omitempty"`
	Required bool     `json:"required"`
}

func (a CustomizationAxis) Allows(value string) bool {
	for _, v := range a.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Beverage is an orderable catalog item. Immutable at session scope; the
// catalog owns it and may change between turns, so order state is always
// re-validated against the live catalog at write time.
type Beverage struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	BasePriceCents int64               `json:"base_price_cents"`
	Tags           []string            `json:"tags,omitempty"`
	Axes           []CustomizationAxis `json:"axes"`
}

func (b *Beverage) Axis(name string) (CustomizationAxis, bool) {
	for _, a := range b.Axes {
		if a.Name == name {
			return a, true
		}
	}
	return CustomizationAxis{}, false
}

// ValidateCustomizations checks that every provided key names an axis of this
// beverage and every value is a member of that axis' allowed set.
func (b *Beverage) ValidateCustomizations(chosen map[string]string) error {
	for k, v := range chosen {
		axis, ok := b.Axis(k)
		if !ok {
			return fmt.Errorf("%w: %q has no customization %q", domain.ErrValidation, b.Name, k)
		}
		if !axis.Allows(v) {
			return fmt.Errorf("%w: %q is not a valid %s for %q", domain.ErrValidation, v, k, b.Name)
		}
	}
	return nil
}

// ApplyDefaults fills unspecified optional axes with their defaults and
// returns the completed map. Required axes without a chosen value are left
// unset; confirmation is where completeness is enforced.
func (b *Beverage) ApplyDefaults(chosen map[string]string) map[string]string {
	out := make(map[string]string, len(b.Axes))
	for k, v := range chosen {
		out[k] = v
	}
	for _, a := range b.Axes {
		if _, ok := out[a.Name]; !ok && !a.Required && a.Default != "" {
			out[a.Name] = a.Default
		}
	}
	return out
}

// ValidateLineItem re-validates a whole line against this beverage: every
// customization a member of its axis, every required axis set, quantity
// positive. Used at tool-write time and again at approval so stale or
// fabricated state never reaches persistence.
func (b *Beverage) ValidateLineItem(li OrderLineItem) error {
	if li.Quantity <= 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, li.Quantity)
	}
	if err := b.ValidateCustomizations(li.Customizations); err != nil {
		return err
	}
	if missing := b.MissingRequired(li.Customizations); len(missing) > 0 {
		return fmt.Errorf("%w: %q needs %v", domain.ErrIncompleteOrder, b.Name, missing)
	}
	return nil
}

// MissingRequired returns the names of required axes not present in chosen.
func (b *Beverage) MissingRequired(chosen map[string]string) []string {
	var missing []string
	for _, a := range b.Axes {
		if a.Required {
			if _, ok := chosen[a.Name]; !ok {
				missing = append(missing, a.Name)
			}
		}
	}
	return missing
}
