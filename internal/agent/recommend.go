package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// suggestion pairs a candidate beverage with the rationale shown to the
// model. Scoring is deliberately simple: token overlap with name, tags and
// description, plus a boost for beverages the customer ordered before.
type suggestion struct {
	beverageID string
	name       string
	rationale  string
	score      int
}

const maxSuggestions = 5

func (t *Toolkit) suggest(ctx context.Context, args map[string]any, ownerID string) (string, error) {
	hints, err := stringArg(args, "preference_hints", false)
	if err != nil {
		return "", err
	}

	beverages, err := t.catalog.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("catalog list: %w", err)
	}

	previouslyOrdered := map[string]bool{}
	if ownerID != "" && t.orders != nil {
		// History is a soft signal; failure to load it never fails the tool.
		if orders, err := t.orders.FindAllByOwner(ctx, nil, ownerID); err == nil {
			for _, o := range orders {
				for _, li := range o.Lines {
					previouslyOrdered[li.BeverageID] = true
				}
			}
		}
	}

	terms := tokenize(hints)
	var candidates []suggestion
	for _, bev := range beverages {
		score := 0
		var why []string
		haystack := strings.ToLower(bev.Name + " " + bev.Description + " " + strings.Join(bev.Tags, " "))
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score += 2
				why = append(why, "matches "+term)
			}
		}
		if previouslyOrdered[bev.ID] {
			score++
			why = append(why, "ordered before")
		}
		if len(terms) == 0 {
			// No hints: everything is a candidate, history still ranks first.
			score++
			why = append(why, "popular pick")
		}
		if score > 0 {
			candidates = append(candidates, suggestion{
				beverageID: bev.ID,
				name:       bev.Name,
				rationale:  strings.Join(why, ", "),
				score:      score,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > maxSuggestions {
		candidates = candidates[:maxSuggestions]
	}

	// Empty result is a valid, non-error outcome.
	if len(candidates) == 0 {
		return "No beverages matched those preferences.", nil
	}

	var b strings.Builder
	b.WriteString("Suggestions:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s (id: %s): %s\n", i+1, c.name, c.beverageID, c.rationale)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func tokenize(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,!?")
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
