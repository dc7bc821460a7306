package agent

import "strings"

// Phrases that signal the customer wants to build an order rather than
// browse. Once a session switches to ordering mode it stays there; the
// switch is recorded on the session as an explicit state transition.
var orderingIntentMarkers = []string{
	"i'd like",
	"i would like",
	"i'll have",
	"i will have",
	"i want",
	"can i get",
	"can i have",
	"could i get",
	"give me",
	"get me",
	"order",
	"add ",
	"make it",
	"buy",
	"confirm",
	"checkout",
}

// DetectOrderingIntent reports whether a user message expresses intent to
// order. Errs toward false negatives: missing the intent keeps the session
// in recommendation mode for one more turn, which is recoverable, while a
// false positive exposes mutating tools early.
func DetectOrderingIntent(text string) bool {
	t := strings.ToLower(text)
	for _, marker := range orderingIntentMarkers {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}
