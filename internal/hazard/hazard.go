// Package hazard derives the ticket affordance signal from generated text.
//
// Detection is a fixed-set, case-insensitive substring scan. It is a simple
// heuristic, not a classifier: no stemming, no word boundaries. The set and
// the matching rule are part of the observable contract and must not change.
package hazard

import "strings"

// keywords is the fixed hazard vocabulary.
var keywords = []string{
	"hazard", "hazards", "risk", "risks", "danger", "dangerous",
	"broken", "damaged", "crack", "cracked", "defect", "defective",
	"unsafe", "malfunction", "failure", "fault", "faulty",
	"concern", "issue", "problem", "warning", "alert",
}

// Detect reports whether the text contains at least one hazard keyword.
func Detect(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ShowTicketButton decides whether the caller should offer the
// ticket-creation affordance for this turn: the prompt must have carried an
// image, the one-shot button flag must still be unset, and the generated
// text must mention a hazard. The flag itself is mutated only by ticket
// creation, never here.
func ShowTicketButton(responseText string, hasImage, buttonClicked bool) bool {
	return hasImage && !buttonClicked && Detect(responseText)
}
