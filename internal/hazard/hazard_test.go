package hazard_test

import (
	"testing"

	"github.com/inspecta-dev/inspecta/internal/hazard"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"There is a crack in this part", true},
		{"This looks DANGEROUS to me", true},
		{"Everything looks fine", false},
		{"", false},
		// Substring match, not word-boundary match.
		{"the part is cracked along the seam", true},
		{"no problems here", true}, // "problem" is a substring of "problems"
		{"malfunctioning sensor", true},
		{"the risky area", true}, // "risk" matches inside "risky"
		{"a pristine surface", false},
		{"ALERT: inspect immediately", true},
	}
	for _, tc := range cases {
		if got := hazard.Detect(tc.text); got != tc.want {
			t.Errorf("Detect(%q) = %v; want %v", tc.text, got, tc.want)
		}
	}
}

func TestShowTicketButton_RequiresImage(t *testing.T) {
	if hazard.ShowTicketButton("there is a crack", false, false) {
		t.Error("affordance shown without an image attachment")
	}
}

func TestShowTicketButton_OneShot(t *testing.T) {
	if hazard.ShowTicketButton("there is a crack", true, true) {
		t.Error("affordance shown after the button was already clicked")
	}
}

func TestShowTicketButton_AllConditionsMet(t *testing.T) {
	if !hazard.ShowTicketButton("there is a crack", true, false) {
		t.Error("affordance not shown with image + keyword + unclicked button")
	}
}

func TestShowTicketButton_NoKeyword(t *testing.T) {
	if hazard.ShowTicketButton("all good", true, false) {
		t.Error("affordance shown without a hazard keyword")
	}
}
