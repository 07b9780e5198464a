package engine

import (
	"testing"
	"time"
)

func TestParseLocalRequest(t *testing.T) {
	now, _ := time.Parse(time.RFC3339, "2026-03-02T08:00:00Z")

	tests := []struct {
		name    string
		text    string
		title   string
		dueDate string
	}{
		{"strips need-to prefix", "i need to buy milk", "Buy milk", ""},
		{"strips have-to prefix", "I have to call the bank", "Call the bank", ""},
		{"strips remind-me prefix", "remind me to water the plants", "Water the plants", ""},
		{"no prefix keeps text", "pick up dry cleaning", "Pick up dry cleaning", ""},
		{"today due date", "i need to submit the form today", "Submit the form today", "2026-03-02"},
		{"tomorrow due date", "remind me to pack tomorrow", "Pack tomorrow", "2026-03-03"},
		{"this week due date", "i have to renew insurance this week", "Renew insurance this week", "2026-03-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, proposals := ParseLocalRequest(tt.text, now)

			if reply == "" {
				t.Error("Expected a non-empty reply")
			}
			if len(proposals) != 1 {
				t.Fatalf("Expected 1 proposal, got %d", len(proposals))
			}

			pr := proposals[0]
			if pr.Title != tt.title {
				t.Errorf("Expected title %q, got %q", tt.title, pr.Title)
			}
			if pr.DueDate != tt.dueDate {
				t.Errorf("Expected due date %q, got %q", tt.dueDate, pr.DueDate)
			}
			if pr.ID == "" {
				t.Error("Expected a generated proposal id")
			}
		})
	}
}
