package handlers

import (
	"testing"
	"time"
)

func TestParseWindowRangeDaysShorthand(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	from, to, err := parseWindowRange("", "", "7", now)
	if err != nil {
		t.Fatalf("parseWindowRange failed: %v", err)
	}
	if !from.Equal(now) {
		t.Errorf("Expected window to start now, got %v", from)
	}
	if want := now.AddDate(0, 0, 7); !to.Equal(want) {
		t.Errorf("Expected window to end %v, got %v", want, to)
	}
}

func TestParseWindowRangeDaysOverridesTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	from, to, err := parseWindowRange("2026-01-01T00:00:00Z", "2026-01-02T00:00:00Z", "3", now)
	if err != nil {
		t.Fatalf("parseWindowRange failed: %v", err)
	}
	if !from.Equal(now) || !to.Equal(now.AddDate(0, 0, 3)) {
		t.Errorf("Expected days to take precedence, got [%v, %v]", from, to)
	}
}

func TestParseWindowRangeExplicitTimestamps(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	from, to, err := parseWindowRange("2026-03-02T08:00:00Z", "2026-03-03T08:00:00Z", "", now)
	if err != nil {
		t.Fatalf("parseWindowRange failed: %v", err)
	}
	if from.Format(time.RFC3339) != "2026-03-02T08:00:00Z" {
		t.Errorf("Unexpected from: %v", from)
	}
	if to.Format(time.RFC3339) != "2026-03-03T08:00:00Z" {
		t.Errorf("Unexpected to: %v", to)
	}
}

func TestParseWindowRangeRejectsBadInput(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		from string
		to   string
		days string
	}{
		{"zero days", "", "", "0"},
		{"negative days", "", "", "-2"},
		{"non-numeric days", "", "", "week"},
		{"missing from", "", "2026-03-03T08:00:00Z", ""},
		{"missing to", "2026-03-02T08:00:00Z", "", ""},
		{"inverted range", "2026-03-03T08:00:00Z", "2026-03-02T08:00:00Z", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseWindowRange(tt.from, tt.to, tt.days, now); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}
