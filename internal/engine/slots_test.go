package engine

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("Failed to parse time %q: %v", value, err)
	}
	return parsed
}

func TestFindCandidateSlotsAroundBusyBlock(t *testing.T) {
	// Day starts at 9, ends at 12, a meeting sits at 10:00-11:00. With
	// 30-minute steps and a 30-minute duration the 10:00 and 10:30 positions
	// are skipped and search resumes at 11:00.
	now := mustTime(t, "2026-03-02T08:00:00Z")
	busy := []Interval{{
		Start: mustTime(t, "2026-03-02T10:00:00Z"),
		End:   mustTime(t, "2026-03-02T11:00:00Z"),
	}}

	opts := SlotSearchOptions{DaysAhead: 1, DayStartHour: 9, DayEndHour: 12, StepMinutes: 30, MaxResults: 4}
	slots := FindCandidateSlots(busy, now, 30, opts)

	if len(slots) != 4 {
		t.Fatalf("Expected 4 candidates, got %d", len(slots))
	}

	expected := []string{
		"2026-03-02T09:00:00Z",
		"2026-03-02T09:30:00Z",
		"2026-03-02T11:00:00Z",
		"2026-03-02T11:30:00Z",
	}
	for i, want := range expected {
		if got := slots[i].StartAt.Format(time.RFC3339); got != want {
			t.Errorf("Expected candidate %d to start at %s, got %s", i, want, got)
		}
	}
}

func TestFindCandidateSlotsNeverOverlapBusy(t *testing.T) {
	now := mustTime(t, "2026-03-02T07:15:00Z")
	busy := []Interval{
		{Start: mustTime(t, "2026-03-02T09:30:00Z"), End: mustTime(t, "2026-03-02T10:15:00Z")},
		{Start: mustTime(t, "2026-03-02T13:00:00Z"), End: mustTime(t, "2026-03-02T15:00:00Z")},
		{Start: mustTime(t, "2026-03-03T09:00:00Z"), End: mustTime(t, "2026-03-03T18:00:00Z")},
	}

	slots := FindCandidateSlots(busy, now, 45, DefaultSlotSearchOptions())
	if len(slots) == 0 {
		t.Fatal("Expected candidates, got none")
	}

	for _, slot := range slots {
		if slot.StartAt.Before(now) {
			t.Errorf("Candidate %v starts before now %v", slot.StartAt, now)
		}
		candidate := Interval{Start: slot.StartAt, End: slot.EndAt}
		for _, b := range busy {
			if candidate.Overlaps(b) {
				t.Errorf("Candidate %v-%v overlaps busy %v-%v", slot.StartAt, slot.EndAt, b.Start, b.End)
			}
		}
	}
}

func TestFindCandidateSlotsDayZeroClamp(t *testing.T) {
	// 10:10 now with 30-minute steps clamps the first candidate to 10:30.
	now := mustTime(t, "2026-03-02T10:10:00Z")

	slots := FindCandidateSlots(nil, now, 30, DefaultSlotSearchOptions())
	if len(slots) == 0 {
		t.Fatal("Expected candidates, got none")
	}
	if got := slots[0].StartAt.Format(time.RFC3339); got != "2026-03-02T10:30:00Z" {
		t.Errorf("Expected first candidate at 10:30, got %s", got)
	}
}

func TestFindCandidateSlotsRespectsMaxResults(t *testing.T) {
	now := mustTime(t, "2026-03-02T08:00:00Z")

	opts := DefaultSlotSearchOptions()
	opts.MaxResults = 3
	slots := FindCandidateSlots(nil, now, 30, opts)

	if len(slots) != 3 {
		t.Errorf("Expected exactly 3 candidates, got %d", len(slots))
	}
}

func TestFindCandidateSlotsNoRoomReturnsEmpty(t *testing.T) {
	// A fully booked horizon yields an empty list, not an error.
	now := mustTime(t, "2026-03-02T08:00:00Z")
	busy := []Interval{{
		Start: mustTime(t, "2026-03-01T00:00:00Z"),
		End:   mustTime(t, "2026-03-12T00:00:00Z"),
	}}

	slots := FindCandidateSlots(busy, now, 30, DefaultSlotSearchOptions())
	if len(slots) != 0 {
		t.Errorf("Expected no candidates, got %d", len(slots))
	}
}

func TestFindCandidateSlotsTouchingBusyBoundaryIsFree(t *testing.T) {
	// Half-open semantics: a candidate ending exactly at a busy start (or
	// starting at a busy end) does not overlap.
	now := mustTime(t, "2026-03-02T08:00:00Z")
	busy := []Interval{{
		Start: mustTime(t, "2026-03-02T09:30:00Z"),
		End:   mustTime(t, "2026-03-02T10:00:00Z"),
	}}

	opts := SlotSearchOptions{DaysAhead: 1, DayStartHour: 9, DayEndHour: 11, StepMinutes: 30, MaxResults: 3}
	slots := FindCandidateSlots(busy, now, 30, opts)

	expected := []string{
		"2026-03-02T09:00:00Z",
		"2026-03-02T10:00:00Z",
		"2026-03-02T10:30:00Z",
	}
	if len(slots) != len(expected) {
		t.Fatalf("Expected %d candidates, got %d", len(expected), len(slots))
	}
	for i, want := range expected {
		if got := slots[i].StartAt.Format(time.RFC3339); got != want {
			t.Errorf("Expected candidate %d at %s, got %s", i, want, got)
		}
	}
}

func TestSlotLabels(t *testing.T) {
	now := mustTime(t, "2026-03-02T08:00:00Z") // a Monday

	tests := []struct {
		start    string
		expected string
	}{
		{"2026-03-02T09:00:00Z", "Today Morning"},
		{"2026-03-02T12:00:00Z", "Today Afternoon"},
		{"2026-03-02T17:30:00Z", "Today Evening"},
		{"2026-03-03T09:00:00Z", "Tomorrow Morning"},
		{"2026-03-04T14:00:00Z", "Wed Afternoon"},
		{"2026-03-06T18:00:00Z", "Fri Evening"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := slotLabel(mustTime(t, tt.start), now); got != tt.expected {
				t.Errorf("Expected label %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRoundUpToStep(t *testing.T) {
	tests := []struct {
		in       string
		step     int
		expected string
	}{
		{"2026-03-02T10:10:00Z", 30, "2026-03-02T10:30:00Z"},
		{"2026-03-02T10:31:00Z", 30, "2026-03-02T11:00:00Z"},
		// An aligned time still advances a full step.
		{"2026-03-02T10:30:00Z", 30, "2026-03-02T11:00:00Z"},
		{"2026-03-02T10:03:00Z", 15, "2026-03-02T10:15:00Z"},
	}

	for _, tt := range tests {
		got := roundUpToStep(mustTime(t, tt.in), tt.step)
		if got.Format(time.RFC3339) != tt.expected {
			t.Errorf("Expected %s rounded by %d to be %s, got %s", tt.in, tt.step, tt.expected, got.Format(time.RFC3339))
		}
	}
}
