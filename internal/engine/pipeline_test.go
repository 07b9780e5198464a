package engine

import (
	"fmt"
	"testing"
	"time"

	"dayflow/internal/models"
)

func testPipeline(now string) *Pipeline {
	fixed, _ := time.Parse(time.RFC3339, now)
	p := NewPipeline()
	p.Now = func() time.Time { return fixed }
	seq := 0
	p.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return p
}

func TestProcessAutoCommitsShortTask(t *testing.T) {
	p := testPipeline("2026-03-02T08:00:00Z")

	result := p.Process([]models.Proposal{
		{Type: models.ProposalTypeTask, Title: "Buy milk", DurationMinutes: 20},
	}, nil)

	if len(result.AutoCommitted) != 1 {
		t.Fatalf("Expected 1 auto-committed proposal, got %d", len(result.AutoCommitted))
	}
	if len(result.PendingConfirmation) != 0 {
		t.Errorf("Expected no pending proposals, got %d", len(result.PendingConfirmation))
	}
	if result.AutoCommitted[0].ID == "" {
		t.Error("Expected a fresh identifier on the normalized proposal")
	}
}

func TestProcessAutoCommitCapIsConfigurable(t *testing.T) {
	p := testPipeline("2026-03-02T08:00:00Z")
	p.AutoCommitMaxMinutes = 90

	result := p.Process([]models.Proposal{
		{Type: models.ProposalTypeTask, Title: "Deep clean garage", DurationMinutes: 90},
	}, nil)
	if len(result.AutoCommitted) != 1 {
		t.Fatalf("Expected a 90-minute task to auto-commit under a 90-minute cap, got %d pending", len(result.PendingConfirmation))
	}

	p.AutoCommitMaxMinutes = 15
	result = p.Process([]models.Proposal{
		{Type: models.ProposalTypeTask, Title: "Buy milk", DurationMinutes: 20},
	}, nil)
	if len(result.PendingConfirmation) != 1 {
		t.Fatalf("Expected a 20-minute task to need confirmation under a 15-minute cap, got %d auto", len(result.AutoCommitted))
	}
}

func TestProcessRoutingPolicy(t *testing.T) {
	start, _ := time.Parse(time.RFC3339, "2026-03-02T14:00:00Z")
	clash, _ := time.Parse(time.RFC3339, "2026-03-02T10:00:00Z")
	clashEnd := clash.Add(20 * time.Minute)
	busy := []models.Commitment{
		commitment("c1", "Standup", "2026-03-02T10:00:00Z", "2026-03-02T10:30:00Z", false),
	}

	tests := []struct {
		name     string
		proposal models.Proposal
		auto     bool
	}{
		{
			"short conflict-free task",
			models.Proposal{Type: models.ProposalTypeTask, Title: "Buy milk", DurationMinutes: 20},
			true,
		},
		{
			"task with no duration uses the default",
			models.Proposal{Type: models.ProposalTypeTask, Title: "Water plants"},
			true,
		},
		{
			"long task needs confirmation",
			models.Proposal{Type: models.ProposalTypeTask, Title: "Deep clean garage", DurationMinutes: 90},
			false,
		},
		{
			"anchor task needs confirmation",
			models.Proposal{Type: models.ProposalTypeTask, Title: "File taxes", DurationMinutes: 30, IsAnchor: true},
			false,
		},
		{
			"every event needs confirmation",
			models.Proposal{Type: models.ProposalTypeEvent, Title: "Lunch", StartAt: &start},
			false,
		},
		{
			"conflicting task needs confirmation",
			models.Proposal{Type: models.ProposalTypeTask, Title: "Sync prep", StartAt: &clash, EndAt: &clashEnd},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPipeline("2026-03-02T08:00:00Z")
			result := p.Process([]models.Proposal{tt.proposal}, busy)

			if got := len(result.AutoCommitted) == 1; got != tt.auto {
				t.Errorf("Expected auto=%v, got auto-committed=%d pending=%d",
					tt.auto, len(result.AutoCommitted), len(result.PendingConfirmation))
			}

			// Routing is a pure function of its inputs: same batch, same split.
			again := testPipeline("2026-03-02T08:00:00Z").Process([]models.Proposal{tt.proposal}, busy)
			if len(again.AutoCommitted) != len(result.AutoCommitted) {
				t.Error("Expected identical routing for identical inputs")
			}
		})
	}
}

func TestProcessFillsDefaultEndBeforeConflictCheck(t *testing.T) {
	p := testPipeline("2026-03-02T08:00:00Z")
	start, _ := time.Parse(time.RFC3339, "2026-03-02T14:00:00Z")

	// The commitment overlaps only the filled-in portion of the event.
	busy := []models.Commitment{
		commitment("c1", "Review", "2026-03-02T14:45:00Z", "2026-03-02T15:15:00Z", false),
	}

	result := p.Process([]models.Proposal{
		{Type: models.ProposalTypeEvent, Title: "Planning", StartAt: &start},
	}, busy)

	if len(result.PendingConfirmation) != 1 {
		t.Fatalf("Expected 1 pending proposal, got %d", len(result.PendingConfirmation))
	}

	pr := result.PendingConfirmation[0]
	if pr.EndAt == nil || !pr.EndAt.After(*pr.StartAt) {
		t.Fatal("Expected endAt to be filled strictly after startAt")
	}
	if got := pr.SpanMinutes(); got != 60 {
		t.Errorf("Expected default 60-minute span, got %d", got)
	}
	if len(result.Conflicts) != 1 {
		t.Errorf("Expected the filled span to conflict, got %d records", len(result.Conflicts))
	}
}

func TestProcessAttachesConflictsToPendingSet(t *testing.T) {
	p := testPipeline("2026-03-02T08:00:00Z")
	busy := []models.Commitment{
		commitment("c1", "Surgery", "2026-03-02T14:15:00Z", "2026-03-02T15:00:00Z", true),
	}

	result := p.Process([]models.Proposal{
		timeBoundProposal("", "Dentist", "2026-03-02T14:00:00Z", "2026-03-02T14:30:00Z"),
	}, busy)

	if len(result.Conflicts) != 1 {
		t.Fatalf("Expected 1 conflict record, got %d", len(result.Conflicts))
	}
	if result.Conflicts[0].ConflictingCommitmentID != "c1" {
		t.Errorf("Expected conflict against c1, got %s", result.Conflicts[0].ConflictingCommitmentID)
	}
}

func TestFindBiasedSlotSkipsConflicts(t *testing.T) {
	// Shallow title anchors at the 13:00 slump; the 13:00-14:00 block is
	// busy, so the first clear 15-minute-aligned slot is 14:00.
	p := testPipeline("2026-03-02T08:00:00Z")
	busy := []models.Commitment{
		commitment("c1", "Lunch & learn", "2026-03-02T13:00:00Z", "2026-03-02T14:00:00Z", false),
	}

	pr := models.Proposal{ID: "p1", Type: models.ProposalTypeTask, Title: "Call pharmacy", DurationMinutes: 30}
	slotted, ok := p.FindBiasedSlot(pr, busy)

	if !ok {
		t.Fatal("Expected a slot, got NotFound")
	}
	if got := slotted.StartAt.Format(time.RFC3339); got != "2026-03-02T14:00:00Z" {
		t.Errorf("Expected slot at 14:00, got %s", got)
	}
	if got := slotted.SpanMinutes(); got != 30 {
		t.Errorf("Expected 30-minute slot, got %d", got)
	}
}

func TestFindBiasedSlotDeepAnchorsAtPeak(t *testing.T) {
	p := testPipeline("2026-03-02T07:00:00Z")

	pr := models.Proposal{ID: "p1", Type: models.ProposalTypeTask, Title: "Write chapter draft", DurationMinutes: 60}
	slotted, ok := p.FindBiasedSlot(pr, nil)

	if !ok {
		t.Fatal("Expected a slot, got NotFound")
	}
	if got := slotted.StartAt.Format(time.RFC3339); got != "2026-03-02T09:00:00Z" {
		t.Errorf("Expected deep work anchored at 09:00 peak, got %s", got)
	}
}

func TestFindBiasedSlotFastForwardsPastAnchor(t *testing.T) {
	// 13:07 now is past the 13:00 slump anchor: scan starts at the next
	// 15-minute boundary.
	p := testPipeline("2026-03-02T13:07:00Z")

	pr := models.Proposal{ID: "p1", Type: models.ProposalTypeTask, Title: "Sort email backlog", DurationMinutes: 15}
	slotted, ok := p.FindBiasedSlot(pr, nil)

	if !ok {
		t.Fatal("Expected a slot, got NotFound")
	}
	if got := slotted.StartAt.Format(time.RFC3339); got != "2026-03-02T13:15:00Z" {
		t.Errorf("Expected fast-forward to 13:15, got %s", got)
	}
}

func TestFindBiasedSlotNotFoundWhenHorizonBusy(t *testing.T) {
	p := testPipeline("2026-03-02T08:00:00Z")
	busy := []models.Commitment{
		commitment("c1", "Offsite", "2026-03-01T00:00:00Z", "2026-03-12T00:00:00Z", false),
	}

	pr := models.Proposal{ID: "p1", Type: models.ProposalTypeTask, Title: "Call bank", DurationMinutes: 30}
	if _, ok := p.FindBiasedSlot(pr, busy); ok {
		t.Error("Expected NotFound when the whole scan horizon is busy")
	}
}

func TestNormalizeForCommit(t *testing.T) {
	start, _ := time.Parse(time.RFC3339, "2026-03-02T14:00:00Z")
	endBefore := start.Add(-30 * time.Minute)

	t.Run("task requires title", func(t *testing.T) {
		_, err := NormalizeForCommit(models.Proposal{Type: models.ProposalTypeTask, Title: "  "}, 60)
		if KindOf(err) != ErrorKindProposalInvalid {
			t.Errorf("Expected ProposalInvalid, got %v", err)
		}
	})

	t.Run("task with title passes", func(t *testing.T) {
		pr, err := NormalizeForCommit(models.Proposal{Type: models.ProposalTypeTask, Title: " Buy milk "}, 60)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if pr.Title != "Buy milk" {
			t.Errorf("Expected trimmed title, got %q", pr.Title)
		}
	})

	t.Run("event requires start", func(t *testing.T) {
		_, err := NormalizeForCommit(models.Proposal{Type: models.ProposalTypeEvent, Title: "Dentist"}, 60)
		if KindOf(err) != ErrorKindProposalInvalid {
			t.Errorf("Expected ProposalInvalid, got %v", err)
		}
	})

	t.Run("missing end synthesizes default span", func(t *testing.T) {
		pr, err := NormalizeForCommit(models.Proposal{Type: models.ProposalTypeEvent, Title: "Dentist", StartAt: &start}, 60)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := pr.SpanMinutes(); got != 60 {
			t.Errorf("Expected 60-minute default span, got %d", got)
		}
	})

	t.Run("inverted end synthesizes 15-minute minimum", func(t *testing.T) {
		pr, err := NormalizeForCommit(models.Proposal{Type: models.ProposalTypeEvent, Title: "Dentist", StartAt: &start, EndAt: &endBefore}, 60)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := pr.SpanMinutes(); got != 15 {
			t.Errorf("Expected 15-minute minimum span, got %d", got)
		}
		if !pr.EndAt.After(*pr.StartAt) {
			t.Error("Expected endAt strictly after startAt")
		}
	})
}
