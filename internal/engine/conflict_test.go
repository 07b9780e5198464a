package engine

import (
	"testing"
	"time"

	"dayflow/internal/models"
)

func timeBoundProposal(id, title, start, end string) models.Proposal {
	s, _ := time.Parse(time.RFC3339, start)
	e, _ := time.Parse(time.RFC3339, end)
	return models.Proposal{ID: id, Type: models.ProposalTypeEvent, Title: title, StartAt: &s, EndAt: &e}
}

func commitment(id, title, start, end string, anchor bool) models.Commitment {
	s, _ := time.Parse(time.RFC3339, start)
	e, _ := time.Parse(time.RFC3339, end)
	return models.Commitment{ID: id, Title: title, StartAt: s, EndAt: e, IsAnchor: anchor}
}

func TestFindConflictsOverlap(t *testing.T) {
	proposals := []models.Proposal{
		timeBoundProposal("p1", "Dentist", "2026-03-02T14:00:00Z", "2026-03-02T14:30:00Z"),
	}
	commitments := []models.Commitment{
		commitment("c1", "Surgery", "2026-03-02T14:15:00Z", "2026-03-02T15:00:00Z", true),
	}

	conflicts := FindConflicts(proposals, commitments, 0)

	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].ProposalID != "p1" || conflicts[0].ConflictingCommitmentID != "c1" {
		t.Errorf("Expected conflict p1/c1, got %s/%s", conflicts[0].ProposalID, conflicts[0].ConflictingCommitmentID)
	}
}

func TestFindConflictsHalfOpenBoundaries(t *testing.T) {
	commitments := []models.Commitment{
		commitment("c1", "Standup", "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", false),
	}

	tests := []struct {
		name     string
		start    string
		end      string
		conflict bool
	}{
		{"ends exactly at busy start", "2026-03-02T09:30:00Z", "2026-03-02T10:00:00Z", false},
		{"starts exactly at busy end", "2026-03-02T11:00:00Z", "2026-03-02T11:30:00Z", false},
		{"one minute into busy", "2026-03-02T10:59:00Z", "2026-03-02T11:30:00Z", true},
		{"fully inside busy", "2026-03-02T10:15:00Z", "2026-03-02T10:45:00Z", true},
		{"fully covers busy", "2026-03-02T09:00:00Z", "2026-03-02T12:00:00Z", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposals := []models.Proposal{timeBoundProposal("p", "Check", tt.start, tt.end)}
			conflicts := FindConflicts(proposals, commitments, 0)
			if got := len(conflicts) > 0; got != tt.conflict {
				t.Errorf("Expected conflict=%v, got %v", tt.conflict, got)
			}
		})
	}
}

func TestFindConflictsBufferExpansion(t *testing.T) {
	commitments := []models.Commitment{
		commitment("c1", "Standup", "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", false),
	}
	// Touches the busy boundary: clear without buffer, conflicting with one.
	proposals := []models.Proposal{
		timeBoundProposal("p", "Coffee", "2026-03-02T09:30:00Z", "2026-03-02T10:00:00Z"),
	}

	if got := FindConflicts(proposals, commitments, 0); len(got) != 0 {
		t.Errorf("Expected no conflict without buffer, got %d", len(got))
	}
	if got := FindConflicts(proposals, commitments, 10); len(got) != 1 {
		t.Errorf("Expected conflict with 10-minute buffer, got %d", len(got))
	}
}

func TestFindConflictsPerCommitmentBuffer(t *testing.T) {
	c := commitment("c1", "Client visit", "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", false)
	c.BufferMinutes = 30 // travel time around this one commitment

	proposals := []models.Proposal{
		timeBoundProposal("p", "Errand", "2026-03-02T11:15:00Z", "2026-03-02T11:45:00Z"),
	}

	if got := FindConflicts(proposals, []models.Commitment{c}, 0); len(got) != 1 {
		t.Errorf("Expected commitment's own buffer to cause a conflict, got %d", len(got))
	}
}

func TestFindConflictsReportsFirstCommitmentOnly(t *testing.T) {
	proposals := []models.Proposal{
		timeBoundProposal("p", "Block", "2026-03-02T09:00:00Z", "2026-03-02T17:00:00Z"),
	}
	commitments := []models.Commitment{
		commitment("c1", "First", "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z", false),
		commitment("c2", "Second", "2026-03-02T13:00:00Z", "2026-03-02T14:00:00Z", false),
	}

	conflicts := FindConflicts(proposals, commitments, 0)
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict record, got %d", len(conflicts))
	}
	if conflicts[0].ConflictingCommitmentID != "c1" {
		t.Errorf("Expected first commitment c1 reported, got %s", conflicts[0].ConflictingCommitmentID)
	}
}

func TestFindConflictsSkipsDateOnly(t *testing.T) {
	proposals := []models.Proposal{
		timeBoundProposal("p", "Meeting", "2026-03-02T10:00:00Z", "2026-03-02T11:00:00Z"),
		{ID: "p2", Type: models.ProposalTypeTask, Title: "Buy milk"},
	}
	commitments := []models.Commitment{
		{ID: "c1", Title: "Pay rent", DueDate: "2026-03-02"},
	}

	if got := FindConflicts(proposals, commitments, 0); len(got) != 0 {
		t.Errorf("Expected date-only entries to be skipped, got %d conflicts", len(got))
	}
}

func TestCheckReplaceAnchorPolicy(t *testing.T) {
	anchor := commitment("c1", "Surgery", "2026-03-02T14:15:00Z", "2026-03-02T15:00:00Z", true)

	err := CheckReplace(anchor)
	if err == nil {
		t.Fatal("Expected PolicyViolation for anchor commitment, got nil")
	}
	if KindOf(err) != ErrorKindPolicyViolation {
		t.Errorf("Expected ErrorKindPolicyViolation, got %s", KindOf(err))
	}

	regular := commitment("c2", "Lunch", "2026-03-02T12:00:00Z", "2026-03-02T13:00:00Z", false)
	if err := CheckReplace(regular); err != nil {
		t.Errorf("Expected non-anchor to be replaceable, got %v", err)
	}
}
