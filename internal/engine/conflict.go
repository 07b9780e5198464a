package engine

import (
	"dayflow/internal/models"
)

// FindConflicts reports, for each time-bound proposal, the first commitment
// whose buffer-expanded interval overlaps the proposal's buffer-expanded
// interval. Proposals are expanded by bufferMinutes; each commitment is
// expanded by its own BufferMinutes. Date-only entries on either side are
// skipped. Never fails: the result set is simply empty when nothing collides.
func FindConflicts(proposals []models.Proposal, commitments []models.Commitment, bufferMinutes int) []models.ConflictRecord {
	conflicts := make([]models.ConflictRecord, 0)

	for _, p := range proposals {
		if p.StartAt == nil || p.EndAt == nil {
			continue
		}

		expanded := Interval{Start: *p.StartAt, End: *p.EndAt}.Expand(bufferMinutes)

		for _, c := range commitments {
			if !c.TimeBound() {
				continue
			}
			if expanded.Overlaps(Interval{Start: c.StartAt, End: c.EndAt}.Expand(c.BufferMinutes)) {
				conflicts = append(conflicts, models.ConflictRecord{
					ProposalID:              p.ID,
					ConflictingCommitmentID: c.ID,
					ConflictingTitle:        c.Title,
				})
				break
			}
		}
	}

	return conflicts
}

// CheckReplace enforces the anchor policy before a conflicting commitment may
// be deleted in favor of a proposal. Anchors can never be replaced
// programmatically, only superseded through explicit out-of-band action.
func CheckReplace(commitment models.Commitment) error {
	if commitment.IsAnchor {
		return NewPolicyViolation("%q is an anchor commitment and cannot be replaced", commitment.Title)
	}
	return nil
}
