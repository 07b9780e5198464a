package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"dayflow/internal/models"
)

// biasedScanStepMinutes is the increment used when scanning forward from an
// energy anchor; the scan is bounded to 7 days of steps.
const biasedScanStepMinutes = 15

// Pipeline converts structured intents into proposals, applies default
// durations, runs conflict detection, and routes each proposal to auto-commit
// or explicit confirmation. Pure and synchronous: safe to run on every batch.
type Pipeline struct {
	Classifier          Classifier
	DefaultTaskMinutes  int
	DefaultEventMinutes int
	BufferMinutes       int

	// AutoCommitMaxMinutes caps the effective duration a task may have and
	// still skip confirmation. Zero means the built-in 60.
	AutoCommitMaxMinutes int

	SlotOptions SlotSearchOptions

	// Injectable for tests.
	Now   func() time.Time
	NewID func() string
}

// NewPipeline returns a pipeline with built-in defaults
func NewPipeline() *Pipeline {
	return &Pipeline{
		Classifier:           NewClassifier(),
		DefaultTaskMinutes:   30,
		DefaultEventMinutes:  60,
		AutoCommitMaxMinutes: 60,
		SlotOptions:          DefaultSlotSearchOptions(),
		Now:                  time.Now,
		NewID:                uuid.NewString,
	}
}

// ProcessResult is the pipeline's partition of one proposal batch.
type ProcessResult struct {
	AutoCommitted       []models.Proposal       `json:"autoCommitted"`
	PendingConfirmation []models.Proposal       `json:"pendingConfirmation"`
	Conflicts           []models.ConflictRecord `json:"conflicts"`
}

// NormalizeIntents converts interpreter intents into proposal records (1:1).
func (p *Pipeline) NormalizeIntents(intents []models.SchedulingIntent) []models.Proposal {
	proposals := make([]models.Proposal, 0, len(intents))
	for _, intent := range intents {
		proposals = append(proposals, p.normalizeIntent(intent))
	}
	return proposals
}

func (p *Pipeline) normalizeIntent(intent models.SchedulingIntent) models.Proposal {
	kind := intent.Kind
	if kind != models.ProposalTypeEvent {
		kind = models.ProposalTypeTask
	}

	pr := models.Proposal{
		ID:              p.NewID(),
		Type:            kind,
		Title:           strings.TrimSpace(intent.Title),
		Notes:           intent.Notes,
		Location:        intent.Location,
		DueDate:         intent.DueDate,
		IsAnchor:        intent.IsAnchor,
		DurationMinutes: intent.DurationMinutes,
	}

	if intent.FixedStartAt != nil {
		start := *intent.FixedStartAt
		pr.StartAt = &start
		end := p.defaultEnd(start, intent.DurationMinutes)
		if intent.FixedEndAt != nil && intent.FixedEndAt.After(start) {
			end = *intent.FixedEndAt
		}
		pr.EndAt = &end
	}

	return pr
}

// Normalize fills identifiers and end times on a raw proposal. The end-time
// fill runs before any conflict check so that endAt is always strictly after
// startAt when both are set.
func (p *Pipeline) Normalize(pr models.Proposal) models.Proposal {
	if pr.ID == "" {
		pr.ID = p.NewID()
	}
	if pr.Type != models.ProposalTypeEvent {
		pr.Type = models.ProposalTypeTask
	}
	pr.Title = strings.TrimSpace(pr.Title)

	if pr.StartAt != nil && (pr.EndAt == nil || !pr.EndAt.After(*pr.StartAt)) {
		end := p.defaultEnd(*pr.StartAt, pr.DurationMinutes)
		pr.EndAt = &end
	}

	return pr
}

func (p *Pipeline) defaultEnd(start time.Time, durationMinutes int) time.Time {
	minutes := durationMinutes
	if minutes <= 0 {
		minutes = p.DefaultEventMinutes
	}
	return start.Add(time.Duration(minutes) * time.Minute)
}

// Process normalizes a proposal batch and splits it into the auto-commit set
// and the confirmation-required set, with conflict records attached for the
// latter. Routing is a pure function of (type, anchor flag, duration,
// conflict presence): every event and every anchor requires confirmation.
func (p *Pipeline) Process(raw []models.Proposal, commitments []models.Commitment) ProcessResult {
	result := ProcessResult{
		AutoCommitted:       make([]models.Proposal, 0, len(raw)),
		PendingConfirmation: make([]models.Proposal, 0, len(raw)),
	}

	for _, pr := range raw {
		normalized := p.Normalize(pr)
		if p.autoCommittable(normalized, commitments) {
			result.AutoCommitted = append(result.AutoCommitted, normalized)
		} else {
			result.PendingConfirmation = append(result.PendingConfirmation, normalized)
		}
	}

	result.Conflicts = FindConflicts(result.PendingConfirmation, commitments, p.BufferMinutes)
	return result
}

func (p *Pipeline) autoCommittable(pr models.Proposal, commitments []models.Commitment) bool {
	if pr.Type != models.ProposalTypeTask || pr.IsAnchor {
		return false
	}
	maxMinutes := p.AutoCommitMaxMinutes
	if maxMinutes <= 0 {
		maxMinutes = 60
	}
	if pr.EffectiveDurationMinutes(p.DefaultTaskMinutes) > maxMinutes {
		return false
	}
	return len(FindConflicts([]models.Proposal{pr}, commitments, p.BufferMinutes)) == 0
}

// FindBiasedSlot finds an alternative time for a proposal when the user asks
// the engine to resolve a conflict. The scan anchors at today's peak start
// for deep work or slump start for shallow work; anchors already in the past
// fast-forward to now rounded up to the next 15-minute boundary. From there
// it walks 15-minute increments, bounded to 7 days of steps, using the same
// buffered overlap test as conflict detection. The second return value is
// false when the bound is exhausted with no clear slot.
func (p *Pipeline) FindBiasedSlot(pr models.Proposal, commitments []models.Commitment) (models.Proposal, bool) {
	now := p.Now()
	anchor := p.Classifier.AnchorFor(pr.Title, now)
	if anchor.Before(now) {
		anchor = roundUpToStep(now, biasedScanStepMinutes)
	}

	duration := time.Duration(pr.EffectiveDurationMinutes(p.DefaultTaskMinutes)) * time.Minute
	step := biasedScanStepMinutes * time.Minute
	maxSteps := 7 * 24 * 60 / biasedScanStepMinutes

	for i := 0; i <= maxSteps; i++ {
		start := anchor.Add(time.Duration(i) * step)
		candidate := Interval{Start: start, End: start.Add(duration)}.Expand(p.BufferMinutes)

		free := true
		for _, c := range commitments {
			if !c.TimeBound() {
				continue
			}
			if candidate.Overlaps(Interval{Start: c.StartAt, End: c.EndAt}.Expand(c.BufferMinutes)) {
				free = false
				break
			}
		}

		if free {
			end := start.Add(duration)
			pr.StartAt = &start
			pr.EndAt = &end
			return pr, true
		}
	}

	return pr, false
}

// CandidateSlots runs slot search for a proposal against the busy intervals
// of the commitment window.
func (p *Pipeline) CandidateSlots(pr models.Proposal, commitments []models.Commitment) []CandidateSlot {
	busy := make([]Interval, 0, len(commitments))
	for _, c := range commitments {
		if c.TimeBound() {
			busy = append(busy, Interval{Start: c.StartAt, End: c.EndAt})
		}
	}
	return FindCandidateSlots(busy, p.Now(), pr.EffectiveDurationMinutes(p.DefaultTaskMinutes), p.SlotOptions)
}

// NormalizeForCommit validates a proposal and returns a commit-ready copy.
// Tasks need a title. Events need a valid, strictly ordered start/end: a
// missing end synthesizes the default span, an inverted or equal end
// synthesizes a minimum 15-minute event.
func NormalizeForCommit(pr models.Proposal, defaultEventMinutes int) (models.Proposal, error) {
	pr.Title = strings.TrimSpace(pr.Title)
	if pr.Title == "" {
		return pr, NewProposalInvalid("proposal is missing a title")
	}

	if pr.Type == models.ProposalTypeTask {
		return pr, nil
	}

	if pr.StartAt == nil {
		return pr, NewProposalInvalid("cannot schedule event %q: missing start time", pr.Title)
	}

	start := *pr.StartAt
	var end time.Time
	if pr.EndAt != nil {
		end = *pr.EndAt
	} else {
		if defaultEventMinutes <= 0 {
			defaultEventMinutes = 60
		}
		end = start.Add(time.Duration(defaultEventMinutes) * time.Minute)
	}

	if !end.After(start) {
		end = start.Add(15 * time.Minute)
	}

	pr.StartAt = &start
	pr.EndAt = &end
	return pr, nil
}
