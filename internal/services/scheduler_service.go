package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dayflow/internal/config"
	"dayflow/internal/engine"
	"dayflow/internal/logging"
	"dayflow/internal/models"
)

const (
	// turnLockTTL bounds how long a stuck turn can block a user. It must
	// outlive the interpreter's worst case (timeout plus one retry).
	turnLockTTL = 150 * time.Second

	// commitmentWindowDays is how far ahead events are loaded for conflict
	// detection and interpreter context.
	commitmentWindowDays = 7

	threadContextMessages = 20
)

// SchedulerService orchestrates one conversation turn: interpreter call,
// clarification state machine, proposal pipeline, and commits. One turn per
// user runs at a time, enforced with a Redis lock.
type SchedulerService struct {
	interpreter *InterpreterService
	sessions    *SessionService
	commits     *CommitService
	tasks       *TaskService
	events      *EventService
	prefs       *PreferenceService
	redis       *RedisService
	policies    *config.PolicyStore
}

// NewSchedulerService creates the orchestrator
func NewSchedulerService(
	interpreter *InterpreterService,
	sessions *SessionService,
	commits *CommitService,
	tasks *TaskService,
	events *EventService,
	prefs *PreferenceService,
	redisService *RedisService,
	policies *config.PolicyStore,
) *SchedulerService {
	return &SchedulerService{
		interpreter: interpreter,
		sessions:    sessions,
		commits:     commits,
		tasks:       tasks,
		events:      events,
		prefs:       prefs,
		redis:       redisService,
		policies:    policies,
	}
}

// ErrTurnInProgress is returned when a user's previous turn is still running.
var ErrTurnInProgress = errors.New("a previous message is still being processed")

// ProcessMessage runs one full conversation turn for the user
func (s *SchedulerService) ProcessMessage(ctx context.Context, userID, text string) (*models.SchedulerReply, error) {
	started := time.Now()

	lockValue := uuid.NewString()
	if s.redis != nil {
		acquired, err := s.redis.AcquireLock(ctx, turnLockKey(userID), lockValue, turnLockTTL)
		if err != nil {
			log.Printf("⚠️  Turn lock check failed for user %s: %v (continuing unlocked)", userID, err)
		} else if !acquired {
			return nil, ErrTurnInProgress
		} else {
			defer func() {
				if _, err := s.redis.ReleaseLock(context.Background(), turnLockKey(userID), lockValue); err != nil {
					log.Printf("⚠️  Failed to release turn lock for user %s: %v", userID, err)
				}
			}()
		}
	}

	session := s.sessions.Load(ctx, userID)
	userMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "user",
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	session.Messages = append(session.Messages, userMsg)
	session.State.LastUserMessageID = userMsg.ID

	turnLog := logging.WithTurn(userID, userMsg.ID)

	preferences, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	commitments, err := s.loadCommitments(ctx, userID, preferences)
	if err != nil {
		return nil, err
	}

	reply := s.runTurn(ctx, userID, text, session, preferences, commitments, turnLog)

	session.Messages = append(session.Messages, models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      "assistant",
		Text:      reply.AssistantText,
		CreatedAt: time.Now().UTC(),
	})
	s.sessions.Save(userID, session)

	if m := GetMetrics(); m != nil {
		m.RecordTurn(time.Since(started).Seconds())
	}

	return reply, nil
}

// runTurn resolves the interpreter boundary and advances the state machine.
// Every failure path degrades into a usable reply; errors never escape to
// the transport as a blank turn.
func (s *SchedulerService) runTurn(
	ctx context.Context,
	userID, text string,
	session *models.SchedulerSession,
	preferences *models.Preferences,
	commitments []models.Commitment,
	turnLog *slog.Logger,
) *models.SchedulerReply {
	resp, err := s.interpret(ctx, text, session, preferences, commitments)
	if err != nil {
		kind := engine.KindOf(err)
		if m := GetMetrics(); m != nil {
			m.RecordSchedulerError(kind.String())
		}

		if kind == engine.ErrorKindInterpreterTimeout {
			turnLog.Warn("interpreter timed out for turn", "error", err)
			return &models.SchedulerReply{
				AssistantText:  "That took too long to process. Please try again.",
				Mode:           models.ModeFollowup,
				AwaitingFields: session.State.AwaitingFields,
			}
		}

		// Malformed reply: trust nothing, ask the user to rephrase.
		turnLog.Warn("interpreter reply unusable", "error", err)
		resp = &models.InterpreterResponse{
			AssistantText: "I didn't quite get that. Could you rephrase?",
			Mode:          models.ModeFollowup,
		}
	}

	outcome := engine.ApplyInterpreterResponse(&session.State, resp)

	reply := &models.SchedulerReply{
		AssistantText:  resp.AssistantText,
		Mode:           resp.Mode,
		AwaitingFields: session.State.AwaitingFields,
	}
	if outcome.AwaitingClarification {
		if reply.AssistantText == "" {
			reply.AssistantText = session.State.LastQuestion
		}
		return reply
	}

	if len(outcome.Proposals) == 0 {
		if reply.AssistantText == "" {
			reply.AssistantText = "Nothing to schedule from that. Anything else?"
		}
		return reply
	}

	pipeline := s.buildPipeline(preferences)
	result := pipeline.Process(outcome.Proposals, commitments)

	committed, err := s.commits.CommitBatch(ctx, userID, result.AutoCommitted)
	if err != nil {
		turnLog.Warn("auto-commit failed mid-batch", "error", err)
	}
	for _, pr := range committed {
		logging.WithProposal(turnLog, pr.ID, pr.Type).Info("proposal auto-committed")
	}
	if m := GetMetrics(); m != nil {
		for range committed {
			m.RecordProposalRouted("auto_committed")
		}
		for range result.PendingConfirmation {
			m.RecordProposalRouted("pending")
		}
		for range result.Conflicts {
			m.RecordProposalRouted("conflicted")
		}
	}

	session.State.LastProposals = result.PendingConfirmation

	reply.AutoCommitted = committed
	reply.Proposals = result.PendingConfirmation
	reply.Conflicts = result.Conflicts
	if reply.AssistantText == "" {
		reply.AssistantText = summarizeTurn(committed, result.PendingConfirmation, result.Conflicts)
	}

	return reply
}

// interpret resolves the turn through the remote interpreter, or through the
// local keyword parser when none is configured.
func (s *SchedulerService) interpret(
	ctx context.Context,
	text string,
	session *models.SchedulerSession,
	preferences *models.Preferences,
	commitments []models.Commitment,
) (*models.InterpreterResponse, error) {
	if !s.interpreter.Available() {
		assistantText, proposals := engine.ParseLocalRequest(text, time.Now().UTC())
		if m := GetMetrics(); m != nil {
			m.RecordInterpreterCall("fallback", 0)
		}
		return &models.InterpreterResponse{
			AssistantText: assistantText,
			Mode:          models.ModeProposal,
			Proposals:     proposals,
		}, nil
	}

	thread := session.Messages
	if len(thread) > threadContextMessages {
		thread = thread[len(thread)-threadContextMessages:]
	}

	req := &models.InterpreterRequest{
		Message:      text,
		NowISO:       time.Now().UTC().Format(time.RFC3339),
		Timezone:     preferences.Timezone,
		Preferences:  preferences,
		Thread:       thread,
		SessionState: &session.State,
		EventsWindow: commitments,
	}

	started := time.Now()
	resp, err := s.interpreter.Interpret(ctx, req)
	elapsed := time.Since(started).Seconds()

	if m := GetMetrics(); m != nil {
		switch {
		case err == nil:
			m.RecordInterpreterCall("ok", elapsed)
		case engine.KindOf(err) == engine.ErrorKindInterpreterTimeout:
			m.RecordInterpreterCall("timeout", elapsed)
		default:
			m.RecordInterpreterCall("malformed", elapsed)
		}
	}

	return resp, err
}

// Confirm commits one of the pending proposals from the last turn
func (s *SchedulerService) Confirm(ctx context.Context, userID, proposalID string) (*models.Proposal, error) {
	session := s.sessions.Load(ctx, userID)

	idx := pendingIndex(session, proposalID)
	if idx == -1 {
		return nil, engine.NewProposalInvalid("proposal %s is no longer pending", proposalID)
	}

	committed, err := s.commits.Commit(ctx, userID, session.State.LastProposals[idx])
	if err != nil {
		return nil, err
	}

	removePending(session, idx)
	s.sessions.Save(userID, session)

	return committed, nil
}

// Reslot moves a pending proposal to an energy-biased conflict-free time.
// The updated proposal stays pending; nothing is committed.
func (s *SchedulerService) Reslot(ctx context.Context, userID, proposalID string) (*models.Proposal, error) {
	session := s.sessions.Load(ctx, userID)

	idx := pendingIndex(session, proposalID)
	if idx == -1 {
		return nil, engine.NewProposalInvalid("proposal %s is no longer pending", proposalID)
	}

	preferences, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	commitments, err := s.loadCommitments(ctx, userID, preferences)
	if err != nil {
		return nil, err
	}

	pipeline := s.buildPipeline(preferences)
	slotted, ok := pipeline.FindBiasedSlot(session.State.LastProposals[idx], commitments)
	if !ok {
		return nil, engine.NewProposalInvalid("no free slot found in the next %d days", commitmentWindowDays)
	}

	session.State.LastProposals[idx] = slotted
	s.sessions.Save(userID, session)

	return &slotted, nil
}

// ResolveReplace deletes a conflicting non-anchor event and commits the
// pending proposal in its place. Anchors are protected: the attempt fails
// with a policy violation and nothing is mutated.
func (s *SchedulerService) ResolveReplace(ctx context.Context, userID, proposalID, commitmentID string) (*models.Proposal, error) {
	session := s.sessions.Load(ctx, userID)

	idx := pendingIndex(session, proposalID)
	if idx == -1 {
		return nil, engine.NewProposalInvalid("proposal %s is no longer pending", proposalID)
	}

	event, err := s.events.Get(ctx, userID, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("conflicting event unavailable: %w", err)
	}

	if err := engine.CheckReplace(models.Commitment{
		ID:       event.ID,
		Title:    event.Title,
		StartAt:  event.StartAt,
		EndAt:    event.EndAt,
		IsAnchor: event.IsAnchor,
	}); err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordSchedulerError(engine.KindOf(err).String())
		}
		return nil, err
	}

	if err := s.events.Delete(ctx, userID, commitmentID); err != nil {
		return nil, fmt.Errorf("failed to remove conflicting event: %w", err)
	}

	committed, err := s.commits.Commit(ctx, userID, session.State.LastProposals[idx])
	if err != nil {
		return nil, err
	}

	removePending(session, idx)
	s.sessions.Save(userID, session)

	return committed, nil
}

// Undo reverses the last commit if its window is still open
func (s *SchedulerService) Undo(ctx context.Context, userID string) (models.UndoEntry, bool, error) {
	entry, ok, err := s.commits.Undo(ctx, userID)
	if m := GetMetrics(); m != nil {
		if ok && err == nil {
			m.RecordUndo("undone")
		} else if !ok {
			m.RecordUndo("expired")
		}
	}
	return entry, ok, err
}

// Reset discards the user's conversation and clarification state
func (s *SchedulerService) Reset(ctx context.Context, userID string) error {
	return s.sessions.Reset(ctx, userID)
}

// Session returns the user's current conversation
func (s *SchedulerService) Session(ctx context.Context, userID string) *models.SchedulerSession {
	return s.sessions.Load(ctx, userID)
}

// CandidateSlots returns alternative slots for a pending proposal
func (s *SchedulerService) CandidateSlots(ctx context.Context, userID, proposalID string) ([]engine.CandidateSlot, error) {
	session := s.sessions.Load(ctx, userID)

	idx := pendingIndex(session, proposalID)
	if idx == -1 {
		return nil, engine.NewProposalInvalid("proposal %s is no longer pending", proposalID)
	}

	preferences, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	commitments, err := s.loadCommitments(ctx, userID, preferences)
	if err != nil {
		return nil, err
	}

	return s.buildPipeline(preferences).CandidateSlots(session.State.LastProposals[idx], commitments), nil
}

// buildPipeline layers the user's preferences over the active scheduling
// policy.
func (s *SchedulerService) buildPipeline(preferences *models.Preferences) *engine.Pipeline {
	policy := s.policies.Current()

	pipeline := engine.NewPipeline()
	pipeline.SlotOptions = engine.SlotSearchOptions{
		DaysAhead:    policy.DaysAhead,
		DayStartHour: policy.DayStartHour,
		DayEndHour:   policy.DayEndHour,
		StepMinutes:  policy.SlotStepMinutes,
		MaxResults:   policy.MaxSlotResults,
	}

	pipeline.DefaultTaskMinutes = policy.DefaultTaskMinutes
	pipeline.DefaultEventMinutes = policy.DefaultEventMinutes
	pipeline.BufferMinutes = policy.BufferMinutes
	pipeline.AutoCommitMaxMinutes = policy.AutoCommitMaxDuration

	classifier := engine.NewClassifier()
	if len(policy.DeepKeywords) > 0 {
		classifier.DeepKeywords = policy.DeepKeywords
	}
	if len(policy.ShallowKeywords) > 0 {
		classifier.ShallowKeywords = policy.ShallowKeywords
	}
	classifier.Profile = engine.EnergyProfile{
		PeakStart:  policy.PeakStart,
		PeakEnd:    policy.PeakEnd,
		SlumpStart: policy.SlumpStart,
		SlumpEnd:   policy.SlumpEnd,
	}

	// Per-user preferences win over the policy file.
	if preferences.DefaultTaskMinutes > 0 {
		pipeline.DefaultTaskMinutes = preferences.DefaultTaskMinutes
	}
	if preferences.DefaultEventMinutes > 0 {
		pipeline.DefaultEventMinutes = preferences.DefaultEventMinutes
	}
	if preferences.BufferBetweenEventsMinutes > 0 {
		pipeline.BufferMinutes = preferences.BufferBetweenEventsMinutes
	}
	if preferences.PeakStart != "" {
		classifier.Profile.PeakStart = preferences.PeakStart
	}
	if preferences.PeakEnd != "" {
		classifier.Profile.PeakEnd = preferences.PeakEnd
	}
	if preferences.SlumpStart != "" {
		classifier.Profile.SlumpStart = preferences.SlumpStart
	}
	if preferences.SlumpEnd != "" {
		classifier.Profile.SlumpEnd = preferences.SlumpEnd
	}

	pipeline.Classifier = classifier
	return pipeline
}

// loadCommitments builds the engine's view of the user's calendar for the
// conflict window: time-bound events plus date-only tasks with due dates.
func (s *SchedulerService) loadCommitments(ctx context.Context, userID string, preferences *models.Preferences) ([]models.Commitment, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -1)
	to := now.AddDate(0, 0, commitmentWindowDays)

	commitments, err := s.events.Commitments(ctx, userID, from, to, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load event commitments: %w", err)
	}

	due, err := s.tasks.DueCommitments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task commitments: %w", err)
	}

	return append(commitments, due...), nil
}

func pendingIndex(session *models.SchedulerSession, proposalID string) int {
	for i, pr := range session.State.LastProposals {
		if pr.ID == proposalID {
			return i
		}
	}
	return -1
}

func removePending(session *models.SchedulerSession, idx int) {
	session.State.LastProposals = append(
		session.State.LastProposals[:idx],
		session.State.LastProposals[idx+1:]...,
	)
}

func turnLockKey(userID string) string {
	return "scheduler:turn-lock:" + userID
}

func summarizeTurn(committed, pending []models.Proposal, conflicts []models.ConflictRecord) string {
	switch {
	case len(conflicts) > 0:
		return fmt.Sprintf("This overlaps with %s. Replace it, pick another time, or keep both?", conflicts[0].ConflictingTitle)
	case len(pending) > 0:
		return "Here's what I'd schedule. Confirm to save it."
	case len(committed) == 1:
		return fmt.Sprintf("Added %q.", committed[0].Title)
	case len(committed) > 1:
		return fmt.Sprintf("Added %d items.", len(committed))
	default:
		return "Nothing to schedule from that. Anything else?"
	}
}
