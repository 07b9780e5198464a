package services

import (
	"context"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"dayflow/internal/engine"
	"dayflow/internal/models"
)

// defaultUndoWindow is how long the last commit stays reversible.
const defaultUndoWindow = 5 * time.Second

// commitTaskStore is the slice of TaskService the commit path needs.
type commitTaskStore interface {
	Create(ctx context.Context, userID string, req *models.CreateTaskRequest) (*models.Task, error)
	Get(ctx context.Context, userID, taskID string) (*models.Task, error)
	MarkScheduled(ctx context.Context, userID, taskID, eventID string) error
	Delete(ctx context.Context, userID, taskID string) error
	Restore(ctx context.Context, task *models.Task) error
}

// commitEventStore is the slice of EventService the commit path needs.
type commitEventStore interface {
	Create(ctx context.Context, userID string, req *models.CreateEventRequest) (*models.Event, error)
	Delete(ctx context.Context, userID, eventID string) error
}

// CommitService turns validated proposals into stored records and keeps a
// single-slot undo buffer. Each commit overwrites the previous undo entry;
// an entry is consumed at most once and expires on its own.
type CommitService struct {
	tasks  commitTaskStore
	events commitEventStore

	// userID -> models.UndoEntry, TTL-evicted
	undo *gocache.Cache

	undoWindow          time.Duration
	defaultEventMinutes int
}

// NewCommitService creates a new commit service
func NewCommitService(tasks *TaskService, events *EventService, defaultEventMinutes int) *CommitService {
	return newCommitService(tasks, events, defaultEventMinutes, defaultUndoWindow)
}

func newCommitService(tasks commitTaskStore, events commitEventStore, defaultEventMinutes int, undoWindow time.Duration) *CommitService {
	if defaultEventMinutes <= 0 {
		defaultEventMinutes = 60
	}
	if undoWindow <= 0 {
		undoWindow = defaultUndoWindow
	}
	return &CommitService{
		tasks:               tasks,
		events:              events,
		undo:                gocache.New(undoWindow, time.Minute),
		undoWindow:          undoWindow,
		defaultEventMinutes: defaultEventMinutes,
	}
}

// Commit validates and persists one proposal for the user. Event proposals
// carrying a SourceTaskID consume that task: the task is marked scheduled and
// the undo entry snapshots it for restore.
func (s *CommitService) Commit(ctx context.Context, userID string, pr models.Proposal) (*models.Proposal, error) {
	normalized, err := engine.NormalizeForCommit(pr, s.defaultEventMinutes)
	if err != nil {
		return nil, err
	}

	switch normalized.Type {
	case models.ProposalTypeTask:
		task, err := s.tasks.Create(ctx, userID, &models.CreateTaskRequest{
			Title:    normalized.Title,
			Notes:    normalized.Notes,
			DueDate:  normalized.DueDate,
			IsAnchor: normalized.IsAnchor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to commit task: %w", err)
		}

		normalized.ID = task.ID
		s.undo.Set(userID, models.UndoEntry{
			ActionKind:  models.UndoCreatedTask,
			CommittedID: task.ID,
		}, s.undoWindow)
		return &normalized, nil

	case models.ProposalTypeEvent:
		var consumed *models.Task
		if normalized.SourceTaskID != "" {
			task, err := s.tasks.Get(ctx, userID, normalized.SourceTaskID)
			if err != nil {
				return nil, fmt.Errorf("source task unavailable: %w", err)
			}
			consumed = task
		}

		event, err := s.events.Create(ctx, userID, &models.CreateEventRequest{
			Title:    normalized.Title,
			Location: normalized.Location,
			Notes:    normalized.Notes,
			StartAt:  *normalized.StartAt,
			EndAt:    *normalized.EndAt,
			IsAnchor: normalized.IsAnchor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to commit event: %w", err)
		}

		normalized.ID = event.ID

		if consumed != nil {
			if err := s.tasks.MarkScheduled(ctx, userID, consumed.ID, event.ID); err != nil {
				log.Printf("⚠️  Failed to mark task %s scheduled: %v", consumed.ID, err)
			}
			s.undo.Set(userID, models.UndoEntry{
				ActionKind:       models.UndoTaskToEvent,
				CommittedID:      event.ID,
				CompensatingTask: consumed,
			}, s.undoWindow)
		} else {
			s.undo.Set(userID, models.UndoEntry{
				ActionKind:  models.UndoCreatedEvent,
				CommittedID: event.ID,
			}, s.undoWindow)
		}

		return &normalized, nil
	}

	return nil, engine.NewProposalInvalid("unknown proposal type %q", normalized.Type)
}

// CommitBatch commits each proposal in order, stopping at the first failure.
// The undo entry afterwards covers only the last committed proposal.
func (s *CommitService) CommitBatch(ctx context.Context, userID string, proposals []models.Proposal) ([]models.Proposal, error) {
	committed := make([]models.Proposal, 0, len(proposals))
	for _, pr := range proposals {
		result, err := s.Commit(ctx, userID, pr)
		if err != nil {
			return committed, err
		}
		committed = append(committed, *result)
	}
	return committed, nil
}

// Undo reverses the most recent commit if its window is still open. The
// entry is consumed before the compensating write, so a second concurrent
// undo finds nothing. Returns the undone entry, or ok=false when there is
// nothing to undo.
func (s *CommitService) Undo(ctx context.Context, userID string) (models.UndoEntry, bool, error) {
	cached, found := s.undo.Get(userID)
	if !found {
		return models.UndoEntry{}, false, nil
	}
	s.undo.Delete(userID)

	entry, ok := cached.(models.UndoEntry)
	if !ok {
		return models.UndoEntry{}, false, nil
	}

	switch entry.ActionKind {
	case models.UndoCreatedTask:
		if err := s.tasks.Delete(ctx, userID, entry.CommittedID); err != nil {
			return entry, true, fmt.Errorf("failed to undo task creation: %w", err)
		}

	case models.UndoCreatedEvent:
		if err := s.events.Delete(ctx, userID, entry.CommittedID); err != nil {
			return entry, true, fmt.Errorf("failed to undo event creation: %w", err)
		}

	case models.UndoTaskToEvent:
		if err := s.events.Delete(ctx, userID, entry.CommittedID); err != nil {
			return entry, true, fmt.Errorf("failed to undo promoted event: %w", err)
		}
		if entry.CompensatingTask != nil {
			restored := *entry.CompensatingTask
			restored.Completed = false
			restored.CompletedAt = nil
			restored.ScheduledEventID = ""
			restored.UpdatedAt = time.Now().UTC()
			if err := s.tasks.Restore(ctx, &restored); err != nil {
				return entry, true, fmt.Errorf("failed to restore consumed task: %w", err)
			}
		}

	default:
		return entry, true, fmt.Errorf("unknown undo action %q", entry.ActionKind)
	}

	return entry, true, nil
}

// CanUndo reports whether an undo entry is still live for the user
func (s *CommitService) CanUndo(userID string) bool {
	_, found := s.undo.Get(userID)
	return found
}
