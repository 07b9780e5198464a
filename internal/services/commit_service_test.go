package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dayflow/internal/models"
)

type fakeTaskStore struct {
	tasks   map[string]*models.Task
	deleted []string
	nextID  int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*models.Task)}
}

func (f *fakeTaskStore) Create(ctx context.Context, userID string, req *models.CreateTaskRequest) (*models.Task, error) {
	f.nextID++
	task := &models.Task{
		ID:       fmt.Sprintf("task-%d", f.nextID),
		UserID:   userID,
		Title:    req.Title,
		Notes:    req.Notes,
		DueDate:  req.DueDate,
		IsAnchor: req.IsAnchor,
	}
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTaskStore) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task not found")
	}
	return task, nil
}

func (f *fakeTaskStore) MarkScheduled(ctx context.Context, userID, taskID, eventID string) error {
	if task, ok := f.tasks[taskID]; ok {
		task.ScheduledEventID = eventID
	}
	return nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, userID, taskID string) error {
	delete(f.tasks, taskID)
	f.deleted = append(f.deleted, taskID)
	return nil
}

func (f *fakeTaskStore) Restore(ctx context.Context, task *models.Task) error {
	f.tasks[task.ID] = task
	return nil
}

type fakeEventStore struct {
	events  map[string]*models.Event
	deleted []string
	nextID  int
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[string]*models.Event)}
}

func (f *fakeEventStore) Create(ctx context.Context, userID string, req *models.CreateEventRequest) (*models.Event, error) {
	f.nextID++
	event := &models.Event{
		ID:       fmt.Sprintf("event-%d", f.nextID),
		UserID:   userID,
		Title:    req.Title,
		StartAt:  req.StartAt,
		EndAt:    req.EndAt,
		IsAnchor: req.IsAnchor,
	}
	f.events[event.ID] = event
	return event, nil
}

func (f *fakeEventStore) Delete(ctx context.Context, userID, eventID string) error {
	delete(f.events, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func testCommitService(undoWindow time.Duration) (*CommitService, *fakeTaskStore, *fakeEventStore) {
	tasks := newFakeTaskStore()
	events := newFakeEventStore()
	return newCommitService(tasks, events, 60, undoWindow), tasks, events
}

func TestCommitTaskRecordsUndoEntry(t *testing.T) {
	svc, tasks, _ := testCommitService(time.Minute)
	ctx := context.Background()

	committed, err := svc.Commit(ctx, "user-1", models.Proposal{
		Type:  models.ProposalTypeTask,
		Title: "Buy groceries",
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if committed.ID == "" {
		t.Error("Expected committed proposal to carry the stored task ID")
	}
	if _, ok := tasks.tasks[committed.ID]; !ok {
		t.Errorf("Expected task %s to be stored", committed.ID)
	}
	if !svc.CanUndo("user-1") {
		t.Error("Expected a live undo entry after committing a task")
	}

	entry, ok, err := svc.Undo(ctx, "user-1")
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected undo to find the entry")
	}
	if entry.ActionKind != models.UndoCreatedTask {
		t.Errorf("Expected action kind %q, got %q", models.UndoCreatedTask, entry.ActionKind)
	}
	if entry.CommittedID != committed.ID {
		t.Errorf("Expected undo entry for %s, got %s", committed.ID, entry.CommittedID)
	}
	if len(tasks.deleted) != 1 || tasks.deleted[0] != committed.ID {
		t.Errorf("Expected undo to delete task %s, deleted %v", committed.ID, tasks.deleted)
	}
}

func TestUndoConsumesEntryAtMostOnce(t *testing.T) {
	svc, tasks, _ := testCommitService(time.Minute)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, "user-1", models.Proposal{
		Type:  models.ProposalTypeTask,
		Title: "Write report",
	}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, ok, err := svc.Undo(ctx, "user-1"); err != nil || !ok {
		t.Fatalf("Expected first undo to succeed, ok=%v err=%v", ok, err)
	}
	if _, ok, err := svc.Undo(ctx, "user-1"); err != nil || ok {
		t.Errorf("Expected second undo to find nothing, ok=%v err=%v", ok, err)
	}
	if len(tasks.deleted) != 1 {
		t.Errorf("Expected exactly one compensating delete, got %d", len(tasks.deleted))
	}
}

func TestUndoExpiresAfterWindow(t *testing.T) {
	svc, tasks, _ := testCommitService(20 * time.Millisecond)
	ctx := context.Background()

	if _, err := svc.Commit(ctx, "user-1", models.Proposal{
		Type:  models.ProposalTypeTask,
		Title: "Call dentist",
	}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	if svc.CanUndo("user-1") {
		t.Error("Expected undo entry to expire after the window")
	}
	if _, ok, err := svc.Undo(ctx, "user-1"); err != nil || ok {
		t.Errorf("Expected undo after expiry to find nothing, ok=%v err=%v", ok, err)
	}
	if len(tasks.deleted) != 0 {
		t.Errorf("Expected no compensating delete after expiry, got %d", len(tasks.deleted))
	}
}

func TestUndoPromotedEventRestoresTask(t *testing.T) {
	svc, tasks, events := testCommitService(time.Minute)
	ctx := context.Background()

	task, err := tasks.Create(ctx, "user-1", &models.CreateTaskRequest{Title: "Finish slides"})
	if err != nil {
		t.Fatalf("seed task failed: %v", err)
	}

	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	committed, err := svc.Commit(ctx, "user-1", models.Proposal{
		Type:         models.ProposalTypeEvent,
		Title:        "Finish slides",
		StartAt:      &start,
		EndAt:        &end,
		SourceTaskID: task.ID,
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if got := tasks.tasks[task.ID].ScheduledEventID; got != committed.ID {
		t.Errorf("Expected source task to be marked scheduled with %s, got %q", committed.ID, got)
	}

	entry, ok, err := svc.Undo(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("Undo failed, ok=%v err=%v", ok, err)
	}
	if entry.ActionKind != models.UndoTaskToEvent {
		t.Errorf("Expected action kind %q, got %q", models.UndoTaskToEvent, entry.ActionKind)
	}
	if len(events.deleted) != 1 || events.deleted[0] != committed.ID {
		t.Errorf("Expected undo to delete event %s, deleted %v", committed.ID, events.deleted)
	}
	restored, ok := tasks.tasks[task.ID]
	if !ok {
		t.Fatal("Expected consumed task to be restored")
	}
	if restored.ScheduledEventID != "" || restored.Completed {
		t.Errorf("Expected restored task to be unscheduled and open, got %+v", restored)
	}
}

func TestCommitOverwritesPreviousUndoEntry(t *testing.T) {
	svc, _, _ := testCommitService(time.Minute)
	ctx := context.Background()

	first, err := svc.Commit(ctx, "user-1", models.Proposal{Type: models.ProposalTypeTask, Title: "First"})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	second, err := svc.Commit(ctx, "user-1", models.Proposal{Type: models.ProposalTypeTask, Title: "Second"})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	entry, ok, err := svc.Undo(ctx, "user-1")
	if err != nil || !ok {
		t.Fatalf("Undo failed, ok=%v err=%v", ok, err)
	}
	if entry.CommittedID != second.ID {
		t.Errorf("Expected undo to cover the latest commit %s, got %s (first was %s)", second.ID, entry.CommittedID, first.ID)
	}
}
