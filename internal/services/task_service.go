package services

import (
	"context"
	"fmt"
	"time"

	"dayflow/internal/database"
	"dayflow/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskService handles task persistence
type TaskService struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewTaskService creates a new task service
func NewTaskService(db *database.MongoDB) *TaskService {
	return &TaskService{
		db:         db,
		collection: db.Collection(database.CollectionTasks),
	}
}

// Create creates a new task
func (s *TaskService) Create(ctx context.Context, userID string, req *models.CreateTaskRequest) (*models.Task, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if req.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	now := time.Now().UTC()
	task := &models.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Notes:     req.Notes,
		DueDate:   req.DueDate,
		IsAnchor:  req.IsAnchor,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.collection.InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return task, nil
}

// Restore writes back a task snapshot, recreating the document if it was
// deleted in the meantime. Used by undo.
func (s *TaskService) Restore(ctx context.Context, task *models.Task) error {
	if task.UserID == "" || task.ID == "" {
		return fmt.Errorf("task ID and user ID are required")
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": task.ID, "userId": task.UserID}, task, opts); err != nil {
		return fmt.Errorf("failed to restore task: %w", err)
	}
	return nil
}

// Get retrieves a single task owned by the user
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*models.Task, error) {
	var task models.Task
	err := s.collection.FindOne(ctx, bson.M{"_id": taskID, "userId": userID}).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// List returns the user's tasks, open ones first, newest within each group
func (s *TaskService) List(ctx context.Context, userID string, includeCompleted bool) ([]models.Task, error) {
	filter := bson.M{"userId": userID}
	if !includeCompleted {
		filter["completed"] = false
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "completed", Value: 1},
		{Key: "updatedAt", Value: -1},
	})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}

	return tasks, nil
}

// Update applies a partial update to a task
func (s *TaskService) Update(ctx context.Context, userID, taskID string, req *models.UpdateTaskRequest) (*models.Task, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	unset := bson.M{}

	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Notes != nil {
		set["notes"] = *req.Notes
	}
	if req.DueDate != nil {
		set["dueDate"] = *req.DueDate
	}
	if req.IsAnchor != nil {
		set["isAnchor"] = *req.IsAnchor
	}
	if req.Completed != nil {
		set["completed"] = *req.Completed
		if *req.Completed {
			set["completedAt"] = time.Now().UTC()
		} else {
			unset["completedAt"] = ""
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": taskID, "userId": userID}, update, opts).Decode(&task)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return &task, nil
}

// MarkScheduled records that a task was consumed by a calendar event
func (s *TaskService) MarkScheduled(ctx context.Context, userID, taskID, eventID string) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": taskID, "userId": userID},
		bson.M{"$set": bson.M{
			"scheduledEventId": eventID,
			"completed":        true,
			"completedAt":      time.Now().UTC(),
			"updatedAt":        time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark task scheduled: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("task not found")
	}
	return nil
}

// Delete removes a task owned by the user
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": taskID, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("task not found")
	}
	return nil
}

// DueCommitments returns date-only commitments for the user's open tasks with
// due dates, for forwarding to the interpreter as context.
func (s *TaskService) DueCommitments(ctx context.Context, userID string) ([]models.Commitment, error) {
	filter := bson.M{
		"userId":    userID,
		"completed": false,
		"dueDate":   bson.M{"$ne": ""},
	}

	cursor, err := s.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode due tasks: %w", err)
	}

	commitments := make([]models.Commitment, 0, len(tasks))
	for _, t := range tasks {
		commitments = append(commitments, models.Commitment{
			ID:       t.ID,
			Title:    t.Title,
			DueDate:  t.DueDate,
			IsAnchor: t.IsAnchor,
		})
	}

	return commitments, nil
}
