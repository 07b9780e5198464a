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

// EventService handles calendar event persistence
type EventService struct {
	db         *database.MongoDB
	collection *mongo.Collection
}

// NewEventService creates a new event service
func NewEventService(db *database.MongoDB) *EventService {
	return &EventService{
		db:         db,
		collection: db.Collection(database.CollectionEvents),
	}
}

// Create creates a new event
func (s *EventService) Create(ctx context.Context, userID string, req *models.CreateEventRequest) (*models.Event, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if req.StartAt.IsZero() || !req.EndAt.After(req.StartAt) {
		return nil, fmt.Errorf("event requires a valid start/end interval")
	}

	now := time.Now().UTC()
	event := &models.Event{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Location:  req.Location,
		Notes:     req.Notes,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		AllDay:    req.AllDay,
		IsAnchor:  req.IsAnchor,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.collection.InsertOne(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	return event, nil
}

// Get retrieves a single event owned by the user
func (s *EventService) Get(ctx context.Context, userID, eventID string) (*models.Event, error) {
	var event models.Event
	err := s.collection.FindOne(ctx, bson.M{"_id": eventID, "userId": userID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

// List returns the user's events sorted by start time
func (s *EventService) List(ctx context.Context, userID string) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startAt", Value: 1}})

	cursor, err := s.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, nil
}

// ListWindow returns events overlapping [from, to), sorted by start time
func (s *EventService) ListWindow(ctx context.Context, userID string, from, to time.Time) ([]models.Event, error) {
	filter := bson.M{
		"userId":  userID,
		"startAt": bson.M{"$lt": to},
		"endAt":   bson.M{"$gt": from},
	}
	opts := options.Find().SetSort(bson.D{{Key: "startAt", Value: 1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list events window: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	return events, nil
}

// Update applies a partial update to an event
func (s *EventService) Update(ctx context.Context, userID, eventID string, req *models.UpdateEventRequest) (*models.Event, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}

	if req.Title != nil {
		set["title"] = *req.Title
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}
	if req.Notes != nil {
		set["notes"] = *req.Notes
	}
	if req.StartAt != nil {
		set["startAt"] = *req.StartAt
	}
	if req.EndAt != nil {
		set["endAt"] = *req.EndAt
	}
	if req.AllDay != nil {
		set["allDay"] = *req.AllDay
	}
	if req.IsAnchor != nil {
		set["isAnchor"] = *req.IsAnchor
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var event models.Event
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": eventID, "userId": userID}, bson.M{"$set": set}, opts).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return &event, nil
}

// Delete removes an event owned by the user
func (s *EventService) Delete(ctx context.Context, userID, eventID string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": eventID, "userId": userID})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("event not found")
	}
	return nil
}

// Commitments returns the engine's view of the user's events overlapping
// [from, to). The per-commitment buffer models travel padding around the
// entry and is applied on top of the engine's global buffer.
func (s *EventService) Commitments(ctx context.Context, userID string, from, to time.Time, bufferMinutes int) ([]models.Commitment, error) {
	events, err := s.ListWindow(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	commitments := make([]models.Commitment, 0, len(events))
	for _, e := range events {
		commitments = append(commitments, models.Commitment{
			ID:            e.ID,
			Title:         e.Title,
			StartAt:       e.StartAt,
			EndAt:         e.EndAt,
			IsAnchor:      e.IsAnchor,
			BufferMinutes: bufferMinutes,
		})
	}

	return commitments, nil
}
