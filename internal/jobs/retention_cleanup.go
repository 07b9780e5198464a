package jobs

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"dayflow/internal/database"
)

// RetentionCleanupJob deletes completed tasks and past events once they fall
// out of the retention window. Anchors are kept regardless of age.
type RetentionCleanupJob struct {
	mongoDB       *database.MongoDB
	tasks         *mongo.Collection
	events        *mongo.Collection
	retentionDays int
}

// NewRetentionCleanupJob creates a new retention cleanup job
func NewRetentionCleanupJob(mongoDB *database.MongoDB, retentionDays int) *RetentionCleanupJob {
	if retentionDays <= 0 {
		retentionDays = 90
	}

	var tasks, events *mongo.Collection
	if mongoDB != nil {
		tasks = mongoDB.Database().Collection("tasks")
		events = mongoDB.Database().Collection("events")
	}

	return &RetentionCleanupJob{
		mongoDB:       mongoDB,
		tasks:         tasks,
		events:        events,
		retentionDays: retentionDays,
	}
}

// Run executes the retention cleanup
func (j *RetentionCleanupJob) Run(ctx context.Context) error {
	if j.mongoDB == nil {
		log.Println("[RETENTION] Retention cleanup disabled (requires MongoDB)")
		return nil
	}

	log.Println("[RETENTION] Starting retention cleanup...")
	startTime := time.Now()
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)

	tasksDeleted, err := j.cleanupCompletedTasks(ctx, cutoff)
	if err != nil {
		log.Printf("[RETENTION] Failed to cleanup tasks: %v", err)
		return err
	}

	eventsDeleted, err := j.cleanupPastEvents(ctx, cutoff)
	if err != nil {
		log.Printf("[RETENTION] Failed to cleanup events: %v", err)
		return err
	}

	duration := time.Since(startTime)
	log.Printf("[RETENTION] Cleanup complete: deleted %d tasks and %d events in %v",
		tasksDeleted, eventsDeleted, duration)

	return nil
}

// cleanupCompletedTasks deletes tasks completed before the cutoff
func (j *RetentionCleanupJob) cleanupCompletedTasks(ctx context.Context, cutoff time.Time) (int, error) {
	filter := bson.M{
		"completed": true,
		"completedAt": bson.M{
			"$lt": cutoff,
		},
	}

	result, err := j.tasks.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}

	return int(result.DeletedCount), nil
}

// cleanupPastEvents deletes non-anchor events that ended before the cutoff
func (j *RetentionCleanupJob) cleanupPastEvents(ctx context.Context, cutoff time.Time) (int, error) {
	filter := bson.M{
		"isAnchor": false,
		"endAt": bson.M{
			"$lt": cutoff,
		},
	}

	result, err := j.events.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}

	return int(result.DeletedCount), nil
}

// GetNextRunTime returns when the job should run next (daily at 2 AM UTC)
func (j *RetentionCleanupJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()

	nextRun := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, time.UTC)

	// If we've passed 2 AM today, schedule for tomorrow
	if now.After(nextRun) {
		nextRun = nextRun.Add(24 * time.Hour)
	}

	return nextRun
}

// GetStats reports what the next run would delete for a user
func (j *RetentionCleanupJob) GetStats(ctx context.Context, userID string) (*RetentionStats, error) {
	if j.mongoDB == nil {
		return nil, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)

	deletableTasks, err := j.tasks.CountDocuments(ctx, bson.M{
		"userId":      userID,
		"completed":   true,
		"completedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}

	deletableEvents, err := j.events.CountDocuments(ctx, bson.M{
		"userId":   userID,
		"isAnchor": false,
		"endAt":    bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}

	return &RetentionStats{
		DeletableTasks:  int(deletableTasks),
		DeletableEvents: int(deletableEvents),
		RetentionDays:   j.retentionDays,
		CutoffDate:      cutoff,
	}, nil
}

// RetentionStats provides statistics about data retention
type RetentionStats struct {
	DeletableTasks  int       `json:"deletable_tasks"`
	DeletableEvents int       `json:"deletable_events"`
	RetentionDays   int       `json:"retention_days"`
	CutoffDate      time.Time `json:"cutoff_date"`
}
