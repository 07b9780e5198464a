package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"

	"dayflow/internal/database"
	"dayflow/internal/models"
)

// Redis pub/sub channels for client notification streams
const (
	ChannelReminders = "dayflow:reminders"
	ChannelDigest    = "dayflow:digest"
)

// ReminderNotification is the payload published when an event is coming up.
type ReminderNotification struct {
	UserID      string    `json:"userId"`
	EventID     string    `json:"eventId"`
	Title       string    `json:"title"`
	StartAt     time.Time `json:"startAt"`
	LeadMinutes int       `json:"leadMinutes"`
}

// ReminderService sweeps upcoming events and publishes reminder
// notifications over Redis pub/sub. A daily digest job runs on a cron
// expression validated with the standard five-field parser.
type ReminderService struct {
	db        *database.MongoDB
	redis     *RedisService
	prefs     *PreferenceService
	scheduler gocron.Scheduler

	// eventID -> last reminded start time, so a rescheduled event reminds again
	mu       sync.Mutex
	reminded map[string]time.Time
}

// NewReminderService creates the reminder service. digestCron must be a
// valid five-field cron expression.
func NewReminderService(db *database.MongoDB, redisService *RedisService, prefs *PreferenceService, digestCron string) (*ReminderService, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(digestCron); err != nil {
		return nil, fmt.Errorf("invalid digest cron expression %q: %w", digestCron, err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &ReminderService{
		db:        db,
		redis:     redisService,
		prefs:     prefs,
		scheduler: scheduler,
		reminded:  make(map[string]time.Time),
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(s.sweep),
		gocron.WithName("reminder_sweep"),
	); err != nil {
		return nil, fmt.Errorf("failed to register reminder sweep: %w", err)
	}

	if _, err := scheduler.NewJob(
		gocron.CronJob(digestCron, false),
		gocron.NewTask(s.publishDigest),
		gocron.WithName("daily_digest"),
	); err != nil {
		return nil, fmt.Errorf("failed to register daily digest: %w", err)
	}

	return s, nil
}

// Start begins the background sweeps
func (s *ReminderService) Start() {
	s.scheduler.Start()
	log.Println("⏰ Reminder service started (sweep every minute)")
}

// Stop shuts the scheduler down
func (s *ReminderService) Stop() error {
	return s.scheduler.Shutdown()
}

// sweep publishes a reminder for every event starting within its owner's
// lead window that has not been reminded yet.
func (s *ReminderService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now().UTC()

	// Widest supported lead window; filtered per user below.
	cursor, err := s.db.Collection(database.CollectionEvents).Find(ctx, bson.M{
		"startAt": bson.M{"$gt": now, "$lte": now.Add(2 * time.Hour)},
	})
	if err != nil {
		log.Printf("⚠️  Reminder sweep query failed: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		log.Printf("⚠️  Reminder sweep decode failed: %v", err)
		return
	}

	for _, event := range events {
		preferences, err := s.prefs.Get(ctx, event.UserID)
		if err != nil {
			continue
		}

		lead := time.Duration(preferences.ReminderLeadMinutes) * time.Minute
		if lead <= 0 || event.StartAt.After(now.Add(lead)) {
			continue
		}

		s.mu.Lock()
		lastStart, seen := s.reminded[event.ID]
		alreadyReminded := seen && lastStart.Equal(event.StartAt)
		if !alreadyReminded {
			s.reminded[event.ID] = event.StartAt
		}
		s.mu.Unlock()

		if alreadyReminded {
			continue
		}

		s.publish(ctx, ChannelReminders, ReminderNotification{
			UserID:      event.UserID,
			EventID:     event.ID,
			Title:       event.Title,
			StartAt:     event.StartAt,
			LeadMinutes: preferences.ReminderLeadMinutes,
		})
	}

	s.pruneReminded(now)
}

// publishDigest pushes each user's events for the coming day.
func (s *ReminderService) publishDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now().UTC()
	end := now.AddDate(0, 0, 1)

	cursor, err := s.db.Collection(database.CollectionEvents).Find(ctx, bson.M{
		"startAt": bson.M{"$gte": now, "$lt": end},
	})
	if err != nil {
		log.Printf("⚠️  Digest query failed: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		log.Printf("⚠️  Digest decode failed: %v", err)
		return
	}

	byUser := make(map[string][]models.Event)
	for _, event := range events {
		byUser[event.UserID] = append(byUser[event.UserID], event)
	}

	for userID, userEvents := range byUser {
		s.publish(ctx, ChannelDigest, map[string]interface{}{
			"userId": userID,
			"date":   now.Format("2006-01-02"),
			"events": userEvents,
		})
	}

	log.Printf("📅 Daily digest published for %d users", len(byUser))
}

func (s *ReminderService) publish(ctx context.Context, channel string, payload interface{}) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("⚠️  Failed to serialize notification: %v", err)
		return
	}

	if err := s.redis.Publish(ctx, channel, string(data)); err != nil {
		log.Printf("⚠️  Failed to publish to %s: %v", channel, err)
	}
}

// pruneReminded drops entries for events that already started
func (s *ReminderService) pruneReminded(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, startAt := range s.reminded {
		if startAt.Before(now) {
			delete(s.reminded, id)
		}
	}
}
