package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"dayflow/internal/models"
)

const sessionSaveDebounce = 500 * time.Millisecond

// SessionService persists scheduler conversations as JSON blobs in Redis,
// one per user. Saves are debounced and fire-and-forget: the conversation is
// a convenience cache, so a lost write costs at most the latest turn.
type SessionService struct {
	redis *RedisService
	ttl   time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewSessionService creates a new session service. ttlDays bounds how long an
// idle conversation survives.
func NewSessionService(redisService *RedisService, ttlDays int) *SessionService {
	if ttlDays <= 0 {
		ttlDays = 7
	}
	return &SessionService{
		redis:  redisService,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		timers: make(map[string]*time.Timer),
	}
}

func sessionKey(userID string) string {
	return "scheduler:session:" + userID
}

// Load returns the user's session, or a fresh empty session when none exists
// or the stored blob cannot be parsed. A corrupt blob is discarded rather
// than surfaced; the user simply starts a new conversation.
func (s *SessionService) Load(ctx context.Context, userID string) *models.SchedulerSession {
	if s.redis == nil {
		return models.NewSchedulerSession()
	}

	data, err := s.redis.Get(ctx, sessionKey(userID))
	if err == redis.Nil {
		return models.NewSchedulerSession()
	}
	if err != nil {
		log.Printf("⚠️  Failed to load session for user %s: %v", userID, err)
		return models.NewSchedulerSession()
	}

	var session models.SchedulerSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		log.Printf("⚠️  Discarding corrupt session blob for user %s: %v", userID, err)
		s.deleteNow(userID)
		return models.NewSchedulerSession()
	}

	if session.Messages == nil {
		session.Messages = []models.ChatMessage{}
	}
	if session.State.AwaitingFields == nil {
		session.State.AwaitingFields = []string{}
	}

	return &session
}

// Save schedules a debounced write of the session blob. Rapid successive
// turns collapse into one write; the actual store happens off the request
// path and errors are logged, not returned.
func (s *SessionService) Save(userID string, session *models.SchedulerSession) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(session)
	if err != nil {
		log.Printf("❌ Failed to serialize session for user %s: %v", userID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
	}

	s.timers[userID] = time.AfterFunc(sessionSaveDebounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.redis.Set(ctx, sessionKey(userID), string(data), s.ttl); err != nil {
			log.Printf("⚠️  Failed to persist session for user %s: %v", userID, err)
		}

		s.mu.Lock()
		delete(s.timers, userID)
		s.mu.Unlock()
	})
}

// Reset deletes the stored session and cancels any pending save
func (s *SessionService) Reset(ctx context.Context, userID string) error {
	if s.redis == nil {
		return nil
	}

	s.mu.Lock()
	if timer, ok := s.timers[userID]; ok {
		timer.Stop()
		delete(s.timers, userID)
	}
	s.mu.Unlock()

	if err := s.redis.Delete(ctx, sessionKey(userID)); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}

func (s *SessionService) deleteNow(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.redis.Delete(ctx, sessionKey(userID)); err != nil {
		log.Printf("⚠️  Failed to delete session blob for user %s: %v", userID, err)
	}
}
