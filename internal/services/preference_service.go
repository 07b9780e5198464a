package services

import (
	"context"
	"fmt"
	"time"

	"dayflow/internal/database"
	"dayflow/internal/models"

	gocache "github.com/patrickmn/go-cache"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PreferenceService handles user scheduling preferences with a short-lived
// read cache, since preferences are read on every scheduler turn.
type PreferenceService struct {
	db         *database.MongoDB
	collection *mongo.Collection
	cache      *gocache.Cache
}

// NewPreferenceService creates a new preference service
func NewPreferenceService(db *database.MongoDB) *PreferenceService {
	return &PreferenceService{
		db:         db,
		collection: db.Collection(database.CollectionPreferences),
		cache:      gocache.New(5*time.Minute, 10*time.Minute),
	}
}

// Get returns the user's preferences, falling back to defaults when none are
// saved. Never returns an error for a missing document.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*models.Preferences, error) {
	if cached, found := s.cache.Get(userID); found {
		if prefs, ok := cached.(*models.Preferences); ok {
			return prefs, nil
		}
	}

	var prefs models.Preferences
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&prefs)
	if err == mongo.ErrNoDocuments {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	s.cache.Set(userID, &prefs, gocache.DefaultExpiration)
	return &prefs, nil
}

// Update applies a partial preferences update and invalidates the cache
func (s *PreferenceService) Update(ctx context.Context, userID string, req *models.UpdatePreferencesRequest) (*models.Preferences, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}

	if req.Timezone != nil {
		set["timezone"] = *req.Timezone
	}
	if req.DefaultTaskMinutes != nil {
		set["defaultTaskMinutes"] = *req.DefaultTaskMinutes
	}
	if req.DefaultEventMinutes != nil {
		set["defaultEventMinutes"] = *req.DefaultEventMinutes
	}
	if req.BufferBetweenEventsMinutes != nil {
		set["bufferBetweenEventsMinutes"] = *req.BufferBetweenEventsMinutes
	}
	if req.PeakStart != nil {
		set["peakStart"] = *req.PeakStart
	}
	if req.PeakEnd != nil {
		set["peakEnd"] = *req.PeakEnd
	}
	if req.SlumpStart != nil {
		set["slumpStart"] = *req.SlumpStart
	}
	if req.SlumpEnd != nil {
		set["slumpEnd"] = *req.SlumpEnd
	}
	if req.ReminderLeadMinutes != nil {
		set["reminderLeadMinutes"] = *req.ReminderLeadMinutes
	}
	if req.SchedulingStyle != nil {
		set["schedulingStyle"] = *req.SchedulingStyle
	}

	defaults := models.DefaultPreferences(userID)
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"timezone":                   defaults.Timezone,
			"defaultTaskMinutes":         defaults.DefaultTaskMinutes,
			"defaultEventMinutes":        defaults.DefaultEventMinutes,
			"bufferBetweenEventsMinutes": defaults.BufferBetweenEventsMinutes,
			"peakStart":                  defaults.PeakStart,
			"peakEnd":                    defaults.PeakEnd,
			"slumpStart":                 defaults.SlumpStart,
			"slumpEnd":                   defaults.SlumpEnd,
			"reminderLeadMinutes":        defaults.ReminderLeadMinutes,
			"schedulingStyle":            defaults.SchedulingStyle,
		},
	}

	// $setOnInsert must not overlap fields present in $set
	if setOnInsert, ok := update["$setOnInsert"].(bson.M); ok {
		for key := range set {
			delete(setOnInsert, key)
		}
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var prefs models.Preferences
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, opts).Decode(&prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	s.cache.Delete(userID)
	return &prefs, nil
}
