package models

import "time"

// Preferences holds a user's scheduling preferences. The engine reads default
// durations, the conflict buffer, and the energy windows from here; everything
// else is carried for the client and forwarded to the interpreter as context.
type Preferences struct {
	UserID   string `bson:"_id" json:"-"`
	Timezone string `bson:"timezone" json:"timezone"`

	DefaultTaskMinutes  int `bson:"defaultTaskMinutes" json:"defaultTaskMinutes"`
	DefaultEventMinutes int `bson:"defaultEventMinutes" json:"defaultEventMinutes"`

	// Symmetric padding applied around intervals before overlap testing,
	// modeling e.g. travel time.
	BufferBetweenEventsMinutes int `bson:"bufferBetweenEventsMinutes" json:"bufferBetweenEventsMinutes"`

	// HH:MM time-of-day windows biasing slot search.
	PeakStart  string `bson:"peakStart" json:"peakStart"`
	PeakEnd    string `bson:"peakEnd" json:"peakEnd"`
	SlumpStart string `bson:"slumpStart" json:"slumpStart"`
	SlumpEnd   string `bson:"slumpEnd" json:"slumpEnd"`

	ReminderLeadMinutes int    `bson:"reminderLeadMinutes" json:"reminderLeadMinutes"`
	SchedulingStyle     string `bson:"schedulingStyle,omitempty" json:"schedulingStyle,omitempty"` // packed | balanced | spaced

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DefaultPreferences returns the preferences used before a user has saved any.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:                     userID,
		Timezone:                   "UTC",
		DefaultTaskMinutes:         30,
		DefaultEventMinutes:        60,
		BufferBetweenEventsMinutes: 0,
		PeakStart:                  "09:00",
		PeakEnd:                    "12:00",
		SlumpStart:                 "13:00",
		SlumpEnd:                   "16:00",
		ReminderLeadMinutes:        15,
		SchedulingStyle:            "balanced",
	}
}

// UpdatePreferencesRequest represents a partial preferences update
type UpdatePreferencesRequest struct {
	Timezone                   *string `json:"timezone,omitempty"`
	DefaultTaskMinutes         *int    `json:"defaultTaskMinutes,omitempty"`
	DefaultEventMinutes        *int    `json:"defaultEventMinutes,omitempty"`
	BufferBetweenEventsMinutes *int    `json:"bufferBetweenEventsMinutes,omitempty"`
	PeakStart                  *string `json:"peakStart,omitempty"`
	PeakEnd                    *string `json:"peakEnd,omitempty"`
	SlumpStart                 *string `json:"slumpStart,omitempty"`
	SlumpEnd                   *string `json:"slumpEnd,omitempty"`
	ReminderLeadMinutes        *int    `json:"reminderLeadMinutes,omitempty"`
	SchedulingStyle            *string `json:"schedulingStyle,omitempty"`
}
