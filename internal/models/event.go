package models

import "time"

// Event represents a time-bound calendar entry.
type Event struct {
	ID       string    `bson:"_id" json:"id"`
	UserID   string    `bson:"userId" json:"-"`
	Title    string    `bson:"title" json:"title"`
	Location string    `bson:"location,omitempty" json:"location,omitempty"`
	Notes    string    `bson:"notes,omitempty" json:"notes,omitempty"`
	StartAt  time.Time `bson:"startAt" json:"startAt"`
	EndAt    time.Time `bson:"endAt" json:"endAt"`
	AllDay   bool      `bson:"allDay,omitempty" json:"allDay,omitempty"`

	// IsAnchor marks the event non-negotiable: it can appear in conflict
	// reports but the engine must never delete or replace it.
	IsAnchor bool `bson:"isAnchor,omitempty" json:"isAnchor,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CreateEventRequest represents a request to create an event
type CreateEventRequest struct {
	Title    string    `json:"title" validate:"required"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	StartAt  time.Time `json:"startAt" validate:"required"`
	EndAt    time.Time `json:"endAt" validate:"required"`
	AllDay   bool      `json:"allDay,omitempty"`
	IsAnchor bool      `json:"isAnchor,omitempty"`
}

// UpdateEventRequest represents a partial event update
type UpdateEventRequest struct {
	Title    *string    `json:"title,omitempty"`
	Location *string    `json:"location,omitempty"`
	Notes    *string    `json:"notes,omitempty"`
	StartAt  *time.Time `json:"startAt,omitempty"`
	EndAt    *time.Time `json:"endAt,omitempty"`
	AllDay   *bool      `json:"allDay,omitempty"`
	IsAnchor *bool      `json:"isAnchor,omitempty"`
}

// Commitment is the engine's read-only view of an existing calendar entry.
// Time-bound commitments come from events; date-only commitments from tasks
// with a due date. Only time-bound commitments enter overlap checks.
type Commitment struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	StartAt       time.Time `json:"startAt,omitempty"`
	EndAt         time.Time `json:"endAt,omitempty"`
	DueDate       string    `json:"dueDate,omitempty"`
	IsAnchor      bool      `json:"isAnchor,omitempty"`
	BufferMinutes int       `json:"bufferMinutes,omitempty"`
}

// TimeBound reports whether the commitment occupies a concrete interval.
func (c Commitment) TimeBound() bool {
	return !c.StartAt.IsZero() && !c.EndAt.IsZero()
}
