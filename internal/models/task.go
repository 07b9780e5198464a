package models

import "time"

// Task represents a to-do item. Tasks are date-only: DueDate carries no time
// component and never participates in interval overlap checks.
type Task struct {
	ID          string     `bson:"_id" json:"id"`
	UserID      string     `bson:"userId" json:"-"`
	Title       string     `bson:"title" json:"title"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
	DueDate     string     `bson:"dueDate,omitempty" json:"dueDate,omitempty"` // YYYY-MM-DD
	Completed   bool       `bson:"completed" json:"completed"`
	IsAnchor    bool       `bson:"isAnchor,omitempty" json:"isAnchor,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`

	// Set when the task was consumed to create a calendar event.
	ScheduledEventID string `bson:"scheduledEventId,omitempty" json:"scheduledEventId,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// CreateTaskRequest represents a request to create a task
type CreateTaskRequest struct {
	Title    string `json:"title" validate:"required"`
	Notes    string `json:"notes,omitempty"`
	DueDate  string `json:"dueDate,omitempty"`
	IsAnchor bool   `json:"isAnchor,omitempty"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title     *string `json:"title,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	DueDate   *string `json:"dueDate,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	IsAnchor  *bool   `json:"isAnchor,omitempty"`
}
