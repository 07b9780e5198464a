package models

import "time"

// Proposal type constants
const (
	ProposalTypeTask  = "task"
	ProposalTypeEvent = "event"
)

// Interpreter response modes
const (
	ModeFollowup = "followup"
	ModeIntent   = "intent"
	ModeProposal = "proposal" // legacy alias for intent
)

// SchedulingIntent is the structured request produced by the external
// interpreter. Fields are merged shallowly across clarification turns:
// a non-zero field in a later turn replaces the earlier value outright.
type SchedulingIntent struct {
	Kind            string     `bson:"kind" json:"kind"` // task | event
	Title           string     `bson:"title" json:"title"`
	DurationMinutes int        `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Location        string     `bson:"location,omitempty" json:"location,omitempty"`
	FixedStartAt    *time.Time `bson:"fixedStartAt,omitempty" json:"fixedStartAt,omitempty"`
	FixedEndAt      *time.Time `bson:"fixedEndAt,omitempty" json:"fixedEndAt,omitempty"`
	WindowDays      int        `bson:"windowDays,omitempty" json:"windowDays,omitempty"`
	DueDate         string     `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Notes           string     `bson:"notes,omitempty" json:"notes,omitempty"`
	IsAnchor        bool       `bson:"isAnchor,omitempty" json:"isAnchor,omitempty"`
}

// Merge returns a copy of the intent with every non-zero field of next
// replacing the matching field. Whole-field replace, no deep merging.
func (i SchedulingIntent) Merge(next SchedulingIntent) SchedulingIntent {
	out := i
	if next.Kind != "" {
		out.Kind = next.Kind
	}
	if next.Title != "" {
		out.Title = next.Title
	}
	if next.DurationMinutes != 0 {
		out.DurationMinutes = next.DurationMinutes
	}
	if next.Location != "" {
		out.Location = next.Location
	}
	if next.FixedStartAt != nil {
		out.FixedStartAt = next.FixedStartAt
	}
	if next.FixedEndAt != nil {
		out.FixedEndAt = next.FixedEndAt
	}
	if next.WindowDays != 0 {
		out.WindowDays = next.WindowDays
	}
	if next.DueDate != "" {
		out.DueDate = next.DueDate
	}
	if next.Notes != "" {
		out.Notes = next.Notes
	}
	if next.IsAnchor {
		out.IsAnchor = true
	}
	return out
}

// Proposal is an ephemeral, engine-owned candidate action. It lives in the
// session blob until committed or discarded and is never partially persisted.
type Proposal struct {
	ID         string     `bson:"id" json:"id"`
	Type       string     `bson:"type" json:"type"` // task | event
	Title      string     `bson:"title" json:"title"`
	Notes      string     `bson:"notes,omitempty" json:"notes,omitempty"`
	Location   string     `bson:"location,omitempty" json:"location,omitempty"`
	DueDate    string     `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	StartAt    *time.Time `bson:"startAt,omitempty" json:"startAt,omitempty"`
	EndAt      *time.Time `bson:"endAt,omitempty" json:"endAt,omitempty"`
	Confidence float64    `bson:"confidence,omitempty" json:"confidence,omitempty"`
	IsAnchor   bool       `bson:"isAnchor,omitempty" json:"isAnchor,omitempty"`

	// DurationMinutes is the requested span for proposals that are not yet
	// time-bound (slot search input, auto-commit routing).
	DurationMinutes int `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`

	// SourceTaskID is set when confirming this event proposal should consume
	// an existing task (task-to-event promotion).
	SourceTaskID string `bson:"sourceTaskId,omitempty" json:"sourceTaskId,omitempty"`
}

// SpanMinutes returns the proposal's time-bound span in minutes, or 0 when
// start or end is unset.
func (p Proposal) SpanMinutes() int {
	if p.StartAt == nil || p.EndAt == nil {
		return 0
	}
	return int(p.EndAt.Sub(*p.StartAt) / time.Minute)
}

// EffectiveDurationMinutes prefers the time-bound span, then the requested
// duration, then the given fallback.
func (p Proposal) EffectiveDurationMinutes(fallback int) int {
	if span := p.SpanMinutes(); span > 0 {
		return span
	}
	if p.DurationMinutes > 0 {
		return p.DurationMinutes
	}
	return fallback
}

// ConflictRecord links a proposal to the first commitment it overlaps.
// Derived data: recomputed whenever a proposal's bounds change, never stored.
type ConflictRecord struct {
	ProposalID              string `json:"proposalId"`
	ConflictingCommitmentID string `json:"conflictingCommitmentId"`
	ConflictingTitle        string `json:"conflictingTitle,omitempty"`
}

// ChatMessage is one turn of the scheduler conversation.
type ChatMessage struct {
	ID        string    `bson:"id" json:"id"`
	Role      string    `bson:"role" json:"role"` // user | assistant
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// SessionState is the persisted multi-turn clarification context for one
// conversation. AwaitingFields is non-empty exactly when the session is
// awaiting clarification.
type SessionState struct {
	PendingIntent     *SchedulingIntent `bson:"pendingIntent" json:"pendingIntent"`
	AwaitingFields    []string          `bson:"awaitingFields" json:"awaitingFields"`
	LastQuestion      string            `bson:"lastQuestion,omitempty" json:"lastQuestion,omitempty"`
	LastProposals     []Proposal        `bson:"lastProposals,omitempty" json:"lastProposals,omitempty"`
	LastUserMessageID string            `bson:"lastUserMessageId,omitempty" json:"lastUserMessageId,omitempty"`
}

// AwaitingClarification reports whether the session is mid-clarification.
func (s *SessionState) AwaitingClarification() bool {
	return len(s.AwaitingFields) > 0
}

// SchedulerSession is the full conversation blob stored per user: thread
// plus clarification state. A convenience cache, not a system of record.
type SchedulerSession struct {
	Messages []ChatMessage `json:"messages"`
	State    SessionState  `json:"state"`
}

// NewSchedulerSession returns the initial empty session shape.
func NewSchedulerSession() *SchedulerSession {
	return &SchedulerSession{
		Messages: []ChatMessage{},
		State:    SessionState{AwaitingFields: []string{}},
	}
}

// InterpreterRequest is the payload sent to the external interpreter.
type InterpreterRequest struct {
	Message       string            `json:"message"`
	NowISO        string            `json:"nowIso"`
	Timezone      string            `json:"timezone"`
	Preferences   *Preferences      `json:"prefs,omitempty"`
	Thread        []ChatMessage     `json:"thread,omitempty"`
	SessionState  *SessionState     `json:"sessionState,omitempty"`
	EventsWindow  []Commitment      `json:"eventsWindow,omitempty"`
}

// InterpreterResponse is the interpreter's reply. Optional fields may be
// absent; consumers must tolerate a partially filled response.
type InterpreterResponse struct {
	AssistantText    string            `json:"assistantText"`
	Mode             string            `json:"mode"` // followup | intent | proposal
	FollowUpQuestion string            `json:"followUpQuestion,omitempty"`
	AwaitingFields   []string          `json:"awaitingFields,omitempty"`
	PendingIntent    *SchedulingIntent `json:"pendingIntent,omitempty"`
	Intent           *SchedulingIntent `json:"intent,omitempty"`
	Proposals        []Proposal        `json:"proposals,omitempty"`
}

// SchedulerReply is what the message endpoint returns to the client.
type SchedulerReply struct {
	AssistantText  string           `json:"assistantText"`
	Mode           string           `json:"mode"`
	AwaitingFields []string         `json:"awaitingFields"`
	AutoCommitted  []Proposal       `json:"autoCommitted,omitempty"`
	Proposals      []Proposal       `json:"proposals,omitempty"`
	Conflicts      []ConflictRecord `json:"conflicts,omitempty"`
}

// Undo action kinds
const (
	UndoCreatedTask  = "created-task"
	UndoCreatedEvent = "created-event"
	UndoTaskToEvent  = "task-to-event"
)

// UndoEntry is the single-slot compensation record for the last commit.
// Superseded by the next commit, consumed at most once, expires on its own.
type UndoEntry struct {
	ActionKind  string `json:"actionKind"`
	CommittedID string `json:"committedId"`

	// Snapshot of the task consumed by a task-to-event commit, restored on undo.
	CompensatingTask *Task `json:"compensatingTask,omitempty"`
}
