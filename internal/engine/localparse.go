package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"dayflow/internal/models"
)

var requestPrefixes = []string{"i need to", "i have to", "remind me to"}

// ParseLocalRequest is the offline fallback for the interpreter boundary: a
// keyword parser that turns free text into a single task proposal. Used when
// no interpreter is configured or both attempts failed for the turn.
func ParseLocalRequest(text string, now time.Time) (string, []models.Proposal) {
	title := strings.TrimSpace(text)
	lower := strings.ToLower(title)

	for _, prefix := range requestPrefixes {
		if strings.HasPrefix(lower, prefix) {
			title = strings.TrimSpace(title[len(prefix):])
			break
		}
	}

	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}

	var dueDate string
	switch lowerTitle := strings.ToLower(title); {
	case strings.Contains(lowerTitle, "today"):
		dueDate = now.Format("2006-01-02")
	case strings.Contains(lowerTitle, "tomorrow"):
		dueDate = now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(lowerTitle, "this week"):
		dueDate = now.AddDate(0, 0, 3).Format("2006-01-02")
	}

	proposal := models.Proposal{
		ID:      uuid.NewString(),
		Type:    models.ProposalTypeTask,
		Title:   title,
		DueDate: dueDate,
	}

	return "I can add this as a task. Want me to save it?", []models.Proposal{proposal}
}
