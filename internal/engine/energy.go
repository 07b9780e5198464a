package engine

import (
	"strings"
	"time"
)

// EnergyLevel is the coarse attention cost of a piece of work
type EnergyLevel string

const (
	EnergyDeep    EnergyLevel = "deep"
	EnergyShallow EnergyLevel = "shallow"
)

// EnergyProfile is a fixed time-of-day model (HH:MM windows) used to bias
// slot search toward or away from prime attention time.
type EnergyProfile struct {
	PeakStart  string `json:"peakStart" yaml:"peakStart"`
	PeakEnd    string `json:"peakEnd" yaml:"peakEnd"`
	SlumpStart string `json:"slumpStart" yaml:"slumpStart"`
	SlumpEnd   string `json:"slumpEnd" yaml:"slumpEnd"`
}

// DefaultEnergyProfile returns the built-in profile
func DefaultEnergyProfile() EnergyProfile {
	return EnergyProfile{
		PeakStart:  "09:00",
		PeakEnd:    "12:00",
		SlumpStart: "13:00",
		SlumpEnd:   "16:00",
	}
}

var defaultDeepKeywords = []string{"study", "build", "code", "write", "project", "design", "assignment", "report"}

var defaultShallowKeywords = []string{"email", "emails", "admin", "call", "calls", "slack", "message", "messages", "errand", "errands", "groceries"}

// Classifier maps free-text titles to an energy level via case-insensitive
// substring matching. Deep keywords win when both sets match; no match
// defaults to shallow so ambiguous work never occupies prime focus time.
type Classifier struct {
	DeepKeywords    []string
	ShallowKeywords []string
	Profile         EnergyProfile
}

// NewClassifier returns a classifier with the built-in keyword sets and profile
func NewClassifier() Classifier {
	return Classifier{
		DeepKeywords:    defaultDeepKeywords,
		ShallowKeywords: defaultShallowKeywords,
		Profile:         DefaultEnergyProfile(),
	}
}

// Classify returns the energy level for a title. Pure, no error conditions.
func (c Classifier) Classify(title string) EnergyLevel {
	lower := strings.ToLower(title)

	for _, k := range c.DeepKeywords {
		if strings.Contains(lower, k) {
			return EnergyDeep
		}
	}

	for _, k := range c.ShallowKeywords {
		if strings.Contains(lower, k) {
			return EnergyShallow
		}
	}

	return EnergyShallow
}

// AnchorFor returns today's bias anchor for a title: peak start for deep
// work, slump start for shallow.
func (c Classifier) AnchorFor(title string, now time.Time) time.Time {
	hhmm := c.Profile.SlumpStart
	if c.Classify(title) == EnergyDeep {
		hhmm = c.Profile.PeakStart
	}
	return atTimeOfDay(now, hhmm)
}

// atTimeOfDay pins an HH:MM wall-clock time onto base's date, in base's
// location. Malformed strings resolve to midnight.
func atTimeOfDay(base time.Time, hhmm string) time.Time {
	var hh, mm int
	if parsed, err := time.Parse("15:04", hhmm); err == nil {
		hh, mm = parsed.Hour(), parsed.Minute()
	}
	return time.Date(base.Year(), base.Month(), base.Day(), hh, mm, 0, 0, base.Location())
}
