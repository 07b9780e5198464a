package engine

import "time"

// Interval is a half-open [Start, End) time window.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports half-open overlap: touching boundaries do not conflict.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Expand pads the interval symmetrically by the given number of minutes.
func (iv Interval) Expand(minutes int) Interval {
	if minutes <= 0 {
		return iv
	}
	d := time.Duration(minutes) * time.Minute
	return Interval{Start: iv.Start.Add(-d), End: iv.End.Add(d)}
}

// CandidateSlot is one free window found by slot search, labeled for display
// (e.g. "Tomorrow Morning").
type CandidateSlot struct {
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
	Label   string    `json:"label"`
}

// SlotSearchOptions bounds the multi-day free-slot scan.
type SlotSearchOptions struct {
	DaysAhead    int `yaml:"daysAhead"`
	DayStartHour int `yaml:"dayStartHour"`
	DayEndHour   int `yaml:"dayEndHour"`
	StepMinutes  int `yaml:"stepMinutes"`
	MaxResults   int `yaml:"maxResults"`
}

// DefaultSlotSearchOptions returns the built-in search bounds: a week ahead,
// 9am to 8pm, 30-minute steps, at most 6 candidates.
func DefaultSlotSearchOptions() SlotSearchOptions {
	return SlotSearchOptions{
		DaysAhead:    7,
		DayStartHour: 9,
		DayEndHour:   20,
		StepMinutes:  30,
		MaxResults:   6,
	}
}

func (o SlotSearchOptions) withDefaults() SlotSearchOptions {
	d := DefaultSlotSearchOptions()
	if o.DaysAhead <= 0 {
		o.DaysAhead = d.DaysAhead
	}
	if o.DayStartHour <= 0 {
		o.DayStartHour = d.DayStartHour
	}
	if o.DayEndHour <= 0 {
		o.DayEndHour = d.DayEndHour
	}
	if o.StepMinutes <= 0 {
		o.StepMinutes = d.StepMinutes
	}
	if o.MaxResults <= 0 {
		o.MaxResults = d.MaxResults
	}
	return o
}

// FindCandidateSlots enumerates free duration-sized windows across the search
// horizon, ordered by start time. Day 0's window start is clamped forward to
// the next step-aligned minute at or after now, so no candidate starts in the
// past. An empty result is a defined negative outcome, not an error; callers
// decide the fallback (manual entry).
func FindCandidateSlots(busy []Interval, now time.Time, durationMinutes int, opts SlotSearchOptions) []CandidateSlot {
	opts = opts.withDefaults()
	if durationMinutes <= 0 {
		return nil
	}

	duration := time.Duration(durationMinutes) * time.Minute
	step := time.Duration(opts.StepMinutes) * time.Minute
	candidates := make([]CandidateSlot, 0, opts.MaxResults)

	for dayOffset := 0; dayOffset <= opts.DaysAhead; dayOffset++ {
		if len(candidates) >= opts.MaxResults {
			break
		}

		day := now.AddDate(0, 0, dayOffset)
		start := time.Date(day.Year(), day.Month(), day.Day(), opts.DayStartHour, 0, 0, 0, day.Location())
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), opts.DayEndHour, 0, 0, 0, day.Location())

		// Don't suggest past times today: round now up to the next step.
		if dayOffset == 0 && now.After(start) {
			if next := roundUpToStep(now, opts.StepMinutes); next.After(start) {
				start = next
			}
		}

		for start.Before(dayEnd) {
			if len(candidates) >= opts.MaxResults {
				break
			}

			end := start.Add(duration)
			if end.After(dayEnd) {
				break
			}

			slot := Interval{Start: start, End: end}
			if !overlapsAny(slot, busy) {
				candidates = append(candidates, CandidateSlot{
					StartAt: start,
					EndAt:   end,
					Label:   slotLabel(start, now),
				})
			}

			start = start.Add(step)
		}
	}

	return candidates
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

// roundUpToStep returns the next stepMinutes-aligned minute strictly after t,
// seconds zeroed.
func roundUpToStep(t time.Time, stepMinutes int) time.Time {
	truncated := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	add := stepMinutes - t.Minute()%stepMinutes
	return truncated.Add(time.Duration(add) * time.Minute)
}

// slotLabel tags a slot with a day name and time of day: Today/Tomorrow or a
// short weekday name, crossed with Morning/Afternoon/Evening (thresholds 12
// and 17).
func slotLabel(start, now time.Time) string {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diffDays := int(startDay.Sub(nowDay).Hours() / 24)

	var dayName string
	switch diffDays {
	case 0:
		dayName = "Today"
	case 1:
		dayName = "Tomorrow"
	default:
		dayName = start.Weekday().String()[:3]
	}

	timeOfDay := "Morning"
	if start.Hour() >= 17 {
		timeOfDay = "Evening"
	} else if start.Hour() >= 12 {
		timeOfDay = "Afternoon"
	}

	return dayName + " " + timeOfDay
}
