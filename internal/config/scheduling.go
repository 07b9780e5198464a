package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// SchedulingPolicy is the tunable scheduling behavior loaded from
// scheduling.yaml. Zero or missing fields fall back to built-in defaults.
type SchedulingPolicy struct {
	// Slot search window
	DaysAhead       int `yaml:"daysAhead"`
	DayStartHour    int `yaml:"dayStartHour"`
	DayEndHour      int `yaml:"dayEndHour"`
	SlotStepMinutes int `yaml:"slotStepMinutes"`
	MaxSlotResults  int `yaml:"maxSlotResults"`

	// Defaults and routing
	DefaultTaskMinutes    int `yaml:"defaultTaskMinutes"`
	DefaultEventMinutes   int `yaml:"defaultEventMinutes"`
	BufferMinutes         int `yaml:"bufferMinutes"`
	AutoCommitMaxDuration int `yaml:"autoCommitMaxDuration"`

	// Energy model
	PeakStart       string   `yaml:"peakStart"`
	PeakEnd         string   `yaml:"peakEnd"`
	SlumpStart      string   `yaml:"slumpStart"`
	SlumpEnd        string   `yaml:"slumpEnd"`
	DeepKeywords    []string `yaml:"deepKeywords"`
	ShallowKeywords []string `yaml:"shallowKeywords"`

	// Reminders
	ReminderLeadMinutes int    `yaml:"reminderLeadMinutes"`
	DigestCron          string `yaml:"digestCron"`
}

// DefaultSchedulingPolicy returns the policy used when no file is present.
func DefaultSchedulingPolicy() SchedulingPolicy {
	return SchedulingPolicy{
		DaysAhead:             7,
		DayStartHour:          9,
		DayEndHour:            20,
		SlotStepMinutes:       30,
		MaxSlotResults:        6,
		DefaultTaskMinutes:    30,
		DefaultEventMinutes:   60,
		BufferMinutes:         0,
		AutoCommitMaxDuration: 60,
		PeakStart:             "09:00",
		PeakEnd:               "12:00",
		SlumpStart:            "13:00",
		SlumpEnd:              "16:00",
		ReminderLeadMinutes:   15,
		DigestCron:            "0 7 * * *",
	}
}

// LoadSchedulingPolicy reads and parses the policy file, layering it over the
// defaults. A missing file is not an error; a malformed one is.
func LoadSchedulingPolicy(filePath string) (SchedulingPolicy, error) {
	policy := DefaultSchedulingPolicy()

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return policy, nil
	}
	if err != nil {
		return policy, fmt.Errorf("failed to read scheduling policy: %w", err)
	}

	var loaded SchedulingPolicy
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return policy, fmt.Errorf("failed to parse scheduling policy YAML: %w", err)
	}

	mergePolicy(&policy, loaded)
	return policy, nil
}

func mergePolicy(base *SchedulingPolicy, over SchedulingPolicy) {
	if over.DaysAhead > 0 {
		base.DaysAhead = over.DaysAhead
	}
	if over.DayStartHour > 0 {
		base.DayStartHour = over.DayStartHour
	}
	if over.DayEndHour > 0 {
		base.DayEndHour = over.DayEndHour
	}
	if over.SlotStepMinutes > 0 {
		base.SlotStepMinutes = over.SlotStepMinutes
	}
	if over.MaxSlotResults > 0 {
		base.MaxSlotResults = over.MaxSlotResults
	}
	if over.DefaultTaskMinutes > 0 {
		base.DefaultTaskMinutes = over.DefaultTaskMinutes
	}
	if over.DefaultEventMinutes > 0 {
		base.DefaultEventMinutes = over.DefaultEventMinutes
	}
	if over.BufferMinutes > 0 {
		base.BufferMinutes = over.BufferMinutes
	}
	if over.AutoCommitMaxDuration > 0 {
		base.AutoCommitMaxDuration = over.AutoCommitMaxDuration
	}
	if over.PeakStart != "" {
		base.PeakStart = over.PeakStart
	}
	if over.PeakEnd != "" {
		base.PeakEnd = over.PeakEnd
	}
	if over.SlumpStart != "" {
		base.SlumpStart = over.SlumpStart
	}
	if over.SlumpEnd != "" {
		base.SlumpEnd = over.SlumpEnd
	}
	if len(over.DeepKeywords) > 0 {
		base.DeepKeywords = over.DeepKeywords
	}
	if len(over.ShallowKeywords) > 0 {
		base.ShallowKeywords = over.ShallowKeywords
	}
	if over.ReminderLeadMinutes > 0 {
		base.ReminderLeadMinutes = over.ReminderLeadMinutes
	}
	if over.DigestCron != "" {
		base.DigestCron = over.DigestCron
	}
}

// PolicyStore holds the current scheduling policy and supports hot reload.
type PolicyStore struct {
	mu     sync.RWMutex
	policy SchedulingPolicy
}

// NewPolicyStore creates a store seeded with the given policy.
func NewPolicyStore(policy SchedulingPolicy) *PolicyStore {
	return &PolicyStore{policy: policy}
}

// Current returns a copy of the active policy.
func (s *PolicyStore) Current() SchedulingPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Replace swaps in a new policy.
func (s *PolicyStore) Replace(policy SchedulingPolicy) {
	s.mu.Lock()
	s.policy = policy
	s.mu.Unlock()
}

// WatchSchedulingPolicy watches the policy file and reloads the store on
// change. Blocks; run in a goroutine. onReload, if non-nil, is invoked after
// each successful swap.
func WatchSchedulingPolicy(filePath string, store *PolicyStore, onReload func(SchedulingPolicy)) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("⚠️  Failed to create scheduling policy watcher: %v", err)
		return
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		log.Printf("⚠️  Failed to get absolute path for %s: %v", filePath, err)
		watcher.Close()
		return
	}

	// Watch the directory containing the file (more reliable than watching the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		log.Printf("⚠️  Failed to watch directory %s: %v", dir, err)
		watcher.Close()
		return
	}

	log.Printf("👁️  Watching %s for changes (hot-reload enabled)", filePath)

	// Debounce timer to avoid multiple reloads for rapid file changes
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}

				debounceTimer = time.AfterFunc(debounceDuration, func() {
					policy, err := LoadSchedulingPolicy(filePath)
					if err != nil {
						log.Printf("❌ Failed to reload scheduling policy: %v (keeping previous)", err)
						return
					}
					store.Replace(policy)
					log.Printf("✅ Scheduling policy reloaded from %s", filePath)
					if onReload != nil {
						onReload(policy)
					}
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("⚠️  Scheduling policy watcher error: %v", err)
		}
	}
}
