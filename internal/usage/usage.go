// Package usage keeps per-model request counts for the backend and persists
// them as JSON next to the server config.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dooshek/vibe/internal/logger"
)

// ModelUsage holds usage for a specific model
type ModelUsage struct {
	Requests     int     `json:"requests"`
	AudioSeconds float64 `json:"audio_seconds,omitempty"`
}

// Usage is the persisted document.
type Usage struct {
	Models map[string]*ModelUsage `json:"models"`
}

// Tracker records model usage and persists it after every change
type Tracker struct {
	usage    Usage
	filePath string
	mu       sync.Mutex
}

// NewTracker creates a tracker backed by filePath and loads existing data.
// A missing or unreadable file starts fresh.
func NewTracker(filePath string) *Tracker {
	t := &Tracker{
		filePath: filePath,
		usage:    Usage{Models: make(map[string]*ModelUsage)},
	}
	if err := t.load(); err != nil {
		logger.Warnf("Could not load usage (will start fresh): %v", err)
	}
	return t
}

// Add counts one request against model. audioSeconds is the length of the
// processed audio, 0 for text-only calls.
func (t *Tracker) Add(model string, audioSeconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.usage.Models[model]
	if !ok {
		m = &ModelUsage{}
		t.usage.Models[model] = m
	}
	m.Requests++
	m.AudioSeconds += audioSeconds

	if err := t.save(); err != nil {
		logger.Error("Failed to save usage", err)
	}
}

// Snapshot returns a deep copy of current usage
func (t *Tracker) Snapshot() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := Usage{Models: make(map[string]*ModelUsage, len(t.usage.Models))}
	for model, m := range t.usage.Models {
		c := *m
		out.Models[model] = &c
	}
	return out
}

// Reset clears all usage and persists the empty document
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.usage = Usage{Models: make(map[string]*ModelUsage)}
	if err := t.save(); err != nil {
		return fmt.Errorf("failed to save reset usage: %w", err)
	}
	return nil
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read usage file: %w", err)
	}

	var u Usage
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("failed to unmarshal usage: %w", err)
	}
	if u.Models != nil {
		t.usage = u
	}

	logger.Debugf("Loaded usage from %s", t.filePath)
	return nil
}

// save writes via a temp file and rename so readers never see a partial file.
func (t *Tracker) save() error {
	if err := os.MkdirAll(filepath.Dir(t.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create usage directory: %w", err)
	}

	data, err := json.MarshalIndent(t.usage, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal usage: %w", err)
	}

	tempFile := t.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp usage file: %w", err)
	}
	if err := os.Rename(tempFile, t.filePath); err != nil {
		return fmt.Errorf("failed to rename temp usage file: %w", err)
	}
	return nil
}
