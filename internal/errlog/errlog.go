// Package errlog records conversion failures as structured entries for
// user-facing display, mirroring each entry to a zap logger.
package errlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry is one recorded failure.
type Entry struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Context   map[string]any `json:"context,omitempty"`
}

// Log accumulates failure entries for one conversion run.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	logger  *zap.Logger
}

// New returns a Log writing structured records through logger. A nil logger
// disables mirroring.
func New(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Record logs a failure with its stage type and contextual payload and
// returns the stored entry.
func (l *Log) Record(errType, message string, context map[string]any) Entry {
	entry := Entry{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Context:   context,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	l.logger.Error(message,
		zap.String("type", errType),
		zap.Time("timestamp", entry.Timestamp),
		zap.Any("context", context),
	)

	return entry
}

// Entries returns all recorded entries in order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ByType returns entries of the given type in order.
func (l *Log) ByType(errType string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Type == errType {
			out = append(out, e)
		}
	}
	return out
}

// Format renders entries for display.
func (l *Log) Format() string {
	entries := l.Entries()
	if len(entries) == 0 {
		return "No errors logged."
	}

	var sb strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&sb, "Error %d (%s) - %s\n%s\n", i+1, e.Type, e.Timestamp.Format(time.RFC3339), e.Message)
		for k, v := range e.Context {
			fmt.Fprintf(&sb, "  %s: %v\n", k, v)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Clear discards all recorded entries.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
