package stores

import (
	"context"
	"time"
)

// EntryLevel represents the severity level of a journal entry
type EntryLevel string

const (
	EntryLevelInfo    EntryLevel = "info"
	EntryLevelWarning EntryLevel = "warning"
	EntryLevelError   EntryLevel = "error"
)

// Entry is one recorded lifecycle or notice event.
type Entry struct {
	ID        int64      `json:"id"`
	EventID   string     `json:"event_id"`
	Type      string     `json:"type"`
	Operation string     `json:"operation,omitempty"`
	Path      string     `json:"path,omitempty"`
	Level     EntryLevel `json:"level"`
	Message   string     `json:"message"`
	Details   string     `json:"details"` // JSON blob
	Timestamp time.Time  `json:"timestamp"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Operation string
	Type      string
	Level     EntryLevel
	Since     time.Time
	Limit     int
	Offset    int
}

// Journal records and lists entries.
type Journal interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]*Entry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
