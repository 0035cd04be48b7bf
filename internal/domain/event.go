package domain

import (
	"context"
	"time"
)

// LoadEventType is the event_type header of a LoadEvent message.
const LoadEventType = "dataset.loaded"

// LoadEvent announces that a dataset was (re)loaded into memory.
type LoadEvent struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Clustered bool      `json:"clustered"`
	Rows      int       `json:"rows"`
	Dropped   int       `json:"dropped_rows"`
	Derived   []string  `json:"derived_columns,omitempty"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// RefreshNotice is an upstream signal that the station files changed. The
// payload is informational; any notice invalidates the cached dataset.
type RefreshNotice struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}
