package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"papertrade/internal/domain"
)

// Compile-time interface check.
var _ Sink = (*Archive)(nil)

// Archive appends events to one Parquet file per day under
// <dataDir>/events/<YYYY-MM-DD>.parquet for offline analysis.
type Archive struct {
	mu      sync.Mutex
	dataDir string
}

// NewArchive creates an Archive rooted at the given data directory.
func NewArchive(dataDir string) *Archive {
	return &Archive{dataDir: dataDir}
}

// eventRecord is the Parquet schema for archived clickstream events.
type eventRecord struct {
	AccountID string `parquet:"account_id"`
	EventType string `parquet:"event_type"`
	EventData string `parquet:"event_data"` // JSON, may be empty
	Page      string `parquet:"page"`
	Timestamp int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// eventPath returns the archive file for a date.
// Layout: <dataDir>/events/<YYYY-MM-DD>.parquet
func (a *Archive) eventPath(t time.Time) string {
	return filepath.Join(a.dataDir, "events", t.Format("2006-01-02")+".parquet")
}

// SaveEvent appends one event to its day file. Parquet files are immutable,
// so the day's records are read back, extended, and rewritten; event volume
// per day is small enough for that to stay cheap.
func (a *Archive) SaveEvent(_ context.Context, ev *domain.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var data string
	if ev.Data != nil {
		b, err := json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("encoding event data: %w", err)
		}
		data = string(b)
	}

	path := a.eventPath(ev.At)
	existing, _ := parquet.ReadFile[eventRecord](path)
	records := append(existing, eventRecord{
		AccountID: ev.AccountID,
		EventType: ev.Type,
		EventData: data,
		Page:      ev.Page,
		Timestamp: ev.At.UnixMilli(),
	})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}
	if err := parquet.WriteFile(path, records); err != nil {
		return fmt.Errorf("writing event archive: %w", err)
	}
	return nil
}

// ReadDay returns all archived events for a date, in append order. A
// missing day file yields an empty slice.
func (a *Archive) ReadDay(day time.Time) ([]domain.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, err := parquet.ReadFile[eventRecord](a.eventPath(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading event archive: %w", err)
	}

	out := make([]domain.Event, 0, len(records))
	for _, r := range records {
		ev := domain.Event{
			AccountID: r.AccountID,
			Type:      r.EventType,
			Page:      r.Page,
			At:        time.UnixMilli(r.Timestamp),
		}
		if r.EventData != "" {
			if err := json.Unmarshal([]byte(r.EventData), &ev.Data); err != nil {
				return nil, fmt.Errorf("decoding event data: %w", err)
			}
		}
		out = append(out, ev)
	}
	return out, nil
}
