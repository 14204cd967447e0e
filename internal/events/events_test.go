package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"papertrade/internal/domain"
)

// collectSink gathers delivered events and can be told to fail.
type collectSink struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (s *collectSink) SaveEvent(_ context.Context, ev *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *ev)
	return nil
}

func (s *collectSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorderDeliversToAllSinks(t *testing.T) {
	a, b := &collectSink{}, &collectSink{}
	r := NewRecorder(discardLogger(), 8, a, b)

	r.Record(domain.Event{AccountID: "acct-1", Type: TypePageView, Page: "/"})
	r.Record(domain.Event{AccountID: "acct-1", Type: TypeTradeAttempt})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx) // drains the buffer before returning

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("delivered = %d and %d, want 2 and 2", a.count(), b.count())
	}
	if a.events[0].At.IsZero() {
		t.Error("event timestamp not stamped")
	}
}

func TestRecorderFailingSinkDoesNotBlockOthers(t *testing.T) {
	bad := &collectSink{err: errors.New("archive offline")}
	good := &collectSink{}
	r := NewRecorder(discardLogger(), 8, bad, good)

	r.Record(domain.Event{AccountID: "acct-1", Type: TypeTradeCompleted})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)

	if good.count() != 1 {
		t.Errorf("healthy sink delivered = %d, want 1", good.count())
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	sink := &collectSink{}
	r := NewRecorder(discardLogger(), 2, sink)

	// Run is not started, so the buffer fills and the third event drops.
	for i := 0; i < 3; i++ {
		r.Record(domain.Event{AccountID: "acct-1", Type: TypePageView})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)

	if sink.count() != 2 {
		t.Errorf("delivered = %d, want 2 (overflow dropped)", sink.count())
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	a := NewArchive(t.TempDir())
	at := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

	events := []domain.Event{
		{AccountID: "acct-1", Type: TypePageView, Page: "/", At: at},
		{AccountID: "acct-1", Type: TypeTradeAttempt, Data: map[string]any{"symbol": "AAPL"}, At: at.Add(time.Second)},
		{AccountID: "acct-2", Type: TypeTradeCompleted, At: at.Add(2 * time.Second)},
	}
	for i := range events {
		if err := a.SaveEvent(context.Background(), &events[i]); err != nil {
			t.Fatalf("SaveEvent %d: %v", i, err)
		}
	}

	got, err := a.ReadDay(at)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d events, want 3", len(got))
	}
	if got[1].Type != TypeTradeAttempt {
		t.Errorf("event 1 type = %q, want %q", got[1].Type, TypeTradeAttempt)
	}
	if sym, ok := got[1].Data["symbol"]; !ok || sym != "AAPL" {
		t.Errorf("event 1 data = %v, want symbol AAPL", got[1].Data)
	}
	if !got[0].At.Equal(at) {
		t.Errorf("event 0 time = %v, want %v", got[0].At, at)
	}
}

func TestArchiveMissingDay(t *testing.T) {
	a := NewArchive(t.TempDir())
	got, err := a.ReadDay(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("read %d events from missing day, want 0", len(got))
	}
}
