package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
	once sync.Once
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

func (s *gateSink) open() {
	s.once.Do(func() { close(s.gate) })
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Event) {
	panic("sink exploded")
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversAllOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 64}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := sink.count.Load(); got != 50 {
		t.Fatalf("expected 50 delivered events, got %d", got)
	}

	d.Emit(context.Background(), Event{EventType: "late"})
	if got := sink.count.Load(); got != 50 {
		t.Fatalf("events after close must be ignored, got %d", got)
	}
}

func TestDispatcherCloseRacingEmitAccountsEveryEvent(t *testing.T) {
	for _, dropIfFull := range []bool{false, true} {
		sink := &countingSink{}
		d := NewDispatcher(Config{Enabled: true, BufferSize: 8, DropIfFull: dropIfFull}, sink)

		const workers, perWorker = 8, 200
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					d.Emit(context.Background(), Event{EventType: "login_failure"})
				}
			}()
		}
		time.Sleep(time.Millisecond)
		d.Close()
		wg.Wait()

		if got := uint64(sink.count.Load()) + d.Dropped(); got != workers*perWorker {
			t.Fatalf("dropIfFull=%v: delivered+dropped = %d, want %d", dropIfFull, got, workers*perWorker)
		}
	}
}

func TestDispatcherDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer d.Close()
	defer sink.open()

	for i := 0; i < 20; i++ {
		d.Emit(context.Background(), Event{EventType: "register_success"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink and a full buffer")
	}
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)
	defer d.Close()
	defer sink.open()

	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Emit(ctx, Event{})
	if time.Since(start) > time.Second {
		t.Fatal("Emit should return once the context is done")
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected the cancelled event to count as dropped, got %d", d.Dropped())
	}
}

func TestDispatcherSurvivesPanickingSink(t *testing.T) {
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, panicSink{})
	d.Emit(context.Background(), Event{})
	d.Emit(context.Background(), Event{})
	d.Close()

	if d.Dropped() != 2 {
		t.Fatalf("expected 2 dropped events, got %d", d.Dropped())
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{EventType: "login_failure", Username: "bob", IP: "5.6.7.8", Error: "invalid_credentials"})
	sink.Emit(context.Background(), Event{EventType: "login_success", Username: "bob", Success: true})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if first.Username != "bob" || first.Error != "invalid_credentials" || first.Success {
		t.Fatalf("unexpected event %+v", first)
	}
}

func TestSlogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewSlogSink(logger)

	sink.Emit(context.Background(), Event{EventType: "reset_password_confirm", Flow: "reset_password", Success: false, Error: "locked_out", Metadata: map[string]string{"retry_after": "5m0s"}})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json log: %v", err)
	}
	if rec["level"] != "WARN" {
		t.Fatalf("expected WARN, got %v", rec["level"])
	}
	if rec["retry_after"] != "5m0s" || rec["error"] != "locked_out" {
		t.Fatalf("missing attributes: %v", rec)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	MultiSink{a, nil, b}.Emit(context.Background(), Event{})
	if a.count.Load() != 1 || b.count.Load() != 1 {
		t.Fatal("expected both sinks to receive the event")
	}
}
