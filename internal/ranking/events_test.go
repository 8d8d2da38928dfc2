package ranking

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

type memorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *memorySink) Send(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *memorySink) byKind(kind EventKind) []Event {
	var result []Event
	for _, event := range s.all() {
		if event.Kind == kind {
			result = append(result, event)
		}
	}
	return result
}

func (s *memorySink) logLevels() map[LogLevel]int {
	levels := make(map[LogLevel]int)
	for _, event := range s.byKind(EventLog) {
		payload := event.Payload.(LogPayload)
		levels[payload.Level]++
	}
	return levels
}

func TestEmitterPreservesEmissionOrder(t *testing.T) {
	t.Parallel()

	sink := &memorySink{}
	emitter := NewEmitter(sink, zap.NewNop())

	emitter.Log(LogInfo, "first")
	emitter.Progress(0, 10)
	emitter.Partial(nil, 5, 10)
	emitter.Complete(nil, 10, 10, false, "done")
	emitter.Close()

	events := sink.all()
	expected := []EventKind{EventLog, EventProgress, EventPartial, EventComplete}
	if len(events) != len(expected) {
		t.Fatalf("expected %d events, got %d", len(expected), len(events))
	}
	for i, kind := range expected {
		if events[i].Kind != kind {
			t.Fatalf("event %d: expected %s, got %s", i, kind, events[i].Kind)
		}
	}
}

func TestEmitterDropsEventsAfterTerminal(t *testing.T) {
	t.Parallel()

	sink := &memorySink{}
	emitter := NewEmitter(sink, zap.NewNop())

	emitter.Complete(nil, 0, 0, false, "done")
	emitter.Log(LogInfo, "too late")
	emitter.Error("also too late")
	emitter.Close()

	events := sink.all()
	if len(events) != 1 || events[0].Kind != EventComplete {
		t.Fatalf("expected only the terminal event, got %v", events)
	}
}

func TestEmitterCloseWithoutTerminalFlushesQueued(t *testing.T) {
	t.Parallel()

	sink := &memorySink{}
	emitter := NewEmitter(sink, zap.NewNop())

	emitter.Log(LogInfo, "queued")
	emitter.Close()

	if got := len(sink.all()); got != 1 {
		t.Fatalf("expected queued event to be flushed, got %d events", got)
	}

	// Close after close must not panic.
	emitter.Close()
}

func TestEmitterCompleteNormalizesNilItems(t *testing.T) {
	t.Parallel()

	sink := &memorySink{}
	emitter := NewEmitter(sink, zap.NewNop())

	emitter.Complete(nil, 0, 0, false, "empty")
	emitter.Close()

	payload := sink.all()[0].Payload.(CompletePayload)
	if payload.Items == nil {
		t.Fatalf("complete payload must carry an empty list, not null")
	}
}
