package ranking

import (
	"sync"

	"go.uber.org/zap"
)

// EventKind discriminates the payload of an Event.
type EventKind string

const (
	EventLog      EventKind = "log"
	EventProgress EventKind = "progress"
	EventPartial  EventKind = "partial"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// LogLevel grades log events sent to the caller.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
)

// Event is one message of the outbound stream.
type Event struct {
	Kind    EventKind `json:"kind"`
	Payload any       `json:"payload"`
}

type LogPayload struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

type ProgressPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type PartialPayload struct {
	Items     []*RankedCandidate `json:"items"`
	Processed int                `json:"processed"`
	Total     int                `json:"total"`
}

type CompletePayload struct {
	Items     []*RankedCandidate `json:"items"`
	Total     int                `json:"total"`
	Processed int                `json:"processed"`
	Partial   bool               `json:"partial"`
	Message   string             `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Sink delivers events to the caller. Implementations are invoked from a
// single goroutine, in emission order.
type Sink interface {
	Send(event Event) error
}

// Emitter is the single writer of the event stream. All components emit into
// one internal channel; a dedicated goroutine drains it to the sink, so
// emission order is delivery order regardless of which worker emitted.
// A terminal event (complete or error) closes the stream; later emissions are
// dropped. Delivery is best-effort: sink failures are logged, never raised.
type Emitter struct {
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	events chan Event
	done   chan struct{}
}

const emitterBuffer = 64

func NewEmitter(sink Sink, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Emitter{
		logger: logger,
		events: make(chan Event, emitterBuffer),
		done:   make(chan struct{}),
	}

	go e.drain(sink)

	return e
}

func (e *Emitter) drain(sink Sink) {
	defer close(e.done)

	for event := range e.events {
		if err := sink.Send(event); err != nil {
			e.logger.Warn("delivering event failed",
				zap.String("kind", string(event.Kind)),
				zap.Error(err),
			)
		}
	}
}

func (e *Emitter) emit(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	e.events <- event

	if event.Kind == EventComplete || event.Kind == EventError {
		e.closed = true
		close(e.events)
	}
}

// Close shuts the stream down without a terminal event (no-op when one was
// already emitted) and waits until every queued event reached the sink.
func (e *Emitter) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	e.mu.Unlock()

	<-e.done
}

func (e *Emitter) Log(level LogLevel, message string) {
	e.emit(Event{Kind: EventLog, Payload: LogPayload{Level: level, Message: message}})
}

func (e *Emitter) Progress(current, total int) {
	e.emit(Event{Kind: EventProgress, Payload: ProgressPayload{Current: current, Total: total}})
}

func (e *Emitter) Partial(items []*RankedCandidate, processed, total int) {
	e.emit(Event{Kind: EventPartial, Payload: PartialPayload{Items: items, Processed: processed, Total: total}})
}

func (e *Emitter) Complete(items []*RankedCandidate, total, processed int, partial bool, message string) {
	if items == nil {
		items = []*RankedCandidate{}
	}
	e.emit(Event{Kind: EventComplete, Payload: CompletePayload{
		Items:     items,
		Total:     total,
		Processed: processed,
		Partial:   partial,
		Message:   message,
	}})
}

func (e *Emitter) Error(message string) {
	e.emit(Event{Kind: EventError, Payload: ErrorPayload{Message: message}})
}
