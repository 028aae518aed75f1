package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event represents a single progress record emitted by the scanner.
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Message   string                 `json:"message,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Well-known event types emitted by the scanner between steps.
const (
	TypeScanStart    = "scan-start"
	TypePhaseStart   = "phase-start"
	TypePhaseSkipped = "phase-skipped"
	TypeCheckStart   = "check-start"
	TypeCheckResult  = "check-result"
	TypeFinding      = "finding"
	TypeConnection   = "connection-found"
	TypeNote         = "note"
	TypeArtifact     = "artifact-written"
	TypeScanFinished = "scan-finished"
)

// Sink receives progress events. Checks and the orchestrator stay pure; all
// narration flows through a Sink injected by the caller.
type Sink interface {
	Emit(Event) error
}

// Emitter writes NDJSON events to an io.Writer safely across goroutines.
type Emitter struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewEmitter returns a new NDJSON emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{writer: w}
}

// Emit serializes the event to JSON and appends a newline.
func (e *Emitter) Emit(evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.writer.Write(append(payload, '\n')); err != nil {
		return err
	}

	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(Event) error { return nil }

// Multi fans each event out to every sink, stopping at the first error.
func Multi(sinks ...Sink) Sink { return multi(sinks) }

type multi []Sink

func (m multi) Emit(evt Event) error {
	for _, sink := range m {
		if err := sink.Emit(evt); err != nil {
			return err
		}
	}
	return nil
}
