package events

import (
	"encoding/json"
	"time"

	"github.com/vmlift/vmlift/internal/errx"
)

// Journal stamps the VM name onto every event and dispatches to one or
// more sinks.
//
// A nil *Journal is safe to hold; callers guard emission with:
//
//	if journal != nil {
//	    _ = journal.Emit(...)
//	}
type Journal struct {
	vm    string
	sinks []Sink
}

// NewJournal creates a journal for the named VM with the given sinks.
func NewJournal(vm string, sinks ...Sink) *Journal {
	return &Journal{
		vm:    vm,
		sinks: sinks,
	}
}

// Emit constructs an event with the journal's VM name and writes it to
// all registered sinks.
//
// Parameters:
//   - eventType: one of the Event* constants (e.g., EventReady)
//   - summary: human-readable one-line summary
//   - data: the typed data struct (e.g., *LifecycleData); nil for no payload
//
// Returns the first error encountered. Callers should discard errors
// with _ = (best-effort semantics).
func (j *Journal) Emit(eventType, summary string, data interface{}) error {
	var rawData json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return errx.Wrap(ErrMarshalData, err)
		}
		rawData = b
	}

	event := &Event{
		Timestamp: time.Now().UTC(),
		VM:        j.vm,
		EventType: eventType,
		Summary:   summary,
		Data:      rawData,
	}

	for _, sink := range j.sinks {
		if err := sink.Write(event); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all sinks. Returns the first error encountered.
func (j *Journal) Close() error {
	var firstErr error
	for _, sink := range j.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
