package bench

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType discriminates progress events.
type EventType string

const (
	// EventStart opens a run and announces the item count.
	EventStart EventType = "start"
	// EventItemComplete carries the result of one item.
	EventItemComplete EventType = "item_complete"
	// EventDone closes a successful run with its summary.
	EventDone EventType = "done"
	// EventRunComplete closes a successful run with its full output.
	EventRunComplete EventType = "run_complete"
	// EventError closes a failed run.
	EventError EventType = "error"
)

// Event is one progress notification of a run. Only the fields belonging to
// Type are meaningful; constructors below build well-formed values.
type Event struct {
	Type    EventType
	Total   int
	Current int
	Result  *ItemResult
	Summary *RunSummary
	Output  *RunOutput
	Message string
}

// StartEvent builds a start event.
func StartEvent(total int) Event {
	return Event{Type: EventStart, Total: total}
}

// ItemCompleteEvent builds an item_complete event.
func ItemCompleteEvent(current, total int, result ItemResult) Event {
	return Event{Type: EventItemComplete, Current: current, Total: total, Result: &result}
}

// DoneEvent builds a done event.
func DoneEvent(summary RunSummary) Event {
	return Event{Type: EventDone, Summary: &summary}
}

// RunCompleteEvent builds a run_complete event.
func RunCompleteEvent(output RunOutput) Event {
	return Event{Type: EventRunComplete, Output: &output}
}

// ErrorEvent builds an error event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// Terminal reports whether the event ends a run.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventDone, EventRunComplete, EventError:
		return true
	default:
		return false
	}
}

// Validate checks that the event carries the payload its type requires.
func (e Event) Validate() error {
	switch e.Type {
	case EventStart:
		if e.Total < 0 {
			return fmt.Errorf("start: negative total %d", e.Total)
		}
	case EventItemComplete:
		if e.Result == nil {
			return errors.New("item_complete: result is required")
		}
		if e.Current < 1 || e.Current > e.Total {
			return fmt.Errorf("item_complete: current %d out of range [1,%d]", e.Current, e.Total)
		}
	case EventDone:
		if e.Summary == nil {
			return errors.New("done: summary is required")
		}
	case EventRunComplete:
		if e.Output == nil {
			return errors.New("run_complete: output is required")
		}
	case EventError:
		if e.Message == "" {
			return errors.New("error: message is required")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

type startWire struct {
	Type  EventType `json:"type"`
	Total int       `json:"total"`
}

type itemCompleteWire struct {
	Type    EventType   `json:"type"`
	Current int         `json:"current"`
	Total   int         `json:"total"`
	Result  *ItemResult `json:"result"`
}

type doneWire struct {
	Type    EventType   `json:"type"`
	Summary *RunSummary `json:"summary"`
}

type runCompleteWire struct {
	Type   EventType  `json:"type"`
	Output *RunOutput `json:"output"`
}

type errorWire struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// eventWire is the union of all wire fields used for decoding.
type eventWire struct {
	Type    EventType   `json:"type"`
	Total   int         `json:"total"`
	Current int         `json:"current"`
	Result  *ItemResult `json:"result"`
	Summary *RunSummary `json:"summary"`
	Output  *RunOutput  `json:"output"`
	Message string      `json:"message"`
	// Error is accepted from older servers that used it instead of message.
	Error string `json:"error"`
}

// MarshalJSON encodes only the fields that belong to the event type.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventStart:
		return json.Marshal(startWire{Type: e.Type, Total: e.Total})
	case EventItemComplete:
		return json.Marshal(itemCompleteWire{Type: e.Type, Current: e.Current, Total: e.Total, Result: e.Result})
	case EventDone:
		return json.Marshal(doneWire{Type: e.Type, Summary: e.Summary})
	case EventRunComplete:
		return json.Marshal(runCompleteWire{Type: e.Type, Output: e.Output})
	case EventError:
		return json.Marshal(errorWire{Type: e.Type, Message: e.Message})
	default:
		return nil, fmt.Errorf("marshal event: unknown type %q", e.Type)
	}
}

// UnmarshalJSON decodes a wire event and validates its payload.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire eventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	message := wire.Message
	if message == "" {
		message = wire.Error
	}
	decoded := Event{
		Type:    wire.Type,
		Total:   wire.Total,
		Current: wire.Current,
		Result:  wire.Result,
		Summary: wire.Summary,
		Output:  wire.Output,
		Message: message,
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*e = decoded
	return nil
}
