package model

import (
	"fmt"

	"github.com/robertof/go-hibouair-exporter/bleuio"
)

type EventKind uint8

const (
	EventLineAvailable EventKind = iota
	EventTimeout
	EventExternalCommand
	EventClosed
)

// Event is one unit of input to the protocol state machine. The session merges its
// sources (serial lines, read timeouts, submitted requests) into a single stream of
// these, which also makes a session replayable in tests.
type Event struct {
	Kind EventKind

	// Line is set for EventLineAvailable.
	Line string
	// Request is set for EventExternalCommand.
	Request bleuio.Request
	// Err is set for EventClosed when the session ended because of a transport fault.
	Err error
}

func Line(text string) Event {
	return Event{Kind: EventLineAvailable, Line: text}
}

func Timeout() Event {
	return Event{Kind: EventTimeout}
}

func External(r bleuio.Request) Event {
	return Event{Kind: EventExternalCommand, Request: r}
}

func Closed(err error) Event {
	return Event{Kind: EventClosed, Err: err}
}

func (e Event) String() string {
	switch e.Kind {
	case EventLineAvailable:
		return fmt.Sprintf("event:line(%q)", e.Line)
	case EventTimeout:
		return "event:timeout"
	case EventExternalCommand:
		return fmt.Sprintf("event:command(%v)", e.Request)
	case EventClosed:
		if e.Err != nil {
			return fmt.Sprintf("event:closed(%v)", e.Err)
		}
		return "event:closed"
	default:
		return fmt.Sprintf("event:unknown(%d)", e.Kind)
	}
}
