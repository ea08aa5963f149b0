package flow

import (
	"sync"
	"time"

	"xuibot/internal/transport"
)

type Kind string

const (
	KindBroadcast Kind = "broadcast"
	KindReport    Kind = "report"
)

type Step int

const (
	StepIdle Step = iota

	// broadcast flow
	StepAwaitingMessage
	StepAwaitingConfirmation

	// report flow
	StepAwaitingProvider
	StepAwaitingDevice
	StepAwaitingComments
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAwaitingMessage:
		return "awaiting_message"
	case StepAwaitingConfirmation:
		return "awaiting_confirmation"
	case StepAwaitingProvider:
		return "awaiting_provider"
	case StepAwaitingDevice:
		return "awaiting_device"
	case StepAwaitingComments:
		return "awaiting_comments"
	default:
		return "unknown"
	}
}

// Field is one collected answer. Order of collection is preserved.
type Field struct {
	Name  string
	Value string
}

// Session is the state of one in-progress dialog. All mutation happens while
// holding mu, so duplicate taps and racing messages for the same dialog are
// serialized rather than interleaved.
type Session struct {
	mu sync.Mutex

	UserID    int64
	Kind      Kind
	Step      Step
	StartedAt time.Time

	Fields []Field

	// Prompts tracks every prompt issued with a cancel affordance so that
	// cancellation can retract them all.
	Prompts []transport.MessageRef

	// Recipients is the broadcast target set, snapshotted when the message
	// text is accepted.
	Recipients []int64
}

func (s *Session) field(name string) string {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func (s *Session) setField(name, value string) {
	for i, f := range s.Fields {
		if f.Name == name {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, Field{Name: name, Value: value})
}
