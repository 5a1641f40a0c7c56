package journal

import (
	"context"
	"time"
)

// Journal records campaign lifecycle events
type Journal interface {
	Record(ctx context.Context, event *Event) error
	// events returns every recorded event of a campaign, oldest first.
	// Pending events are flushed before reading.
	events(ctx context.Context, campaign uint32) ([]Event, error)
	Close() error
}

// Repository defines the interface for journal storage
type Repository interface {
	Record(event *Event) error
	events(ctx context.Context, campaign uint32) ([]Event, error)
	Close() error
}

// Kind is the lifecycle transition an event stands for
type Kind string

const (
	KindCreated   Kind = "created"
	KindDeleted   Kind = "deleted"
	KindCollected Kind = "collected"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindCreated, KindDeleted, KindCollected:
		return true
	default:
		return false
	}
}

// Event is one lifecycle transition of a campaign. Energy readings are
// deliberately absent.
type Event struct {
	Timestamp time.Time
	Campaign  uint32
	Kind      Kind
	Devices   int
}
