package engine

import "github.com/razeware/offliner/internal/data"

// Event is a state change pushed by the transfer engine. The engine delivers
// events for one transfer in order; cross-transfer ordering is unspecified.
type Event struct {
	ID   string
	Type EventType
	// Progress is the observed percentage [0,100] at the time of the event.
	Progress int
	// Reason is set on Failed events.
	Reason data.FailureReason
}

type EventType string

const (
	EventStarted   EventType = "Started"
	EventPaused    EventType = "Paused"
	EventCompleted EventType = "Completed"
	EventFailed    EventType = "Failed"
	// EventRemoving is transient: the engine is tearing the transfer down
	// and a terminal event follows. It is never persisted.
	EventRemoving EventType = "Removing"
	EventProgress EventType = "Progress"
)
