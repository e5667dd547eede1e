package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventTransition  EventType = "transition"
	EventSearch      EventType = "search"
	EventProvision   EventType = "provision"
	EventDatasetLoad EventType = "dataset_load"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
}

// TransitionEvent is emitted after a session event has been handled.
type TransitionEvent struct {
	EventBase
	From  DialogState `json:"from"`
	To    DialogState `json:"to"`
	Input EventKind   `json:"input"`
}

// SearchEvent is emitted after a search has run.
type SearchEvent struct {
	EventBase
	Term     string        `json:"term"`
	Matches  int           `json:"matches"`
	Duration time.Duration `json:"duration"`
}

// ProvisionEvent is emitted after a provisioning call returns.
type ProvisionEvent struct {
	EventBase
	Outcome  Outcome       `json:"outcome,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// DatasetLoadEvent is emitted after each fetch attempt of the dataset.
type DatasetLoadEvent struct {
	EventBase
	Source   string        `json:"source"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnTransition  func(context.Context, *TransitionEvent)
	OnSearch      func(context.Context, *SearchEvent)
	OnProvision   func(context.Context, *ProvisionEvent)
	OnDatasetLoad func(context.Context, *DatasetLoadEvent)
}
