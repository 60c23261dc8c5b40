// Package events publishes wizard lifecycle events to interested
// consumers, such as the websocket stream
package events

import (
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"

	"github.com/stepwise/formwizard/pkg/api"
)

type (
	// Type identifies a wizard lifecycle event
	Type string

	// Event is one wizard lifecycle occurrence
	Event struct {
		Timestamp time.Time `json:"timestamp"`
		Type      Type      `json:"type"`
		Wizard    string    `json:"wizard"`
		Session   string    `json:"session"`
		Step      api.Name  `json:"step,omitempty"`
	}

	// Hub fans wizard events out to any number of consumers
	Hub struct {
		events topic.Topic[*Event]
		prod   topic.Producer[*Event]
	}

	// Filter selects the events a consumer cares about
	Filter func(*Event) bool
)

const (
	SessionStarted     Type = "session_started"
	StepSubmitted      Type = "step_submitted"
	StepRejected       Type = "step_rejected"
	RevalidationFailed Type = "revalidation_failed"
	WizardCompleted    Type = "wizard_completed"
)

// NewHub creates an event hub
func NewHub() *Hub {
	events := caravan.NewTopic[*Event]()
	return &Hub{
		events: events,
		prod:   events.NewProducer(),
	}
}

// Publish emits an event to all consumers, stamping it with the current
// time when unset
func (h *Hub) Publish(ev *Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	h.prod.Send() <- ev
}

// NewConsumer registers a new consumer receiving all subsequent events
func (h *Hub) NewConsumer() topic.Consumer[*Event] {
	return h.events.NewConsumer()
}

// Close stops the hub's producer
func (h *Hub) Close() {
	h.prod.Close()
}

// FilterWizard matches events belonging to the named wizard
func FilterWizard(name string) Filter {
	return func(ev *Event) bool {
		return ev.Wizard == name
	}
}

// FilterTypes matches events of any of the given types
func FilterTypes(types ...Type) Filter {
	return func(ev *Event) bool {
		for _, t := range types {
			if ev.Type == t {
				return true
			}
		}
		return false
	}
}

// AndFilters matches events that pass every given filter
func AndFilters(filters ...Filter) Filter {
	return func(ev *Event) bool {
		for _, f := range filters {
			if !f(ev) {
				return false
			}
		}
		return true
	}
}
