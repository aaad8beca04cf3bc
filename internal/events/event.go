// Package events provides domain event definitions for decoupled
// communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"barberosa_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Booking Domain Events
// =============================================================================

// BookingAccepted is published after a submission passes validation and the
// orchestrator has finished its sink sequence. Subscribers must treat it as
// informational; the booking response has already been decided.
type BookingAccepted struct {
	BaseEvent
	BookingID *uuid.UUID `json:"bookingId,omitempty"`
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	Service   string     `json:"service"`
	Master    string     `json:"master"`
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Stored    bool       `json:"stored"`
	CRMLeadID int        `json:"crmLeadId,omitempty"`
}

func (e BookingAccepted) EventName() string { return "booking.accepted" }

// =============================================================================
// Tracking Domain Events
// =============================================================================

// VisitorEventTracked is published for every named visitor event except
// plain page views. Consumers filter by event name: the CRM module reacts
// to its cold-lead allow-list, the automation module to its relay list.
// Delivery is best-effort and detached from the tracking response.
type VisitorEventTracked struct {
	BaseEvent
	Event       string            `json:"event"`
	VisitorID   string            `json:"visitorId"`
	FirstVisit  string            `json:"firstVisit,omitempty"`
	PageViews   int               `json:"pageViews"`
	Referrer    string            `json:"referrer,omitempty"`
	LandingPage string            `json:"landingPage,omitempty"`
	CurrentPage string            `json:"currentPage,omitempty"`
	UserAgent   string            `json:"userAgent,omitempty"`
	UTM         map[string]string `json:"utm,omitempty"`
	EventData   map[string]any    `json:"eventData,omitempty"`
}

func (e VisitorEventTracked) EventName() string { return "tracking.visitor_event" }
