package automation

import (
	"context"

	"barberosa_backend/internal/events"
	"barberosa_backend/platform/logger"
)

// relayEvents is the set of visitor events forwarded to the workflow
// webhook. Form troubles feed the recovery workflow, contact clicks feed
// the follow-up one.
var relayEvents = map[string]bool{
	"phone_click":    true,
	"whatsapp_click": true,
	"form_error":     true,
	"form_abandon":   true,
}

// visitorEventPayload is the data block of a relayed visitor-event
// envelope.
type visitorEventPayload struct {
	VisitorID   string            `json:"visitorId"`
	FirstVisit  string            `json:"firstVisit,omitempty"`
	PageViews   int               `json:"pageViews,omitempty"`
	Referrer    string            `json:"referrer,omitempty"`
	LandingPage string            `json:"landingPage,omitempty"`
	CurrentPage string            `json:"currentPage,omitempty"`
	UserAgent   string            `json:"userAgent,omitempty"`
	UTM         map[string]string `json:"utm,omitempty"`
	EventData   map[string]any    `json:"eventData,omitempty"`
}

// Module forwards selected visitor events to the automation webhook. It is
// not HTTP-facing: the booking pipeline calls the notifier directly, and
// visitor events arrive through event bus subscriptions.
type Module struct {
	notifier *Notifier
	log      *logger.Logger
}

// NewModule creates the automation module around a notifier.
func NewModule(n *Notifier, log *logger.Logger) *Module {
	return &Module{notifier: n, log: log}
}

// Notifier returns the booking-facing notifier.
func (m *Module) Notifier() *Notifier {
	return m.notifier
}

// RegisterHandlers subscribes the module to the tracking domain's visitor
// events.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.VisitorEventTracked{}.EventName(), m)
}

// Handle relays allow-listed visitor events as webhook envelopes.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.VisitorEventTracked)
	if !ok || !relayEvents[e.Event] {
		return nil
	}

	payload := visitorEventPayload{
		VisitorID:   e.VisitorID,
		FirstVisit:  e.FirstVisit,
		PageViews:   e.PageViews,
		Referrer:    e.Referrer,
		LandingPage: e.LandingPage,
		CurrentPage: e.CurrentPage,
		UserAgent:   e.UserAgent,
		UTM:         e.UTM,
		EventData:   e.EventData,
	}
	if err := m.notifier.Notify(ctx, e.Event, payload); err != nil {
		m.log.SinkError("automation", "relay "+e.Event, err)
	}
	return nil
}
