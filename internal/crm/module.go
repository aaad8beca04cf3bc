package crm

import (
	"context"

	"barberosa_backend/internal/catalog"
	"barberosa_backend/internal/events"
	"barberosa_backend/platform/logger"
)

// Module wires the CRM sink into the application. It is not HTTP-facing:
// the booking pipeline calls the sink directly, and cold leads arrive
// through event bus subscriptions.
type Module struct {
	sink *Sink
}

// NewModule creates the CRM module around an API client.
func NewModule(api API, cat *catalog.Catalog, cfg Config, log *logger.Logger) *Module {
	return &Module{sink: NewSink(api, cat, cfg, log)}
}

// Sink returns the booking-facing sink.
func (m *Module) Sink() *Sink {
	return m.sink
}

// coldLeadEvents is the allow-list of visitor events that warrant a cold
// lead. Everything else tracked on the site stays out of the CRM.
var coldLeadEvents = map[string]bool{
	"form_start":       true,
	"service_interest": true,
	"phone_click":      true,
	"whatsapp_click":   true,
}

// RegisterHandlers subscribes the module to the tracking domain's visitor
// events.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.VisitorEventTracked{}.EventName(), m)
}

// Handle routes events to the appropriate sink method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.VisitorEventTracked:
		if !coldLeadEvents[e.Event] {
			return nil
		}
		return m.sink.ProcessColdLead(ctx, e)
	default:
		return nil
	}
}
