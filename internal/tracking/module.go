package tracking

import (
	"barberosa_backend/internal/events"
	apphttp "barberosa_backend/internal/http"
	"barberosa_backend/internal/tracking/handler"
	"barberosa_backend/internal/tracking/service"
	"barberosa_backend/internal/tracking/visitor"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/validator"
)

// Module is the visitor tracking bounded context module implementing
// http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the tracking module. stores is the
// visitor-state backend, Redis in production and in-memory otherwise.
func NewModule(stores visitor.StoreProvider, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(stores, bus, val, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tracking"
}

// RegisterRoutes mounts tracking routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/visitor-events", ctx.SubmitRateLimiter.RateLimit(), m.handler.HandleTrackEvent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
