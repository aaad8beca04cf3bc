// Package booking provides the booking submission bounded context module.
package booking

import (
	"barberosa_backend/internal/booking/handler"
	"barberosa_backend/internal/booking/repository"
	"barberosa_backend/internal/booking/service"
	"barberosa_backend/internal/events"
	apphttp "barberosa_backend/internal/http"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the booking bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the booking module. pool, crm, and
// notifier may each be nil when the corresponding sink is not configured;
// the pipeline degrades instead of failing.
func NewModule(pool *pgxpool.Pool, crm service.CRMSink, notifier service.Notifier, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	var store repository.Repository
	if pool != nil {
		store = repository.New(pool)
	}

	svc := service.New(store, crm, notifier, bus, val, log)
	h := handler.New(svc)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "booking"
}

// RegisterRoutes mounts booking routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/booking", ctx.SubmitRateLimiter.RateLimit(), m.handler.HandleSubmit)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
