package catalog

import (
	apphttp "barberosa_backend/internal/http"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	catalog *Catalog
	handler *Handler
}

// NewModule creates the catalog module from an already-loaded catalog.
func NewModule(c *Catalog) *Module {
	return &Module{
		catalog: c,
		handler: NewHandler(c),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Catalog returns the loaded catalog for other modules (price resolution).
func (m *Module) Catalog() *Catalog {
	return m.catalog
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/catalog")
	group.GET("/services", m.handler.ListServices)
	group.GET("/masters", m.handler.ListMasters)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
