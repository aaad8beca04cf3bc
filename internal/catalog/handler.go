package catalog

import (
	"barberosa_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves the read-only catalog endpoints for the booking form.
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a new catalog handler.
func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

// ListServices returns all bookable services.
// GET /api/v1/catalog/services
func (h *Handler) ListServices(c *gin.Context) {
	httpkit.OK(c, gin.H{"services": h.catalog.Services})
}

// ListMasters returns all masters.
// GET /api/v1/catalog/masters
func (h *Handler) ListMasters(c *gin.Context) {
	httpkit.OK(c, gin.H{"masters": h.catalog.Masters})
}
