package handler

import (
	"net/http"

	"barberosa_backend/internal/tracking/service"
	"barberosa_backend/internal/tracking/transport"
	"barberosa_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles visitor tracking HTTP requests.
type Handler struct {
	service *service.Service
}

// New creates a new tracking handler.
func New(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// HandleTrackEvent accepts one visitor event.
// POST /api/v1/visitor-events
func (h *Handler) HandleTrackEvent(c *gin.Context) {
	var req transport.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Некорректные данные события", nil)
		return
	}

	if req.Page == nil || req.Page.UserAgent == "" {
		if req.Page == nil {
			req.Page = &transport.PageInfo{}
		}
		req.Page.UserAgent = c.Request.UserAgent()
	}

	resp, err := h.service.Track(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}
