package handler

import (
	"net/http"

	"barberosa_backend/internal/booking/service"
	"barberosa_backend/internal/booking/transport"
	"barberosa_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler handles booking HTTP requests.
type Handler struct {
	service *service.Service
}

// New creates a new booking handler.
func New(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// HandleSubmit processes an inbound booking submission.
// POST /api/v1/booking
func (h *Handler) HandleSubmit(c *gin.Context) {
	var req transport.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Заполните все обязательные поля", nil)
		return
	}

	meta := transport.RequestMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	resp, err := h.service.Submit(c.Request.Context(), req, meta)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}
