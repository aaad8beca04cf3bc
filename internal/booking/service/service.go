// Package service implements the booking submission pipeline: validate,
// persist, propagate to the CRM and the automation webhook.
package service

import (
	"context"

	"barberosa_backend/internal/booking/repository"
	"barberosa_backend/internal/booking/transport"
	"barberosa_backend/internal/events"
	"barberosa_backend/platform/apperr"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	msgAccepted        = "Запись успешно создана! Мы свяжемся с вами для подтверждения."
	msgMissingRequired = "Заполните все обязательные поля"
	eventNewBooking    = "new_booking"
)

// CRMResult carries the identifiers produced by the CRM sink. Zero values
// mean the corresponding record was not created.
type CRMResult struct {
	ContactID int
	LeadID    int
}

// CRMSink propagates a booking into the CRM. Implementations are
// best-effort: internal failures are logged, never returned, and a partial
// result is a valid result.
type CRMSink interface {
	ProcessBooking(ctx context.Context, req transport.BookingRequest, meta transport.RequestMeta) CRMResult
}

// Notifier delivers an event envelope to the automation webhook in a single
// attempt.
type Notifier interface {
	Notify(ctx context.Context, event string, payload any) error
}

// Service orchestrates a booking submission. Any sink may be nil when its
// credentials are not configured; the pipeline skips it and degrades to
// the remaining sinks.
type Service struct {
	store    repository.Repository
	crm      CRMSink
	notifier Notifier
	bus      events.Bus
	val      *validator.Validator
	log      *logger.Logger
}

// New creates a booking submission service.
func New(store repository.Repository, crm CRMSink, notifier Notifier, bus events.Bus, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		crm:      crm,
		notifier: notifier,
		bus:      bus,
		val:      val,
		log:      log,
	}
}

// notifierBookingPayload is the data block of the new_booking envelope.
type notifierBookingPayload struct {
	ID        *string               `json:"id"`
	Name      string                `json:"name"`
	Phone     string                `json:"phone"`
	Email     string                `json:"email,omitempty"`
	Service   string                `json:"service"`
	Master    string                `json:"master"`
	Date      string                `json:"date"`
	Time      string                `json:"time"`
	Comment   string                `json:"comment,omitempty"`
	Source    string                `json:"source,omitempty"`
	UTM       map[string]string     `json:"utm,omitempty"`
	Metadata  transport.RequestMeta `json:"metadata"`
	CreatedAt string                `json:"createdAt,omitempty"`
}

// Submit runs the pipeline for one booking submission.
//
// Stage order is fixed: validation gates everything; the primary store runs
// before the CRM so the CRM processing happens even without a durable
// record; the notifier runs last because its payload carries the store's
// generated id when available. Only validation failures surface to the
// caller — every sink failure is logged and the submission still succeeds.
func (s *Service) Submit(ctx context.Context, req transport.BookingRequest, meta transport.RequestMeta) (transport.BookingResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.BookingResponse{}, apperr.Validation(msgMissingRequired).WithOp("booking.submit")
	}

	var bookingID *string
	var createdAt string
	stored := false
	if s.store != nil {
		record, err := s.store.Insert(ctx, req)
		if err != nil {
			s.log.SinkError("store", "insert booking", err)
		} else {
			id := record.ID.String()
			bookingID = &id
			createdAt = record.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
			stored = true
		}
	} else {
		s.log.SinkDisabled("store", "DATABASE_URL not configured")
	}

	var crmResult CRMResult
	if s.crm != nil {
		crmResult = s.crm.ProcessBooking(ctx, req, meta)
	} else {
		s.log.SinkDisabled("crm", "amoCRM credentials not configured")
	}

	if s.notifier != nil {
		payload := notifierBookingPayload{
			ID:        bookingID,
			Name:      req.Name,
			Phone:     req.Phone,
			Email:     req.Email,
			Service:   req.Service,
			Master:    req.Master,
			Date:      req.Date,
			Time:      req.Time,
			Comment:   req.Comment,
			Source:    req.Source,
			UTM:       req.UTM.Map(),
			Metadata:  meta,
			CreatedAt: createdAt,
		}
		if err := s.notifier.Notify(ctx, eventNewBooking, payload); err != nil {
			s.log.SinkError("automation", "notify new_booking", err)
		}
	} else {
		s.log.SinkDisabled("automation", "webhook URL not configured")
	}

	if s.bus != nil {
		event := events.BookingAccepted{
			BaseEvent: events.NewBaseEvent(),
			Name:      req.Name,
			Phone:     req.Phone,
			Service:   req.Service,
			Master:    req.Master,
			Date:      req.Date,
			Time:      req.Time,
			Stored:    stored,
			CRMLeadID: crmResult.LeadID,
		}
		if bookingID != nil {
			if parsed, err := uuid.Parse(*bookingID); err == nil {
				event.BookingID = &parsed
			}
		}
		s.bus.Publish(ctx, event)
	}

	return transport.BookingResponse{
		Success:   true,
		Message:   msgAccepted,
		BookingID: bookingID,
		Data: transport.BookingData{
			Name:    req.Name,
			Date:    req.Date,
			Time:    req.Time,
			Master:  req.Master,
			Service: req.Service,
		},
	}, nil
}
