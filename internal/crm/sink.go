// Package crm propagates bookings and high-intent visitor events into
// amoCRM. Everything here is best-effort: a failed sub-step is logged and
// later sub-steps still run unless they need an identifier the failed step
// would have produced.
package crm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	bookingservice "barberosa_backend/internal/booking/service"
	"barberosa_backend/internal/booking/transport"
	"barberosa_backend/internal/catalog"
	"barberosa_backend/internal/crm/amocrm"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/phone"

	"golang.org/x/sync/singleflight"
)

const sinkName = "crm"

// API is the subset of the amoCRM client the sink uses. Narrowed to an
// interface so tests can run against a fake.
type API interface {
	FindContactByPhone(ctx context.Context, phoneNumber string) (int, bool, error)
	CreateContact(ctx context.Context, name, phoneNumber, email string, extra []amocrm.CustomField) (int, error)
	UpdateContactFields(ctx context.Context, contactID int, fields []amocrm.CustomField) error
	CreateLead(ctx context.Context, lead amocrm.Lead, contactID int) (int, error)
	CreateTask(ctx context.Context, task amocrm.Task) (int, error)
	AddNote(ctx context.Context, entityType string, entityID int, text string) error
}

// Config carries the account-specific pipeline and custom field ids.
type Config struct {
	PipelineID       int
	FieldService     int
	FieldMaster      int
	FieldAppointment int
	FieldVisitorID   int
}

// Sink implements the CRM side of the submission pipeline.
type Sink struct {
	api     API
	catalog *catalog.Catalog
	cfg     Config
	log     *logger.Logger

	// group collapses concurrent find-or-create calls for the same phone
	// number so two first-time submissions cannot race into duplicate
	// contacts within this process.
	group singleflight.Group

	now func() time.Time
}

// NewSink creates a CRM sink.
func NewSink(api API, cat *catalog.Catalog, cfg Config, log *logger.Logger) *Sink {
	return &Sink{
		api:     api,
		catalog: cat,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Compile-time check that Sink satisfies the booking pipeline's contract.
var _ bookingservice.CRMSink = (*Sink)(nil)

// ProcessBooking runs the full CRM flow for one booking:
// find-or-create contact, patch contact fields, create lead, schedule a
// confirmation task, attach the attribution note. It never returns an
// error; a zero id in the result means that record was not created.
func (s *Sink) ProcessBooking(ctx context.Context, req transport.BookingRequest, meta transport.RequestMeta) bookingservice.CRMResult {
	contactID := s.findOrCreateContact(ctx, req.Name, req.Phone, req.Email)
	if contactID == 0 {
		return bookingservice.CRMResult{}
	}

	appointment, hasAppointment := parseAppointment(req.Date, req.Time)

	s.patchContactFields(ctx, contactID, req, appointment, hasAppointment)

	serviceName := s.catalog.ServiceName(req.Service)
	masterName := s.catalog.MasterName(req.Master)

	price := req.Price
	if price <= 0 {
		price = s.catalog.PriceFor(req.Service)
	}

	lead := amocrm.Lead{
		Name:         fmt.Sprintf("%s - %s (%s %s)", serviceName, masterName, req.Date, req.Time),
		Price:        price,
		PipelineID:   s.cfg.PipelineID,
		CustomFields: utmFields(req.UTM.Map()),
	}

	leadID, err := s.api.CreateLead(ctx, lead, contactID)
	if err != nil {
		s.log.SinkError(sinkName, "create lead", err)
		return bookingservice.CRMResult{ContactID: contactID}
	}

	// Task and note both hang off the lead but are independent of each
	// other; one failing must not stop the other.
	if hasAppointment {
		s.scheduleConfirmationTask(ctx, leadID, req, appointment)
	} else {
		s.log.Warn("crm task skipped: appointment datetime not parseable",
			"date", req.Date, "time", req.Time)
	}

	if utm := req.UTM.Map(); len(utm) > 0 {
		s.addAttributionNote(ctx, leadID, utm, req.Source, meta.UserAgent)
	}

	return bookingservice.CRMResult{ContactID: contactID, LeadID: leadID}
}

func (s *Sink) findOrCreateContact(ctx context.Context, name, phoneNumber, email string) int {
	// Normalize to E.164 so "8 912 345-67-89" and "+79123456789" land on
	// the same contact regardless of how the form was filled in.
	phoneNumber = phone.NormalizeE164(phoneNumber)

	key := phone.Digits(phoneNumber)
	if key == "" {
		key = phoneNumber
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		id, found, findErr := s.api.FindContactByPhone(ctx, phoneNumber)
		if findErr != nil {
			// Search failure degrades to create: a duplicate contact is
			// recoverable by staff, a dropped lead is not.
			s.log.SinkError(sinkName, "find contact by phone", findErr)
		}
		if found {
			return id, nil
		}
		return s.api.CreateContact(ctx, name, phoneNumber, email, nil)
	})
	if err != nil {
		s.log.SinkError(sinkName, "create contact", err)
		return 0
	}
	return v.(int)
}

func (s *Sink) patchContactFields(ctx context.Context, contactID int, req transport.BookingRequest, appointment time.Time, hasAppointment bool) {
	var fields []amocrm.CustomField
	if s.cfg.FieldService != 0 {
		fields = append(fields, amocrm.CustomField{
			FieldID: s.cfg.FieldService,
			Values:  []amocrm.FieldValue{{Value: s.catalog.ServiceName(req.Service)}},
		})
	}
	if s.cfg.FieldMaster != 0 {
		fields = append(fields, amocrm.CustomField{
			FieldID: s.cfg.FieldMaster,
			Values:  []amocrm.FieldValue{{Value: s.catalog.MasterName(req.Master)}},
		})
	}
	if s.cfg.FieldAppointment != 0 && hasAppointment {
		fields = append(fields, amocrm.CustomField{
			FieldID: s.cfg.FieldAppointment,
			Values:  []amocrm.FieldValue{{Value: appointment.Unix()}},
		})
	}
	if len(fields) == 0 {
		return
	}

	if err := s.api.UpdateContactFields(ctx, contactID, fields); err != nil {
		s.log.SinkError(sinkName, "update contact fields", err)
	}
}

func (s *Sink) scheduleConfirmationTask(ctx context.Context, leadID int, req transport.BookingRequest, appointment time.Time) {
	task := amocrm.Task{
		TaskTypeID:   amocrm.TaskTypeCall,
		Text:         fmt.Sprintf("Подтвердить запись клиента %s на %s в %s", req.Name, req.Date, req.Time),
		CompleteTill: taskDueAt(appointment, s.now()).Unix(),
		EntityID:     leadID,
		EntityType:   amocrm.EntityLeads,
	}

	if _, err := s.api.CreateTask(ctx, task); err != nil {
		s.log.SinkError(sinkName, "create confirmation task", err)
	}
}

func (s *Sink) addAttributionNote(ctx context.Context, leadID int, utm map[string]string, source, userAgent string) {
	var b strings.Builder
	b.WriteString("Источник:\n")
	keys := make([]string, 0, len(utm))
	for k := range utm {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, utm[k])
	}
	if source != "" {
		fmt.Fprintf(&b, "\nКанал: %s\n", source)
	}
	if userAgent == "" {
		userAgent = "Не определён"
	}
	fmt.Fprintf(&b, "\nБраузер: %s", userAgent)

	if err := s.api.AddNote(ctx, amocrm.EntityLeads, leadID, b.String()); err != nil {
		s.log.SinkError(sinkName, "add attribution note", err)
	}
}

// taskDueAt returns the confirmation task deadline: one hour before the
// appointment, clamped to no earlier than fifteen minutes from now so the
// task is never scheduled in the past or too imminently to action.
func taskDueAt(appointment, now time.Time) time.Time {
	due := appointment.Add(-time.Hour)
	min := now.Add(15 * time.Minute)
	if due.Before(min) {
		return min
	}
	return due
}

// parseAppointment combines the caller-formatted date and time strings into
// an instant. The funnel does not normalize dates, so both the ISO form the
// current front-end sends and the dotted form older builds sent are
// accepted.
func parseAppointment(date, timeOfDay string) (time.Time, bool) {
	combined := strings.TrimSpace(date) + " " + strings.TrimSpace(timeOfDay)
	for _, layout := range []string{"2006-01-02 15:04", "02.01.2006 15:04"} {
		if t, err := time.ParseInLocation(layout, combined, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// utmFields maps UTM attribution keys onto amoCRM's built-in tracking
// field codes.
func utmFields(utm map[string]string) []amocrm.CustomField {
	if len(utm) == 0 {
		return nil
	}

	codes := []struct {
		key  string
		code string
	}{
		{"utm_source", "UTM_SOURCE"},
		{"utm_medium", "UTM_MEDIUM"},
		{"utm_campaign", "UTM_CAMPAIGN"},
		{"utm_term", "UTM_TERM"},
		{"utm_content", "UTM_CONTENT"},
	}

	var fields []amocrm.CustomField
	for _, c := range codes {
		if value, ok := utm[c.key]; ok && value != "" {
			fields = append(fields, amocrm.CustomField{
				FieldCode: c.code,
				Values:    []amocrm.FieldValue{{Value: value}},
			})
		}
	}
	return fields
}
