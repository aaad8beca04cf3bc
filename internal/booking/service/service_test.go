package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"barberosa_backend/internal/booking/repository"
	"barberosa_backend/internal/booking/transport"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/validator"

	"github.com/google/uuid"
)

type storeSpy struct {
	calls int
	fail  bool
	last  transport.BookingRequest
}

func (s *storeSpy) Insert(_ context.Context, req transport.BookingRequest) (repository.Booking, error) {
	s.calls++
	s.last = req
	if s.fail {
		return repository.Booking{}, errors.New("connection refused")
	}
	return repository.Booking{
		ID:        uuid.New(),
		Name:      req.Name,
		Status:    repository.StatusPending,
		CreatedAt: time.Now(),
	}, nil
}

type crmSpy struct {
	calls  int
	result CRMResult
}

func (s *crmSpy) ProcessBooking(context.Context, transport.BookingRequest, transport.RequestMeta) CRMResult {
	s.calls++
	return s.result
}

type notifierSpy struct {
	calls    int
	fail     bool
	lastName string
	lastData any
}

func (s *notifierSpy) Notify(_ context.Context, event string, payload any) error {
	s.calls++
	s.lastName = event
	s.lastData = payload
	if s.fail {
		return errors.New("webhook down")
	}
	return nil
}

func validRequest() transport.BookingRequest {
	return transport.BookingRequest{
		Name:    "Ivan",
		Phone:   "+79123456789",
		Master:  "m1",
		Service: "s1",
		Date:    "2025-06-01",
		Time:    "14:00",
	}
}

func newTestService(store *storeSpy, crm *crmSpy, notifier *notifierSpy) *Service {
	log := logger.New("development")
	return New(store, crm, notifier, nil, validator.New(), log)
}

func TestSubmit_MissingRequiredFieldRejectsBeforeAnySink(t *testing.T) {
	required := []struct {
		name   string
		mutate func(*transport.BookingRequest)
	}{
		{"name", func(r *transport.BookingRequest) { r.Name = "" }},
		{"phone", func(r *transport.BookingRequest) { r.Phone = "" }},
		{"service", func(r *transport.BookingRequest) { r.Service = "" }},
		{"master", func(r *transport.BookingRequest) { r.Master = "" }},
		{"date", func(r *transport.BookingRequest) { r.Date = "" }},
		{"time", func(r *transport.BookingRequest) { r.Time = "" }},
	}

	for _, tc := range required {
		t.Run(tc.name, func(t *testing.T) {
			store := &storeSpy{}
			crm := &crmSpy{}
			notifier := &notifierSpy{}
			svc := newTestService(store, crm, notifier)

			req := validRequest()
			tc.mutate(&req)

			_, err := svc.Submit(context.Background(), req, transport.RequestMeta{})
			if err == nil {
				t.Fatalf("expected validation error for missing %s", tc.name)
			}
			if store.calls != 0 || crm.calls != 0 || notifier.calls != 0 {
				t.Fatalf("expected no sink calls, got store=%d crm=%d notifier=%d",
					store.calls, crm.calls, notifier.calls)
			}
		})
	}
}

func TestSubmit_AllSinksHealthy(t *testing.T) {
	store := &storeSpy{}
	crm := &crmSpy{result: CRMResult{ContactID: 1, LeadID: 2}}
	notifier := &notifierSpy{}
	svc := newTestService(store, crm, notifier)

	resp, err := svc.Submit(context.Background(), validRequest(), transport.RequestMeta{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Success {
		t.Fatal("expected success response")
	}
	if resp.BookingID == nil {
		t.Fatal("expected non-null bookingId")
	}
	want := transport.BookingData{Name: "Ivan", Date: "2025-06-01", Time: "14:00", Master: "m1", Service: "s1"}
	if resp.Data != want {
		t.Fatalf("unexpected echoed data: %+v", resp.Data)
	}
	if store.calls != 1 || crm.calls != 1 || notifier.calls != 1 {
		t.Fatalf("expected one call per sink, got store=%d crm=%d notifier=%d",
			store.calls, crm.calls, notifier.calls)
	}
	if notifier.lastName != "new_booking" {
		t.Fatalf("expected new_booking event, got %q", notifier.lastName)
	}
}

func TestSubmit_StoreDownStillSucceedsWithNullID(t *testing.T) {
	store := &storeSpy{fail: true}
	crm := &crmSpy{}
	notifier := &notifierSpy{}
	svc := newTestService(store, crm, notifier)

	resp, err := svc.Submit(context.Background(), validRequest(), transport.RequestMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Success {
		t.Fatal("expected success response despite store failure")
	}
	if resp.BookingID != nil {
		t.Fatalf("expected null bookingId, got %v", *resp.BookingID)
	}
	if crm.calls != 1 {
		t.Fatalf("expected CRM sink still invoked exactly once, got %d", crm.calls)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected notifier still invoked, got %d", notifier.calls)
	}
}

func TestSubmit_NotifierFailureDoesNotAffectResponse(t *testing.T) {
	store := &storeSpy{}
	crm := &crmSpy{}
	notifier := &notifierSpy{fail: true}
	svc := newTestService(store, crm, notifier)

	resp, err := svc.Submit(context.Background(), validRequest(), transport.RequestMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.BookingID == nil {
		t.Fatal("expected full success response despite notifier failure")
	}
}

func TestSubmit_NoSinksConfigured(t *testing.T) {
	log := logger.New("development")
	svc := New(nil, nil, nil, nil, validator.New(), log)

	resp, err := svc.Submit(context.Background(), validRequest(), transport.RequestMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success with every sink disabled")
	}
	if resp.BookingID != nil {
		t.Fatal("expected null bookingId with no store configured")
	}
}
