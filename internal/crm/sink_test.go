package crm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"barberosa_backend/internal/booking/transport"
	"barberosa_backend/internal/catalog"
	"barberosa_backend/internal/crm/amocrm"
	"barberosa_backend/internal/events"
	"barberosa_backend/platform/logger"
)

type fakeAPI struct {
	mu sync.Mutex

	findResult int
	findFound  bool
	findErr       error
	findCalls     int
	findGate      chan struct{}
	lastFindPhone string

	createContactID    int
	createContactErr   error
	createContactCalls int
	lastContactPhone   string

	updateFieldsErr   error
	updateFieldsCalls int
	lastPatch         []amocrm.CustomField

	createLeadID    int
	createLeadErr   error
	createLeadCalls int
	lastLead        amocrm.Lead
	lastLeadContact int

	createTaskErr   error
	createTaskCalls int
	lastTask        amocrm.Task

	addNoteErr   error
	addNoteCalls int
	lastNote     string
}

func (f *fakeAPI) FindContactByPhone(_ context.Context, phoneNumber string) (int, bool, error) {
	f.mu.Lock()
	f.findCalls++
	f.lastFindPhone = phoneNumber
	gate := f.findGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.findResult, f.findFound, f.findErr
}

func (f *fakeAPI) CreateContact(_ context.Context, _, phoneNumber, _ string, _ []amocrm.CustomField) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createContactCalls++
	f.lastContactPhone = phoneNumber
	return f.createContactID, f.createContactErr
}

func (f *fakeAPI) UpdateContactFields(_ context.Context, _ int, fields []amocrm.CustomField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateFieldsCalls++
	f.lastPatch = fields
	return f.updateFieldsErr
}

func (f *fakeAPI) CreateLead(_ context.Context, lead amocrm.Lead, contactID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createLeadCalls++
	f.lastLead = lead
	f.lastLeadContact = contactID
	return f.createLeadID, f.createLeadErr
}

func (f *fakeAPI) CreateTask(_ context.Context, task amocrm.Task) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTaskCalls++
	f.lastTask = task
	return 77, f.createTaskErr
}

func (f *fakeAPI) AddNote(_ context.Context, _ string, _ int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addNoteCalls++
	f.lastNote = text
	return f.addNoteErr
}

func newTestSink(api *fakeAPI) *Sink {
	return NewSink(api, catalog.Default(), Config{PipelineID: 3, FieldService: 10, FieldMaster: 11, FieldAppointment: 12}, logger.New("development"))
}

func bookingReq() transport.BookingRequest {
	return transport.BookingRequest{
		Name:    "Ivan",
		Phone:   "+79123456789",
		Service: "haircut-model",
		Master:  "m1",
		Date:    "2025-06-01",
		Time:    "14:00",
	}
}

func TestProcessBooking_FullFlow(t *testing.T) {
	api := &fakeAPI{createContactID: 5, createLeadID: 42}
	sink := newTestSink(api)

	req := bookingReq()
	req.UTM = &transport.UTMParams{Source: "ads", Campaign: "summer"}

	result := sink.ProcessBooking(context.Background(), req, transport.RequestMeta{UserAgent: "Mozilla/5.0"})

	if result.ContactID != 5 || result.LeadID != 42 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if api.createContactCalls != 1 {
		t.Fatalf("expected one contact creation, got %d", api.createContactCalls)
	}
	if api.updateFieldsCalls != 1 {
		t.Fatalf("expected contact field patch, got %d calls", api.updateFieldsCalls)
	}
	if api.lastLeadContact != 5 {
		t.Fatalf("lead linked to contact %d, want 5", api.lastLeadContact)
	}
	if api.lastLead.Name != "Модельная стрижка - Александр (2025-06-01 14:00)" {
		t.Fatalf("unexpected lead name: %q", api.lastLead.Name)
	}
	if api.lastLead.Price != 1800 {
		t.Fatalf("expected catalog price 1800, got %d", api.lastLead.Price)
	}
	if api.lastLead.PipelineID != 3 {
		t.Fatalf("expected pipeline 3, got %d", api.lastLead.PipelineID)
	}
	if len(api.lastLead.CustomFields) != 2 {
		t.Fatalf("expected 2 UTM fields, got %d", len(api.lastLead.CustomFields))
	}
	if api.createTaskCalls != 1 {
		t.Fatalf("expected confirmation task, got %d calls", api.createTaskCalls)
	}
	if api.addNoteCalls != 1 {
		t.Fatalf("expected attribution note, got %d calls", api.addNoteCalls)
	}
}

func TestProcessBooking_ExplicitPriceWins(t *testing.T) {
	api := &fakeAPI{createContactID: 5, createLeadID: 42}
	sink := newTestSink(api)

	req := bookingReq()
	req.Price = 2500

	sink.ProcessBooking(context.Background(), req, transport.RequestMeta{})

	if api.lastLead.Price != 2500 {
		t.Fatalf("expected explicit price 2500, got %d", api.lastLead.Price)
	}
}

func TestProcessBooking_ExistingContactReused(t *testing.T) {
	api := &fakeAPI{findResult: 9, findFound: true, createLeadID: 42}
	sink := newTestSink(api)

	result := sink.ProcessBooking(context.Background(), bookingReq(), transport.RequestMeta{})

	if result.ContactID != 9 {
		t.Fatalf("expected found contact 9, got %d", result.ContactID)
	}
	if api.createContactCalls != 0 {
		t.Fatalf("expected no contact creation, got %d", api.createContactCalls)
	}
}

func TestProcessBooking_ContactCreationFailureStopsFlow(t *testing.T) {
	api := &fakeAPI{createContactErr: errors.New("401 unauthorized")}
	sink := newTestSink(api)

	result := sink.ProcessBooking(context.Background(), bookingReq(), transport.RequestMeta{})

	if result.ContactID != 0 || result.LeadID != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
	if api.createLeadCalls != 0 || api.createTaskCalls != 0 || api.addNoteCalls != 0 {
		t.Fatalf("expected no lead/task/note calls, got lead=%d task=%d note=%d",
			api.createLeadCalls, api.createTaskCalls, api.addNoteCalls)
	}
}

func TestProcessBooking_LeadFailureKeepsContact(t *testing.T) {
	api := &fakeAPI{createContactID: 5, createLeadErr: errors.New("500")}
	sink := newTestSink(api)

	result := sink.ProcessBooking(context.Background(), bookingReq(), transport.RequestMeta{})

	if result.ContactID != 5 {
		t.Fatalf("expected contact 5, got %d", result.ContactID)
	}
	if result.LeadID != 0 {
		t.Fatalf("expected no lead id, got %d", result.LeadID)
	}
	if api.createTaskCalls != 0 {
		t.Fatal("task must not be attempted without a lead")
	}
}

func TestProcessBooking_FindFailureFallsBackToCreate(t *testing.T) {
	api := &fakeAPI{findErr: errors.New("timeout"), createContactID: 5, createLeadID: 42}
	sink := newTestSink(api)

	result := sink.ProcessBooking(context.Background(), bookingReq(), transport.RequestMeta{})

	if result.ContactID != 5 {
		t.Fatalf("expected created contact 5, got %d", result.ContactID)
	}
	if api.createContactCalls != 1 {
		t.Fatalf("expected contact creation after failed search, got %d", api.createContactCalls)
	}
}

func TestProcessBooking_PhoneNormalizedBeforeContactLookup(t *testing.T) {
	api := &fakeAPI{createContactID: 5, createLeadID: 42}
	sink := newTestSink(api)

	req := bookingReq()
	req.Phone = "8 (912) 345-67-89"

	sink.ProcessBooking(context.Background(), req, transport.RequestMeta{})

	if api.lastFindPhone != "+79123456789" {
		t.Fatalf("expected E.164 search phone, got %q", api.lastFindPhone)
	}
	if api.lastContactPhone != "+79123456789" {
		t.Fatalf("expected E.164 contact phone, got %q", api.lastContactPhone)
	}
}

func TestProcessBooking_LocalAndE164PhonesShareContact(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{createContactID: 5, createLeadID: 42, findGate: gate}
	sink := newTestSink(api)

	local := bookingReq()
	local.Phone = "8 912 345-67-89"
	intl := bookingReq()
	intl.Phone = "+7 912 345 67 89"

	var wg sync.WaitGroup
	for _, req := range []transport.BookingRequest{local, intl} {
		wg.Add(1)
		go func(req transport.BookingRequest) {
			defer wg.Done()
			sink.ProcessBooking(context.Background(), req, transport.RequestMeta{})
		}(req)
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if api.createContactCalls != 1 {
		t.Fatalf("differently formatted numbers must share one contact, got %d creations", api.createContactCalls)
	}
}

func TestProcessBooking_ConcurrentSamePhoneCreatesOneContact(t *testing.T) {
	gate := make(chan struct{})
	api := &fakeAPI{createContactID: 5, createLeadID: 42, findGate: gate}
	sink := newTestSink(api)

	var wg sync.WaitGroup
	results := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := sink.ProcessBooking(context.Background(), bookingReq(), transport.RequestMeta{})
			results[i] = r.ContactID
		}(i)
	}

	// Let both submissions reach the find-or-create step, then release it.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if api.createContactCalls != 1 {
		t.Fatalf("expected a single contact creation, got %d", api.createContactCalls)
	}
	if results[0] != 5 || results[1] != 5 {
		t.Fatalf("expected both submissions to share contact 5, got %v", results)
	}
}

func TestTaskDueAt_Clamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// Appointment in 30 minutes: naive due time is in the past, clamp to
	// now + 15m.
	appointment := now.Add(30 * time.Minute)
	if got := taskDueAt(appointment, now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected clamp to 10:15, got %v", got)
	}

	// Appointment far out: due time is appointment - 1h.
	appointment = now.Add(5 * time.Hour)
	if got := taskDueAt(appointment, now); !got.Equal(appointment.Add(-time.Hour)) {
		t.Fatalf("expected appointment-1h, got %v", got)
	}

	// Boundary: appointment exactly 1h15m out, both rules agree.
	appointment = now.Add(75 * time.Minute)
	if got := taskDueAt(appointment, now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expected 10:15 at boundary, got %v", got)
	}
}

func TestParseAppointment(t *testing.T) {
	if _, ok := parseAppointment("2025-06-01", "14:00"); !ok {
		t.Fatal("ISO date should parse")
	}
	if _, ok := parseAppointment("01.06.2025", "14:00"); !ok {
		t.Fatal("dotted date should parse")
	}
	if _, ok := parseAppointment("июнь первое", "днём"); ok {
		t.Fatal("free text must not parse")
	}
}

func TestProcessColdLead_CreatesAnonymousContactAndLead(t *testing.T) {
	api := &fakeAPI{createContactID: 8, createLeadID: 90}
	sink := newTestSink(api)

	ev := events.VisitorEventTracked{
		BaseEvent: events.NewBaseEvent(),
		Event:     "phone_click",
		VisitorID: "1718000000-abcdef123",
		PageViews: 4,
		UTM:       map[string]string{"utm_source": "ads"},
	}

	if err := sink.ProcessColdLead(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.createContactCalls != 1 || api.createLeadCalls != 1 || api.addNoteCalls != 1 {
		t.Fatalf("expected contact+lead+note, got %d/%d/%d",
			api.createContactCalls, api.createLeadCalls, api.addNoteCalls)
	}
	if api.lastLead.Name != "Клик по телефону" {
		t.Fatalf("unexpected cold lead name: %q", api.lastLead.Name)
	}
	if api.lastLead.Price != 0 {
		t.Fatalf("cold lead price must be 0, got %d", api.lastLead.Price)
	}
}

func TestProcessColdLead_ContactFailureReturnsError(t *testing.T) {
	api := &fakeAPI{createContactErr: errors.New("403")}
	sink := newTestSink(api)

	ev := events.VisitorEventTracked{BaseEvent: events.NewBaseEvent(), Event: "form_start", VisitorID: "v1"}
	if err := sink.ProcessColdLead(context.Background(), ev); err == nil {
		t.Fatal("expected error when contact creation fails")
	}
	if api.createLeadCalls != 0 {
		t.Fatal("lead must not be attempted without a contact")
	}
}

func TestModule_OnlyColdLeadEventsReachSink(t *testing.T) {
	api := &fakeAPI{createContactID: 8, createLeadID: 90}
	mod := NewModule(api, catalog.Default(), Config{}, logger.New("development"))

	for _, name := range []string{"form_error", "form_abandon", "scroll_depth"} {
		ev := events.VisitorEventTracked{BaseEvent: events.NewBaseEvent(), Event: name, VisitorID: "v1"}
		if err := mod.Handle(context.Background(), ev); err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
	}
	if api.createContactCalls != 0 || api.createLeadCalls != 0 {
		t.Fatalf("non-intent events must not touch the CRM, got contact=%d lead=%d",
			api.createContactCalls, api.createLeadCalls)
	}

	ev := events.VisitorEventTracked{BaseEvent: events.NewBaseEvent(), Event: "whatsapp_click", VisitorID: "v1"}
	if err := mod.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.createLeadCalls != 1 {
		t.Fatalf("expected one cold lead, got %d", api.createLeadCalls)
	}
}
