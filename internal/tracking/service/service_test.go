package service

import (
	"context"
	"testing"

	"barberosa_backend/internal/events"
	"barberosa_backend/internal/tracking/transport"
	"barberosa_backend/internal/tracking/visitor"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/validator"
)

type busSpy struct {
	published []events.Event
}

func (b *busSpy) Publish(_ context.Context, ev events.Event) {
	b.published = append(b.published, ev)
}

func (b *busSpy) PublishSync(ctx context.Context, ev events.Event) error {
	b.Publish(ctx, ev)
	return nil
}

func (b *busSpy) Subscribe(string, events.Handler) {}

func trackReq(event string) transport.TrackEventRequest {
	return transport.TrackEventRequest{
		Event: event,
		VisitorData: transport.VisitorData{
			VisitorID:   "1718000000-abcdef123",
			SessionID:   "s-1",
			PageViews:   3,
			Referrer:    "https://ya.ru",
			LandingPage: "/",
			UTM:         map[string]string{"utm_source": "ads"},
		},
		Page: &transport.PageInfo{URL: "/prices", UserAgent: "Mozilla/5.0"},
	}
}

func newService(bus events.Bus) *Service {
	return New(visitor.NewMemoryStores(), bus, validator.New(), logger.New("development"))
}

func TestTrack_NamedEventsPublished(t *testing.T) {
	names := []string{
		"form_start", "service_interest", "phone_click", "whatsapp_click",
		"form_error", "form_abandon", "scroll_depth",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			bus := &busSpy{}
			svc := newService(bus)

			resp, err := svc.Track(context.Background(), trackReq(name))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !resp.Success || resp.Message != "Event tracked" {
				t.Fatalf("unexpected response: %+v", resp)
			}
			if len(bus.published) != 1 {
				t.Fatalf("expected one published event, got %d", len(bus.published))
			}

			ev, ok := bus.published[0].(events.VisitorEventTracked)
			if !ok {
				t.Fatalf("unexpected event type %T", bus.published[0])
			}
			if ev.Event != name || ev.VisitorID != "1718000000-abcdef123" {
				t.Fatalf("event fields lost: %+v", ev)
			}
			if ev.CurrentPage != "/prices" || ev.UserAgent != "Mozilla/5.0" {
				t.Fatalf("page context lost: %+v", ev)
			}
			if ev.UTM["utm_source"] != "ads" {
				t.Fatalf("attribution lost: %+v", ev)
			}
		})
	}
}

func TestTrack_PageViewRecordedNotPublished(t *testing.T) {
	bus := &busSpy{}
	svc := newService(bus)

	resp, err := svc.Track(context.Background(), trackReq("page_view"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if len(bus.published) != 0 {
		t.Fatalf("page views must not reach the bus, got %d", len(bus.published))
	}
}

func TestTrack_MissingVisitorIDAcceptedNotPublished(t *testing.T) {
	bus := &busSpy{}
	svc := newService(bus)

	req := trackReq("phone_click")
	req.VisitorData.VisitorID = ""

	resp, err := svc.Track(context.Background(), req)
	if err != nil {
		t.Fatalf("incomplete events must not error, got %v", err)
	}
	if !resp.Success {
		t.Fatalf("incomplete events must still succeed, got %+v", resp)
	}
	if len(bus.published) != 0 {
		t.Fatal("incomplete events must not be published")
	}
}

func TestTrack_MissingEventNameAcceptedNotPublished(t *testing.T) {
	bus := &busSpy{}
	svc := newService(bus)

	resp, err := svc.Track(context.Background(), trackReq(""))
	if err != nil {
		t.Fatalf("incomplete events must not error, got %v", err)
	}
	if !resp.Success {
		t.Fatalf("incomplete events must still succeed, got %+v", resp)
	}
	if len(bus.published) != 0 {
		t.Fatal("incomplete events must not be published")
	}
}

func TestTrack_SnapshotFillsMissingClientData(t *testing.T) {
	bus := &busSpy{}
	svc := newService(bus)

	// Two page views land first, carrying the visitor's first-touch data.
	view := trackReq("page_view")
	view.Page = &transport.PageInfo{URL: "/services"}
	for i := 0; i < 2; i++ {
		if _, err := svc.Track(context.Background(), view); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// The named event arrives bare, as an ad blocker would strip it.
	req := trackReq("phone_click")
	req.VisitorData.PageViews = 0
	req.VisitorData.Referrer = ""
	req.VisitorData.LandingPage = ""
	req.VisitorData.UTM = nil

	if _, err := svc.Track(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(bus.published))
	}

	ev := bus.published[0].(events.VisitorEventTracked)
	if ev.PageViews != 2 {
		t.Fatalf("expected server-side page views 2, got %d", ev.PageViews)
	}
	if ev.Referrer != "https://ya.ru" {
		t.Fatalf("expected stored referrer, got %q", ev.Referrer)
	}
	if ev.LandingPage != "/services" {
		t.Fatalf("expected stored landing page, got %q", ev.LandingPage)
	}
	if ev.UTM["utm_source"] != "ads" {
		t.Fatalf("expected first-touch attribution, got %+v", ev.UTM)
	}
	if ev.FirstVisit == "" {
		t.Fatal("expected stored first visit timestamp")
	}
}

func TestTrack_ClientDataWinsOverSnapshot(t *testing.T) {
	bus := &busSpy{}
	svc := newService(bus)

	if _, err := svc.Track(context.Background(), trackReq("page_view")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := trackReq("form_start")
	req.VisitorData.PageViews = 7
	req.VisitorData.UTM = map[string]string{"utm_source": "seo"}

	if _, err := svc.Track(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := bus.published[0].(events.VisitorEventTracked)
	if ev.PageViews != 7 {
		t.Fatalf("client page views must win, got %d", ev.PageViews)
	}
	if ev.UTM["utm_source"] != "seo" {
		t.Fatalf("client attribution must win, got %+v", ev.UTM)
	}
}
