// Package service relays visitor events to interested consumers and keeps
// the server-side visitor state current.
package service

import (
	"context"

	"barberosa_backend/internal/events"
	"barberosa_backend/internal/tracking/transport"
	"barberosa_backend/internal/tracking/visitor"
	"barberosa_backend/platform/logger"
	"barberosa_backend/platform/validator"
)

const msgTracked = "Event tracked"

// eventPageView updates the visitor's counters and attribution but is
// never relayed downstream.
const eventPageView = "page_view"

// Service accepts tracked visitor events, records them against the
// visitor's server-side context, and publishes named events on the bus.
// Tracking must never cost a page render: anything that goes wrong after
// the body parses is logged and the caller still gets a success response.
type Service struct {
	stores visitor.StoreProvider
	bus    events.Bus
	val    *validator.Validator
	log    *logger.Logger
}

func New(stores visitor.StoreProvider, bus events.Bus, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{stores: stores, bus: bus, val: val, log: log}
}

// Track handles one visitor event.
func (s *Service) Track(ctx context.Context, req transport.TrackEventRequest) (transport.TrackEventResponse, error) {
	ok := transport.TrackEventResponse{Success: true, Message: msgTracked}

	// Incomplete events are accepted and dropped, not bounced: the
	// front-end fires these in the background and a 4xx would only
	// produce console noise on the visitor's side.
	if err := s.val.Struct(req); err != nil {
		s.log.Warn("visitor event incomplete, relay skipped", "event", req.Event, "error", err)
		return ok, nil
	}

	snap := s.record(ctx, req)

	if req.Event == eventPageView {
		s.log.Debug("page view tracked",
			"visitorId", req.VisitorData.VisitorID,
			"pageViews", snap.PageViews)
		return ok, nil
	}

	s.bus.Publish(ctx, s.buildEvent(req, snap))
	return ok, nil
}

// record updates the visitor's server-side context for this event and
// returns the accumulated state for enrichment. Store failures degrade to
// an empty snapshot.
func (s *Service) record(ctx context.Context, req transport.TrackEventRequest) visitor.Snapshot {
	if s.stores == nil {
		return visitor.Snapshot{}
	}

	tracker := visitor.NewTracker(s.stores.For(req.VisitorData.VisitorID))

	if _, err := tracker.GetOrCreateSessionID(ctx); err != nil {
		s.log.SinkError("tracking", "refresh session", err)
		return visitor.Snapshot{}
	}

	if req.Event == eventPageView {
		pageURL := ""
		if req.Page != nil {
			pageURL = req.Page.URL
		}
		views, err := tracker.TrackPageView(ctx, visitor.PageVisit{
			URL:      pageURL,
			Referrer: req.VisitorData.Referrer,
			UTM:      req.VisitorData.UTM,
		})
		if err != nil {
			s.log.SinkError("tracking", "record page view", err)
			return visitor.Snapshot{}
		}
		return visitor.Snapshot{PageViews: views}
	}

	snap, err := tracker.Snapshot(ctx)
	if err != nil {
		s.log.SinkError("tracking", "read visitor state", err)
		return visitor.Snapshot{}
	}
	return snap
}

// buildEvent merges the client-reported visitor data with the server-side
// snapshot; the client value wins when both are present.
func (s *Service) buildEvent(req transport.TrackEventRequest, snap visitor.Snapshot) events.VisitorEventTracked {
	ev := events.VisitorEventTracked{
		BaseEvent:   events.NewBaseEvent(),
		Event:       req.Event,
		VisitorID:   req.VisitorData.VisitorID,
		FirstVisit:  req.VisitorData.FirstVisit,
		PageViews:   req.VisitorData.PageViews,
		Referrer:    req.VisitorData.Referrer,
		LandingPage: req.VisitorData.LandingPage,
		UTM:         req.VisitorData.UTM,
		EventData:   req.EventData,
	}
	if req.Page != nil {
		ev.CurrentPage = req.Page.URL
		ev.UserAgent = req.Page.UserAgent
	}

	if ev.FirstVisit == "" {
		ev.FirstVisit = snap.FirstVisit
	}
	if ev.PageViews == 0 {
		ev.PageViews = int(snap.PageViews)
	}
	if ev.Referrer == "" {
		ev.Referrer = snap.Referrer
	}
	if ev.LandingPage == "" {
		ev.LandingPage = snap.LandingPage
	}
	if len(ev.UTM) == 0 {
		ev.UTM = snap.UTM
	}
	return ev
}
