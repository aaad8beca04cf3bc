// Package transport defines the wire-level DTOs for the tracking module.
package transport

// VisitorData is the browser-side identity snapshot sent with every event.
// SessionID and the attribution fields are optional; very first events from a
// fresh browser carry only the visitor id.
type VisitorData struct {
	VisitorID   string            `json:"visitorId" validate:"required"`
	SessionID   string            `json:"sessionId,omitempty"`
	FirstVisit  string            `json:"firstVisit,omitempty"`
	PageViews   int               `json:"pageViews,omitempty"`
	Referrer    string            `json:"referrer,omitempty"`
	LandingPage string            `json:"landingPage,omitempty"`
	UTM         map[string]string `json:"utm,omitempty"`
}

// PageInfo describes where the event fired.
type PageInfo struct {
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// TrackEventRequest is the visitor-events endpoint body.
type TrackEventRequest struct {
	Event       string         `json:"event" validate:"required"`
	VisitorData VisitorData    `json:"visitorData" validate:"required"`
	Page        *PageInfo      `json:"page,omitempty"`
	EventData   map[string]any `json:"eventData,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

// TrackEventResponse is always a success once the body parses; event
// delivery downstream is best effort and invisible to the caller.
type TrackEventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
