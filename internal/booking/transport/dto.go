// Package transport defines the wire-level DTOs for the booking module.
package transport

// UTMParams carries the attribution keys captured by the front-end.
type UTMParams struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Map returns the non-empty UTM keys as a map, nil when none are set.
func (u *UTMParams) Map() map[string]string {
	if u == nil {
		return nil
	}
	out := map[string]string{}
	for key, value := range map[string]string{
		"utm_source":   u.Source,
		"utm_medium":   u.Medium,
		"utm_campaign": u.Campaign,
		"utm_term":     u.Term,
		"utm_content":  u.Content,
	} {
		if value != "" {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// BookingRequest is a caller-supplied booking submission.
//
// Only presence is validated. Phone shape and date parseability are the
// controlled front-end's responsibility; the funnel accepts structurally
// reasonable data rather than bouncing paying customers on format nits.
type BookingRequest struct {
	Name    string     `json:"name" validate:"required"`
	Phone   string     `json:"phone" validate:"required"`
	Email   string     `json:"email,omitempty"`
	Service string     `json:"service" validate:"required"`
	Master  string     `json:"master" validate:"required"`
	Date    string     `json:"date" validate:"required"`
	Time    string     `json:"time" validate:"required"`
	Price   int        `json:"price,omitempty"`
	Comment string     `json:"comment,omitempty"`
	Source  string     `json:"source,omitempty"`
	UTM     *UTMParams `json:"utm,omitempty"`
}

// RequestMeta is server-observed request context forwarded to the
// automation webhook, never persisted with the booking itself.
type RequestMeta struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}

// BookingData echoes the accepted booking's salient fields back to the
// caller.
type BookingData struct {
	Name    string `json:"name"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Master  string `json:"master"`
	Service string `json:"service"`
}

// BookingResponse is the submission endpoint's success body. BookingID is
// null when the primary store was unavailable; the submission still
// succeeded from the customer's point of view.
type BookingResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	BookingID *string     `json:"bookingId"`
	Data      BookingData `json:"data"`
}
