// Package amocrm is a minimal amoCRM v4 REST client covering the calls the
// booking funnel needs: contact search/create/update, lead create, task
// create, and note create.
package amocrm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"barberosa_backend/platform/phone"
)

// Client talks to one amoCRM account over its v4 API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given account domain
// (e.g. "yourcompany.amocrm.ru"). Every call is bounded by timeout.
func NewClient(domain, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: fmt.Sprintf("https://%s/api/v4", strings.TrimRight(domain, "/")),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithBaseURL overrides the API base URL. Used by tests to point the client
// at a local server.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// FindContactByPhone searches contacts by the digit sequence of a phone
// number. Returns the first match's id and whether one was found.
func (c *Client) FindContactByPhone(ctx context.Context, phoneNumber string) (int, bool, error) {
	digits := phone.Digits(phoneNumber)
	if digits == "" {
		return 0, false, nil
	}

	var out embeddedResponse
	path := "/contacts?query=" + url.QueryEscape(digits)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, false, err
	}

	if len(out.Embedded.Contacts) == 0 {
		return 0, false, nil
	}
	return out.Embedded.Contacts[0].ID, true, nil
}

// CreateContact creates a contact with the standard PHONE/EMAIL fields plus
// any extra custom fields, returning the new contact id. Phone and email may
// be empty (anonymous visitor contacts carry neither).
func (c *Client) CreateContact(ctx context.Context, name, phoneNumber, email string, extra []CustomField) (int, error) {
	fields := make([]CustomField, 0, len(extra)+2)
	if phoneNumber != "" {
		fields = append(fields, CustomField{
			FieldCode: "PHONE",
			Values:    []FieldValue{{Value: phoneNumber, EnumCode: "WORK"}},
		})
	}
	if email != "" {
		fields = append(fields, CustomField{
			FieldCode: "EMAIL",
			Values:    []FieldValue{{Value: email, EnumCode: "WORK"}},
		})
	}
	fields = append(fields, extra...)

	body := []map[string]any{{
		"name":                 name,
		"custom_fields_values": fields,
	}}

	var out embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/contacts", body, &out); err != nil {
		return 0, err
	}
	if len(out.Embedded.Contacts) == 0 {
		return 0, fmt.Errorf("create contact: response carries no contact id")
	}
	return out.Embedded.Contacts[0].ID, nil
}

// UpdateContactFields patches custom fields on an existing contact.
func (c *Client) UpdateContactFields(ctx context.Context, contactID int, fields []CustomField) error {
	body := map[string]any{"custom_fields_values": fields}
	path := fmt.Sprintf("/contacts/%d", contactID)
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// CreateLead creates a lead linked to the given contact and returns its id.
func (c *Client) CreateLead(ctx context.Context, lead Lead, contactID int) (int, error) {
	payload := map[string]any{
		"name":  lead.Name,
		"price": lead.Price,
		"_embedded": map[string]any{
			"contacts": []map[string]any{{"id": contactID}},
		},
	}
	if lead.PipelineID != 0 {
		payload["pipeline_id"] = lead.PipelineID
	}
	if lead.CustomFields != nil {
		payload["custom_fields_values"] = lead.CustomFields
	} else {
		payload["custom_fields_values"] = []CustomField{}
	}

	var out embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/leads", []map[string]any{payload}, &out); err != nil {
		return 0, err
	}
	if len(out.Embedded.Leads) == 0 {
		return 0, fmt.Errorf("create lead: response carries no lead id")
	}
	return out.Embedded.Leads[0].ID, nil
}

// CreateTask creates a task and returns its id.
func (c *Client) CreateTask(ctx context.Context, task Task) (int, error) {
	var out embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/tasks", []Task{task}, &out); err != nil {
		return 0, err
	}
	if len(out.Embedded.Tasks) == 0 {
		return 0, fmt.Errorf("create task: response carries no task id")
	}
	return out.Embedded.Tasks[0].ID, nil
}

// AddNote appends a free-text note to a lead or contact.
func (c *Client) AddNote(ctx context.Context, entityType string, entityID int, text string) error {
	body := []map[string]any{{
		"note_type": "common",
		"params":    map[string]string{"text": text},
	}}
	path := fmt.Sprintf("/%s/%d/notes", entityType, entityID)
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// do executes one API round trip. Non-2xx responses become errors carrying
// the status code and a snippet of the response body for diagnosis.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal amocrm payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("amocrm request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("amocrm returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode amocrm response: %w", err)
	}
	return nil
}
