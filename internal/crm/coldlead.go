package crm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"barberosa_backend/internal/crm/amocrm"
	"barberosa_backend/internal/events"
)

// ProcessColdLead creates an anonymous contact and a price-0 lead for a
// high-intent visitor event (form started, service viewed, phone or
// WhatsApp clicked). The visitor has not left a phone number yet, so the
// contact is keyed by visitor id instead.
func (s *Sink) ProcessColdLead(ctx context.Context, ev events.VisitorEventTracked) error {
	shortID := ev.VisitorID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	contactName := "Посетитель " + shortID

	var extra []amocrm.CustomField
	if s.cfg.FieldVisitorID != 0 && ev.VisitorID != "" {
		extra = append(extra, amocrm.CustomField{
			FieldID: s.cfg.FieldVisitorID,
			Values:  []amocrm.FieldValue{{Value: ev.VisitorID}},
		})
	}

	contactID, err := s.api.CreateContact(ctx, contactName, "", "", extra)
	if err != nil {
		s.log.SinkError(sinkName, "create visitor contact", err)
		return err
	}

	lead := amocrm.Lead{
		Name:         coldLeadName(ev),
		Price:        0,
		PipelineID:   s.cfg.PipelineID,
		CustomFields: utmFields(ev.UTM),
	}

	leadID, err := s.api.CreateLead(ctx, lead, contactID)
	if err != nil {
		s.log.SinkError(sinkName, "create cold lead", err)
		return err
	}

	if err := s.api.AddNote(ctx, amocrm.EntityLeads, leadID, coldLeadNote(ev)); err != nil {
		s.log.SinkError(sinkName, "add cold lead note", err)
	}

	s.log.Info("cold lead created", "event", ev.Event, "contact_id", contactID, "lead_id", leadID)
	return nil
}

func coldLeadName(ev events.VisitorEventTracked) string {
	switch ev.Event {
	case "form_start":
		if name, ok := ev.EventData["formName"].(string); ok && name != "" {
			return "Заполнение формы: " + name
		}
		return "Заполнение формы: Запись"
	case "service_interest":
		if name, ok := ev.EventData["serviceName"].(string); ok && name != "" {
			return "Интерес к услуге: " + name
		}
		return "Интерес к услуге: Неизвестно"
	case "phone_click":
		return "Клик по телефону"
	case "whatsapp_click":
		return "Клик по WhatsApp"
	default:
		return "Взаимодействие с сайтом"
	}
}

func coldLeadNote(ev events.VisitorEventTracked) string {
	orDash := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Событие: %s\n\n", ev.Event)
	fmt.Fprintf(&b, "Visitor ID: %s\n", ev.VisitorID)
	fmt.Fprintf(&b, "Первый визит: %s\n", orDash(ev.FirstVisit))
	fmt.Fprintf(&b, "Просмотров страниц: %d\n", ev.PageViews)
	fmt.Fprintf(&b, "Referrer: %s\n", orDash(ev.Referrer))
	fmt.Fprintf(&b, "Landing Page: %s\n", orDash(ev.LandingPage))
	fmt.Fprintf(&b, "Текущая страница: %s\n", orDash(ev.CurrentPage))

	if len(ev.UTM) > 0 {
		b.WriteString("\nUTM параметры:\n")
		keys := make([]string, 0, len(ev.UTM))
		for k := range ev.UTM {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, ev.UTM[k])
		}
	}

	fmt.Fprintf(&b, "\nБраузер: %s", orDash(ev.UserAgent))
	return b.String()
}
