package web

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/hray3182/eventcal/internal/calendar"
	"github.com/hray3182/eventcal/internal/models"
)

// rawEvent is the stored row as the admin UI edits it.
type rawEvent struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	StartDate     string            `json:"start_date"`
	EndDate       *string           `json:"end_date"`
	Description   string            `json:"description"`
	Color         string            `json:"color"`
	Recurrence    models.Recurrence `json:"recurrence"`
	RecurrenceEnd *string           `json:"recurrence_end"`
	CategoryID    *int64            `json:"category_id"`
	PostID        *int64            `json:"post_id"`
}

type adminRow struct {
	rawEvent
	CategoryName string `json:"category_name"`
	Schedule     string `json:"schedule"`
}

func toRawEvent(t models.EventTemplate) rawEvent {
	raw := rawEvent{
		ID:          t.ID,
		Title:       t.Title,
		StartDate:   models.FormatDateTime(t.Start),
		Description: t.Description,
		Color:       t.Color,
		Recurrence:  t.Recurrence,
		CategoryID:  t.CategoryID,
		PostID:      t.LinkedContentID,
	}
	if t.End != nil {
		end := models.FormatDateTime(*t.End)
		raw.EndDate = &end
	}
	if t.RecurrenceEnd != nil {
		until := models.FormatDate(*t.RecurrenceEnd)
		raw.RecurrenceEnd = &until
	}
	return raw
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.AdminEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rows := make([]adminRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, adminRow{
			rawEvent:     toRawEvent(e.EventTemplate),
			CategoryName: e.CategoryName,
			Schedule:     e.Schedule,
		})
	}
	writeSuccess(w, rows)
}

func (s *Server) handleAdminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	event, err := s.svc.Event(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, toRawEvent(event))
}

func (s *Server) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	form, err := formFrom(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := s.svc.CreateEvent(r.Context(), form)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, map[string]int64{"id": id})
}

func (s *Server) handleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	form, err := formFrom(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := s.svc.UpdateEvent(r.Context(), id, form); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, nil)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, nil)
}

func (s *Server) handleAdminContent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.svc.PublishedContent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSuccess(w, items)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event id", "field": "id"})
		return 0, false
	}
	return id, true
}

// formFrom reads the admin form from a JSON body or from form values.
// linked_content_id may also be sent under its legacy name post_id.
func formFrom(r *http.Request) (calendar.Form, error) {
	get := r.FormValue

	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return calendar.Form{}, &calendar.ValidationError{Field: "body", Message: "invalid JSON body"}
		}
		get = func(key string) string {
			switch v := body[key].(type) {
			case nil:
				return ""
			case string:
				return v
			case float64:
				return strconv.FormatFloat(v, 'f', -1, 64)
			default:
				return fmt.Sprint(v)
			}
		}
	}

	first := func(keys ...string) string {
		for _, k := range keys {
			if v := get(k); v != "" {
				return v
			}
		}
		return ""
	}

	return calendar.Form{
		Title:           get("title"),
		Start:           first("start_date", "start"),
		End:             first("end_date", "end"),
		Description:     get("description"),
		Color:           get("color"),
		Recurrence:      get("recurrence"),
		RecurrenceEnd:   get("recurrence_end"),
		CategoryID:      get("category_id"),
		LinkedContentID: first("linked_content_id", "post_id"),
	}, nil
}
