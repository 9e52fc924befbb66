package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/hray3182/eventcal/internal/calendar"
	"github.com/hray3182/eventcal/internal/models"
)

// eventJSON is one occurrence in the shape the calendar widget consumes.
type eventJSON struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           *string       `json:"end,omitempty"`
	Color         string        `json:"color"`
	Description   string        `json:"description"`
	ExtendedProps extendedProps `json:"extendedProps"`
	URL           string        `json:"url,omitempty"`
}

type extendedProps struct {
	Recurring   bool             `json:"recurring"`
	Description string           `json:"description"`
	Category    *models.Category `json:"category,omitempty"`
}

func toEventJSON(occ models.Occurrence) eventJSON {
	ev := eventJSON{
		ID:          occ.TemplateID,
		Title:       occ.Title,
		Start:       models.FormatDateTime(occ.Start),
		Color:       occ.Color,
		Description: occ.Description,
		ExtendedProps: extendedProps{
			Recurring:   occ.Recurring,
			Description: occ.Description,
			Category:    occ.Category,
		},
		URL: occ.URL,
	}
	if occ.End != nil {
		end := models.FormatDateTime(*occ.End)
		ev.End = &end
	}
	return ev
}

// handleEvents returns every occurrence. The widget's optional start/end
// parameters only narrow the result when window filtering is enabled.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r, s.svc.Location())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	occurrences, err := s.svc.Occurrences(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]eventJSON, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, toEventJSON(occ))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseQuery(r *http.Request, loc *time.Location) (calendar.Query, error) {
	var q calendar.Query
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"start", &q.From},
		{"end", &q.To},
	} {
		v := strings.TrimSpace(r.FormValue(p.name))
		if v == "" {
			continue
		}
		t, err := models.ParseDate(p.name, v, loc)
		if err != nil {
			return calendar.Query{}, &calendar.ValidationError{Field: p.name, Message: "invalid date"}
		}
		*p.dst = &t
	}
	return q, nil
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleFeed serves the ICS subscription. It does not exist without a feed token.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.opts.FeedToken == "" {
		http.NotFound(w, r)
		return
	}
	if !secureCompare(r.URL.Query().Get("token"), s.opts.FeedToken) {
		writeError(w, http.StatusForbidden, "invalid token")
		return
	}

	body, err := s.feed.RenderFrom(r.Context(), s.svc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
