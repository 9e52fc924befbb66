// Package calendar serves expanded occurrences to the widget and runs the
// admin create, update and delete flows on top of the stores.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hray3182/eventcal/internal/models"
	"github.com/hray3182/eventcal/internal/recurrence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hray3182/eventcal/internal/calendar"

type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]models.EventTemplate, error)
	GetTemplate(ctx context.Context, id int64) (models.EventTemplate, error)
	ListAdminRows(ctx context.Context) ([]models.AdminEvent, error)
	CreateTemplate(ctx context.Context, input models.EventInput) (int64, error)
	UpdateTemplate(ctx context.Context, id int64, input models.EventInput) error
	DeleteTemplate(ctx context.Context, id int64) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// LinkResolver maps a linked content id to a public URL. "" means no link.
type LinkResolver interface {
	ResolveURL(ctx context.Context, id int64) (string, error)
}

type ContentStore interface {
	LinkResolver
	ListPublished(ctx context.Context, limit int) ([]models.ContentItem, error)
}

// Query carries the widget's optional visible range.
type Query struct {
	From *time.Time
	To   *time.Time
}

type Service struct {
	events     TemplateStore
	categories CategoryStore
	content    ContentStore
	expander   *recurrence.Expander
	loc        *time.Location

	filterToWindow bool
	onChange       func()

	logger   *slog.Logger
	tracer   trace.Tracer
	expanded metric.Int64Counter
}

type Option func(*Service)

// WithWindowFilter makes Occurrences honor Query's range.
func WithWindowFilter(enabled bool) Option {
	return func(s *Service) {
		s.filterToWindow = enabled
	}
}

// WithOnChange registers a hook run after every successful mutation.
func WithOnChange(fn func()) Option {
	return func(s *Service) {
		s.onChange = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(s *Service) {
		s.expanded = newExpandedCounter(meter)
	}
}

func NewService(events TemplateStore, categories CategoryStore, content ContentStore,
	expander *recurrence.Expander, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{
		events:     events,
		categories: categories,
		content:    content,
		expander:   expander,
		loc:        loc,
		logger:     slog.Default(),
		tracer:     otel.Tracer(instrumentationName),
		expanded:   newExpandedCounter(otel.Meter(instrumentationName)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newExpandedCounter(meter metric.Meter) metric.Int64Counter {
	counter, _ := meter.Int64Counter("eventcal.occurrences.expanded",
		metric.WithDescription("Occurrences produced for calendar queries"),
		metric.WithUnit("{occurrence}"),
	)
	return counter
}

// Occurrences expands every stored template. Results keep store order, then
// each template's own emission order; nothing is sorted.
func (s *Service) Occurrences(ctx context.Context, q Query) ([]models.Occurrence, error) {
	ctx, span := s.tracer.Start(ctx, "calendar.Occurrences")
	defer span.End()

	templates, err := s.events.ListTemplates(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list templates")
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list categories")
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	byID := make(map[int64]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	var opts []recurrence.Option
	if s.filterToWindow && q.From != nil && q.To != nil {
		opts = append(opts, recurrence.WithWindow(*q.From, *q.To))
	}

	occurrences := make([]models.Occurrence, 0, len(templates))
	for _, t := range templates {
		url := s.resolveURL(ctx, t)

		var category *models.Category
		if t.CategoryID != nil {
			if c, ok := byID[*t.CategoryID]; ok {
				category = &c
			}
		}

		color := t.Color
		if color == "" && category != nil {
			color = category.Color
		}

		for occ := range s.expander.Expand(t, opts...) {
			occ.URL = url
			occ.Category = category
			occ.Color = color
			occurrences = append(occurrences, occ)
		}
	}

	span.SetAttributes(
		attribute.Int("eventcal.templates", len(templates)),
		attribute.Int("eventcal.occurrences", len(occurrences)),
	)
	if s.expanded != nil {
		s.expanded.Add(ctx, int64(len(occurrences)))
	}
	return occurrences, nil
}

func (s *Service) resolveURL(ctx context.Context, t models.EventTemplate) string {
	if t.LinkedContentID == nil || s.content == nil {
		return ""
	}
	url, err := s.content.ResolveURL(ctx, *t.LinkedContentID)
	if err != nil {
		s.logger.Debug("failed to resolve linked content", "event_id", t.ID, "content_id", *t.LinkedContentID, "error", err)
		return ""
	}
	return url
}

// Templates returns the stored templates unexpanded, for feed rendering.
func (s *Service) Templates(ctx context.Context) ([]models.EventTemplate, error) {
	templates, err := s.events.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return templates, nil
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *Service) Expander() *recurrence.Expander {
	return s.expander
}

func (s *Service) Location() *time.Location {
	return s.loc
}
