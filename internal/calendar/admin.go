package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/hray3182/eventcal/internal/models"
)

const defaultContentLimit = 50

func (s *Service) Event(ctx context.Context, id int64) (models.EventTemplate, error) {
	t, err := s.events.GetTemplate(ctx, id)
	if err != nil {
		return models.EventTemplate{}, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return t, nil
}

// AdminEvents lists every template for the admin table, newest start first,
// each labeled with a readable schedule.
func (s *Service) AdminEvents(ctx context.Context) ([]models.AdminEvent, error) {
	rows, err := s.events.ListAdminRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin events: %w", err)
	}
	for i := range rows {
		rows[i].Schedule = s.expander.Describe(rows[i].EventTemplate)
	}
	return rows, nil
}

func (s *Service) CreateEvent(ctx context.Context, form Form) (int64, error) {
	input, err := form.Normalize(s.loc)
	if err != nil {
		return 0, err
	}

	id, err := s.events.CreateTemplate(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("event created", "id", id, "title", input.Title, "recurrence", input.Recurrence)
	s.changed()
	return id, nil
}

func (s *Service) UpdateEvent(ctx context.Context, id int64, form Form) error {
	input, err := form.Normalize(s.loc)
	if err != nil {
		return err
	}

	if err := s.events.UpdateTemplate(ctx, id, input); err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, err)
	}

	s.logger.Info("event updated", "id", id)
	s.changed()
	return nil
}

// DeleteEvent removes a template. Deleting a missing id succeeds.
func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.events.DeleteTemplate(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}

	s.logger.Info("event deleted", "id", id)
	s.changed()
	return nil
}

// PublishedContent lists linkable content for the admin picker.
func (s *Service) PublishedContent(ctx context.Context, limit int) ([]models.ContentItem, error) {
	if s.content == nil {
		return []models.ContentItem{}, nil
	}
	if limit <= 0 {
		limit = defaultContentLimit
	}
	items, err := s.content.ListPublished(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return items, nil
}

func (s *Service) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
