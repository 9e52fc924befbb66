package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/hray3182/eventcal/internal/database"
	"github.com/hray3182/eventcal/internal/models"
)

const eventTable = "custom_events"

var eventColumns = []string{
	"id", "title", "start_date", "end_date", "description", "color",
	"recurrence", "recurrence_end", "category_id", "post_id",
}

// eventRow mirrors the table. Dates stay strings until toTemplate so that a
// malformed stored value surfaces as a ParseError instead of a scan failure.
type eventRow struct {
	ID            int64          `db:"id"`
	Title         string         `db:"title"`
	StartDate     string         `db:"start_date"`
	EndDate       sql.NullString `db:"end_date"`
	Description   sql.NullString `db:"description"`
	Color         sql.NullString `db:"color"`
	Recurrence    string         `db:"recurrence"`
	RecurrenceEnd sql.NullString `db:"recurrence_end"`
	CategoryID    sql.NullInt64  `db:"category_id"`
	PostID        sql.NullInt64  `db:"post_id"`
}

type adminEventRow struct {
	eventRow
	CategoryName sql.NullString `db:"category_name"`
}

type EventRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewEventRepository reads and writes wall-clock dates in loc.
func NewEventRepository(db *database.DB, loc *time.Location) *EventRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &EventRepository{db: db, loc: loc}
}

func (r *EventRepository) CreateTemplate(ctx context.Context, input models.EventInput) (int64, error) {
	query, args, err := r.db.Builder().
		Insert(eventTable).
		Columns(eventColumns[1:]...).
		Values(
			input.Title,
			models.FormatDateTime(input.Start),
			nullDateTime(input.End),
			nullString(input.Description),
			nullString(input.Color),
			string(input.Recurrence),
			nullDate(input.RecurrenceEnd),
			nullInt(input.CategoryID),
			nullInt(input.LinkedContentID),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, err
	}

	var id int64
	if err := r.db.Pool.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

func (r *EventRepository) ListTemplates(ctx context.Context) ([]models.EventTemplate, error) {
	query, args, err := r.db.Builder().
		Select(eventColumns...).
		From(eventTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []eventRow
	if err := r.db.Pool.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	templates := make([]models.EventTemplate, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTemplate(r.loc)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func (r *EventRepository) GetTemplate(ctx context.Context, id int64) (models.EventTemplate, error) {
	query, args, err := r.db.Builder().
		Select(eventColumns...).
		From(eventTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.EventTemplate{}, err
	}

	var row eventRow
	if err := r.db.Pool.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EventTemplate{}, fmt.Errorf("event %d: %w", id, ErrNotFound)
		}
		return models.EventTemplate{}, fmt.Errorf("failed to get event %d: %w", id, err)
	}
	return row.toTemplate(r.loc)
}

// ListAdminRows returns every template with its category name, newest start first.
func (r *EventRepository) ListAdminRows(ctx context.Context) ([]models.AdminEvent, error) {
	cols := make([]string, 0, len(eventColumns)+1)
	for _, c := range eventColumns {
		cols = append(cols, "e."+c)
	}
	cols = append(cols, "c.name AS category_name")

	query, args, err := r.db.Builder().
		Select(cols...).
		From(eventTable + " e").
		LeftJoin(categoryTable + " c ON e.category_id = c.id").
		OrderBy("e.start_date DESC", "e.id DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []adminEventRow
	if err := r.db.Pool.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list admin events: %w", err)
	}

	events := make([]models.AdminEvent, 0, len(rows))
	for _, row := range rows {
		t, err := row.toTemplate(r.loc)
		if err != nil {
			return nil, err
		}
		events = append(events, models.AdminEvent{EventTemplate: t, CategoryName: row.CategoryName.String})
	}
	return events, nil
}

func (r *EventRepository) UpdateTemplate(ctx context.Context, id int64, input models.EventInput) error {
	query, args, err := r.db.Builder().
		Update(eventTable).
		SetMap(map[string]any{
			"title":          input.Title,
			"start_date":     models.FormatDateTime(input.Start),
			"end_date":       nullDateTime(input.End),
			"description":    nullString(input.Description),
			"color":          nullString(input.Color),
			"recurrence":     string(input.Recurrence),
			"recurrence_end": nullDate(input.RecurrenceEnd),
			"category_id":    nullInt(input.CategoryID),
			"post_id":        nullInt(input.LinkedContentID),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.Pool.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTemplate removes the row. Deleting a missing id is not an error.
func (r *EventRepository) DeleteTemplate(ctx context.Context, id int64) error {
	query, args, err := r.db.Builder().
		Delete(eventTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.Pool.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, err)
	}
	return nil
}

func (row eventRow) toTemplate(loc *time.Location) (models.EventTemplate, error) {
	start, err := models.ParseDateTime("start_date", row.StartDate, loc)
	if err != nil {
		return models.EventTemplate{}, fmt.Errorf("event %d: %w", row.ID, err)
	}

	t := models.EventTemplate{
		ID:          row.ID,
		Title:       row.Title,
		Start:       start,
		Description: row.Description.String,
		Color:       row.Color.String,
		Recurrence:  models.ParseRecurrence(row.Recurrence),
	}

	if row.EndDate.Valid && row.EndDate.String != "" {
		end, err := models.ParseDateTime("end_date", row.EndDate.String, loc)
		if err != nil {
			return models.EventTemplate{}, fmt.Errorf("event %d: %w", row.ID, err)
		}
		t.End = &end
	}
	if row.RecurrenceEnd.Valid && row.RecurrenceEnd.String != "" {
		until, err := models.ParseDate("recurrence_end", row.RecurrenceEnd.String, loc)
		if err != nil {
			return models.EventTemplate{}, fmt.Errorf("event %d: %w", row.ID, err)
		}
		t.RecurrenceEnd = &until
	}
	if row.CategoryID.Valid {
		id := row.CategoryID.Int64
		t.CategoryID = &id
	}
	if row.PostID.Valid {
		id := row.PostID.Int64
		t.LinkedContentID = &id
	}
	return t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDateTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return models.FormatDateTime(*t)
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return models.FormatDate(*t)
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
