package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hray3182/eventcal/internal/database"
	"github.com/hray3182/eventcal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.New(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func ptr[T any](v T) *T {
	return &v
}

func TestEventRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newTestDB(t), time.UTC)

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	until := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	id, err := repo.CreateTemplate(ctx, models.EventInput{
		Title:           "Standup",
		Start:           start,
		End:             &end,
		Description:     "daily sync",
		Color:           "#3788d8",
		Recurrence:      models.RecurrenceWeekly,
		RecurrenceEnd:   &until,
		CategoryID:      ptr(int64(1)),
		LinkedContentID: ptr(int64(42)),
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := repo.GetTemplate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Title)
	assert.True(t, start.Equal(got.Start))
	require.NotNil(t, got.End)
	assert.True(t, end.Equal(*got.End))
	assert.Equal(t, models.RecurrenceWeekly, got.Recurrence)
	require.NotNil(t, got.RecurrenceEnd)
	assert.Equal(t, "2024-01-15", models.FormatDate(*got.RecurrenceEnd))
	assert.Equal(t, int64(1), *got.CategoryID)
	assert.Equal(t, int64(42), *got.LinkedContentID)
}

func TestEventRepositoryOptionalFieldsStayAbsent(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newTestDB(t), time.UTC)

	id, err := repo.CreateTemplate(ctx, models.EventInput{
		Title:      "Launch",
		Start:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: models.RecurrenceNone,
	})
	require.NoError(t, err)

	got, err := repo.GetTemplate(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got.End)
	assert.Nil(t, got.RecurrenceEnd)
	assert.Nil(t, got.CategoryID)
	assert.Nil(t, got.LinkedContentID)
	assert.Empty(t, got.Color)
	assert.Empty(t, got.Description)
}

func TestEventRepositoryListPreservesInsertOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newTestDB(t), time.UTC)

	empty, err := repo.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, title := range []string{"b", "a", "c"} {
		_, err := repo.CreateTemplate(ctx, models.EventInput{
			Title:      title,
			Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Recurrence: models.RecurrenceNone,
		})
		require.NoError(t, err)
	}

	list, err := repo.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].Title)
	assert.Equal(t, "a", list[1].Title)
	assert.Equal(t, "c", list[2].Title)
}

func TestEventRepositoryUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(newTestDB(t), time.UTC)

	id, err := repo.CreateTemplate(ctx, models.EventInput{
		Title:      "Draft",
		Start:      time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		Recurrence: models.RecurrenceDaily,
	})
	require.NoError(t, err)

	err = repo.UpdateTemplate(ctx, id, models.EventInput{
		Title:      "Final",
		Start:      time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC),
		Recurrence: models.RecurrenceNone,
	})
	require.NoError(t, err)

	got, err := repo.GetTemplate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, models.RecurrenceNone, got.Recurrence)

	err = repo.UpdateTemplate(ctx, id+100, models.EventInput{Title: "x", Start: got.Start, Recurrence: models.RecurrenceNone})
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, repo.DeleteTemplate(ctx, id))
	require.NoError(t, repo.DeleteTemplate(ctx, id))

	_, err = repo.GetTemplate(ctx, id)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestEventRepositoryMalformedDateFailsFast(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewEventRepository(db, time.UTC)

	_, err := db.Pool.ExecContext(ctx,
		`INSERT INTO custom_events (title, start_date, recurrence) VALUES ('Broken', 'soon', 'none')`)
	require.NoError(t, err)

	_, err = repo.ListTemplates(ctx)
	require.Error(t, err)
	var perr *models.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "start_date", perr.Field)
}

func TestAdminRowsJoinCategoryNames(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	events := NewEventRepository(db, time.UTC)

	_, err := events.CreateTemplate(ctx, models.EventInput{
		Title:      "Older",
		Start:      time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: models.RecurrenceNone,
		CategoryID: ptr(int64(2)),
	})
	require.NoError(t, err)
	_, err = events.CreateTemplate(ctx, models.EventInput{
		Title:      "Newer",
		Start:      time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Recurrence: models.RecurrenceNone,
		CategoryID: ptr(int64(999)),
	})
	require.NoError(t, err)

	rows, err := events.ListAdminRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Newer", rows[0].Title)
	assert.Empty(t, rows[0].CategoryName)
	assert.Equal(t, "Older", rows[1].Title)
	assert.Equal(t, "Holidays", rows[1].CategoryName)
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepository(newTestDB(t))

	cat := &models.Category{Name: "Workshops", Color: "#00aa00"}
	require.NoError(t, repo.CreateCategory(ctx, cat))
	require.NotZero(t, cat.ID)

	list, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Workshops", list[2].Name)

	got, err := repo.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "#00aa00", got.Color)

	require.NoError(t, repo.DeleteCategory(ctx, cat.ID))
	_, err = repo.GetCategory(ctx, cat.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestContentRepositoryResolveURL(t *testing.T) {
	ctx := context.Background()
	repo := NewContentRepository(newTestDB(t))

	published := &models.ContentItem{Title: "Agenda", Status: models.ContentStatusPublish, Permalink: "https://example.org/agenda"}
	draft := &models.ContentItem{Title: "Notes", Status: "draft", Permalink: "https://example.org/notes"}
	require.NoError(t, repo.CreateContent(ctx, published))
	require.NoError(t, repo.CreateContent(ctx, draft))

	url, err := repo.ResolveURL(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/agenda", url)

	url, err = repo.ResolveURL(ctx, draft.ID)
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = repo.ResolveURL(ctx, 12345)
	require.NoError(t, err)
	assert.Empty(t, url)

	items, err := repo.ListPublished(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Agenda", items[0].Title)
}
