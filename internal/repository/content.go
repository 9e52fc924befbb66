package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/hray3182/eventcal/internal/database"
	"github.com/hray3182/eventcal/internal/models"
)

const contentTable = "content_item"

// ContentRepository reads the content items events may link to.
type ContentRepository struct {
	db *database.DB
}

func NewContentRepository(db *database.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) CreateContent(ctx context.Context, item *models.ContentItem) error {
	query, args, err := r.db.Builder().
		Insert(contentTable).
		Columns("title", "status", "permalink").
		Values(item.Title, item.Status, item.Permalink).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	return r.db.Pool.QueryRowxContext(ctx, query, args...).Scan(&item.ID)
}

func (r *ContentRepository) GetContent(ctx context.Context, id int64) (models.ContentItem, error) {
	query, args, err := r.db.Builder().
		Select("id", "title", "status", "permalink").
		From(contentTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.ContentItem{}, err
	}

	var item models.ContentItem
	if err := r.db.Pool.GetContext(ctx, &item, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ContentItem{}, fmt.Errorf("content %d: %w", id, ErrNotFound)
		}
		return models.ContentItem{}, err
	}
	return item, nil
}

// ResolveURL returns the permalink of a published item, or "" when the item
// is missing or not published. Only lookup failures are errors.
func (r *ContentRepository) ResolveURL(ctx context.Context, id int64) (string, error) {
	item, err := r.GetContent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !item.IsPublished() {
		return "", nil
	}
	return item.Permalink, nil
}

// ListPublished returns the most recent published items, newest first.
func (r *ContentRepository) ListPublished(ctx context.Context, limit int) ([]models.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}

	query, args, err := r.db.Builder().
		Select("id", "title", "status", "permalink").
		From(contentTable).
		Where(sq.Eq{"status": models.ContentStatusPublish}).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	items := []models.ContentItem{}
	if err := r.db.Pool.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return items, nil
}
