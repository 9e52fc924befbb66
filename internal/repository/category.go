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

const categoryTable = "custom_event_categories"

type CategoryRepository struct {
	db *database.DB
}

func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	query, args, err := r.db.Builder().
		Insert(categoryTable).
		Columns("name", "color").
		Values(category.Name, category.Color).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	return r.db.Pool.QueryRowxContext(ctx, query, args...).Scan(&category.ID)
}

func (r *CategoryRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	query, args, err := r.db.Builder().
		Select("id", "name", "color").
		From(categoryTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	categories := []models.Category{}
	if err := r.db.Pool.SelectContext(ctx, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) GetCategory(ctx context.Context, id int64) (models.Category, error) {
	query, args, err := r.db.Builder().
		Select("id", "name", "color").
		From(categoryTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return models.Category{}, err
	}

	var cat models.Category
	if err := r.db.Pool.GetContext(ctx, &cat, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
		}
		return models.Category{}, err
	}
	return cat, nil
}

// DeleteCategory leaves dependent events untouched; their category_id dangles.
func (r *CategoryRepository) DeleteCategory(ctx context.Context, id int64) error {
	query, args, err := r.db.Builder().
		Delete(categoryTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Pool.ExecContext(ctx, query, args...)
	return err
}
