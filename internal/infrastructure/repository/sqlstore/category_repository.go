package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

const categoryTable = "documentCategory"

var categoryColumns = []string{"id", "name", "prompt"}

type CategoryRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewCategoryRepository(db *sql.DB, dialect Dialect) *CategoryRepository {
	return &CategoryRepository{db: db, dialect: dialect}
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]domain.DocumentCategory, error) {
	query, args, err := r.dialect.builder().
		Select(categoryColumns...).
		From(categoryTable).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build categories query: %w", err)
	}

	var categories []domain.DocumentCategory
	if err := sqlscan.Select(ctx, r.db, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*domain.DocumentCategory, error) {
	query, args, err := r.dialect.builder().
		Select(categoryColumns...).
		From(categoryTable).
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build category query: %w", err)
	}

	var category domain.DocumentCategory
	if err := sqlscan.Get(ctx, r.db, &category, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch category: %w", err)
	}
	return &category, nil
}

// Upsert inserts the category or replaces the prompt of an existing one.
func (r *CategoryRepository) Upsert(ctx context.Context, category domain.DocumentCategory) error {
	if strings.TrimSpace(category.Name) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "upsert category", errors.New("name is required"))
	}

	insert := r.dialect.builder().
		Insert(categoryTable).
		Columns("name", "prompt").
		Values(category.Name, category.Prompt)
	if r.dialect == DialectPostgres {
		insert = insert.Suffix("ON CONFLICT (name) DO UPDATE SET prompt = EXCLUDED.prompt")
	} else {
		insert = insert.Suffix("ON DUPLICATE KEY UPDATE prompt = VALUES(prompt)")
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build category upsert: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}
