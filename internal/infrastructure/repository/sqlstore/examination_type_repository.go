package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/samber/lo"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

const (
	examinationTypeTable = "medicalType"
	aliasTable           = "coordonance"
)

type ExaminationTypeRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewExaminationTypeRepository(db *sql.DB, dialect Dialect) *ExaminationTypeRepository {
	return &ExaminationTypeRepository{db: db, dialect: dialect}
}

// FindByName matches the normalized label against the alias table and
// returns the first joined examination type, or nil when none matches.
func (r *ExaminationTypeRepository) FindByName(ctx context.Context, label string) (*domain.ExaminationType, error) {
	normalized := domain.NormalizeExaminationLabel(label)

	query, args, err := r.dialect.builder().
		Select("mt.id", "mt.name", "mt.code", "COALESCE(mt.coordonance, '') AS coordonance").
		From(examinationTypeTable + " mt").
		Join(aliasTable + " c ON c.typeID = mt.id").
		Where(sq.Expr("LOWER(c.name) = LOWER(?)", normalized)).
		OrderBy("c.id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build examination type query: %w", err)
	}

	var examType domain.ExaminationType
	if err := sqlscan.Get(ctx, r.db, &examType, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch examination type: %w", err)
	}
	return &examType, nil
}

// Upsert creates or updates an examination type keyed by code and replaces
// its aliases. Aliases are stored normalized.
func (r *ExaminationTypeRepository) Upsert(ctx context.Context, examType domain.ExaminationType, aliases []string) (int64, error) {
	if strings.TrimSpace(examType.Code) == "" || strings.TrimSpace(examType.Name) == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "upsert examination type", errors.New("code and name are required"))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin examination type tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	id, err := r.upsertType(ctx, tx, examType)
	if err != nil {
		return 0, err
	}
	if err := r.replaceAliases(ctx, tx, id, aliases); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit examination type tx: %w", err)
	}
	return id, nil
}

func (r *ExaminationTypeRepository) upsertType(ctx context.Context, tx *sql.Tx, examType domain.ExaminationType) (int64, error) {
	b := r.dialect.builder()
	coordonance := sql.NullString{String: examType.Coordonance, Valid: examType.Coordonance != ""}

	query, args, err := b.Select("id").From(examinationTypeTable).Where(sq.Eq{"code": examType.Code}).Limit(1).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build examination type lookup: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case err == nil:
		query, args, err = b.Update(examinationTypeTable).
			Set("name", examType.Name).
			Set("coordonance", coordonance).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build examination type update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("update examination type: %w", err)
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup examination type by code: %w", err)
	}

	insert := b.Insert(examinationTypeTable).
		Columns("name", "code", "coordonance").
		Values(examType.Name, examType.Code, coordonance)

	if r.dialect == DialectPostgres {
		query, args, err = insert.Suffix("RETURNING id").ToSql()
		if err != nil {
			return 0, fmt.Errorf("build examination type insert: %w", err)
		}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert examination type: %w", err)
		}
		return id, nil
	}

	query, args, err = insert.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build examination type insert: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert examination type: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read examination type id: %w", err)
	}
	return id, nil
}

func (r *ExaminationTypeRepository) replaceAliases(ctx context.Context, tx *sql.Tx, typeID int64, aliases []string) error {
	b := r.dialect.builder()

	query, args, err := b.Delete(aliasTable).Where(sq.Eq{"typeID": typeID}).ToSql()
	if err != nil {
		return fmt.Errorf("build alias delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete aliases: %w", err)
	}

	normalized := normalizeAliases(aliases)
	if len(normalized) == 0 {
		return nil
	}

	insert := b.Insert(aliasTable).Columns("name", "typeID")
	for _, alias := range normalized {
		insert = insert.Values(alias, typeID)
	}
	query, args, err = insert.ToSql()
	if err != nil {
		return fmt.Errorf("build alias insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert aliases: %w", err)
	}
	return nil
}

func normalizeAliases(aliases []string) []string {
	normalized := lo.Map(aliases, func(alias string, _ int) string {
		return strings.TrimSpace(domain.NormalizeExaminationLabel(alias))
	})
	return lo.Uniq(lo.Compact(normalized))
}
