package refdata

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

type CategoryWriter interface {
	Upsert(ctx context.Context, category domain.DocumentCategory) error
}

type ExaminationTypeWriter interface {
	Upsert(ctx context.Context, examType domain.ExaminationType, aliases []string) (int64, error)
}

type Seeder struct {
	categories CategoryWriter
	examTypes  ExaminationTypeWriter
	logger     *slog.Logger
}

func NewSeeder(categories CategoryWriter, examTypes ExaminationTypeWriter, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{categories: categories, examTypes: examTypes, logger: logger}
}

func (s *Seeder) SeedCategories(ctx context.Context, categories []domain.DocumentCategory) (int, error) {
	for i, category := range categories {
		if err := s.categories.Upsert(ctx, category); err != nil {
			return i, fmt.Errorf("upsert category %q: %w", category.Name, err)
		}
		s.logger.Debug("category_seeded", "name", category.Name)
	}
	s.logger.Info("categories_seeded", "count", len(categories))
	return len(categories), nil
}

func (s *Seeder) SeedExaminationTypes(ctx context.Context, rows []ExaminationTypeRow) (int, error) {
	for i, row := range rows {
		id, err := s.examTypes.Upsert(ctx, row.Type, row.Aliases)
		if err != nil {
			return i, fmt.Errorf("upsert examination type %q: %w", row.Type.Code, err)
		}
		s.logger.Debug("examination_type_seeded", "id", id, "code", row.Type.Code, "aliases", len(row.Aliases))
	}
	s.logger.Info("examination_types_seeded", "count", len(rows))
	return len(rows), nil
}
