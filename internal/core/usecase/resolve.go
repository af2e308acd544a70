package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
)

type ResolveExaminationTypeUseCase struct {
	repo ports.ExaminationTypeRepository
}

func NewResolveExaminationTypeUseCase(repo ports.ExaminationTypeRepository) *ResolveExaminationTypeUseCase {
	return &ResolveExaminationTypeUseCase{repo: repo}
}

// Resolve returns ErrNotFound when the label matches no known alias.
func (uc *ResolveExaminationTypeUseCase) Resolve(ctx context.Context, label string) (*domain.ExaminationType, error) {
	if strings.TrimSpace(label) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve examination type", errors.New("label is required"))
	}
	examType, err := uc.repo.FindByName(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("lookup examination type: %w", err)
	}
	if examType == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "resolve examination type", fmt.Errorf("no examination type for %q", label))
	}
	return examType, nil
}
