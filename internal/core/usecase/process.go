package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
)

// Categorization enables category-specific extraction prompts.
type Categorization struct {
	Detector   ports.CategoryDetector
	Categories ports.CategoryRepository
}

// WorkflowConfig wires the document workflow. Build it with BasicWorkflow and
// extend it with the With* methods.
type WorkflowConfig struct {
	Extractor        ports.FieldExtractor
	ExaminationTypes ports.ExaminationTypeRepository
	Notifier         ports.Notifier
	Forwarder        ports.OutcomeForwarder
	Categorization   *Categorization
	AttachDocument   bool
	Logger           *slog.Logger
}

func BasicWorkflow(
	extractor ports.FieldExtractor,
	examinationTypes ports.ExaminationTypeRepository,
	notifier ports.Notifier,
) WorkflowConfig {
	return WorkflowConfig{
		Extractor:        extractor,
		ExaminationTypes: examinationTypes,
		Notifier:         notifier,
	}
}

func (c WorkflowConfig) WithCategorization(detector ports.CategoryDetector, categories ports.CategoryRepository) WorkflowConfig {
	c.Categorization = &Categorization{Detector: detector, Categories: categories}
	return c
}

func (c WorkflowConfig) WithForwarder(forwarder ports.OutcomeForwarder) WorkflowConfig {
	c.Forwarder = forwarder
	return c
}

// WithDocumentAttachment makes notifications carry the original document.
func (c WorkflowConfig) WithDocumentAttachment(enabled bool) WorkflowConfig {
	c.AttachDocument = enabled
	return c
}

func (c WorkflowConfig) WithLogger(logger *slog.Logger) WorkflowConfig {
	c.Logger = logger
	return c
}

func (c WorkflowConfig) validate() error {
	var missing []string
	if c.Extractor == nil {
		missing = append(missing, "extractor")
	}
	if c.ExaminationTypes == nil {
		missing = append(missing, "examination type repository")
	}
	if c.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if c.Categorization != nil {
		if c.Categorization.Detector == nil {
			missing = append(missing, "category detector")
		}
		if c.Categorization.Categories == nil {
			missing = append(missing, "category repository")
		}
	}
	if len(missing) > 0 {
		return domain.WrapError(
			domain.ErrMisconfigured,
			"build document workflow",
			fmt.Errorf("missing %s", strings.Join(missing, ", ")),
		)
	}
	return nil
}

type ProcessDocumentUseCase struct {
	extractor      ports.FieldExtractor
	examTypes      ports.ExaminationTypeRepository
	notifier       ports.Notifier
	forwarder      ports.OutcomeForwarder
	categorization *Categorization
	attachDocument bool
	logger         *slog.Logger
}

func NewProcessDocumentUseCase(cfg WorkflowConfig) (*ProcessDocumentUseCase, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		extractor:      cfg.Extractor,
		examTypes:      cfg.ExaminationTypes,
		notifier:       cfg.Notifier,
		forwarder:      cfg.Forwarder,
		categorization: cfg.Categorization,
		attachDocument: cfg.AttachDocument,
		logger:         logger,
	}, nil
}

// Process runs detection, extraction, validation and examination type
// resolution for one document. Business failures are returned as an
// Incomplete outcome; only extractor and repository failures are errors.
func (uc *ProcessDocumentUseCase) Process(ctx context.Context, doc domain.Document) (*domain.MedicalInfo, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", errors.New("document id is required"))
	}
	if len(doc.Content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process document", errors.New("document content is empty"))
	}

	prompt, usedCategory := uc.resolvePrompt(ctx, doc)

	fields, err := uc.extract(ctx, doc, prompt)
	if err != nil {
		return nil, err
	}

	if result := domain.Validate(fields); !result.Valid {
		info := &domain.MedicalInfo{
			ExtractedFields:    fields,
			Status:             domain.StatusIncomplete,
			MissingInformation: result.MissingFields,
			UsedCategory:       usedCategory,
		}
		uc.notify(ctx, doc, result.MissingFields, *info)
		return info, nil
	}

	examType, err := uc.lookupExaminationType(ctx, fields.ExaminationType)
	if err != nil {
		return nil, err
	}
	if examType == nil {
		info := &domain.MedicalInfo{
			ExtractedFields:    fields,
			Status:             domain.StatusIncomplete,
			MissingInformation: []string{},
			UsedCategory:       usedCategory,
		}
		uc.notify(ctx, doc, []string{domain.ReasonInvalidExaminationType}, *info)
		return info, nil
	}

	info := &domain.MedicalInfo{
		ExtractedFields:    fields,
		FolderName:         examType.Name,
		Status:             domain.StatusResolved,
		MissingInformation: []string{},
		UsedCategory:       usedCategory,
	}
	uc.forward(ctx, doc.ID, *info)
	return info, nil
}

// resolvePrompt returns the extraction prompt and the category it came from.
// Failures are logged and whatever was resolved before the failure is kept.
func (uc *ProcessDocumentUseCase) resolvePrompt(ctx context.Context, doc domain.Document) (string, string) {
	if uc.categorization == nil {
		return "", ""
	}

	var systemPrompt, categoryPrompt, usedCategory string
	build := func() (string, string) {
		parts := lo.Compact([]string{systemPrompt, categoryPrompt})
		return strings.Join(parts, "\n\n"), usedCategory
	}

	categories, err := uc.categorization.Categories.FindAll(ctx)
	if err != nil {
		uc.logDetectionFailure(doc.ID, "list categories", err)
		return build()
	}

	system, err := uc.categorization.Categories.FindByName(ctx, domain.SystemPromptCategory)
	switch {
	case err != nil:
		uc.logDetectionFailure(doc.ID, "load system prompt", err)
		return build()
	case system == nil:
		uc.logger.Info("system_prompt_missing", "document_id", doc.ID, "category", domain.SystemPromptCategory)
	default:
		systemPrompt = strings.TrimSpace(system.Prompt)
	}

	names := lo.FilterMap(categories, func(c domain.DocumentCategory, _ int) (string, bool) {
		return c.Name, c.Name != domain.SystemPromptCategory && strings.TrimSpace(c.Name) != ""
	})
	if len(names) == 0 {
		return build()
	}

	detection, err := uc.categorization.Detector.DetectCategory(ctx, doc, names)
	if err != nil {
		uc.logDetectionFailure(doc.ID, "detect category", err)
		return build()
	}
	if detection.NoCategory || !lo.Contains(names, detection.Category) {
		uc.logger.Info("category_not_detected",
			"document_id", doc.ID,
			"category", detection.Category,
			"no_category", detection.NoCategory,
		)
		return build()
	}

	category, err := uc.categorization.Categories.FindByName(ctx, detection.Category)
	if err != nil {
		uc.logDetectionFailure(doc.ID, "load category prompt", err)
		return build()
	}
	if category != nil && strings.TrimSpace(category.Prompt) != "" {
		categoryPrompt = strings.TrimSpace(category.Prompt)
		usedCategory = category.Name
	}
	return build()
}

func (uc *ProcessDocumentUseCase) logDetectionFailure(documentID, step string, err error) {
	uc.logger.Warn("category_detection_failed", "document_id", documentID, "step", step, "error", err)
}

func (uc *ProcessDocumentUseCase) extract(ctx context.Context, doc domain.Document, prompt string) (domain.ExtractedFields, error) {
	fields, err := uc.extractor.Extract(ctx, doc, prompt)
	if err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("extract fields: %w", err)
	}
	return fields, nil
}

func (uc *ProcessDocumentUseCase) lookupExaminationType(ctx context.Context, label string) (*domain.ExaminationType, error) {
	examType, err := uc.examTypes.FindByName(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("lookup examination type: %w", err)
	}
	return examType, nil
}

func (uc *ProcessDocumentUseCase) notify(ctx context.Context, doc domain.Document, missing []string, partial domain.MedicalInfo) {
	var attachment *domain.Attachment
	if uc.attachDocument {
		attachment = domain.AttachmentFor(doc)
	}
	receipt, err := uc.notifier.NotifyMissingInformation(ctx, doc.ID, missing, partial, attachment)
	if err != nil {
		uc.logger.Error("notification_failed", "document_id", doc.ID, "missing", missing, "error", err)
		return
	}
	uc.logger.Info("notification_sent",
		"document_id", doc.ID,
		"channel", receipt.Channel,
		"message_id", receipt.MessageID,
	)
}

func (uc *ProcessDocumentUseCase) forward(ctx context.Context, documentID string, info domain.MedicalInfo) {
	if uc.forwarder == nil {
		return
	}
	if err := uc.forwarder.Forward(ctx, documentID, info); err != nil {
		uc.logger.Error("outcome_forward_failed", "document_id", documentID, "error", err)
	}
}
