package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"

	"github.com/kirillkom/medical-doc-extractor/internal/config"
	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/core/ports"
	"github.com/kirillkom/medical-doc-extractor/internal/core/usecase"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/forward/httpapi"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/notification"
	natsqueue "github.com/kirillkom/medical-doc-extractor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/resilience"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/storage/s3store"
)

type App struct {
	Config config.Config

	DB               *sql.DB
	Categories       *sqlstore.CategoryRepository
	ExaminationTypes *sqlstore.ExaminationTypeRepository

	// Queue is nil unless async intake or NATS forwarding is enabled.
	Queue *natsqueue.Queue

	ProcessUC ports.DocumentProcessor
	ResolveUC ports.ExaminationTypeResolver
	// SubmitUC is nil unless ASYNC_ENABLED is set.
	SubmitUC *usecase.SubmitDocumentUseCase

	closers []func()
}

type settings struct {
	logger   *slog.Logger
	observer resilience.StateObserver
	recorder DocumentRecorder
}

type Option func(*settings)

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBreakerObserver forwards circuit breaker transitions, e.g. to metrics.
func WithBreakerObserver(observer resilience.StateObserver) Option {
	return func(s *settings) { s.observer = observer }
}

func WithDocumentRecorder(recorder DocumentRecorder) Option {
	return func(s *settings) { s.recorder = recorder }
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (_ *App, err error) {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	if cfg.GeminiAPIKey == "" {
		return nil, domain.WrapError(domain.ErrMisconfigured, "bootstrap", errors.New("GEMINI_API_KEY is required"))
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	db, dialect, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.closers = append(app.closers, func() { _ = db.Close() })

	if err := sqlstore.EnsureSchema(ctx, db, dialect); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	app.Categories = sqlstore.NewCategoryRepository(db, dialect)
	app.ExaminationTypes = sqlstore.NewExaminationTypeRepository(db, dialect)

	if cfg.NeedsNATS() {
		natsPolicy := resilience.DefaultConfig()
		natsPolicy.RetryMaxAttempts = 3
		queue, err := natsqueue.New(cfg.NATSURL, cfg.NATSSubmitSubject, natsqueue.Options{
			QueueGroup:         cfg.NATSQueueGroup,
			ResilienceExecutor: resilience.NewExecutor(natsPolicy, resilience.WithLogger(s.logger), resilience.WithStateObserver(s.observer)),
			Logger:             s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.closers = append(app.closers, queue.Close)
	}

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
			if err != nil {
				return aws.Config{}, fmt.Errorf("load aws config: %w", err)
			}
			awsCfg = &loaded
		}
		return *awsCfg, nil
	}

	notifier, err := newNotifier(cfg, s.logger, loadAWS)
	if err != nil {
		return nil, err
	}

	llmPolicy := resilience.DefaultConfig()
	llmPolicy.RetryMaxAttempts = cfg.LLMRetryMaxAttempts
	llmPolicy.BreakerEnabled = cfg.LLMBreakerEnabled
	client := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel,
		gemini.WithHTTPClient(&http.Client{Timeout: cfg.GeminiTimeout}),
		gemini.WithExecutor(resilience.NewExecutor(llmPolicy, resilience.WithLogger(s.logger), resilience.WithStateObserver(s.observer))),
	)

	workflow := usecase.BasicWorkflow(gemini.NewExtractor(client), app.ExaminationTypes, notifier).
		WithLogger(s.logger).
		WithDocumentAttachment(cfg.NotifyAttachDocument)
	if cfg.CategoryDetection {
		detector := gemini.NewCategoryDetector(client, pdftext.NewReader(cfg.FirstPageMaxChars), s.logger)
		workflow = workflow.WithCategorization(detector, app.Categories)
	}
	switch cfg.ForwardMode {
	case config.ForwardHTTP:
		workflow = workflow.WithForwarder(httpapi.New(cfg.ExternalAPIURL, cfg.ExternalAPIToken, cfg.ExternalAPITimeout))
	case config.ForwardNATS:
		workflow = workflow.WithForwarder(app.Queue.OutcomePublisher(cfg.NATSOutcomeSubject))
	}

	processUC, err := usecase.NewProcessDocumentUseCase(workflow)
	if err != nil {
		return nil, fmt.Errorf("build workflow: %w", err)
	}
	app.ProcessUC = processUC
	if s.recorder != nil {
		app.ProcessUC = observeProcessor(processUC, s.recorder)
	}
	app.ResolveUC = usecase.NewResolveExaminationTypeUseCase(app.ExaminationTypes)

	if cfg.AsyncEnabled {
		storage, err := newStorage(cfg, loadAWS)
		if err != nil {
			return nil, err
		}
		app.SubmitUC = usecase.NewSubmitDocumentUseCase(storage, app.Queue, app.ProcessUC)
	}

	return app, nil
}

// OpenDatabase opens the reference-data pool for the configured driver.
func OpenDatabase(ctx context.Context, cfg config.Config) (*sql.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, "", err
	}
	db, err := sqlstore.OpenDB(ctx, dialect, cfg.DatabaseDSN, sqlstore.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, "", fmt.Errorf("open %s database: %w", dialect, err)
	}
	return db, dialect, nil
}

func newNotifier(cfg config.Config, logger *slog.Logger, loadAWS func() (aws.Config, error)) (ports.Notifier, error) {
	envelope := notification.Envelope{From: cfg.NotifyFrom, To: cfg.NotifyTo}

	switch cfg.NotifyMode {
	case config.NotifySMTP:
		notifier, err := notification.NewSMTPNotifier(notification.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			ImplicitTLS: cfg.SMTPImplicitTLS,
			Timeout:     cfg.SMTPTimeout,
		}, envelope)
		if err != nil {
			return nil, fmt.Errorf("init smtp notifier: %w", err)
		}
		return notifier, nil
	case config.NotifySES:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return notification.NewSESNotifier(ses.NewFromConfig(awsCfg), envelope), nil
	default:
		return notification.NewLogNotifier(logger), nil
	}
}

func newStorage(cfg config.Config, loadAWS func() (aws.Config, error)) (ports.ObjectStorage, error) {
	if cfg.StorageBackend != config.StorageS3 {
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		return storage, nil
	}

	awsCfg, err := loadAWS()
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	return s3store.New(client, cfg.S3Bucket, cfg.S3Prefix), nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
