package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/resilience"
)

type publisher interface {
	Publish(subject string, data []byte) error
}

type Queue struct {
	conn       *nats.Conn
	pub        publisher
	subject    string
	queueGroup string
	executor   *resilience.Executor
	logger     *slog.Logger
}

type Options struct {
	ClientName           string
	QueueGroup           string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.ClientName
	if name == "" {
		name = "medical-doc-extractor"
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	q := newQueue(conn, subject, options.QueueGroup, options.ResilienceExecutor, logger)
	q.conn = conn
	return q, nil
}

func newQueue(pub publisher, subject, queueGroup string, executor *resilience.Executor, logger *slog.Logger) *Queue {
	if queueGroup == "" {
		queueGroup = "extractors"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		pub:        pub,
		subject:    subject,
		queueGroup: queueGroup,
		executor:   executor,
		logger:     logger,
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentSubmitted(ctx context.Context, submission domain.Submission) error {
	payload, err := json.Marshal(submission)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	return q.publish(ctx, q.subject, payload)
}

func (q *Queue) publish(ctx context.Context, subject string, payload []byte) error {
	call := func(_ context.Context) error {
		if err := q.pub.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	var err error
	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, publishPolicy.Classify)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return publishPolicy.WrapTemporary("nats publish", err)
	}
	return nil
}

func (q *Queue) SubscribeDocumentSubmitted(ctx context.Context, handler func(context.Context, domain.Submission) error) error {
	if q.conn == nil {
		return errors.New("nats subscribe: not connected")
	}
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		q.dispatch(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) dispatch(ctx context.Context, data []byte, handler func(context.Context, domain.Submission) error) {
	var submission domain.Submission
	if err := json.Unmarshal(data, &submission); err != nil {
		q.logger.Error("submission_decode_failed", "error", err, "payload_bytes", len(data))
		return
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := handler(handlerCtx, submission); err != nil {
		q.logger.Error("worker_handler_failed", "document_id", submission.DocumentID, "error", err)
	}
}
