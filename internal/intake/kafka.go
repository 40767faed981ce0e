// Package intake consumes notification events published on Kafka by other
// back-office services.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/backoffice/internal/metrics"
	"github.com/backoffice/internal/model"
)

// Notifier is satisfied by *notify.Dispatcher.
type Notifier interface {
	NotifyNewJobApplication(ctx context.Context, a model.JobApplication)
	NotifyNewLead(ctx context.Context, l model.Lead)
	NotifyNewReview(ctx context.Context, r model.Review)
	NotifySystemAlert(ctx context.Context, a model.SystemAlert)
}

// Envelope is the wire format of one event on the intake topic.
type Envelope struct {
	Kind    model.EventKind `json:"kind" validate:"required,oneof=job_application lead review system_alert"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

var ErrInvalidEnvelope = errors.New("intake: invalid envelope")

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads envelopes from one topic and hands each valid event to the
// notifier, one message at a time.
type Consumer struct {
	reader   messageReader
	notifier Notifier
	validate *validator.Validate
	log      *zap.SugaredLogger

	retryDelay time.Duration
}

func NewConsumer(cfg Config, n Notifier, log *zap.SugaredLogger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})
	return newConsumer(reader, n, log)
}

func newConsumer(r messageReader, n Notifier, log *zap.SugaredLogger) *Consumer {
	return &Consumer{
		reader:     r,
		notifier:   n,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log.Named("intake"),
		retryDelay: time.Second,
	}
}

// Run consumes until ctx is cancelled. Malformed messages are logged and
// skipped; they never stop the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Infow("kafka intake started")
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Warnw("closing kafka reader", "error", err)
		}
	}()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Infow("kafka intake stopped")
				return nil
			}
			metrics.IntakeMessages.WithLabelValues("read_error").Inc()
			c.log.Errorw("kafka read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.Handle(ctx, msg.Value); err != nil {
			metrics.IntakeMessages.WithLabelValues("invalid").Inc()
			c.log.Warnw("skipping kafka message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err)
			continue
		}
		metrics.IntakeMessages.WithLabelValues("dispatched").Inc()
	}
}

// Handle decodes one envelope and dispatches it. Errors describe why the
// message was rejected; notification failures are never returned.
func (c *Consumer) Handle(ctx context.Context, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := c.validate.Struct(env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	switch env.Kind {
	case model.KindJobApplication:
		var p model.JobApplication
		if err := c.decode(env.Payload, &p); err != nil {
			return err
		}
		c.notifier.NotifyNewJobApplication(ctx, p)
	case model.KindLead:
		var p model.Lead
		if err := c.decode(env.Payload, &p); err != nil {
			return err
		}
		c.notifier.NotifyNewLead(ctx, p)
	case model.KindReview:
		var p model.Review
		if err := c.decode(env.Payload, &p); err != nil {
			return err
		}
		c.notifier.NotifyNewReview(ctx, p)
	case model.KindSystemAlert:
		var p model.SystemAlert
		if err := c.decode(env.Payload, &p); err != nil {
			return err
		}
		c.notifier.NotifySystemAlert(ctx, p)
	}
	return nil
}

func (c *Consumer) decode(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrInvalidEnvelope, err)
	}
	if err := c.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrInvalidEnvelope, err)
	}
	return nil
}
