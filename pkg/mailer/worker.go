package mailer

import (
	"context"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-account-service/pkg/helpers"
)

// AttemptsHeader counts how many times a job has already failed to send.
const AttemptsHeader = "x-send-attempts"

// Worker consumes email jobs. Failed sends are published again with AttemptsHeader
// bumped after a backoff, and dropped once MaxAttempts is reached.
type Worker struct {
	Sender      Sender
	Republish   func(ctx context.Context, msg amqp.Publishing) error
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	SendTimeout time.Duration
	Logger      *logrus.Logger

	wait func(ctx context.Context, d time.Duration) error
}

func NewWorker(s Sender, republish func(context.Context, amqp.Publishing) error, maxAttempts int, backoff time.Duration, logger *logrus.Logger) *Worker {
	return &Worker{
		Sender:      s,
		Republish:   republish,
		MaxAttempts: maxAttempts,
		BaseBackoff: backoff,
		MaxBackoff:  time.Minute,
		SendTimeout: 15 * time.Second,
		Logger:      logger,
		wait:        sleepCtx,
	}
}

// Handle acks delivered mail, drops jobs that can never be sent and schedules
// another attempt for the rest.
func (w *Worker) Handle(ctx context.Context, msg amqp.Delivery) {
	entry := w.Logger.WithFields(logrus.Fields{"message_id": msg.MessageId, "type": msg.Type})

	job, err := DecodeJob(msg.Body)
	if err == nil {
		entry = entry.WithField("to", helpers.MaskEmail(job.To))
		c, cancel := context.WithTimeout(ctx, w.SendTimeout)
		err = Deliver(c, w.Sender, job)
		cancel()
	}
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, ErrBadJob):
		entry.WithError(err).Error("dropping email job")
		_ = msg.Nack(false, false)
	default:
		w.retry(ctx, entry, msg, err)
	}
}

func (w *Worker) retry(ctx context.Context, entry *logrus.Entry, msg amqp.Delivery, sendErr error) {
	attempt := Attempts(msg.Headers) + 1
	entry = entry.WithError(sendErr).WithField("attempt", attempt)
	if attempt >= w.MaxAttempts {
		entry.Error("send failed; giving up on email job")
		_ = msg.Nack(false, false)
		return
	}

	if err := w.wait(ctx, w.backoff(attempt)); err != nil {
		// shutting down: leave the job with the broker
		_ = msg.Nack(false, true)
		return
	}
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[AttemptsHeader] = int32(attempt)
	err := w.Republish(ctx, amqp.Publishing{
		ContentType:  msg.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.MessageId,
		Type:         msg.Type,
		Timestamp:    msg.Timestamp,
		Headers:      headers,
		Body:         msg.Body,
	})
	if err != nil {
		entry.WithField("republish_error", err.Error()).Warn("send failed; requeueing")
		_ = msg.Nack(false, true)
		return
	}
	entry.Warn("send failed; scheduled another attempt")
	_ = msg.Ack(false)
}

// backoff doubles from BaseBackoff per attempt up to MaxBackoff.
func (w *Worker) backoff(attempt int) time.Duration {
	d := w.BaseBackoff
	for i := 1; i < attempt && d < w.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, w.MaxBackoff)
}

// Attempts reads AttemptsHeader; a missing or malformed header counts as zero.
func Attempts(h amqp.Table) int {
	switch v := h[AttemptsHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
