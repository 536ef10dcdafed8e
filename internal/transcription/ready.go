package transcription

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"theranotes-go/internal/logger"
)

// WaitReady polls p with exponential backoff until it answers or maxWait
// elapses. It is meant for process startup, when the engine server may still
// be loading its model; request-time calls are never retried.
func WaitReady(ctx context.Context, p Pinger, maxWait time.Duration, log *logger.Logger) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxWait

	attempt := 0
	op := func() error {
		attempt++
		return p.Ping(ctx)
	}
	notify := func(err error, next time.Duration) {
		log.WithError(err).WithField("attempt", attempt).WithField("retry_in", next.String()).Warn("engine not ready")
	}
	return backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify)
}
