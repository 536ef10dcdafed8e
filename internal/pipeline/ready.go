package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"theranotes-go/internal/health"
)

// Ping checks one stage's liveness endpoint.
func (o *Orchestrator) Ping(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// Checks returns one readiness checker per distinct stage service.
func (o *Orchestrator) Checks() []health.Checker {
	targets := []struct{ name, url string }{
		{"transcriber", o.cfg.TranscriberURL},
		{"notary", o.cfg.NotaryURL},
	}
	if o.cfg.FormatterURL != o.cfg.NotaryURL {
		targets = append(targets, struct{ name, url string }{"formatter", o.cfg.FormatterURL})
	}
	out := make([]health.Checker, 0, len(targets))
	for _, t := range targets {
		url := t.url
		out = append(out, health.Checker{
			Name:  t.name,
			Check: func(ctx context.Context) error { return o.Ping(ctx, url) },
		})
	}
	return out
}

// WaitReady polls every stage with exponential backoff until all answer or
// maxWait elapses. Startup only; stage calls made for a request are never
// retried.
func (o *Orchestrator) WaitReady(ctx context.Context, maxWait time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxWait

	op := func() error {
		for _, c := range o.Checks() {
			if err := c.Check(ctx); err != nil {
				return fmt.Errorf("%s: %w", c.Name, err)
			}
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		o.log.WithError(err).WithField("retry_in", next.String()).Warn("stages not ready")
	}
	return backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify)
}
