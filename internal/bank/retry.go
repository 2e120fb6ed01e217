package bank

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/exp/slog"
)

// RetryPolicy describes how transient authorization failures are retried:
// delay before retry n (1-based) is InitialInterval * Multiplier^(n-1).
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy retries up to 3 times after 2s, 4s and 8s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 2 * time.Second,
		Multiplier:      2,
	}
}

// NewBackOff returns a fresh, jitter-free schedule for one authorization.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.MaxInterval = p.InitialInterval
	for i := 1; i < p.MaxRetries; i++ {
		b.MaxInterval = time.Duration(float64(b.MaxInterval) * p.Multiplier)
	}
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.MaxRetries))
}

// IsTransient reports whether an authorization failure may succeed when retried:
// transport errors, HTTP 408, HTTP 429 and any 5xx.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusRequestTimeout ||
			se.StatusCode == http.StatusTooManyRequests ||
			se.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// AttemptObserver is told about every attempt the retrying authorizer makes.
type AttemptObserver interface {
	ObserveBankAttempt(outcome string, elapsed time.Duration)
}

// Attempt outcomes reported to AttemptObserver.
const (
	AttemptOK        = "ok"
	AttemptTransient = "transient"
	AttemptFailed    = "failed"
)

// Retrying wraps an Authorizer with a backoff schedule. Non-transient failures are returned
// immediately; transient ones are retried until the schedule stops or ctx is done, and the
// last failure is returned.
type Retrying struct {
	next       Authorizer
	newBackOff func() backoff.BackOff
	logger     *slog.Logger
	observer   AttemptObserver
}

func NewRetrying(next Authorizer, newBackOff func() backoff.BackOff, logger *slog.Logger, observer AttemptObserver) *Retrying {
	if newBackOff == nil {
		newBackOff = DefaultRetryPolicy().NewBackOff
	}
	return &Retrying{
		next:       next,
		newBackOff: newBackOff,
		logger:     logger.With(slog.String("component", "bank-retry")),
		observer:   observer,
	}
}

func (r *Retrying) Authorize(ctx context.Context, req AuthorizationRequest) (*AuthorizationResponse, error) {
	var (
		resp    *AuthorizationResponse
		attempt int
	)

	op := func() error {
		attempt++
		started := time.Now()
		out, err := r.next.Authorize(ctx, req)
		switch {
		case err == nil:
			r.observe(AttemptOK, started)
			resp = out
			return nil
		case IsTransient(err):
			r.observe(AttemptTransient, started)
			return err
		default:
			r.observe(AttemptFailed, started)
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, delay time.Duration) {
		r.logger.Warn("bank authorization failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err", err.Error()),
		)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(r.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *Retrying) observe(outcome string, started time.Time) {
	if r.observer != nil {
		r.observer.ObserveBankAttempt(outcome, time.Since(started))
	}
}
