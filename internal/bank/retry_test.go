package bank_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alovak/cardflow-gateway/internal/bank"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type scriptedAuthorizer struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (s *scriptedAuthorizer) Authorize(ctx context.Context, req bank.AuthorizationRequest) (*bank.AuthorizationResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return nil, s.results[i]
	}
	return &bank.AuthorizationResponse{Authorized: true, AuthorizationCode: "code"}, nil
}

type attemptRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (a *attemptRecorder) ObserveBankAttempt(outcome string, _ time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, outcome)
}

func instantBackOff(retries uint64) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retries)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultRetryPolicy_Schedule(t *testing.T) {
	b := bank.DefaultRetryPolicy().NewBackOff()
	require.Equal(t, 2*time.Second, b.NextBackOff())
	require.Equal(t, 4*time.Second, b.NextBackOff())
	require.Equal(t, 8*time.Second, b.NextBackOff())
	require.Equal(t, backoff.Stop, b.NextBackOff())

	b.Reset()
	require.Equal(t, 2*time.Second, b.NextBackOff())
}

func TestRetrying_Authorize(t *testing.T) {
	unavailable := &bank.StatusError{StatusCode: http.StatusServiceUnavailable}
	tooMany := &bank.StatusError{StatusCode: http.StatusTooManyRequests}

	t.Run("recovers from transient failures", func(t *testing.T) {
		next := &scriptedAuthorizer{results: []error{tooMany, unavailable}}
		rec := &attemptRecorder{}
		r := bank.NewRetrying(next, instantBackOff(3), discardLogger(), rec)

		resp, err := r.Authorize(context.Background(), authorizationRequest())
		require.NoError(t, err)
		require.True(t, resp.Authorized)
		require.Equal(t, 3, next.calls)
		require.Equal(t, []string{bank.AttemptTransient, bank.AttemptTransient, bank.AttemptOK}, rec.outcomes)
	})

	t.Run("gives up after three retries with the last failure", func(t *testing.T) {
		next := &scriptedAuthorizer{results: []error{unavailable, unavailable, unavailable, unavailable, nil}}
		r := bank.NewRetrying(next, instantBackOff(3), discardLogger(), nil)

		_, err := r.Authorize(context.Background(), authorizationRequest())
		var se *bank.StatusError
		require.True(t, errors.As(err, &se))
		require.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
		require.Equal(t, 4, next.calls)
	})

	t.Run("does not retry definitive failures", func(t *testing.T) {
		badRequest := &bank.StatusError{StatusCode: http.StatusBadRequest}
		next := &scriptedAuthorizer{results: []error{badRequest}}
		rec := &attemptRecorder{}
		r := bank.NewRetrying(next, instantBackOff(3), discardLogger(), rec)

		_, err := r.Authorize(context.Background(), authorizationRequest())
		require.ErrorIs(t, err, error(badRequest))
		require.Equal(t, 1, next.calls)
		require.Equal(t, []string{bank.AttemptFailed}, rec.outcomes)
	})

	t.Run("does not retry malformed responses", func(t *testing.T) {
		next := &scriptedAuthorizer{results: []error{bank.ErrMalformedResponse}}
		r := bank.NewRetrying(next, instantBackOff(3), discardLogger(), nil)

		_, err := r.Authorize(context.Background(), authorizationRequest())
		require.ErrorIs(t, err, bank.ErrMalformedResponse)
		require.Equal(t, 1, next.calls)
	})

	t.Run("stops waiting when the context is done", func(t *testing.T) {
		next := &scriptedAuthorizer{results: []error{unavailable, unavailable, unavailable, unavailable}}
		slow := func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Hour), 3)
		}
		r := bank.NewRetrying(next, slow, discardLogger(), nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := r.Authorize(ctx, authorizationRequest())
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, 1, next.calls)
	})
}
