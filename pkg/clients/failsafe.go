package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"frameworks/herald/pkg/logging"
)

// CircuitBreakerState represents the state of the circuit breaker.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func convertState(state circuitbreaker.State) CircuitBreakerState {
	switch state {
	case circuitbreaker.HalfOpenState:
		return StateHalfOpen
	case circuitbreaker.OpenState:
		return StateOpen
	default:
		return StateClosed
	}
}

// ErrBreakerOpen is reported when a call is rejected without being attempted.
var ErrBreakerOpen = circuitbreaker.ErrOpen

// IsBreakerOpen reports whether err came from an open circuit breaker.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, circuitbreaker.ErrOpen)
}

// StatusError is returned for responses the executor classified as
// retryable. The body has already been drained and closed.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// DefaultShouldRetry retries network errors, 5xx and 429.
func DefaultShouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// HTTPExecutorConfig configures the HTTP executor. MaxRetries of zero gives
// single-attempt calls that are still guarded by the breaker.
type HTTPExecutorConfig struct {
	Name       string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// The breaker opens after BreakerFailures failures within the last
	// BreakerWindow calls and half-opens after BreakerDelay.
	BreakerFailures uint
	BreakerWindow   uint
	BreakerDelay    time.Duration

	ShouldRetry func(resp *http.Response, err error) bool
	Logger      logging.Logger
}

// DefaultHTTPExecutorConfig returns the retrying configuration used for
// model and search calls.
func DefaultHTTPExecutorConfig(name string) HTTPExecutorConfig {
	return HTTPExecutorConfig{
		Name:            name,
		MaxRetries:      3,
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BreakerFailures: 5,
		BreakerWindow:   10,
		BreakerDelay:    15 * time.Second,
		ShouldRetry:     DefaultShouldRetry,
	}
}

// SingleAttemptConfig returns a configuration without retries.
func SingleAttemptConfig(name string) HTTPExecutorConfig {
	cfg := DefaultHTTPExecutorConfig(name)
	cfg.MaxRetries = 0
	return cfg
}

func normalizeHTTPExecutorConfig(cfg HTTPExecutorConfig) HTTPExecutorConfig {
	if cfg.Name == "" {
		cfg.Name = "http"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.BreakerWindow == 0 {
		cfg.BreakerWindow = 10
	}
	if cfg.BreakerFailures == 0 || cfg.BreakerFailures > cfg.BreakerWindow {
		cfg.BreakerFailures = cfg.BreakerWindow / 2
		if cfg.BreakerFailures == 0 {
			cfg.BreakerFailures = 1
		}
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = 15 * time.Second
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultShouldRetry
	}
	return cfg
}

// NewHTTPExecutor combines an optional retry policy with a circuit breaker.
//
//nolint:bodyclose // false positive: [*http.Response] is a generic type parameter, not an actual response
func NewHTTPExecutor(cfg HTTPExecutorConfig) failsafe.Executor[*http.Response] {
	cfg = normalizeHTTPExecutorConfig(cfg)

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThresholdRatio(cfg.BreakerFailures, cfg.BreakerWindow).
		WithDelay(cfg.BreakerDelay).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode >= 500
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			from, to := convertState(event.OldState), convertState(event.NewState)
			RecordCircuitBreakerTransition(cfg.Name, from, to)
			if cfg.Logger != nil {
				cfg.Logger.WithFields(logging.Fields{
					"circuit_breaker": cfg.Name,
					"from_state":      from.String(),
					"to_state":        to.String(),
				}).Warn("circuit breaker state change")
			}
		}).
		Build()

	if cfg.MaxRetries == 0 {
		return failsafe.With[*http.Response](breaker)
	}

	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(resp *http.Response, err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			return err != nil
		}).
		Build()

	return failsafe.With[*http.Response](retry, breaker)
}

// Do sends the request built by build through the executor. Responses that
// ShouldRetry classifies as retryable are closed and turned into a
// *StatusError so no body leaks between attempts.
func Do(ctx context.Context, executor failsafe.Executor[*http.Response], client *http.Client, shouldRetry func(*http.Response, error) bool, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}
	attempt := func() (*http.Response, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if shouldRetry(resp, nil) {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return resp, nil
	}
	if executor == nil {
		return attempt()
	}
	return executor.WithContext(ctx).Get(attempt)
}
