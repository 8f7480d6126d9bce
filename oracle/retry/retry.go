package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/GPTx-global/flightsurety/oracle/log"
)

// ErrCircuitOpen is returned by CircuitBreaker.Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// NetworkRetryConfig is used for dialing the chain node and resubscribing.
func NetworkRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 10,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  1.5,
	}
}

type RetryableFunc func() error

type IsRetryable func(error) bool

var networkErrors = []string{
	"connection refused",
	"timeout",
	"temporary failure",
	"network is unreachable",
	"no such host",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"eof",
	"websocket: close",
	"circuit breaker is open",
}

// NetworkIsRetryable reports whether err looks like a transient transport failure.
func NetworkIsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, retryable := range networkErrors {
		if strings.Contains(msg, retryable) {
			return true
		}
	}
	return false
}

// Always retries every error.
func Always(err error) bool {
	return err != nil
}

// Do runs fn until it succeeds, the attempts are exhausted, a non-retryable
// error is returned or ctx is done.
func Do(ctx context.Context, config *RetryConfig, fn RetryableFunc, isRetryable IsRetryable) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Debugf("retry succeeded on attempt %d", attempt)
			}
			return nil
		}

		lastErr = err
		log.Warnf("attempt %d/%d failed: %v", attempt, config.MaxAttempts, err)

		if attempt == config.MaxAttempts {
			break
		}

		if !isRetryable(err) {
			return err
		}

		delay := calculateDelay(config, attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("all %d attempts failed, last error: %w", config.MaxAttempts, lastErr)
}

func calculateDelay(config *RetryConfig, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt-1))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	return time.Duration(delay)
}

type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling fn after maxFailures consecutive failures
// until resetTimeout has elapsed.
type CircuitBreaker struct {
	mu           sync.Mutex
	maxFailures  int
	resetTimeout time.Duration
	failures     int
	lastFailTime time.Time
	state        CircuitState
	now          func() time.Time
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

func (cb *CircuitBreaker) Execute(fn RetryableFunc) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailTime) > cb.resetTimeout {
			cb.state = StateHalfOpen
			log.Debugf("circuit breaker: open -> half-open")
		} else {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailTime = cb.now()

		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
			log.Warnf("circuit breaker opened after %d failures", cb.failures)
		}
		return err
	}

	cb.state = StateClosed
	cb.failures = 0
	return nil
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}
