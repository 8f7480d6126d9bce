package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RetryTestSuite struct {
	suite.Suite
	fast *RetryConfig
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

func (suite *RetryTestSuite) SetupTest() {
	suite.fast = &RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
	}
}

func (suite *RetryTestSuite) TestDo_SucceedsAfterRetries() {
	calls := 0
	err := Do(context.Background(), suite.fast, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, NetworkIsRetryable)

	suite.NoError(err)
	suite.Equal(3, calls)
}

func (suite *RetryTestSuite) TestDo_NonRetryableStopsImmediately() {
	calls := 0
	boom := errors.New("execution reverted")
	err := Do(context.Background(), suite.fast, func() error {
		calls++
		return boom
	}, NetworkIsRetryable)

	suite.ErrorIs(err, boom)
	suite.Equal(1, calls)
}

func (suite *RetryTestSuite) TestDo_Exhausted() {
	calls := 0
	boom := errors.New("i/o timeout")
	err := Do(context.Background(), suite.fast, func() error {
		calls++
		return boom
	}, Always)

	suite.ErrorIs(err, boom)
	suite.Equal(3, calls)
}

func (suite *RetryTestSuite) TestDo_ContextCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, suite.fast, func() error {
		calls++
		return nil
	}, Always)

	suite.ErrorIs(err, context.Canceled)
	suite.Zero(calls)
}

func (suite *RetryTestSuite) TestCalculateDelay() {
	config := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second, Multiplier: 2}

	suite.Equal(time.Second, calculateDelay(config, 1))
	suite.Equal(2*time.Second, calculateDelay(config, 2))
	suite.Equal(4*time.Second, calculateDelay(config, 3))
	suite.Equal(5*time.Second, calculateDelay(config, 4))
}

func (suite *RetryTestSuite) TestNetworkIsRetryable() {
	suite.True(NetworkIsRetryable(errors.New("dial tcp: connection refused")))
	suite.True(NetworkIsRetryable(errors.New("unexpected EOF")))
	suite.False(NetworkIsRetryable(errors.New("insufficient funds for gas")))
	suite.False(NetworkIsRetryable(context.Canceled))
	suite.False(NetworkIsRetryable(nil))
}

func (suite *RetryTestSuite) TestCircuitBreaker() {
	now := time.Now()
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }
	boom := errors.New("boom")

	suite.ErrorIs(cb.Execute(func() error { return boom }), boom)
	suite.Equal(StateClosed, cb.State())
	suite.ErrorIs(cb.Execute(func() error { return boom }), boom)
	suite.Equal(StateOpen, cb.State())

	called := false
	suite.ErrorIs(cb.Execute(func() error { called = true; return nil }), ErrCircuitOpen)
	suite.False(called)

	now = now.Add(2 * time.Minute)
	suite.NoError(cb.Execute(func() error { return nil }))
	suite.Equal(StateClosed, cb.State())
}
