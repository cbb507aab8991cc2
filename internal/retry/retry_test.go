package retry_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billscan/internal/domain"
	"billscan/internal/retry"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func (s *sleepRecorder) total() time.Duration {
	var sum time.Duration
	for _, w := range s.waits {
		sum += w
	}
	return sum
}

func TestPolicy_Delay(t *testing.T) {
	p := retry.Policy{BaseDelay: time.Second}

	assert.Equal(t, time.Duration(0), p.Delay(1))
	assert.Equal(t, 1*time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(4))
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	out, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, Sleep: rec.sleep}, "test.op",
		func(_ context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", retry.NewRateLimitError("test", errors.New("429"), 1)
			}
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
	assert.Equal(t, 3*time.Second, rec.total())
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	boom := errors.New("bad request")

	_, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, Sleep: rec.sleep}, "test.op",
		func(_ context.Context) (int, error) {
			calls++
			return 0, boom
		})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)

	var exhausted *retry.RetryExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestDo_Exhausted(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0

	_, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, Sleep: rec.sleep}, "vision.annotate",
		func(_ context.Context) (int, error) {
			calls++
			return 0, retry.NewRateLimitError("vision", errors.New("429"), 0)
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *retry.RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, "vision.annotate", exhausted.Operation)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.True(t, retry.IsRateLimited(err))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "retries exhausted after 3 attempts")
}

func TestDo_CustomClassifier(t *testing.T) {
	rec := &sleepRecorder{}
	transient := errors.New("transient")
	calls := 0

	_, err := retry.Do(context.Background(), retry.Policy{
		MaxAttempts: 2,
		Sleep:       rec.sleep,
		IsRetryable: func(err error) bool { return errors.Is(err, transient) },
	}, "custom", func(_ context.Context) (int, error) {
		calls++
		return 0, transient
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, rec.waits, 1)
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := retry.Do(ctx, retry.Policy{MaxAttempts: 3, BaseDelay: time.Hour}, "slow",
		func(_ context.Context) (int, error) {
			calls++
			cancel()
			return 0, retry.NewRateLimitError("slow", errors.New("429"), 1)
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNewRateLimitError_RetryAfterHint(t *testing.T) {
	noHint := retry.NewRateLimitError("claude", errors.New("429"), 0)
	assert.Zero(t, noHint.RetryAfter)
	assert.Equal(t, "claude rate limited: 429", noHint.Error())
	assert.ErrorIs(t, noHint, domain.ErrRateLimited)

	hinted := retry.NewRateLimitError("gemini", errors.New("429"), 30)
	assert.Equal(t, 30*time.Second, hinted.RetryAfter)
	assert.Contains(t, hinted.Error(), "retry after 30s")
}

func TestDo_IgnoresRetryAfterHint(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	_, err := retry.Do(context.Background(), retry.Policy{Sleep: rec.sleep}, "hinted", func(context.Context) (int, error) {
		calls++
		return 0, retry.NewRateLimitError("openai", errors.New("429"), 120)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, retry.ParseRetryAfterHeader(""))
	assert.Equal(t, 30, retry.ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, retry.ParseRetryAfterHeader("-5"))
	assert.Equal(t, 0, retry.ParseRetryAfterHeader("soon"))
	assert.Equal(t, 0, retry.ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	assert.InDelta(t, 90, retry.ParseRetryAfterHeader(future), 2)
}

func TestNewPolicy(t *testing.T) {
	p := retry.NewPolicy(5, 0)
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Nil(t, p.Limiter)

	paced := retry.NewPolicy(0, 2)
	require.NotNil(t, paced.Limiter)
	assert.InDelta(t, 2.0, float64(paced.Limiter.Limit()), 1e-9)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, retry.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := retry.Sleep(ctx, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
