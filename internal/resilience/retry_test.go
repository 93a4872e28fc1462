package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test sleeps negligible.
func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts:  attempts,
		BaseDelay: time.Microsecond,
		MaxDelay:  time.Millisecond,
		Factor:    2.0,
	}
}

func TestRunSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Run(context.Background(), fastPolicy(3), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestRunRetriesRetryableErrors(t *testing.T) {
	calls := 0
	got, err := Run(context.Background(), fastPolicy(3), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, Unavailable("quote", 503, eris.New("overloaded"))
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRunStopsOnPermanentError(t *testing.T) {
	permanent := eris.New("document format not supported")
	calls := 0
	_, err := Run(context.Background(), fastPolicy(5), func(context.Context) (string, error) {
		calls++
		return "", permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRunExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), fastPolicy(4), func(context.Context) (string, error) {
		calls++
		return "", Unavailable("anthropic", 529, eris.New("overloaded"))
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)

	var unavailable *ProviderUnavailableError
	assert.ErrorAs(t, err, &unavailable, "last error should survive the loop unwrapped")
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Run(ctx, Policy{Attempts: 5, BaseDelay: time.Hour}, func(context.Context) (string, error) {
		calls++
		cancel()
		return "", Unavailable("quote", 0, eris.New("dial failed"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "cancellation must stop the loop without sleeping")
}

func TestRunCustomClassify(t *testing.T) {
	sentinel := eris.New("try once more")
	p := fastPolicy(2)
	p.Classify = func(err error) bool { return eris.Is(err, sentinel) }

	calls := 0
	_, err := Run(context.Background(), p, func(context.Context) (string, error) {
		calls++
		return "", sentinel
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunOnRetryCallback(t *testing.T) {
	var attempts []int
	p := fastPolicy(3)
	p.OnRetry = func(attempt int, err error) { attempts = append(attempts, attempt) }

	_, _ = Run(context.Background(), p, func(context.Context) (string, error) {
		return "", Unavailable("quote", 502, eris.New("bad gateway"))
	})
	assert.Equal(t, []int{1, 2}, attempts, "no callback after the final attempt")
}

func TestRunVoid(t *testing.T) {
	calls := 0
	err := RunVoid(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 2 {
			return Unavailable("store", 0, eris.New("connection reset by peer"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
		Factor:    2.0,
	}.normalized()

	assert.Equal(t, 100*time.Millisecond, p.delay(0))
	assert.Equal(t, 200*time.Millisecond, p.delay(1))
	assert.Equal(t, 400*time.Millisecond, p.delay(2))
	assert.Equal(t, time.Second, p.delay(10), "delay is capped at MaxDelay")

	jittered := Policy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
		Factor:    2.0,
		Jitter:    0.5,
	}.normalized()
	for range 50 {
		d := jittered.delay(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
