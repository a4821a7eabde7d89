package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastCfg(maxAttempts int) Config {
	return Config{MaxAttempts: maxAttempts, BaseDelay: time.Millisecond}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	out, err := Do(context.Background(), fastCfg(3), "op", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", Transient(errors.New("timeout"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentFailureDoesNotRetry(t *testing.T) {
	t.Parallel()

	permanent := errors.New("bad request")
	calls := 0
	_, err := Do(context.Background(), fastCfg(5), "op", func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustionReturnsLastError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Do(context.Background(), fastCfg(3), "op", func(context.Context) (int, error) {
		calls++
		return 0, Transient(errors.New("still down"))
	})

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, calls)
	assert.EqualError(t, err, "still down")
}

func TestDo_ContextCancellationStopsRetrying(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Config{MaxAttempts: 10, BaseDelay: time.Hour}, "op", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, Transient(errors.New("timeout"))
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestTransient_Marking(t *testing.T) {
	t.Parallel()

	base := errors.New("dial tcp: i/o timeout")
	marked := Transient(base)

	assert.True(t, IsTransient(marked))
	assert.False(t, IsTransient(base))
	assert.ErrorIs(t, marked, base)
	assert.Nil(t, Transient(nil))
}

func TestConfig_Normalize(t *testing.T) {
	t.Parallel()

	cfg := Config{}.Normalize()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
}
