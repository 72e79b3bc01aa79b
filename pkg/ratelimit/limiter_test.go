package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
)

func newLimiter(t *testing.T, limit int, window time.Duration, opts ...ratelimit.Option) *ratelimit.SlidingWindow {
	t.Helper()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)

	limiter, err := ratelimit.NewSlidingWindow(store, limit, window, opts...)
	require.NoError(t, err)
	return limiter
}

func TestNewSlidingWindow_Validation(t *testing.T) {
	t.Parallel()

	store := ratelimit.NewMemoryStore()
	t.Cleanup(store.Close)

	tests := []struct {
		name    string
		store   ratelimit.Store
		limit   int
		window  time.Duration
		opts    []ratelimit.Option
		wantErr error
	}{
		{
			name:    "nil store",
			store:   nil,
			limit:   5,
			window:  time.Minute,
			wantErr: ratelimit.ErrStoreRequired,
		},
		{
			name:    "zero limit",
			store:   store,
			limit:   0,
			window:  time.Minute,
			wantErr: ratelimit.ErrInvalidLimit,
		},
		{
			name:    "negative limit",
			store:   store,
			limit:   -1,
			window:  time.Minute,
			wantErr: ratelimit.ErrInvalidLimit,
		},
		{
			name:    "zero window",
			store:   store,
			limit:   5,
			window:  0,
			wantErr: ratelimit.ErrInvalidInterval,
		},
		{
			name:    "zero burst limit",
			store:   store,
			limit:   5,
			window:  time.Minute,
			opts:    []ratelimit.Option{ratelimit.WithBurst(0, time.Second)},
			wantErr: ratelimit.ErrInvalidBurst,
		},
		{
			name:    "burst window equals main window",
			store:   store,
			limit:   5,
			window:  time.Minute,
			opts:    []ratelimit.Option{ratelimit.WithBurst(2, time.Minute)},
			wantErr: ratelimit.ErrInvalidBurst,
		},
		{
			name:    "burst window longer than main window",
			store:   store,
			limit:   5,
			window:  time.Minute,
			opts:    []ratelimit.Option{ratelimit.WithBurst(2, time.Hour)},
			wantErr: ratelimit.ErrInvalidBurst,
		},
		{
			name:   "valid",
			store:  store,
			limit:  5,
			window: time.Minute,
		},
		{
			name:   "valid with burst",
			store:  store,
			limit:  20,
			window: time.Hour,
			opts:   []ratelimit.Option{ratelimit.WithBurst(5, time.Minute)},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limiter, err := ratelimit.NewSlidingWindow(tt.store, tt.limit, tt.window, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, limiter)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, limiter)
		})
	}
}

func TestSlidingWindow_Allow(t *testing.T) {
	t.Parallel()

	t.Run("denies after limit reached", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, 5, time.Minute)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			res, err := limiter.Allow(ctx, "user-1")
			require.NoError(t, err)
			assert.True(t, res.Allowed, "acquire %d should be admitted", i+1)
		}

		res, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, 5, res.Limit)
		assert.Equal(t, 0, res.Remaining)
		assert.Positive(t, res.RetryAfter())
	})

	t.Run("window slides", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, 2, 100*time.Millisecond)
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			res, err := limiter.Allow(ctx, "user-1")
			require.NoError(t, err)
			require.True(t, res.Allowed)
		}

		res, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		time.Sleep(150 * time.Millisecond)

		res, err = limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "events outside the window must not count")
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, 1, time.Minute)
		ctx := context.Background()

		res, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, res.Allowed)

		res, err = limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		res, err = limiter.Allow(ctx, "user-2")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "another key must have its own budget")
	})

	t.Run("burst guard denies inside a roomy window", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, 10, time.Minute, ratelimit.WithBurst(3, 100*time.Millisecond))
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			res, err := limiter.Allow(ctx, "user-1")
			require.NoError(t, err)
			require.True(t, res.Allowed)
		}

		res, err := limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, res.Allowed, "burst limit must deny even with main capacity left")

		time.Sleep(150 * time.Millisecond)

		res, err = limiter.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "burst window slid past, main window still has room")
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		limiter := newLimiter(t, 5, time.Minute)

		_, err := limiter.Allow(context.Background(), "")
		require.ErrorIs(t, err, ratelimit.ErrKeyRequired)
	})
}

func TestSlidingWindow_Status(t *testing.T) {
	t.Parallel()

	limiter := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	res, err := limiter.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 3, res.Remaining)

	_, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)

	// Status reads without consuming, so repeated calls report the same state.
	for i := 0; i < 3; i++ {
		res, err = limiter.Status(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	}

	_, err = limiter.Status(ctx, "")
	require.ErrorIs(t, err, ratelimit.ErrKeyRequired)
}

func TestSlidingWindow_Reset(t *testing.T) {
	t.Parallel()

	limiter := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	res, err := limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	require.NoError(t, limiter.Reset(ctx, "user-1"))

	res, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	require.ErrorIs(t, limiter.Reset(ctx, ""), ratelimit.ErrKeyRequired)
}

func TestSlidingWindow_Concurrency(t *testing.T) {
	t.Parallel()

	const (
		limit    = 50
		attempts = 200
	)

	limiter := newLimiter(t, limit, time.Minute)
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Allow(ctx, "shared")
			if err == nil && res.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, limit, admitted.Load(), "concurrent racers must admit exactly the limit")
}

func TestResult_RetryAfter(t *testing.T) {
	t.Parallel()

	past := ratelimit.Result{ResetAt: time.Now().Add(-time.Second)}
	assert.Zero(t, past.RetryAfter())

	future := ratelimit.Result{ResetAt: time.Now().Add(time.Minute)}
	assert.Positive(t, future.RetryAfter())
}
