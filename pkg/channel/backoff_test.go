package channel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	t.Run("doubles without jitter", func(t *testing.T) {
		t.Parallel()

		b := channel.ExponentialBackoff{
			Initial:    time.Second,
			Max:        30 * time.Second,
			Multiplier: 2,
		}

		assert.Equal(t, time.Second, b.NextInterval(1))
		assert.Equal(t, 2*time.Second, b.NextInterval(2))
		assert.Equal(t, 4*time.Second, b.NextInterval(3))
		assert.Equal(t, 8*time.Second, b.NextInterval(4))
	})

	t.Run("caps at max", func(t *testing.T) {
		t.Parallel()

		b := channel.ExponentialBackoff{
			Initial:    time.Second,
			Max:        5 * time.Second,
			Multiplier: 2,
		}

		assert.Equal(t, 5*time.Second, b.NextInterval(10))
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		t.Parallel()

		b := channel.ExponentialBackoff{
			Initial:    time.Second,
			Max:        time.Minute,
			Multiplier: 2,
			Jitter:     0.1,
		}

		for i := 0; i < 100; i++ {
			d := b.NextInterval(2)
			assert.GreaterOrEqual(t, d, 1800*time.Millisecond)
			assert.LessOrEqual(t, d, 2200*time.Millisecond)
		}
	})

	t.Run("zero fields use defaults", func(t *testing.T) {
		t.Parallel()

		b := channel.ExponentialBackoff{}

		assert.Equal(t, time.Second, b.NextInterval(1))
		assert.Equal(t, 30*time.Second, b.NextInterval(10))
	})

	t.Run("non-positive attempt", func(t *testing.T) {
		t.Parallel()

		b := channel.ExponentialBackoff{Initial: time.Second}
		assert.Zero(t, b.NextInterval(0))
		assert.Zero(t, b.NextInterval(-1))
	})
}

func TestLinearBackoff(t *testing.T) {
	t.Parallel()

	b := channel.LinearBackoff{Interval: time.Second, Max: 10 * time.Second}

	assert.Zero(t, b.NextInterval(0))
	assert.Equal(t, time.Second, b.NextInterval(1))
	assert.Equal(t, 2*time.Second, b.NextInterval(2))
	assert.Equal(t, 3*time.Second, b.NextInterval(3))
	assert.Equal(t, 10*time.Second, b.NextInterval(100))
}

func TestFixedBackoff(t *testing.T) {
	t.Parallel()

	b := channel.FixedBackoff{Interval: 2 * time.Second}

	assert.Zero(t, b.NextInterval(0))
	assert.Equal(t, 2*time.Second, b.NextInterval(1))
	assert.Equal(t, 2*time.Second, b.NextInterval(5))
}

func TestDefaultBackoff(t *testing.T) {
	t.Parallel()

	b := channel.DefaultBackoff()

	d := b.NextInterval(1)
	assert.GreaterOrEqual(t, d, 900*time.Millisecond)
	assert.LessOrEqual(t, d, 1100*time.Millisecond)
}
