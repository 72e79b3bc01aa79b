package channel_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/channel"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want channel.Classification
	}{
		{
			name: "nil error",
			err:  nil,
			want: channel.ClassDelivered,
		},
		{
			name: "rate limited",
			err:  channel.ErrRateLimited,
			want: channel.ClassRateLimited,
		},
		{
			name: "validation",
			err:  fmt.Errorf("%w: empty recipient", channel.ErrValidation),
			want: channel.ClassPermanent,
		},
		{
			name: "permanent provider",
			err:  errors.Join(channel.ErrPermanentProvider, errors.New("inactive recipient")),
			want: channel.ClassPermanent,
		},
		{
			name: "transient provider",
			err:  errors.Join(channel.ErrTransientProvider, errors.New("service unavailable")),
			want: channel.ClassTransient,
		},
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: channel.ClassTimeout,
		},
		{
			name: "cancelled",
			err:  fmt.Errorf("waiting for retry: %w", context.Canceled),
			want: channel.ClassTimeout,
		},
		{
			name: "untagged error stays retryable",
			err:  errors.New("connection reset by peer"),
			want: channel.ClassTransient,
		},
		{
			name: "rate limited wins over other tags",
			err:  errors.Join(channel.ErrRateLimited, channel.ErrTransientProvider),
			want: channel.ClassRateLimited,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, channel.Classify(tt.err))
		})
	}
}

func TestClassification_Retryable(t *testing.T) {
	t.Parallel()

	assert.True(t, channel.ClassTransient.Retryable())
	assert.False(t, channel.ClassDelivered.Retryable())
	assert.False(t, channel.ClassPermanent.Retryable())
	assert.False(t, channel.ClassRateLimited.Retryable())
	assert.False(t, channel.ClassTimeout.Retryable())
}
