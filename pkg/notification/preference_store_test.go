package notification_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func TestMemoryPreferenceStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown user returns ErrPreferenceNotFound", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryPreferenceStore()
		_, err := store.Preference(ctx, "nobody")
		assert.ErrorIs(t, err, notification.ErrPreferenceNotFound)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryPreferenceStore()
		p := notification.NewPreference("user-1")
		p.MarketingNotifications = true
		require.NoError(t, store.SavePreference(ctx, p))

		got, err := store.Preference(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})

	t.Run("save replaces existing preferences", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryPreferenceStore()
		require.NoError(t, store.SavePreference(ctx, notification.NewPreference("user-1")))

		updated := notification.NewPreference("user-1")
		updated.SecurityAlerts = false
		require.NoError(t, store.SavePreference(ctx, updated))

		got, err := store.Preference(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, got.SecurityAlerts)
	})

	t.Run("reads are isolated from caller mutation", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryPreferenceStore()
		require.NoError(t, store.SavePreference(ctx, notification.NewPreference("user-1")))

		first, err := store.Preference(ctx, "user-1")
		require.NoError(t, err)
		first.ChannelPreferences[notification.ChannelSMS] = true
		first.TypeChannelMatrix[notification.TypeMarketing][notification.ChannelSMS] = true

		second, err := store.Preference(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, second.ChannelPreferences[notification.ChannelSMS])
		assert.False(t, second.TypeChannelMatrix[notification.TypeMarketing][notification.ChannelSMS])
	})

	t.Run("rejects nil and missing user id", func(t *testing.T) {
		t.Parallel()

		store := notification.NewMemoryPreferenceStore()
		assert.ErrorIs(t, store.SavePreference(ctx, nil), notification.ErrUserIDRequired)
		assert.ErrorIs(t, store.SavePreference(ctx, &notification.Preference{}), notification.ErrUserIDRequired)
	})
}

func TestPreference_Clone(t *testing.T) {
	t.Parallel()

	var nilPref *notification.Preference
	assert.Nil(t, nilPref.Clone())

	p := notification.NewPreference("user-1")
	c := p.Clone()
	require.Equal(t, p, c)

	c.ChannelPreferences[notification.ChannelSMS] = true
	c.TypeChannelMatrix[notification.TypeSecurityAlert][notification.ChannelPush] = false
	assert.False(t, p.ChannelPreferences[notification.ChannelSMS])
	assert.True(t, p.TypeChannelMatrix[notification.TypeSecurityAlert][notification.ChannelPush])
}
