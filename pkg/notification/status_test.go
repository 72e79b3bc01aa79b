package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func TestValidateTransition(t *testing.T) {
	t.Parallel()

	allowed := map[notification.Status][]notification.Status{
		notification.StatusPending:   {notification.StatusSent, notification.StatusFailed},
		notification.StatusSent:      {notification.StatusDelivered, notification.StatusFailed},
		notification.StatusDelivered: {notification.StatusRead, notification.StatusFailed},
		notification.StatusRead:      {notification.StatusFailed},
		notification.StatusFailed:    {},
	}

	all := []notification.Status{
		notification.StatusPending,
		notification.StatusSent,
		notification.StatusDelivered,
		notification.StatusRead,
		notification.StatusFailed,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
					break
				}
			}
			got := notification.ValidateTransition(from, to)
			assert.Equal(t, want, got, "transition %s -> %s", from, to)
		}
	}

	t.Run("unknown statuses rejected", func(t *testing.T) {
		assert.False(t, notification.ValidateTransition("bogus", notification.StatusSent))
		assert.False(t, notification.ValidateTransition(notification.StatusPending, "bogus"))
	})

	t.Run("failed is terminal", func(t *testing.T) {
		assert.True(t, notification.StatusFailed.Terminal())
		assert.False(t, notification.StatusPending.Terminal())
	})
}

func TestNotification_UpdateStatus(t *testing.T) {
	t.Parallel()

	newNotification := func(t *testing.T) *notification.Notification {
		t.Helper()
		n, err := notification.New("user-1", notification.TypeTransactionAlert, "Payment received", "You received 25.00 USD")
		require.NoError(t, err)
		return n
	}

	t.Run("pending to sent stamps sent_at", func(t *testing.T) {
		t.Parallel()
		n := newNotification(t)

		err := n.UpdateStatus(notification.StatusSent)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, n.Status)
		require.NotNil(t, n.SentAt)
		assert.WithinDuration(t, time.Now().UTC(), *n.SentAt, time.Second)
		assert.Nil(t, n.DeliveredAt)
	})

	t.Run("sent to delivered stamps delivered_at", func(t *testing.T) {
		t.Parallel()
		n := newNotification(t)
		require.NoError(t, n.UpdateStatus(notification.StatusSent))

		err := n.UpdateStatus(notification.StatusDelivered)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusDelivered, n.Status)
		require.NotNil(t, n.DeliveredAt)
	})

	t.Run("failure records error message", func(t *testing.T) {
		t.Parallel()
		n := newNotification(t)

		err := n.UpdateStatus(notification.StatusFailed, notification.WithError("all channels failed"))
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, n.Status)
		assert.Equal(t, "all channels failed", n.ErrorMessage)
	})

	t.Run("pending to delivered rejected", func(t *testing.T) {
		t.Parallel()
		n := newNotification(t)

		err := n.UpdateStatus(notification.StatusDelivered)
		require.Error(t, err)
		assert.True(t, notification.IsInvalidTransition(err))

		var te *notification.InvalidTransitionError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, notification.StatusPending, te.From)
		assert.Equal(t, notification.StatusDelivered, te.To)
	})

	t.Run("invalid transition leaves entity unchanged", func(t *testing.T) {
		t.Parallel()
		n := newNotification(t)
		require.NoError(t, n.UpdateStatus(notification.StatusSent,
			notification.WithDeliveryInfo(map[string]any{"provider": "postmark"})))
		before := n.Clone()

		err := n.UpdateStatus(notification.StatusRead,
			notification.WithError("should not stick"),
			notification.WithDeliveryInfo(map[string]any{"poison": true}))
		require.Error(t, err)

		assert.Equal(t, before.Status, n.Status)
		assert.Equal(t, before.SentAt, n.SentAt)
		assert.Empty(t, n.ErrorMessage)
		assert.Equal(t, before.DeliveryInfo, n.DeliveryInfo)
		assert.NotContains(t, n.DeliveryInfo, "poison")
	})

	t.Run("failed is terminal", func(t *testing.T) {
		t.Parallel()
		n := newNotification(t)
		require.NoError(t, n.UpdateStatus(notification.StatusFailed, notification.WithError("boom")))

		for _, next := range []notification.Status{
			notification.StatusSent,
			notification.StatusDelivered,
			notification.StatusRead,
			notification.StatusFailed,
		} {
			err := n.UpdateStatus(next)
			assert.True(t, notification.IsInvalidTransition(err), "failed -> %s must be rejected", next)
		}
	})

	t.Run("delivery info merges key-wise", func(t *testing.T) {
		t.Parallel()
		n := newNotification(t)

		require.NoError(t, n.UpdateStatus(notification.StatusSent,
			notification.WithDeliveryInfo(map[string]any{"push": "sent", "email": "sent"})))
		require.NoError(t, n.UpdateStatus(notification.StatusDelivered,
			notification.WithDeliveryInfo(map[string]any{"email": "delivered"})))

		assert.Equal(t, "sent", n.DeliveryInfo["push"], "untouched keys must survive")
		assert.Equal(t, "delivered", n.DeliveryInfo["email"])
	})
}

func TestNotification_MarkAsRead(t *testing.T) {
	t.Parallel()

	n, err := notification.New("user-1", notification.TypeSecurityAlert, "New sign-in", "A new device signed in")
	require.NoError(t, err)

	t.Run("pending cannot be read", func(t *testing.T) {
		err := n.MarkAsRead()
		assert.True(t, notification.IsInvalidTransition(err))
		assert.Nil(t, n.ReadAt)
	})

	t.Run("delivered can be read", func(t *testing.T) {
		require.NoError(t, n.UpdateStatus(notification.StatusSent))
		require.NoError(t, n.UpdateStatus(notification.StatusDelivered))

		require.NoError(t, n.MarkAsRead())
		assert.Equal(t, notification.StatusRead, n.Status)
		require.NotNil(t, n.ReadAt)
		assert.Contains(t, n.DeliveryInfo, "read_timestamp")
	})
}
