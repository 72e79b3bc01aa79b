package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func mustNotification(t *testing.T, userID string, typ notification.Type) *notification.Notification {
	t.Helper()
	n, err := notification.New(userID, typ, "title", "message")
	require.NoError(t, err)
	return n
}

func TestMemoryStorage_CreateGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	n := mustNotification(t, "user-1", notification.TypeTransactionAlert)

	require.NoError(t, store.Create(ctx, *n))

	got, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, notification.StatusPending, got.Status)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, notification.ErrNotFound)
}

func TestMemoryStorage_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	n := mustNotification(t, "user-1", notification.TypeSecurityAlert)
	n.Metadata = map[string]any{"device": "ios"}
	require.NoError(t, store.Create(ctx, *n))

	first, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	first.Metadata["device"] = "tampered"
	first.Status = notification.StatusFailed

	second, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "ios", second.Metadata["device"])
	assert.Equal(t, notification.StatusPending, second.Status)
}

func TestMemoryStorage_Update(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()
	n := mustNotification(t, "user-1", notification.TypeMiningUpdate)
	require.NoError(t, store.Create(ctx, *n))

	require.NoError(t, n.UpdateStatus(notification.StatusSent,
		notification.WithDeliveryInfo(map[string]any{"push": "sent"})))
	require.NoError(t, store.Update(ctx, *n))

	got, err := store.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, got.Status)
	assert.NotNil(t, got.SentAt)
	assert.Equal(t, "sent", got.DeliveryInfo["push"])

	missing := mustNotification(t, "user-2", notification.TypeMarketing)
	assert.ErrorIs(t, store.Update(ctx, *missing), notification.ErrNotFound)
}

func TestMemoryStorage_ListByUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()

	var created []*notification.Notification
	for _, typ := range []notification.Type{
		notification.TypeTransactionAlert,
		notification.TypeSecurityAlert,
		notification.TypeMarketing,
	} {
		n := mustNotification(t, "user-1", typ)
		require.NoError(t, store.Create(ctx, *n))
		created = append(created, n)
	}
	other := mustNotification(t, "user-2", notification.TypeTransactionAlert)
	require.NoError(t, store.Create(ctx, *other))

	t.Run("all for user", func(t *testing.T) {
		list, err := store.ListByUser(ctx, "user-1", notification.ListOptions{})
		require.NoError(t, err)
		assert.Len(t, list, 3)
	})

	t.Run("filter by type", func(t *testing.T) {
		list, err := store.ListByUser(ctx, "user-1", notification.ListOptions{
			Types: []notification.Type{notification.TypeSecurityAlert},
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, notification.TypeSecurityAlert, list[0].Type)
	})

	t.Run("filter by status", func(t *testing.T) {
		n := created[0]
		require.NoError(t, n.UpdateStatus(notification.StatusFailed, notification.WithError("boom")))
		require.NoError(t, store.Update(ctx, *n))

		list, err := store.ListByUser(ctx, "user-1", notification.ListOptions{
			Statuses: []notification.Status{notification.StatusFailed},
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, n.ID, list[0].ID)
	})

	t.Run("since filter", func(t *testing.T) {
		future := time.Now().UTC().Add(time.Hour)
		list, err := store.ListByUser(ctx, "user-1", notification.ListOptions{Since: &future})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("pagination", func(t *testing.T) {
		list, err := store.ListByUser(ctx, "user-1", notification.ListOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, list, 2)

		list, err = store.ListByUser(ctx, "user-1", notification.ListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, list, 1)

		list, err = store.ListByUser(ctx, "user-1", notification.ListOptions{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("unknown user", func(t *testing.T) {
		list, err := store.ListByUser(ctx, "nobody", notification.ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestMemoryStorage_CountByStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := notification.NewMemoryStorage()

	for i := 0; i < 3; i++ {
		n := mustNotification(t, "user-1", notification.TypeSystemUpdate)
		require.NoError(t, store.Create(ctx, *n))
	}
	n := mustNotification(t, "user-1", notification.TypeSystemUpdate)
	require.NoError(t, n.UpdateStatus(notification.StatusSent))
	require.NoError(t, store.Create(ctx, *n))

	pending, err := store.CountByStatus(ctx, "user-1", notification.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	sent, err := store.CountByStatus(ctx, "user-1", notification.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}
