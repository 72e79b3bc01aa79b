package metrics_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/internal/metrics"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
)

func TestRecorderDeliveryCompleted(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	n, err := notification.New("user-1", notification.TypeSecurityAlert, "Login", "New login detected")
	require.NoError(t, err)

	outcomes := []channel.Outcome{
		channel.Delivered(channel.Push, "fcm-1", 1),
		channel.TransientFailure(channel.Email, errors.New("503"), 3),
		channel.RateLimitedOutcome(channel.SMS, errors.New("window exhausted")),
	}
	outcomes[0].Duration = 120 * time.Millisecond
	outcomes[1].Duration = 2 * time.Second

	rec.DeliveryCompleted(context.Background(), *n, outcomes)

	expected := `
# HELP notifications_sent_total Number of notifications accepted by a channel provider
# TYPE notifications_sent_total counter
notifications_sent_total{channel="push",type="security_alert"} 1
# HELP notifications_failed_total Number of notifications a channel failed to deliver
# TYPE notifications_failed_total counter
notifications_failed_total{channel="email",type="security_alert"} 1
notifications_failed_total{channel="sms",type="security_alert"} 1
# HELP rate_limited_total Number of sends denied by admission control
# TYPE rate_limited_total counter
rate_limited_total{channel="sms"} 1
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"notifications_sent_total",
		"notifications_failed_total",
		"rate_limited_total",
	)
	assert.NoError(t, err)

	// Every outcome observes the duration histogram, success or not.
	count, err := testutil.GatherAndCount(reg, "delivery_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRecorderAccumulates(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	n, err := notification.New("user-2", notification.TypeMarketing, "Sale", "50% off")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rec.DeliveryCompleted(context.Background(), *n, []channel.Outcome{
			channel.Delivered(channel.Email, "pm-1", 1),
		})
	}

	expected := `
# HELP notifications_sent_total Number of notifications accepted by a channel provider
# TYPE notifications_sent_total counter
notifications_sent_total{channel="email",type="marketing"} 3
`
	err = testutil.GatherAndCompare(reg, strings.NewReader(expected), "notifications_sent_total")
	assert.NoError(t, err)
}

func TestRecorderEmptyOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	rec := metrics.NewRecorder(reg)

	n, err := notification.New("user-3", notification.TypeSystemUpdate, "Maintenance", "Scheduled downtime")
	require.NoError(t, err)

	rec.DeliveryCompleted(context.Background(), *n, nil)

	count, err := testutil.GatherAndCount(reg,
		"notifications_sent_total",
		"notifications_failed_total",
		"rate_limited_total",
		"delivery_duration_seconds",
	)
	require.NoError(t, err)
	assert.Zero(t, count)
}
