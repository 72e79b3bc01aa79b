package sms_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/ratelimit"
	"github.com/dmitrymomot/notifykit/pkg/secrets"
	"github.com/dmitrymomot/notifykit/pkg/sms"
)

type fakeProvider struct {
	calls   atomic.Int32
	respond func(to, body string) (sms.SendResult, error)
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) SendSMS(_ context.Context, to, body string) (sms.SendResult, error) {
	f.calls.Add(1)
	if f.respond == nil {
		return sms.SendResult{MessageID: "sm-1"}, nil
	}
	return f.respond(to, body)
}

func testNotification(t *testing.T, typ notification.Type) notification.Notification {
	t.Helper()
	n, err := notification.New("user-1", typ, "Alert", "Something happened")
	require.NoError(t, err)
	return *n
}

func newSender(t *testing.T, p sms.Provider, opts ...sms.Option) *sms.Sender {
	t.Helper()
	s, err := sms.NewSender(p, opts...)
	require.NoError(t, err)
	return s
}

const phone = "+15551234567"

func TestNewSender_Validation(t *testing.T) {
	t.Parallel()

	t.Run("nil provider", func(t *testing.T) {
		t.Parallel()
		_, err := sms.NewSender(nil)
		require.ErrorIs(t, err, sms.ErrProviderRequired)
	})

	t.Run("short encryption key", func(t *testing.T) {
		t.Parallel()
		_, err := sms.NewSender(&fakeProvider{}, sms.WithEncryptionKey([]byte("short")))
		require.ErrorIs(t, err, sms.ErrInvalidConfig)
	})

	t.Run("invalid type limit", func(t *testing.T) {
		t.Parallel()
		_, err := sms.NewSender(&fakeProvider{},
			sms.WithTypeLimit(notification.TypeMarketing, 0, time.Hour))
		require.ErrorIs(t, err, sms.ErrInvalidConfig)
	})

	t.Run("invalid default limit", func(t *testing.T) {
		t.Parallel()
		_, err := sms.NewSender(&fakeProvider{}, sms.WithDefaultLimit(5, 0))
		require.ErrorIs(t, err, sms.ErrInvalidConfig)
	})
}

func TestSender_Channel(t *testing.T) {
	t.Parallel()

	s := newSender(t, &fakeProvider{})
	assert.Equal(t, channel.SMS, s.Channel())
}

func TestSender_Send_Success(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	s := newSender(t, p)

	out := s.Send(context.Background(), testNotification(t, notification.TypeTransactionAlert),
		channel.Destination{PhoneNumber: phone})

	assert.True(t, out.Success)
	assert.Equal(t, channel.ClassDelivered, out.Classification)
	assert.Equal(t, channel.SMS, out.Channel)
	assert.Equal(t, "sm-1", out.ProviderMessageID)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestSender_Send_InvalidPhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		phone string
	}{
		{name: "empty", phone: ""},
		{name: "no plus", phone: "15551234567"},
		{name: "leading zero", phone: "+05551234567"},
		{name: "letters", phone: "+1555CALLNOW"},
		{name: "too short", phone: "+1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &fakeProvider{}
			s := newSender(t, p)

			out := s.Send(context.Background(), testNotification(t, notification.TypeSystemUpdate),
				channel.Destination{PhoneNumber: tt.phone})

			assert.False(t, out.Success)
			assert.Equal(t, channel.ClassPermanent, out.Classification)
			assert.ErrorIs(t, out.Err, channel.ErrValidation)
			assert.Equal(t, int32(0), p.calls.Load())
		})
	}
}

func TestSender_Send_PerTypeLimits(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	s := newSender(t, p)
	dest := channel.Destination{PhoneNumber: phone}

	// Security alerts allow 3 per 5 minutes.
	for i := 0; i < 3; i++ {
		out := s.Send(context.Background(), testNotification(t, notification.TypeSecurityAlert), dest)
		require.True(t, out.Success, "security alert %d should pass", i+1)
	}

	denied := s.Send(context.Background(), testNotification(t, notification.TypeSecurityAlert), dest)
	assert.False(t, denied.Success)
	assert.Equal(t, channel.ClassRateLimited, denied.Classification)
	assert.ErrorIs(t, denied.Err, channel.ErrRateLimited)
	assert.Equal(t, int32(3), p.calls.Load(), "denied sends must not reach the provider")

	// A different type for the same number has its own budget.
	marketing := s.Send(context.Background(), testNotification(t, notification.TypeMarketing), dest)
	assert.True(t, marketing.Success)
}

func TestSender_Send_DefaultLimitForUnlistedTypes(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	s := newSender(t, p, sms.WithDefaultLimit(1, time.Hour))
	dest := channel.Destination{PhoneNumber: phone}

	first := s.Send(context.Background(), testNotification(t, notification.TypeSystemUpdate), dest)
	require.True(t, first.Success)

	second := s.Send(context.Background(), testNotification(t, notification.TypeSystemUpdate), dest)
	assert.Equal(t, channel.ClassRateLimited, second.Classification)
}

func TestSender_Send_ConfidentialEncryption(t *testing.T) {
	t.Parallel()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	var captured string
	p := &fakeProvider{}
	p.respond = func(_, body string) (sms.SendResult, error) {
		captured = body
		return sms.SendResult{MessageID: "sm-1"}, nil
	}
	s := newSender(t, p, sms.WithEncryptionKey(key))

	t.Run("confidential body is sealed", func(t *testing.T) {
		n := testNotification(t, notification.TypeSecurityAlert)
		out := s.Send(context.Background(), n, channel.Destination{PhoneNumber: phone})
		require.True(t, out.Success)

		require.NotEmpty(t, captured)
		assert.NotEqual(t, n.Message, captured)

		plain, err := secrets.DecryptForRecipient(key, n.UserID, captured)
		require.NoError(t, err)
		assert.Equal(t, n.Message, plain)
	})

	t.Run("other types stay plaintext", func(t *testing.T) {
		n := testNotification(t, notification.TypeMiningUpdate)
		out := s.Send(context.Background(), n, channel.Destination{PhoneNumber: phone})
		require.True(t, out.Success)
		assert.Equal(t, n.Message, captured)
	})
}

func TestSender_Send_ConfidentialWithoutKey(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	s := newSender(t, p)

	out := s.Send(context.Background(), testNotification(t, notification.TypeSecurityAlert),
		channel.Destination{PhoneNumber: phone})

	assert.False(t, out.Success)
	assert.Equal(t, channel.ClassPermanent, out.Classification)
	assert.ErrorIs(t, out.Err, sms.ErrEncryptionKeyRequired)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestSender_Send_RejectionClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		code      int
		wantClass channel.Classification
		wantCalls int32
	}{
		{name: "invalid number is permanent", code: 21211, wantClass: channel.ClassPermanent, wantCalls: 1},
		{name: "opted out is permanent", code: 21610, wantClass: channel.ClassPermanent, wantCalls: 1},
		{name: "throttled is rate limited", code: 20429, wantClass: channel.ClassRateLimited, wantCalls: 1},
		{name: "unknown code is transient and retried", code: 30001, wantClass: channel.ClassTransient, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &fakeProvider{}
			p.respond = func(string, string) (sms.SendResult, error) {
				return sms.SendResult{}, &sms.RejectionError{Code: tt.code, Reason: "rejected"}
			}
			s := newSender(t, p, sms.WithBackoff(channel.FixedBackoff{Interval: time.Millisecond}))

			out := s.Send(context.Background(), testNotification(t, notification.TypeMiningUpdate),
				channel.Destination{PhoneNumber: phone})

			assert.False(t, out.Success)
			assert.Equal(t, tt.wantClass, out.Classification)
			assert.Equal(t, tt.wantCalls, p.calls.Load())

			var rej *sms.RejectionError
			require.ErrorAs(t, out.Err, &rej)
			assert.Equal(t, tt.code, rej.Code)
		})
	}
}

func TestSender_Send_RetriesTransportError(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	var attempt atomic.Int32
	p.respond = func(string, string) (sms.SendResult, error) {
		if attempt.Add(1) == 1 {
			return sms.SendResult{}, errors.New("connection reset")
		}
		return sms.SendResult{MessageID: "sm-2"}, nil
	}
	s := newSender(t, p, sms.WithBackoff(channel.FixedBackoff{Interval: time.Millisecond}))

	out := s.Send(context.Background(), testNotification(t, notification.TypeSystemUpdate),
		channel.Destination{PhoneNumber: phone})

	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "sm-2", out.ProviderMessageID)
}

func TestSender_Send_AttemptBudget(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	p.respond = func(string, string) (sms.SendResult, error) {
		return sms.SendResult{}, errors.New("gateway flapping")
	}
	s := newSender(t, p, sms.WithBackoff(channel.FixedBackoff{Interval: time.Millisecond}))

	out := s.Send(context.Background(), testNotification(t, notification.TypeSystemUpdate),
		channel.Destination{PhoneNumber: phone})

	assert.False(t, out.Success)
	assert.Equal(t, channel.ClassTransient, out.Classification)
	assert.Equal(t, 2, out.Attempts, "default budget is two attempts")
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestSender_Send_LimiterStoreFailsClosed(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	s := newSender(t, p, sms.WithRateLimitStore(failingStore{}))

	out := s.Send(context.Background(), testNotification(t, notification.TypeSystemUpdate),
		channel.Destination{PhoneNumber: phone})

	assert.False(t, out.Success)
	assert.Equal(t, channel.ClassTransient, out.Classification)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestValidPhoneNumber(t *testing.T) {
	t.Parallel()

	assert.True(t, sms.ValidPhoneNumber("+15551234567"))
	assert.True(t, sms.ValidPhoneNumber("+491701234567"))
	assert.False(t, sms.ValidPhoneNumber("+1 555 1234"))
	assert.False(t, sms.ValidPhoneNumber(fmt.Sprintf("+%s", "123456789012345678")))
}

// failingStore simulates an unreachable shared rate limit store.
type failingStore struct{}

func (failingStore) TakeIfAllowed(context.Context, string, time.Time, ratelimit.Policy) (bool, int64, error) {
	return false, 0, errors.New("store down")
}

func (failingStore) CountInWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("store down")
}
