package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/email"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := email.Config{
		SenderEmail:  "noreply@example.com",
		SupportEmail: "support@example.com",
	}

	tests := []struct {
		name    string
		mutate  func(*email.Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*email.Config) {}},
		{
			name:    "missing sender",
			mutate:  func(c *email.Config) { c.SenderEmail = "" },
			wantErr: true,
		},
		{
			name:    "malformed sender",
			mutate:  func(c *email.Config) { c.SenderEmail = "noreply@" },
			wantErr: true,
		},
		{
			name:    "missing support",
			mutate:  func(c *email.Config) { c.SupportEmail = "" },
			wantErr: true,
		},
		{
			name:    "malformed support",
			mutate:  func(c *email.Config) { c.SupportEmail = "support at example" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, email.ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewPostmarkProvider_RequiresTokens(t *testing.T) {
	t.Parallel()

	cfg := email.Config{
		SenderEmail:  "noreply@example.com",
		SupportEmail: "support@example.com",
	}

	_, err := email.NewPostmarkProvider(cfg)
	require.ErrorIs(t, err, email.ErrInvalidConfig)

	cfg.PostmarkServerToken = "server-token"
	_, err = email.NewPostmarkProvider(cfg)
	require.ErrorIs(t, err, email.ErrInvalidConfig)

	cfg.PostmarkAccountToken = "account-token"
	p, err := email.NewPostmarkProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "postmark", p.Name())
}

func TestNewSMTPProvider_RequiresHost(t *testing.T) {
	t.Parallel()

	cfg := email.Config{
		SenderEmail:  "noreply@example.com",
		SupportEmail: "support@example.com",
	}

	_, err := email.NewSMTPProvider(cfg)
	require.ErrorIs(t, err, email.ErrInvalidConfig)

	cfg.SMTPHost = "smtp.example.com"
	p, err := email.NewSMTPProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "smtp", p.Name())
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	valid := email.Message{
		To:       "user@example.com",
		Subject:  "Subject",
		BodyHTML: "<p>body</p>",
	}

	tests := []struct {
		name   string
		mutate func(*email.Message)
		ok     bool
	}{
		{name: "valid", mutate: func(*email.Message) {}, ok: true},
		{name: "empty recipient", mutate: func(m *email.Message) { m.To = "" }},
		{name: "malformed recipient", mutate: func(m *email.Message) { m.To = "user@host" }},
		{name: "empty subject", mutate: func(m *email.Message) { m.Subject = "" }},
		{name: "empty body", mutate: func(m *email.Message) { m.BodyHTML = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg := valid
			tt.mutate(&msg)

			err := msg.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, channel.ErrValidation)
			}
		})
	}
}
