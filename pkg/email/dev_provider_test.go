package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/email"
)

func TestDevProvider_SendEmail(t *testing.T) {
	t.Parallel()

	t.Run("writes html and metadata", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := email.NewDevProvider(dir)

		id, err := p.SendEmail(context.Background(), email.Message{
			To:       "user@example.com",
			Subject:  "Security Alert",
			BodyHTML: "<h1>New login</h1>",
			Tag:      "security_alert",
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		var htmlPath, jsonPath string
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case ".html":
				htmlPath = filepath.Join(dir, e.Name())
			case ".json":
				jsonPath = filepath.Join(dir, e.Name())
			}
			assert.Contains(t, e.Name(), "security_alert")
		}
		require.NotEmpty(t, htmlPath)
		require.NotEmpty(t, jsonPath)

		body, err := os.ReadFile(htmlPath)
		require.NoError(t, err)
		assert.Equal(t, "<h1>New login</h1>", string(body))

		raw, err := os.ReadFile(jsonPath)
		require.NoError(t, err)
		var meta map[string]string
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, id, meta["message_id"])
		assert.Equal(t, "user@example.com", meta["to"])
		assert.Equal(t, "Security Alert", meta["subject"])
		assert.Equal(t, "security_alert", meta["tag"])
	})

	t.Run("subject names the files when tag is empty", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := email.NewDevProvider(dir)

		_, err := p.SendEmail(context.Background(), email.Message{
			To:       "user@example.com",
			Subject:  "Weekly Report!",
			BodyHTML: "<p>report</p>",
		})
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Contains(t, e.Name(), "weekly_report")
			assert.False(t, strings.ContainsAny(e.Name(), "! "), "filenames must be sanitized")
		}
	})

	t.Run("rejects invalid message without writing", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := email.NewDevProvider(dir)

		_, err := p.SendEmail(context.Background(), email.Message{
			To:       "not-an-email",
			Subject:  "x",
			BodyHTML: "<p>x</p>",
		})
		require.ErrorIs(t, err, channel.ErrValidation)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("respects cancelled context", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		p := email.NewDevProvider(dir)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.SendEmail(ctx, email.Message{
			To:       "user@example.com",
			Subject:  "x",
			BodyHTML: "<p>x</p>",
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}
