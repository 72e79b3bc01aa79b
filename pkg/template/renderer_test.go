package template_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/template"
)

func newRenderer(t *testing.T, files map[string]string, opts ...template.Option) *template.Renderer {
	t.Helper()

	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}

	r, err := template.New(fsys, opts...)
	require.NoError(t, err)
	return r
}

func testCatalog() map[string]string {
	return map[string]string{
		"en.yaml": `
email:
  transaction_alert:
    subject: "Transaction {{.tx_id}}"
    body: "<p>{{.message}}</p>"
  security_alert:
    body: "<b>{{.title}}</b>: {{.message}}"
push:
  transaction_alert:
    body: "{{.title}}: {{.message}}"
sms:
  security_alert:
    body: "{{.title}} - {{.message}}"
`,
		"ar.yaml": `
email:
  transaction_alert:
    body: "<p>AR {{.message}}</p>"
`,
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	t.Run("nil filesystem", func(t *testing.T) {
		t.Parallel()

		_, err := template.New(nil)
		require.ErrorIs(t, err, template.ErrCatalogRequired)
	})

	t.Run("empty filesystem", func(t *testing.T) {
		t.Parallel()

		_, err := template.New(fstest.MapFS{})
		require.ErrorIs(t, err, template.ErrNoCatalog)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{"en.yaml": &fstest.MapFile{Data: []byte("email: [")}}
		_, err := template.New(fsys)
		require.ErrorIs(t, err, template.ErrInvalidCatalog)
	})

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{"en.yaml": &fstest.MapFile{Data: []byte(
			"email:\n  marketing:\n    subject: \"Hi\"\n    body: \"\"\n",
		)}}
		_, err := template.New(fsys)
		require.ErrorIs(t, err, template.ErrInvalidCatalog)
	})

	t.Run("default locale must have a catalog file", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{"ar.yaml": &fstest.MapFile{Data: []byte(
			"email:\n  marketing:\n    body: \"x\"\n",
		)}}

		_, err := template.New(fsys)
		require.ErrorIs(t, err, template.ErrInvalidCatalog)

		_, err = template.New(fsys, template.WithDefaultLocale("ar"))
		require.NoError(t, err)
	})
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("renders the requested locale", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		out, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeTransactionAlert,
			Channel: notification.ChannelEmail,
			Locale:  "en",
			Context: map[string]any{"message": "sent 5 BTC"},
		})
		require.NoError(t, err)
		assert.Equal(t, "<p>sent 5 BTC</p>", out)
	})

	t.Run("region tags match the base locale", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		out, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeTransactionAlert,
			Channel: notification.ChannelEmail,
			Locale:  "ar-EG",
			Context: map[string]any{"message": "hi"},
		})
		require.NoError(t, err)
		assert.Equal(t, "<p>AR hi</p>", out)
	})

	t.Run("missing entry falls back to the default locale", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		// ar.yaml has no security_alert entry.
		out, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSecurityAlert,
			Channel: notification.ChannelEmail,
			Locale:  "ar",
			Context: map[string]any{"title": "Login", "message": "new device"},
		})
		require.NoError(t, err)
		assert.Equal(t, "<b>Login</b>: new device", out)
	})

	t.Run("unknown locale falls back to the default locale", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		out, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeTransactionAlert,
			Channel: notification.ChannelEmail,
			Locale:  "de",
			Context: map[string]any{"message": "hallo"},
		})
		require.NoError(t, err)
		assert.Equal(t, "<p>hallo</p>", out)
	})

	t.Run("not found names type channel and locale", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		_, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeMarketing,
			Channel: notification.ChannelSMS,
			Locale:  "fr",
		})
		require.Error(t, err)
		assert.True(t, template.IsTemplateNotFound(err))

		var nf *template.TemplateNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, notification.TypeMarketing, nf.Type)
		assert.Equal(t, notification.ChannelSMS, nf.Channel)
		assert.Equal(t, "fr", nf.Locale)
	})

	t.Run("missing variable fails strictly", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		_, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSecurityAlert,
			Channel: notification.ChannelEmail,
			Context: map[string]any{"message": "no title here"},
		})
		require.Error(t, err)
		assert.True(t, template.IsUndefinedVariable(err))

		var uv *template.UndefinedVariableError
		require.ErrorAs(t, err, &uv)
		assert.Equal(t, "title", uv.Variable)
	})

	t.Run("html channel escapes markup", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		out, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSecurityAlert,
			Channel: notification.ChannelEmail,
			Context: map[string]any{"title": "Alert", "message": "<script>steal()</script>"},
		})
		require.NoError(t, err)
		assert.Contains(t, out, "&lt;script&gt;")
		assert.NotContains(t, out, "<script>")
	})

	t.Run("sms channel renders raw", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		out, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSecurityAlert,
			Channel: notification.ChannelSMS,
			Context: map[string]any{"title": "Alert", "message": "a < b"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Alert - a < b", out)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := r.Render(cancelled, template.RenderRequest{
			Type:    notification.TypeSecurityAlert,
			Channel: notification.ChannelSMS,
		})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestRenderer_Sanitization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("reserved keys never reach the template", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, map[string]string{
			"en.yaml": "sms:\n  system_update:\n    body: \"{{.__internal}}\"\n",
		})

		_, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSystemUpdate,
			Channel: notification.ChannelSMS,
			Context: map[string]any{"__internal": "secret"},
		})
		require.Error(t, err)
		assert.True(t, template.IsUndefinedVariable(err))
	})

	t.Run("function values are dropped", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, map[string]string{
			"en.yaml": "sms:\n  system_update:\n    body: \"{{.evil}}\"\n",
		})

		_, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSystemUpdate,
			Channel: notification.ChannelSMS,
			Context: map[string]any{"evil": func() string { return "called" }},
		})
		require.Error(t, err)
		assert.True(t, template.IsUndefinedVariable(err))
	})

	t.Run("user_id and timestamp are always defined", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, map[string]string{
			"en.yaml": "sms:\n  system_update:\n    body: \"uid {{.user_id}} at {{.timestamp}}\"\n",
		})

		_, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSystemUpdate,
			Channel: notification.ChannelSMS,
			Context: map[string]any{},
		})
		require.NoError(t, err)
	})

	t.Run("caller map is not mutated", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())

		callerCtx := map[string]any{"title": "T", "message": "M", "__drop": 1}
		_, err := r.Render(ctx, template.RenderRequest{
			Type:    notification.TypeSecurityAlert,
			Channel: notification.ChannelSMS,
			Context: callerCtx,
		})
		require.NoError(t, err)

		assert.Len(t, callerCtx, 3)
		assert.NotContains(t, callerCtx, "user_id")
		assert.NotContains(t, callerCtx, "timestamp")
	})
}

func TestRenderer_Subject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := newRenderer(t, testCatalog())

	subject, err := r.Subject(ctx, template.RenderRequest{
		Type:    notification.TypeTransactionAlert,
		Channel: notification.ChannelEmail,
		Context: map[string]any{"tx_id": "abc123"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Transaction abc123", subject)

	// Entries without a subject return empty, which sms templates rely on.
	subject, err = r.Subject(ctx, template.RenderRequest{
		Type:    notification.TypeSecurityAlert,
		Channel: notification.ChannelSMS,
		Context: map[string]any{"title": "t", "message": "m"},
	})
	require.NoError(t, err)
	assert.Empty(t, subject)
}

func TestRenderer_Cache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("second render hits the cache and output is identical", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog())
		req := template.RenderRequest{
			Type:    notification.TypeTransactionAlert,
			Channel: notification.ChannelEmail,
			Context: map[string]any{"message": "same"},
		}

		first, err := r.Render(ctx, req)
		require.NoError(t, err)
		_, misses := r.CacheStats()
		assert.EqualValues(t, 1, misses)

		second, err := r.Render(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		hits, misses := r.CacheStats()
		assert.EqualValues(t, 1, hits)
		assert.EqualValues(t, 1, misses, "second render must not re-parse")
	})

	t.Run("capacity bound evicts", func(t *testing.T) {
		t.Parallel()

		r := newRenderer(t, testCatalog(), template.WithCacheCapacity(1))
		emailReq := template.RenderRequest{
			Type:    notification.TypeTransactionAlert,
			Channel: notification.ChannelEmail,
			Context: map[string]any{"message": "x"},
		}
		pushReq := template.RenderRequest{
			Type:    notification.TypeTransactionAlert,
			Channel: notification.ChannelPush,
			Context: map[string]any{"title": "t", "message": "m"},
		}

		_, err := r.Render(ctx, emailReq)
		require.NoError(t, err)
		_, err = r.Render(ctx, pushReq)
		require.NoError(t, err)
		_, err = r.Render(ctx, emailReq)
		require.NoError(t, err)

		hits, misses := r.CacheStats()
		assert.EqualValues(t, 0, hits)
		assert.EqualValues(t, 3, misses, "capacity 1 must evict the older entry")
	})
}

func TestRenderer_Locales(t *testing.T) {
	t.Parallel()

	r := newRenderer(t, testCatalog())
	assert.Equal(t, []string{"ar", "en"}, r.Locales())
}

func TestNotificationContext(t *testing.T) {
	t.Parallel()

	n, err := notification.New("user-1", notification.TypeTransactionAlert, "Confirmed", "5 BTC sent",
		notification.WithMetadata(map[string]any{
			"amount": 5.0,
			"title":  "metadata must not win",
		}))
	require.NoError(t, err)

	got := template.NotificationContext(*n)

	assert.Equal(t, "Confirmed", got["title"])
	assert.Equal(t, "5 BTC sent", got["message"])
	assert.Equal(t, "user-1", got["user_id"])
	assert.Equal(t, 5.0, got["amount"])

	ts, ok := got["timestamp"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}
