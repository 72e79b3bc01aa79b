package template

import (
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"io/fs"
	"maps"
	"sort"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"golang.org/x/text/language"

	"github.com/dmitrymomot/notifykit/pkg/notification"
)

const (
	defaultLocale        = "en"
	defaultCacheCapacity = 1000
)

// RenderRequest identifies one template and the data to render it with.
type RenderRequest struct {
	// Type selects the notification type row of the catalog.
	Type notification.Type

	// Channel selects the channel section and the escaping engine: email and
	// push render through html/template, sms through text/template.
	Channel notification.Channel

	// Context is the variable map. It is sanitized before rendering and
	// never mutated.
	Context map[string]any

	// Locale is the recipient's locale, e.g. "en", "en-US", "ar". Empty
	// falls back to the renderer's default locale.
	Locale string
}

// executor is satisfied by both html and text templates.
type executor interface {
	Execute(w io.Writer, data any) error
}

// compiled is one cached catalog entry, parsed.
type compiled struct {
	body    executor
	subject executor
}

type cacheKey struct {
	locale  string
	channel string
	typ     string
}

// Renderer renders notification content from a locale catalog.
// Safe for concurrent use.
type Renderer struct {
	cat      catalog
	fallback string

	mu    sync.RWMutex
	funcs map[string]any

	cache *lru[cacheKey, *compiled]
}

// Option configures a Renderer.
type Option func(*Renderer) error

// WithDefaultLocale sets the locale used when the requested one has no
// matching template. Default is "en".
func WithDefaultLocale(locale string) Option {
	return func(r *Renderer) error {
		locale = strings.ToLower(strings.TrimSpace(locale))
		if locale == "" {
			return errors.Join(ErrInvalidCatalog, errors.New("default locale cannot be empty"))
		}
		r.fallback = locale
		return nil
	}
}

// WithCacheCapacity bounds the parsed template cache. Default is 1000.
func WithCacheCapacity(capacity int) Option {
	return func(r *Renderer) error {
		if capacity <= 0 {
			return errors.Join(ErrInvalidCatalog, errors.New("cache capacity must be positive"))
		}
		r.cache = newLRU[cacheKey, *compiled](capacity)
		return nil
	}
}

// New loads every locale catalog file from fsys and returns a ready renderer
// with the built-in filters registered.
func New(fsys fs.FS, opts ...Option) (*Renderer, error) {
	if fsys == nil {
		return nil, ErrCatalogRequired
	}

	cat, err := loadCatalog(fsys)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		cat:      cat,
		fallback: defaultLocale,
		funcs:    builtinFilters(),
		cache:    newLRU[cacheKey, *compiled](defaultCacheCapacity),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	if _, ok := cat[r.fallback]; !ok {
		return nil, errors.Join(ErrInvalidCatalog,
			fmt.Errorf("default locale %q has no catalog file", r.fallback))
	}

	return r, nil
}

// Render produces the body for the requested type, channel, and locale.
func (r *Renderer) Render(ctx context.Context, req RenderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c, err := r.lookup(req)
	if err != nil {
		return "", err
	}

	return execute(c.body, req.Context)
}

// Subject produces the subject line for the requested template. Entries
// without a subject, which is normal for push and sms, return "".
func (r *Renderer) Subject(ctx context.Context, req RenderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c, err := r.lookup(req)
	if err != nil {
		return "", err
	}
	if c.subject == nil {
		return "", nil
	}

	return execute(c.subject, req.Context)
}

// Locales lists the catalog locales, sorted.
func (r *Renderer) Locales() []string {
	out := r.cat.locales()
	sort.Strings(out)
	return out
}

// CacheStats reports parse cache hits and misses since construction.
func (r *Renderer) CacheStats() (hits, misses uint64) {
	return r.cache.Stats()
}

// NotificationContext builds a render context from a notification: its
// metadata under the original keys, then title, message, user_id, and
// timestamp on top. Reserved metadata keys lose to the fixed ones.
func NotificationContext(n notification.Notification) map[string]any {
	ctx := make(map[string]any, len(n.Metadata)+4)
	maps.Copy(ctx, n.Metadata)
	ctx["title"] = n.Title
	ctx["message"] = n.Message
	ctx["user_id"] = n.UserID
	ctx["timestamp"] = n.CreatedAt.UTC().Format(time.RFC3339)
	return ctx
}

// lookup resolves the template through the locale fallback chain, consulting
// the cache before parsing. Concurrent misses may both parse the same entry;
// the last write wins, which is harmless because parses are deterministic.
func (r *Renderer) lookup(req RenderRequest) (*compiled, error) {
	ch := req.Channel.String()
	typ := req.Type.String()

	for _, locale := range r.candidates(req.Locale) {
		entry, ok := r.cat.entry(locale, ch, typ)
		if !ok {
			continue
		}

		key := cacheKey{locale: locale, channel: ch, typ: typ}
		if c, ok := r.cache.Get(key); ok {
			return c, nil
		}

		c, err := r.compile(entry, req.Channel, locale)
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, c)
		return c, nil
	}

	return nil, &TemplateNotFoundError{Type: req.Type, Channel: req.Channel, Locale: req.Locale}
}

// candidates returns the locale resolution order: the normalized requested
// locale when it differs from the fallback, then the fallback.
func (r *Renderer) candidates(requested string) []string {
	out := make([]string, 0, 2)
	if norm := normalizeLocale(requested); norm != "" && norm != r.fallback {
		out = append(out, norm)
	}
	return append(out, r.fallback)
}

// normalizeLocale reduces a BCP 47 tag to its base language, so "en-US" and
// "en_GB" both resolve to the "en" catalog. Unparseable input passes through
// lowercased and misses the catalog naturally.
func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	tag, err := language.Parse(s)
	if err != nil {
		return strings.ToLower(s)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return strings.ToLower(s)
	}
	return base.String()
}

func (r *Renderer) compile(entry catalogEntry, ch notification.Channel, locale string) (*compiled, error) {
	r.mu.RLock()
	funcs := maps.Clone(r.funcs)
	r.mu.RUnlock()

	parse := func(name, text string) (executor, error) {
		if ch == notification.ChannelSMS {
			return texttemplate.New(name).
				Funcs(texttemplate.FuncMap(funcs)).
				Option("missingkey=error").
				Parse(text)
		}
		return htmltemplate.New(name).
			Funcs(htmltemplate.FuncMap(funcs)).
			Option("missingkey=error").
			Parse(text)
	}

	c := &compiled{}
	var err error
	if c.body, err = parse("body", entry.Body); err != nil {
		return nil, errors.Join(ErrInvalidCatalog,
			fmt.Errorf("parse %s body in locale %s: %w", ch, locale, err))
	}
	if entry.Subject != "" {
		if c.subject, err = parse("subject", entry.Subject); err != nil {
			return nil, errors.Join(ErrInvalidCatalog,
				fmt.Errorf("parse %s subject in locale %s: %w", ch, locale, err))
		}
	}

	return c, nil
}

func execute(t executor, rawCtx map[string]any) (string, error) {
	var buf strings.Builder
	if err := t.Execute(&buf, sanitizeContext(rawCtx)); err != nil {
		if name, ok := missingKeyName(err); ok {
			return "", &UndefinedVariableError{Variable: name, cause: err}
		}
		return "", errors.Join(ErrRenderFailed, err)
	}
	return buf.String(), nil
}

// missingKeyName recognizes the missingkey=error execution failure and pulls
// out the variable name.
func missingKeyName(err error) (string, bool) {
	msg := err.Error()
	const marker = `no entry for key "`
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	rest := msg[i+len(marker):]
	if j := strings.Index(rest, `"`); j >= 0 {
		return rest[:j], true
	}
	return "", true
}
