// Package template renders locale-aware notification content from a YAML
// catalog, with strict variable checking, context sanitization, and a bounded
// parse cache.
//
// The catalog is one YAML file per locale (en.yaml, ar.yaml, fr.yaml by
// default), each mapping channel → notification type → {subject?, body}.
// Files are loaded from an fs.FS at construction so catalogs embed cleanly
// with go:embed or load from disk in development.
//
//	//go:embed templates/*.yaml
//	var catalogFS embed.FS
//
//	sub, _ := fs.Sub(catalogFS, "templates")
//	renderer, err := template.New(sub)
//
//	body, err := renderer.Render(ctx, template.RenderRequest{
//	    Type:    notification.TypeTransactionAlert,
//	    Channel: notification.ChannelEmail,
//	    Locale:  "en-US", // matches the en catalog
//	    Context: template.NotificationContext(n),
//	})
//
// Locale resolution tries the normalized requested locale first (en-US
// matches en), then the default locale, then fails with a
// TemplateNotFoundError. Rendering is strict: a variable the template
// references but the sanitized context lacks fails with an
// UndefinedVariableError instead of rendering empty.
//
// Before rendering, the context map is copied and sanitized: keys with the
// reserved "__" prefix and function values are dropped, and user_id and
// timestamp are injected when absent so catalog templates can always
// reference them.
//
// Email and push bodies render through html/template and are auto-escaped;
// SMS bodies render through text/template raw. Parsed templates live in an
// LRU cache keyed by (locale, channel, type).
package template
