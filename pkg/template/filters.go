package template

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"
)

var filterNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RegisterFilter adds fn to the FuncMap used by every template. The name must
// be a valid identifier and must not collide with an existing filter,
// including the built-ins; there is no silent overwrite. Registration purges
// the parse cache so already-rendered templates pick the filter up on their
// next use.
func (r *Renderer) RegisterFilter(name string, fn any) error {
	if !filterNameRE.MatchString(name) {
		return &FilterError{Name: name, Reason: "name must be a valid identifier"}
	}
	if err := validateFilterFunc(fn); err != nil {
		return &FilterError{Name: name, Reason: err.Error()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return &FilterError{Name: name, Reason: "already registered"}
	}
	r.funcs[name] = fn
	r.cache.Purge()

	return nil
}

// validateFilterFunc enforces the shapes text/template accepts, so a bad
// filter fails registration instead of panicking inside Funcs at parse time.
func validateFilterFunc(fn any) error {
	if fn == nil {
		return fmt.Errorf("filter must be a function")
	}
	t := reflect.TypeOf(fn)
	if t.Kind() != reflect.Func {
		return fmt.Errorf("filter must be a function, got %s", t.Kind())
	}
	if t.NumOut() == 0 || t.NumOut() > 2 {
		return fmt.Errorf("filter must return one value, optionally with an error")
	}
	if t.NumOut() == 2 && t.Out(1) != reflect.TypeOf((*error)(nil)).Elem() {
		return fmt.Errorf("second return value must be error")
	}
	return nil
}

// builtinFilters are registered at construction and available to every
// catalog template.
func builtinFilters() map[string]any {
	return map[string]any{
		"currency":        currencyFilter,
		"secure_truncate": secureTruncateFilter,
	}
}

// currencyFilter formats a numeric amount with a currency code:
// {{currency .amount "USD"}} → "42.50 USD".
func currencyFilter(amount any, code string) (string, error) {
	var f float64
	switch v := amount.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint64:
		f = float64(v)
	default:
		return "", fmt.Errorf("currency: unsupported amount type %T", amount)
	}
	return fmt.Sprintf("%.2f %s", f, strings.ToUpper(code)), nil
}

// secureTruncateFilter strips control characters and caps the value at max
// runes, appending an ellipsis when it was cut:
// {{secure_truncate .message 50}}.
func secureTruncateFilter(value string, max int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)

	if max <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= max {
		return cleaned
	}
	return string(runes[:max]) + "..."
}
