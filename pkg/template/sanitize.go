package template

import (
	"reflect"
	"strings"
)

// reservedPrefix marks context keys that must never reach a template.
const reservedPrefix = "__"

// sanitizeContext copies ctx into a render-safe map: reserved keys and
// function values are dropped, and user_id and timestamp are injected when
// absent so catalog templates can reference them unconditionally. The
// caller's map is never mutated.
func sanitizeContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx)+2)
	for k, v := range ctx {
		if strings.HasPrefix(k, reservedPrefix) {
			continue
		}
		if v != nil && reflect.ValueOf(v).Kind() == reflect.Func {
			continue
		}
		out[k] = v
	}

	if _, ok := out["user_id"]; !ok {
		out["user_id"] = nil
	}
	if _, ok := out["timestamp"]; !ok {
		out["timestamp"] = nil
	}

	return out
}
