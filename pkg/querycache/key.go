// Package querycache is a keyed request cache with age-based staleness and
// single-flight deduplication. It sits between a caller and an expensive
// query function and guarantees at most one concurrent execution of that
// function per logical key, backed by an optional persisted store.
package querycache

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins canonicalized key parts. Invalidate relies on it for
// prefix scoping, so it must never appear in a stringified part boundary
// ambiguously; parts containing it are still unambiguous because the whole
// key is only ever compared as an opaque string or by prefix+separator.
const Separator = ":"

// Key is an ordered sequence of request parameters. Nil parts contribute
// nothing to the canonical form.
type Key []any

// Canonical collapses the key into one deterministic string: every non-nil
// part is stringified (strings as-is, numbers and bools in their natural
// form, everything else as compact JSON) and non-empty results are joined
// with Separator. Two semantically different requests never collide and one
// logical request maps to the same string regardless of call site.
func (k Key) Canonical() string {
	parts := make([]string, 0, len(k))
	for _, p := range k {
		s := stringify(p)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, Separator)
}

func stringify(p any) string {
	switch v := p.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			// Fall back to fmt for unmarshalable values; still deterministic
			// for any given input.
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
