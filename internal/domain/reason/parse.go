package reason

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// decodeLoose parses model output into generic JSON values, tolerating a
// surrounding markdown code fence.
func decodeLoose(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(stripFence(string(raw))), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the info string, e.g. "json"
	} else {
		s = strings.TrimPrefix(strings.TrimSpace(s), "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// text renders a scalar like a loosely typed client would: numbers without
// trailing zeros, null as empty.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// truncate hard-cuts s to n characters.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// reasonEntries reads [{id, reason}] from a workflow object
// (ranking, else recommendations) or from a bare array.
func reasonEntries(v any) []any {
	if arr := asSlice(v); arr != nil {
		return arr
	}
	m := asMap(v)
	if m == nil {
		return nil
	}
	if arr := asSlice(m["ranking"]); arr != nil {
		return arr
	}
	return asSlice(m["recommendations"])
}
