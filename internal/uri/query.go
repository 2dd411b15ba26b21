package uri

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Values is a query or parameter mapping. A value is a scalar, a []interface{} /
// []string list, or a nested Values (map[string]interface{}) mapping.
type Values map[string]interface{}

// Clone returns a deep copy of v
func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	c := make(Values, len(v))
	for k, val := range v {
		c[k] = cloneValue(val)
	}
	return c
}

func cloneValue(val interface{}) interface{} {
	switch t := val.(type) {
	case Values:
		return t.Clone()
	case map[string]interface{}:
		return Values(t).Clone()
	case map[string]string:
		m := make(map[string]string, len(t))
		for k, s := range t {
			m[k] = s
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(t))
		for i, item := range t {
			l[i] = cloneValue(item)
		}
		return l
	case []string:
		return append([]string(nil), t...)
	default:
		return val
	}
}

// EncodeQuery form-encodes v. Keys are emitted in sorted order (numeric keys
// compare numerically) and nested values use bracket notation, e.g. a[b]=c.
func EncodeQuery(v Values) string {
	var pairs []string
	encodeInto(&pairs, "", v)
	return strings.Join(pairs, "&")
}

func encodeInto(pairs *[]string, prefix string, v map[string]interface{}) {
	for _, k := range sortedKeys(v) {
		key := k
		if prefix != "" {
			key = prefix + "[" + k + "]"
		}
		encodeValue(pairs, key, v[k])
	}
}

func encodeValue(pairs *[]string, key string, val interface{}) {
	switch t := val.(type) {
	case nil:
		// null entries are dropped
	case Values:
		encodeInto(pairs, key, t)
	case map[string]interface{}:
		encodeInto(pairs, key, t)
	case map[string]string:
		m := make(map[string]interface{}, len(t))
		for k, s := range t {
			m[k] = s
		}
		encodeInto(pairs, key, m)
	case []interface{}:
		for i, item := range t {
			encodeValue(pairs, key+"["+strconv.Itoa(i)+"]", item)
		}
	case []string:
		for i, item := range t {
			encodeValue(pairs, key+"["+strconv.Itoa(i)+"]", item)
		}
	default:
		*pairs = append(*pairs, url.QueryEscape(key)+"="+url.QueryEscape(scalar(t)))
	}
}

func scalar(val interface{}) string {
	switch t := val.(type) {
	case string:
		return t
	case bool:
		if t {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ParseQuery decodes a form-encoded query, rebuilding nested mappings from
// bracket notation. "a[]" entries are appended with the next numeric key.
func ParseQuery(raw string) (Values, error) {
	values := make(Values)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, err
		}
		val, err := url.QueryUnescape(rawVal)
		if err != nil {
			return nil, err
		}
		if key == "" {
			continue
		}
		insert(values, splitKey(key), val)
	}
	return values, nil
}

// splitKey turns a[b][c] into [a b c]. Keys with unbalanced brackets are kept whole.
func splitKey(key string) []string {
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		return []string{key}
	}
	segments := []string{key[:open]}
	rest := key[open:]
	for rest != "" {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		segments = append(segments, rest[1:end])
		rest = rest[end+1:]
	}
	return segments
}

func insert(values Values, segments []string, val string) {
	current := values
	for i, seg := range segments {
		if seg == "" {
			seg = strconv.Itoa(len(current))
		}
		if i == len(segments)-1 {
			current[seg] = val
			return
		}
		next, ok := current[seg].(Values)
		if !ok {
			next = make(Values)
			current[seg] = next
		}
		current = next
	}
}
