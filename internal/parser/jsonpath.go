package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	courier "github.com/wesleyorama2/courier/internal/http"
)

// JSONPath extracts one value from a JSON body. Path accepts the common
// JSONPath subset ($.users[0].name, $['name'], $[0]) as well as native gjson
// syntax. The result is the generic Go value of the match.
type JSONPath struct {
	Path string
}

// Parse implements courier.Parser
func (p JSONPath) Parse(raw []byte) (interface{}, error) {
	result, err := Extract(raw, p.Path)
	if err != nil {
		return nil, err
	}
	return result.Value(), nil
}

// JSONPaths extracts several named values from a JSON body into a
// map[string]interface{}. Every path must match.
type JSONPaths map[string]string

// Parse implements courier.Parser
func (p JSONPaths) Parse(raw []byte) (interface{}, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("%w: no JSONPath expressions provided", courier.ErrContractViolation)
	}

	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]interface{}, len(p))
	var failed []string
	for _, name := range names {
		result, err := Extract(raw, p[name])
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		results[name] = result.Value()
	}

	if len(failed) > 0 {
		return results, fmt.Errorf("extraction errors: %s", strings.Join(failed, "; "))
	}
	return results, nil
}

// Extract returns the gjson match for path in raw
func Extract(raw []byte, path string) (gjson.Result, error) {
	if len(raw) == 0 {
		return gjson.Result{}, fmt.Errorf("%w: empty JSON body", courier.ErrFormat)
	}
	if path == "" {
		return gjson.Result{}, fmt.Errorf("%w: empty JSONPath expression", courier.ErrContractViolation)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", courier.ErrFormat)
	}

	result := gjson.GetBytes(raw, toGjsonPath(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("path not found: %s", path)
	}
	return result, nil
}

// toGjsonPath converts a JSONPath expression to gjson syntax:
// $.users[0].name becomes users.0.name
func toGjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}

	path = strings.NewReplacer("['", ".", "']", "", `["`, ".", `"]`, "", "[", ".", "]", "").Replace(path)
	return strings.TrimPrefix(path, ".")
}
