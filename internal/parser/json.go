// Package parser provides body parsers for Response.Parse. Every parser here
// satisfies courier.Parser and reports undecodable bodies with ErrFormat.
package parser

import (
	"encoding/json"
	"fmt"

	courier "github.com/wesleyorama2/courier/internal/http"
)

var (
	_ courier.Parser = JSON{}
	_ courier.Parser = XML{}
	_ courier.Parser = XMLMap{}
	_ courier.Parser = JSONPath{}
	_ courier.Parser = (*JSONSchema)(nil)
)

// JSON decodes a body into the generic representation produced by
// encoding/json: map[string]interface{}, []interface{}, string, float64, bool or nil
type JSON struct{}

// Parse implements courier.Parser
func (JSON) Parse(raw []byte) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", courier.ErrFormat, err)
	}
	return data, nil
}
