// Package header implements a case-insensitive, order-preserving HTTP header
// container and a tolerant parser for raw header lines.
package header

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	statusLine = regexp.MustCompile(`^HTTP/(\d+(?:\.\d+)?)\s+(\d{3})(?:\s+(.*))?$`)
	fieldLine  = regexp.MustCompile("^([!#$%&'*+\\-.^_`|~0-9A-Za-z]+):[ \t]*(.*)$")
)

type field struct {
	name   string
	values []string
}

// Header stores header fields under their first-seen casing and resolves names
// case-insensitively. Code and Status hold the status line of a parsed response;
// zero values mean no status line has been seen.
type Header struct {
	Code   int
	Status string
	Proto  string

	fields []field
	index  map[string]int

	// current is the lowercase name of the last parsed field, used for folding
	current string
}

// New creates an empty Header
func New() *Header {
	return &Header{index: make(map[string]int)}
}

func (h *Header) lookup(name string) (int, bool) {
	if h.index == nil {
		return 0, false
	}
	i, ok := h.index[strings.ToLower(name)]
	return i, ok
}

// Set replaces all values of name
func (h *Header) Set(name, value string) *Header {
	if i, ok := h.lookup(name); ok {
		h.fields[i].values = []string{value}
		return h
	}
	h.append(name, value)
	return h
}

// Add appends a value to name, creating the field when missing
func (h *Header) Add(name, value string) *Header {
	if i, ok := h.lookup(name); ok {
		h.fields[i].values = append(h.fields[i].values, value)
		return h
	}
	h.append(name, value)
	return h
}

func (h *Header) append(name, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	h.index[strings.ToLower(name)] = len(h.fields)
	h.fields = append(h.fields, field{name: name, values: []string{value}})
}

// Get returns the values of name joined with ", ", or def when absent
func (h *Header) Get(name, def string) string {
	if i, ok := h.lookup(name); ok {
		return strings.Join(h.fields[i].values, ", ")
	}
	return def
}

// Values returns a copy of the values stored for name
func (h *Header) Values(name string) []string {
	if i, ok := h.lookup(name); ok {
		return append([]string(nil), h.fields[i].values...)
	}
	return nil
}

// Has reports whether name is present
func (h *Header) Has(name string) bool {
	_, ok := h.lookup(name)
	return ok
}

// Remove deletes name. Removing a missing name is a no-op.
func (h *Header) Remove(name string) *Header {
	i, ok := h.lookup(name)
	if !ok {
		return h
	}
	h.fields = append(h.fields[:i], h.fields[i+1:]...)
	h.reindex()
	if h.current == strings.ToLower(name) {
		h.current = ""
	}
	return h
}

func (h *Header) reindex() {
	h.index = make(map[string]int, len(h.fields))
	for i, f := range h.fields {
		h.index[strings.ToLower(f.name)] = i
	}
}

// SetHeaders sets every entry of fields. Without merge, existing fields are dropped
// first. Entries are applied in sorted name order.
func (h *Header) SetHeaders(fields map[string]string, merge bool) *Header {
	if !merge {
		h.fields = nil
		h.index = make(map[string]int)
		h.current = ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Set(name, fields[name])
	}
	return h
}

// Len returns the number of distinct fields
func (h *Header) Len() int {
	return len(h.fields)
}

// Names returns field names in insertion order
func (h *Header) Names() []string {
	names := make([]string, len(h.fields))
	for i, f := range h.fields {
		names[i] = f.name
	}
	return names
}

// All returns a copy of every field keyed by its stored name
func (h *Header) All() map[string][]string {
	all := make(map[string][]string, len(h.fields))
	for _, f := range h.fields {
		all[f.name] = append([]string(nil), f.values...)
	}
	return all
}

// Build renders the fields as "Name: Value" lines in insertion order
func (h *Header) Build() []string {
	lines := make([]string, 0, len(h.fields))
	for _, f := range h.fields {
		lines = append(lines, f.name+": "+strings.Join(f.values, ", "))
	}
	return lines
}

// Clone returns a deep copy of h
func (h *Header) Clone() *Header {
	c := &Header{
		Code:    h.Code,
		Status:  h.Status,
		Proto:   h.Proto,
		current: h.current,
		fields:  make([]field, len(h.fields)),
	}
	for i, f := range h.fields {
		c.fields[i] = field{name: f.name, values: append([]string(nil), f.values...)}
	}
	c.reindex()
	return c
}

// Reset clears the fields and the status line so a new header block can be parsed
func (h *Header) Reset() {
	h.Code = 0
	h.Status = ""
	h.Proto = ""
	h.fields = nil
	h.index = make(map[string]int)
	h.current = ""
}

// Parse feeds a raw block to ParseLine, one line at a time
func (h *Header) Parse(raw string) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	for _, line := range strings.Split(raw, "\n") {
		h.ParseLine(line)
	}
}

// ParseLine consumes a single raw header line. A status line sets Code and Status
// unless they are already set; a "Name: Value" line adds a value; a line starting
// with a space or tab is folded onto the previous field's last value with a single
// space. Blank and unrecognized lines are ignored.
func (h *Header) ParseLine(line string) {
	line = strings.TrimRight(line, "\r\n")

	if strings.TrimSpace(line) == "" {
		h.current = ""
		return
	}

	if line[0] == ' ' || line[0] == '\t' {
		h.fold(strings.TrimSpace(line))
		return
	}

	if m := statusLine.FindStringSubmatch(line); m != nil {
		h.current = ""
		if h.Code != 0 {
			return
		}
		code, _ := strconv.Atoi(m[2])
		h.Code = code
		h.Proto = "HTTP/" + m[1]
		h.Status = strings.TrimSpace(m[3])
		return
	}

	if m := fieldLine.FindStringSubmatch(line); m != nil {
		h.Add(m[1], strings.TrimRight(m[2], " \t"))
		h.current = strings.ToLower(m[1])
		return
	}

	h.current = ""
}

func (h *Header) fold(value string) {
	if h.current == "" {
		return
	}
	i, ok := h.index[h.current]
	if !ok {
		return
	}
	values := h.fields[i].values
	last := len(values) - 1
	if values[last] == "" {
		values[last] = value
	} else {
		values[last] += " " + value
	}
}
