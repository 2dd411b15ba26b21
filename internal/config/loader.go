// Package config loads CLI profiles: request defaults such as base URL,
// headers, timeouts, proxy and credentials, read from a YAML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Profile holds request defaults applied before command-line flags
type Profile struct {
	// Provider selects the transport: "engine" or "wire"
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	// BaseURL is resolved against relative request URLs
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Cookies map[string]string `json:"cookies,omitempty" yaml:"cookies,omitempty"`

	// Vars are substituted for {{name}} placeholders in URLs and header values
	Vars map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`

	Timeout        Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ConnectTimeout Duration `json:"connectTimeout,omitempty" yaml:"connectTimeout,omitempty"`

	BufferSize      int   `json:"bufferSize,omitempty" yaml:"bufferSize,omitempty"`
	FollowRedirects *bool `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	MaxRedirects    int   `json:"maxRedirects,omitempty" yaml:"maxRedirects,omitempty"`
	Insecure        bool  `json:"insecure,omitempty" yaml:"insecure,omitempty"`

	Proxy *Proxy `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Auth  *Auth  `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// Proxy is an outgoing HTTP proxy. Access holds "user:pass" credentials.
type Proxy struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	Access string `json:"access,omitempty" yaml:"access,omitempty"`
}

// Auth holds request credentials
type Auth struct {
	Type string `json:"type" yaml:"type"`
	User string `json:"user" yaml:"user"`
	Pass string `json:"pass,omitempty" yaml:"pass,omitempty"`
}

// LoadConfig loads a profile from a file and validates it.
//
// The file format is determined by extension:
//   - .yaml, .yml -> YAML
//   - .json -> JSON
func LoadConfig(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	profile, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}

	var errs error
	for _, verr := range ValidateProfile(profile) {
		errs = multierr.Append(errs, verr)
	}
	if errs != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, errs)
	}
	return profile, nil
}

// ParseConfig parses profile data. The format is determined by the file
// extension in path, or defaults to YAML.
func ParseConfig(data []byte, path string) (*Profile, error) {
	var profile Profile

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse config (unknown format %s): %w", ext, err)
		}
	}

	return &profile, nil
}

// Duration is a time.Duration read from "30s" style strings or from bare
// integers, which count seconds
type Duration time.Duration

// ParseDurationString parses a duration string.
//
// Supported formats:
//   - Standard Go duration: "30s", "2m", "1h30m", "500ms"
//   - Seconds as integer: "30" (treated as 30 seconds)
func ParseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if seconds, err := strconv.Atoi(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}

	return 0, fmt.Errorf("invalid duration format: %s", s)
}

// Get returns the duration or def when unset
func (d Duration) Get(def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return time.Duration(d)
}

// String returns the duration as a string
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return d.set(s)
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	return d.set(value.Value)
}

func (d *Duration) set(s string) error {
	dur, err := ParseDurationString(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Expand substitutes {{name}} placeholders from the profile variables and
// then from the process environment. Unknown placeholders are left as-is.
func (p *Profile) Expand(input string) string {
	result := input
	for key, value := range p.Vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}

	const envPrefix = "{{env."
	for from := 0; ; {
		start := strings.Index(result[from:], envPrefix)
		if start < 0 {
			break
		}
		start += from
		end := strings.Index(result[start:], "}}")
		if end < 0 {
			break
		}
		value := os.Getenv(result[start+len(envPrefix) : start+end])
		result = result[:start] + value + result[start+end+2:]
		from = start + len(value)
	}
	return result
}

// MergeHeaders returns the profile headers overridden by headers, with
// placeholders expanded
func (p *Profile) MergeHeaders(headers map[string]string) map[string]string {
	result := make(map[string]string, len(p.Headers)+len(headers))
	for key, value := range p.Headers {
		result[key] = p.Expand(value)
	}
	for key, value := range headers {
		result[key] = p.Expand(value)
	}
	return result
}
