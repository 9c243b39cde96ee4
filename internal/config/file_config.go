// Package config loads on-disk YAML fixtures for default client options and
// schema route tables, for tests, examples, and callers that prefer a file
// over hand-built Go structs.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape of a default-options fixture, mirroring the
// subset of ExtraOptions that is reasonable to externalize to a file.
type FileConfig struct {
	BaseURL         string            `yaml:"base_url,omitempty"`
	Timeout         time.Duration     `yaml:"timeout,omitempty"`
	ResultMode      string            `yaml:"result_mode,omitempty"`
	DedupeStrategy  string            `yaml:"dedupe_strategy,omitempty"`
	DedupeScope     string            `yaml:"dedupe_scope,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Retry           *RetryFileConfig  `yaml:"retry,omitempty"`
	SchemaRoutePath string            `yaml:"schema_route_path,omitempty"`
}

// RetryFileConfig is the YAML shape of a retry policy fixture.
type RetryFileConfig struct {
	Attempts    int           `yaml:"attempts,omitempty"`
	Strategy    string        `yaml:"strategy,omitempty"`
	Delay       time.Duration `yaml:"delay,omitempty"`
	MaxDelay    time.Duration `yaml:"max_delay,omitempty"`
	StatusCodes []int         `yaml:"status_codes,omitempty"`
	Methods     []string      `yaml:"methods,omitempty"`
}

// RouteFileConfig is the YAML shape of a schema route table fixture, keyed
// by route key ("[@method]path" or "@default").
type RouteFileConfig struct {
	Prefix  string                        `yaml:"prefix,omitempty"`
	BaseURL string                        `yaml:"base_url,omitempty"`
	Strict  bool                          `yaml:"strict,omitempty"`
	Routes  map[string]RouteEntryFixture  `yaml:"routes,omitempty"`
}

// RouteEntryFixture names which validation points a route declares,
// without carrying the validator implementation itself (validators are Go
// functions and cannot be expressed in YAML) — tests attach the actual
// Validator after loading, keyed by the same route key.
type RouteEntryFixture struct {
	HasBody      bool `yaml:"has_body,omitempty"`
	HasHeaders   bool `yaml:"has_headers,omitempty"`
	HasQuery     bool `yaml:"has_query,omitempty"`
	HasParams    bool `yaml:"has_params,omitempty"`
	HasMethod    bool `yaml:"has_method,omitempty"`
	HasData      bool `yaml:"has_data,omitempty"`
	HasErrorData bool `yaml:"has_error_data,omitempty"`
}

// LoadDefaults reads and parses a FileConfig fixture from path.
func LoadDefaults(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// LoadRoutes reads and parses a RouteFileConfig fixture from path.
func LoadRoutes(path string) (*RouteFileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rc RouteFileConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, err
	}
	return &rc, nil
}
