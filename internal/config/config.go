// Package config defines the resolved run configuration and its YAML
// loading. Configuration errors are the only fatal errors in the
// system: they surface at startup, before any extraction begins.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/apidiff/internal/compare"
	"github.com/roach88/apidiff/internal/logs"
	"github.com/roach88/apidiff/internal/testcase"
)

// Target describes one candidate endpoint.
type Target struct {
	// Name labels the target in reports ("left"/"right" by default).
	Name string `yaml:"name"`

	// BaseURL is the scheme+host[:port] requests are replayed against.
	BaseURL string `yaml:"base_url"`

	// DefaultHeaders are overlaid onto every replayed request.
	DefaultHeaders map[string]string `yaml:"default_headers,omitempty"`
}

// Targets holds the two endpoints under comparison.
type Targets struct {
	Left  Target `yaml:"left"`
	Right Target `yaml:"right"`
}

// RequestIgnores affects fingerprinting and what is sent.
type RequestIgnores struct {
	Headers       []string `yaml:"headers,omitempty"`
	QueryParams   []string `yaml:"query_params,omitempty"`
	BodyJSONPaths []string `yaml:"body_json_paths,omitempty"`
}

// ResponseIgnores affects comparison only.
type ResponseIgnores struct {
	Headers       []string `yaml:"headers,omitempty"`
	BodyJSONPaths []string `yaml:"body_json_paths,omitempty"`
}

// Deduplication selects the case aggregation strategy.
type Deduplication struct {
	Strategy                   string   `yaml:"strategy"`
	IncludeBodyFor             []string `yaml:"include_body_for,omitempty"`
	QueryParamOrderInsensitive bool     `yaml:"query_param_order_insensitive"`
}

// Mapping lists candidate dotted paths per logical field.
type Mapping struct {
	Method   []string `yaml:"method,omitempty"`
	URL      []string `yaml:"url,omitempty"`
	Path     []string `yaml:"path,omitempty"`
	Headers  []string `yaml:"headers,omitempty"`
	Query    []string `yaml:"query,omitempty"`
	Body     []string `yaml:"body,omitempty"`
	MimeType []string `yaml:"mime_type,omitempty"`
}

// LogInput configures log loading and field mapping.
type LogInput struct {
	Format  string  `yaml:"format"`
	Mapping Mapping `yaml:"mapping"`
}

// Execution tunes the replay layer.
type Execution struct {
	Concurrency    int     `yaml:"concurrency"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	VerifyTLS      bool    `yaml:"verify_tls"`
	Retries        int     `yaml:"retries"`
	BackoffSeconds float64 `yaml:"backoff_seconds"`
}

// Comparison tunes the diff engine.
type Comparison struct {
	// ArrayOrderInsensitive opts into multiset array matching in JSON
	// diffs. Positional comparison is the default.
	ArrayOrderInsensitive bool `yaml:"array_order_insensitive"`
}

// Config is the resolved run configuration, passed explicitly into each
// component; there is no ambient state.
type Config struct {
	Targets         Targets         `yaml:"targets"`
	RequestIgnores  RequestIgnores  `yaml:"request_ignores"`
	ResponseIgnores ResponseIgnores `yaml:"response_ignores"`
	Deduplication   Deduplication   `yaml:"deduplication"`
	LogInput        LogInput        `yaml:"log_input"`
	Execution       Execution       `yaml:"execution"`
	Comparison      Comparison      `yaml:"comparison"`
}

// Default returns the built-in configuration: sane volatile-header and
// query-param ignore lists plus mapping candidates covering the common
// capture tool shapes.
func Default() *Config {
	return &Config{
		Targets: Targets{
			Left:  Target{Name: "left", BaseURL: "http://localhost:8080"},
			Right: Target{Name: "right", BaseURL: "http://localhost:8081"},
		},
		RequestIgnores: RequestIgnores{
			Headers: []string{
				"authorization",
				"user-agent",
				"accept-encoding",
				"content-length",
				"host",
				"connection",
				"x-request-id",
			},
			QueryParams: []string{"timestamp", "nonce", "_"},
		},
		ResponseIgnores: ResponseIgnores{
			Headers: []string{
				"date",
				"server",
				"x-request-id",
				"cf-ray",
				"set-cookie",
			},
		},
		Deduplication: Deduplication{
			Strategy:                   string(testcase.StrategyMethodPathQuery),
			IncludeBodyFor:             []string{"POST", "PUT", "PATCH"},
			QueryParamOrderInsensitive: true,
		},
		LogInput: LogInput{
			Format: string(logs.FormatAuto),
			Mapping: Mapping{
				Method:   []string{"method", "http_method"},
				URL:      []string{"url", "request.url", "uri", "request.endpoint"},
				Path:     []string{"path", "request.path"},
				Headers:  []string{"headers", "request.headers"},
				Query:    []string{"query", "request.query", "request.parameter"},
				Body:     []string{"body", "request.body", "payload"},
				MimeType: []string{"mime_type", "content_type", "request.mime_type"},
			},
		},
		Execution: Execution{
			Concurrency:    8,
			TimeoutSeconds: 30,
			VerifyTLS:      true,
			Retries:        1,
			BackoffSeconds: 0.2,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing path
// returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeIO, Message: fmt.Sprintf("read config: %v", err)}
	}
	// Decoding into the default struct gives section-level merge:
	// sections absent from the file keep their defaults.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &Error{Code: ErrCodeParse, Message: fmt.Sprintf("parse config: %v", err)}
	}
	return cfg, nil
}

// Error codes for configuration failures.
const (
	ErrCodeIO         = "CONFIG_IO"
	ErrCodeParse      = "CONFIG_PARSE"
	ErrCodeStrategy   = "CONFIG_STRATEGY"
	ErrCodeIgnorePath = "CONFIG_IGNORE_PATH"
	ErrCodeFormat     = "CONFIG_LOG_FORMAT"
	ErrCodeExecution  = "CONFIG_EXECUTION"
	ErrCodeTarget     = "CONFIG_TARGET"
)

// Error is a fatal configuration error.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// Validate checks the configuration before any extraction begins.
func (c *Config) Validate() error {
	if !testcase.Strategy(c.Deduplication.Strategy).Valid() {
		return &Error{
			Code:    ErrCodeStrategy,
			Message: fmt.Sprintf("unknown deduplication strategy %q", c.Deduplication.Strategy),
		}
	}
	if !logs.Format(c.LogInput.Format).Valid() {
		return &Error{
			Code:    ErrCodeFormat,
			Message: fmt.Sprintf("unknown log format %q", c.LogInput.Format),
		}
	}
	for _, expr := range c.RequestIgnores.BodyJSONPaths {
		if _, err := compare.ParseIgnorePath(expr); err != nil {
			return &Error{Code: ErrCodeIgnorePath, Message: fmt.Sprintf("request_ignores: %v", err)}
		}
	}
	for _, expr := range c.ResponseIgnores.BodyJSONPaths {
		if _, err := compare.ParseIgnorePath(expr); err != nil {
			return &Error{Code: ErrCodeIgnorePath, Message: fmt.Sprintf("response_ignores: %v", err)}
		}
	}
	if c.Execution.Concurrency < 1 {
		return &Error{Code: ErrCodeExecution, Message: "concurrency must be at least 1"}
	}
	if c.Execution.TimeoutSeconds < 1 {
		return &Error{Code: ErrCodeExecution, Message: "timeout_seconds must be at least 1"}
	}
	if c.Execution.Retries < 0 {
		return &Error{Code: ErrCodeExecution, Message: "retries must not be negative"}
	}
	if c.Targets.Left.BaseURL == "" || c.Targets.Right.BaseURL == "" {
		return &Error{Code: ErrCodeTarget, Message: "both targets need a base_url"}
	}
	return nil
}

// ExtractorMapping converts the mapping section for the extractor.
func (c *Config) ExtractorMapping() logs.Mapping {
	m := c.LogInput.Mapping
	return logs.Mapping{
		Method:   m.Method,
		URL:      m.URL,
		Path:     m.Path,
		Headers:  m.Headers,
		Query:    m.Query,
		Body:     m.Body,
		MimeType: m.MimeType,
	}
}

// AggregateOptions converts the dedup section for the aggregator.
func (c *Config) AggregateOptions() testcase.Options {
	return testcase.Options{
		Strategy:              testcase.Strategy(c.Deduplication.Strategy),
		IncludeBodyFor:        c.Deduplication.IncludeBodyFor,
		QueryOrderInsensitive: c.Deduplication.QueryParamOrderInsensitive,
		IgnoreQueryParams:     c.RequestIgnores.QueryParams,
	}
}

// RequestIgnoreRules compiles the request-side ignore rules for the
// extractor. Call only after Validate.
func (c *Config) RequestIgnoreRules() (logs.Ignores, error) {
	paths, err := compare.ParseIgnorePaths(c.RequestIgnores.BodyJSONPaths)
	if err != nil {
		return logs.Ignores{}, &Error{Code: ErrCodeIgnorePath, Message: err.Error()}
	}
	return logs.Ignores{
		Headers:     c.RequestIgnores.Headers,
		QueryParams: c.RequestIgnores.QueryParams,
		BodyPaths:   paths,
	}, nil
}

// ResponseIgnoreRules compiles the response-side ignore rules.
// Call only after Validate.
func (c *Config) ResponseIgnoreRules() (compare.Ignores, error) {
	paths, err := compare.ParseIgnorePaths(c.ResponseIgnores.BodyJSONPaths)
	if err != nil {
		return compare.Ignores{}, &Error{Code: ErrCodeIgnorePath, Message: err.Error()}
	}
	return compare.Ignores{
		Headers:   c.ResponseIgnores.Headers,
		BodyPaths: paths,
	}, nil
}

// DiffOptions converts the comparison section for the diff engine.
func (c *Config) DiffOptions() compare.DiffOptions {
	return compare.DiffOptions{ArrayOrderInsensitive: c.Comparison.ArrayOrderInsensitive}
}
