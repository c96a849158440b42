package lspservice

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
)

// InitializationOptions are the server-specific settings a client may send
// in initialize.initializationOptions.
type InitializationOptions struct {
	// LogLevel adjusts server log verbosity.
	LogLevel string `json:"logLevel,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,description=Server log verbosity"`
	// ExtraKeywords are offered by completion in addition to the built-in keywords.
	ExtraKeywords []string `json:"extraKeywords,omitempty" jsonschema:"description=Additional keywords offered by completion"`
}

// ParseInitializationOptions decodes raw. Absent or null input yields the
// zero value.
func ParseInitializationOptions(raw json.RawMessage) (InitializationOptions, error) {
	var opts InitializationOptions
	if len(raw) == 0 || string(raw) == "null" {
		return opts, nil
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return InitializationOptions{}, fmt.Errorf("decode initializationOptions: %w", err)
	}
	return opts, nil
}

// ParseLogLevel maps a level name to a slog.Level. Matching is case
// insensitive and "warning" is accepted for warn.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, name)
	}
}

// ErrInvalidLogLevel indicates an unknown log level name.
var ErrInvalidLogLevel = fmt.Errorf("invalid log level")

// InitializationOptionsSchema returns the JSON Schema describing
// InitializationOptions.
func InitializationOptionsSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(&InitializationOptions{})
	s.Title = "zoof-lsp initialization options"
	return s
}
