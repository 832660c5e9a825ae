package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zhuj/datacollector/internal/parser"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.datacollector.yaml",               // Project-specific config (highest priority)
	"~/.config/datacollector/config.yaml", // User config
	"/etc/datacollector/config.yaml",      // System config (lowest priority)
}

// EnvPrefix prefixes every environment override
const EnvPrefix = "DATACOLLECTOR_"

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.datacollector.yaml
// 4. ~/.config/datacollector/config.yaml
// 5. /etc/datacollector/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	if customPath != "" {
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// lowest priority first so later files win
		for i := len(l.configPaths) - 1; i >= 0; i-- {
			expandedPath := expandPath(l.configPaths[i])
			if fileExists(expandedPath) {
				if err := l.loadFromFile(config, expandedPath); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
				}
			}
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Source Config
		"SOURCE_LOG_MODE":          func(v string) error { config.Source.LogMode = v; return nil },
		"SOURCE_CUSTOM_LOG_FORMAT": func(v string) error { config.Source.CustomLogFormat = v; return nil },
		"SOURCE_REGEX":             func(v string) error { config.Source.Regex = v; return nil },
		"SOURCE_GROK_PATTERN":      func(v string) error { config.Source.GrokPattern = v; return nil },
		"SOURCE_MAX_LINE_LENGTH":   func(v string) error { return parseInt(v, &config.Source.MaxLineLength) },
		"SOURCE_ON_PARSE_ERROR":    func(v string) error { config.Source.OnParseError = v; return nil },
		"SOURCE_MAX_BATCH_SIZE":    func(v string) error { return parseInt(v, &config.Source.MaxBatchSize) },
		"SOURCE_EMIT_PARTIAL_LINE": func(v string) error { return parseBool(v, &config.Source.EmitPartialLine) },

		// Checkpoint Config
		"CHECKPOINT_PATH": func(v string) error { config.Checkpoint.Path = v; return nil },

		// Follow Config
		"FOLLOW_SETTLE_INTERVAL": func(v string) error { return parseDuration(v, &config.Follow.SettleInterval) },

		// Output Config
		"OUTPUT_FORMAT":     func(v string) error { config.Output.Format = v; return nil },
		"OUTPUT_COLOR_MODE": func(v string) error { config.Output.ColorMode = v; return nil },
		"OUTPUT_VERBOSE":    func(v string) error { return parseBool(v, &config.Output.Verbose) },
	}

	for name, setter := range envMappings {
		envVar := EnvPrefix + name
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// field mappings as a comma-separated list of path=group pairs
	if raw := os.Getenv(EnvPrefix + "SOURCE_FIELD_MAPPINGS"); raw != "" {
		mappings, err := parseFieldMappings(raw)
		if err != nil {
			return fmt.Errorf("invalid value for %sSOURCE_FIELD_MAPPINGS: %w", EnvPrefix, err)
		}
		config.Source.FieldMappings = mappings
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, expandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	// Clean the path to resolve any ".." components
	cleanPath := filepath.Clean(path)

	// Check for path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	// Ensure it's a YAML file
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	// Convert to absolute path for additional validation
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// Basic sanity check - ensure it's not in sensitive system directories
	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config
// Only non-zero values from source overwrite destination
func mergeConfigs(dst, src *Config) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	mergeSourceConfig(&dst.Source, &src.Source)
	if src.Checkpoint.Path != "" {
		dst.Checkpoint.Path = src.Checkpoint.Path
	}
	if src.Follow.SettleInterval != 0 {
		dst.Follow.SettleInterval = src.Follow.SettleInterval
	}
	mergeOutputConfig(&dst.Output, &src.Output)
}

// mergeSourceConfig merges parsing configuration
func mergeSourceConfig(dst, src *SourceConfig) {
	if src.LogMode != "" {
		dst.LogMode = src.LogMode
	}
	if src.CustomLogFormat != "" {
		dst.CustomLogFormat = src.CustomLogFormat
	}
	if src.Regex != "" {
		dst.Regex = src.Regex
	}
	if src.GrokPattern != "" {
		dst.GrokPattern = src.GrokPattern
	}
	if len(src.GrokDefinitions) > 0 {
		if dst.GrokDefinitions == nil {
			dst.GrokDefinitions = make(map[string]string)
		}
		for k, v := range src.GrokDefinitions {
			dst.GrokDefinitions[k] = v
		}
	}
	if len(src.FieldMappings) > 0 {
		dst.FieldMappings = src.FieldMappings
	}
	if src.MaxLineLength != 0 {
		dst.MaxLineLength = src.MaxLineLength
	}
	if src.OnParseError != "" {
		dst.OnParseError = src.OnParseError
	}
	if src.MaxBatchSize != 0 {
		dst.MaxBatchSize = src.MaxBatchSize
	}
	mergeIfSet(&dst.EmitPartialLine, src.EmitPartialLine)
}

// mergeOutputConfig merges output configuration
func mergeOutputConfig(dst, src *OutputConfig) {
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.ColorMode != "" {
		dst.ColorMode = src.ColorMode
	}
	// For boolean fields, we need to check if they were explicitly set
	// This is a limitation of YAML unmarshaling, but we'll handle it in env overrides
	mergeIfSet(&dst.Verbose, src.Verbose)
}

// mergeIfSet only merges boolean values if they appear to be explicitly set
// This is a simple heuristic, but works for most cases
func mergeIfSet(dst *bool, src bool) {
	// For now, always merge - this could be improved with custom unmarshaling
	*dst = src
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseFieldMappings(s string) (parser.FieldMapping, error) {
	var mappings parser.FieldMapping
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		path, group, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("mapping %q is not path=group", pair)
		}
		var n int
		if err := parseInt(strings.TrimSpace(group), &n); err != nil {
			return nil, fmt.Errorf("mapping %q: %w", pair, err)
		}
		mappings = append(mappings, parser.GroupMapping{FieldPath: strings.TrimSpace(path), Group: n})
	}
	return mappings, nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
