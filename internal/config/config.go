package config

import (
	"fmt"
	"time"

	"github.com/zhuj/datacollector/internal/parser"
	"github.com/zhuj/datacollector/internal/spool"
)

// Config holds the complete application configuration
type Config struct {
	Version    string           `yaml:"version" json:"version"`
	Source     SourceConfig     `yaml:"source" json:"source"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`
	Follow     FollowConfig     `yaml:"follow" json:"follow"`
	Output     OutputConfig     `yaml:"output" json:"output"`
}

// SourceConfig configures how lines are parsed into records
type SourceConfig struct {
	// LogMode selects the parsing strategy, see `datacollector formats`
	LogMode string `yaml:"log_mode" json:"log_mode"`

	CustomLogFormat string            `yaml:"custom_log_format" json:"custom_log_format"`
	Regex           string            `yaml:"regex" json:"regex"`
	GrokPattern     string            `yaml:"grok_pattern" json:"grok_pattern"`
	GrokDefinitions map[string]string `yaml:"grok_definitions" json:"grok_definitions"`

	// FieldMappings is the ordered list of field/group pairs; empty uses
	// the mode's default fields
	FieldMappings parser.FieldMapping `yaml:"field_mappings" json:"field_mappings"`

	MaxLineLength   int    `yaml:"max_line_length" json:"max_line_length"` // 0 = unlimited
	OnParseError    string `yaml:"on_parse_error" json:"on_parse_error"`   // error|ignore|include
	MaxBatchSize    int    `yaml:"max_batch_size" json:"max_batch_size"`
	EmitPartialLine bool   `yaml:"emit_partial_line" json:"emit_partial_line"`
}

// CheckpointConfig configures offset persistence for follow
type CheckpointConfig struct {
	Path string `yaml:"path" json:"path"`
}

// FollowConfig configures the follow command
type FollowConfig struct {
	SettleInterval time.Duration `yaml:"settle_interval" json:"settle_interval"` // quiet time before reading after a write burst
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	Format    string `yaml:"format" json:"format"`         // json|csv|text
	ColorMode string `yaml:"color_mode" json:"color_mode"` // auto|always|never
	Verbose   bool   `yaml:"verbose" json:"verbose"`       // default verbosity
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Source: SourceConfig{
			LogMode:         string(parser.ModeCommonLogFormat),
			CustomLogFormat: `%h %l %u [%t] "%r" %>s %b`,
			GrokDefinitions: make(map[string]string),
			MaxLineLength:   1024,
			OnParseError:    string(spool.PolicyError),
			MaxBatchSize:    spool.DefaultMaxBatchSize,
		},
		Checkpoint: CheckpointConfig{
			Path: "~/.cache/datacollector/offsets.json",
		},
		Follow: FollowConfig{
			SettleInterval: 200 * time.Millisecond,
		},
		Output: OutputConfig{
			Format:    "json",
			ColorMode: "auto",
			Verbose:   false,
		},
	}
}

// Strategy returns the parsing strategy described by the source section
func (s *SourceConfig) Strategy() parser.Strategy {
	return parser.Strategy{
		Mode:            parser.ParseMode(s.LogMode),
		CustomFormat:    s.CustomLogFormat,
		Regex:           s.Regex,
		GrokPattern:     s.GrokPattern,
		GrokDefinitions: s.GrokDefinitions,
	}
}

// SpoolConfig converts the source section into a batch assembler config
func (c *Config) SpoolConfig() spool.Config {
	policy, _ := spool.ParsePolicy(c.Source.OnParseError)
	return spool.Config{
		Strategy:      c.Source.Strategy(),
		Mapping:       c.Source.FieldMappings,
		MaxLineLength: c.Source.MaxLineLength,
		OnParseError:  policy,
		MaxBatchSize:  c.Source.MaxBatchSize,
		EmitPartial:   c.Source.EmitPartialLine,
	}
}

// CheckpointPath returns the checkpoint path with ~ expanded
func (c *Config) CheckpointPath() string {
	return expandPath(c.Checkpoint.Path)
}

// Validate validates the configuration. Patterns are compiled later by
// spool.NewSource; this only checks values that do not need compiling.
func (c *Config) Validate() error {
	if err := c.validateSourceConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if err := c.validateFollowConfig(); err != nil {
		return err
	}
	return nil
}

// validateSourceConfig validates parsing related configuration
func (c *Config) validateSourceConfig() error {
	mode := parser.ParseMode(c.Source.LogMode)
	known := false
	for _, m := range parser.Modes() {
		if m == mode {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("invalid log mode: %s (run 'datacollector formats' for the list)", c.Source.LogMode)
	}

	if _, err := spool.ParsePolicy(c.Source.OnParseError); err != nil {
		return err
	}
	if c.Source.MaxLineLength < 0 {
		return fmt.Errorf("max_line_length must be non-negative")
	}
	if c.Source.MaxBatchSize < 1 {
		return fmt.Errorf("max_batch_size must be greater than 0")
	}
	for i, fm := range c.Source.FieldMappings {
		if fm.FieldPath == "" {
			return fmt.Errorf("field_mappings[%d]: field_path is required", i)
		}
		if fm.Group < 1 {
			return fmt.Errorf("field_mappings[%d]: group must be greater than 0", i)
		}
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.Format != "" {
		validFormats := map[string]bool{
			"json": true,
			"text": true,
			"csv":  true,
		}
		if !validFormats[c.Output.Format] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, csv)", c.Output.Format)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}

// validateFollowConfig validates follow-related configuration
func (c *Config) validateFollowConfig() error {
	if c.Follow.SettleInterval < 0 {
		return fmt.Errorf("settle_interval must be non-negative")
	}
	return nil
}
