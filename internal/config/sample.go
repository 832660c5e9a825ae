package config

// SampleConfig returns a fully documented configuration file
func SampleConfig() string {
	return `# datacollector configuration
version: "1.0"

source:
  # Parsing strategy. One of:
  #   common_log_format, combined_log_format, apache_error_log_format,
  #   apache_custom_log_format, regex, grok, structured
  log_mode: common_log_format

  # Template for apache_custom_log_format
  custom_log_format: '%h %l %u [%t] "%r" %>s %b'

  # Pattern for regex mode (RE2 syntax). Named groups become fields when
  # field_mappings is empty.
  regex: ""

  # Pattern for grok mode, plus extra NAME: regex definitions
  grok_pattern: ""
  grok_definitions: {}

  # Ordered field/group pairs. Empty uses the mode's default fields.
  # field_mappings:
  #   - field_path: remoteHost
  #     group: 1
  field_mappings: []

  # Lines longer than this many bytes are truncated and flagged; 0 = unlimited
  max_line_length: 1024

  # What to do with a line that does not parse: error | ignore | include
  on_parse_error: error

  # Records per batch when no explicit maximum is given
  max_batch_size: 1000

  # Treat an unterminated last line as data instead of waiting for its newline
  emit_partial_line: false

checkpoint:
  # Where follow keeps resume offsets
  path: ~/.cache/datacollector/offsets.json

follow:
  # Quiet time after a write before reading
  settle_interval: 200ms

output:
  format: json       # json | csv | text
  color_mode: auto   # auto | always | never
  verbose: false
`
}

// MinimalSampleConfig returns a compact configuration file
func MinimalSampleConfig() string {
	return `version: "1.0"
source:
  log_mode: common_log_format
  on_parse_error: error
output:
  format: json
`
}
