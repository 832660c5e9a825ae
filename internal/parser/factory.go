package parser

import (
	"fmt"
	"sort"
	"sync"
)

// CompileFunc compiles the mode-specific part of a strategy
type CompileFunc func(s Strategy) (*Compiled, error)

// DefaultRegistry is the default compiler registry
var DefaultRegistry = NewRegistry()

// Registry maps modes to compilers
type Registry struct {
	compilers    map[Mode]CompileFunc
	descriptions map[Mode]string
	mu           sync.RWMutex
}

// NewRegistry creates a registry with the built-in modes
func NewRegistry() *Registry {
	r := &Registry{
		compilers:    make(map[Mode]CompileFunc),
		descriptions: make(map[Mode]string),
	}

	r.Register(ModeCommonLogFormat, "Apache/NCSA common log format", fixedFormat(ModeCommonLogFormat))
	r.Register(ModeCombinedLogFormat, "Apache/NCSA combined log format", fixedFormat(ModeCombinedLogFormat))
	r.Register(ModeApacheErrorLogFormat, "Apache httpd error log", fixedFormat(ModeApacheErrorLogFormat))
	r.Register(ModeApacheCustomLogFormat, "Apache LogFormat template (custom_log_format)", compileCustomFormat)
	r.Register(ModeRegex, "RE2 regular expression with field/group mapping (regex)", func(s Strategy) (*Compiled, error) {
		return compileRegex(ModeRegex, s.Regex)
	})
	r.Register(ModeGrok, "Grok expression (grok_pattern, grok_definitions)", compileGrok)
	r.Register(ModeStructured, "JSON, logfmt or plain text auto-detection", compileStructured)

	return r
}

// Register adds or replaces the compiler for a mode
func (r *Registry) Register(mode Mode, description string, fn CompileFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.compilers[mode] = fn
	r.descriptions[mode] = description
}

// Modes returns the registered modes sorted by name
func (r *Registry) Modes() []Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modes := make([]Mode, 0, len(r.compilers))
	for m := range r.compilers {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Describe returns the description registered for mode
func (r *Registry) Describe(mode Mode) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descriptions[mode]
}

// Compile validates a strategy and mapping and returns a matcher
func (r *Registry) Compile(s Strategy, mapping FieldMapping) (*Matcher, error) {
	r.mu.RLock()
	fn, ok := r.compilers[s.Mode]
	r.mu.RUnlock()

	if !ok {
		return nil, &ConfigError{
			Kind:   KindUnknownMode,
			Mode:   s.Mode,
			Detail: fmt.Sprintf("unknown log mode %q", s.Mode),
		}
	}

	compiled, err := fn(s)
	if err != nil {
		return nil, err
	}

	return bind(s.Mode, compiled, mapping)
}

// Compile compiles with the default registry
func Compile(s Strategy, mapping FieldMapping) (*Matcher, error) {
	return DefaultRegistry.Compile(s, mapping)
}

// Modes lists the modes of the default registry
func Modes() []Mode {
	return DefaultRegistry.Modes()
}
