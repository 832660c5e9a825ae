package parser

import (
	"fmt"
	"regexp"

	"github.com/zhuj/datacollector/internal/record"
)

// Engine attempts a match against one line. A successful match returns the
// full match at index 0 followed by one entry per capture group. No match
// returns nil and a nil error; an error means the line could not be decoded.
type Engine interface {
	Match(line string) ([]string, error)

	// NumGroups returns the number of capture groups
	NumGroups() int
}

// Compiled is what a mode compiler produces
type Compiled struct {
	Engine Engine

	// Pattern is the effective expression, for display
	Pattern string

	// Defaults is the mapping used when the caller supplies none
	Defaults FieldMapping
}

// Matcher is a validated, ready to use parsing strategy
type Matcher struct {
	mode    Mode
	pattern string
	engine  Engine
	mapping FieldMapping
}

// Mode returns the strategy mode
func (m *Matcher) Mode() Mode {
	return m.mode
}

// Pattern returns the effective expression
func (m *Matcher) Pattern() string {
	return m.pattern
}

// NumGroups returns the number of capture groups of the compiled pattern
func (m *Matcher) NumGroups() int {
	return m.engine.NumGroups()
}

// Mapping returns a copy of the effective field mapping
func (m *Matcher) Mapping() FieldMapping {
	out := make(FieldMapping, len(m.mapping))
	copy(out, m.mapping)
	return out
}

// Extract applies the matcher to one raw line
func (m *Matcher) Extract(line string) Outcome {
	groups, err := m.engine.Match(line)
	if err != nil {
		return Outcome{Kind: Malformed, Cause: err}
	}
	if groups == nil {
		return Outcome{Kind: Unmatched}
	}

	values := make([]Value, 0, len(m.mapping))
	for _, fm := range m.mapping {
		if fm.Group >= len(groups) {
			return Outcome{
				Kind:  Malformed,
				Cause: fmt.Errorf("group %d for %s not present in match of %d groups", fm.Group, fm.FieldPath, len(groups)-1),
			}
		}
		values = append(values, Value{Path: fm.FieldPath, Value: groups[fm.Group]})
	}

	return Outcome{Kind: Matched, Values: values}
}

// bind validates mapping against the compiled engine and normalizes paths
func bind(mode Mode, c *Compiled, mapping FieldMapping) (*Matcher, error) {
	if len(mapping) == 0 {
		mapping = c.Defaults
	}

	groups := c.Engine.NumGroups()
	seen := make(map[string]bool, len(mapping))
	bound := make(FieldMapping, 0, len(mapping))

	for _, fm := range mapping {
		path := record.NormalizePath(fm.FieldPath)
		if path == "/" || path == record.OriginalLinePath || path == record.TruncatedPath {
			return nil, &ConfigError{
				Kind:   KindInvalidField,
				Mode:   mode,
				Detail: fmt.Sprintf("field path %q is empty or reserved", fm.FieldPath),
			}
		}
		if seen[path] {
			return nil, &ConfigError{
				Kind:   KindDuplicateField,
				Mode:   mode,
				Detail: fmt.Sprintf("field path %s mapped more than once", path),
			}
		}
		if fm.Group < 1 || fm.Group > groups {
			return nil, &ConfigError{
				Kind:   KindGroupOutOfRange,
				Mode:   mode,
				Detail: fmt.Sprintf("group %d for %s is outside [1, %d]", fm.Group, path, groups),
			}
		}
		seen[path] = true
		bound = append(bound, GroupMapping{FieldPath: path, Group: fm.Group})
	}

	return &Matcher{
		mode:    mode,
		pattern: c.Pattern,
		engine:  c.Engine,
		mapping: bound,
	}, nil
}

// regexEngine matches with a compiled RE2 expression
type regexEngine struct {
	re *regexp.Regexp
}

func (e *regexEngine) Match(line string) ([]string, error) {
	return e.re.FindStringSubmatch(line), nil
}

func (e *regexEngine) NumGroups() int {
	return e.re.NumSubexp()
}

// compileRegex compiles expr and derives a default mapping from named groups
func compileRegex(mode Mode, expr string) (*Compiled, error) {
	if expr == "" {
		return nil, invalidPattern(mode, "empty pattern", nil)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, invalidPattern(mode, "pattern does not compile", err)
	}

	var defaults FieldMapping
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		defaults = append(defaults, GroupMapping{FieldPath: name, Group: i})
	}

	return &Compiled{
		Engine:   &regexEngine{re: re},
		Pattern:  expr,
		Defaults: defaults,
	}, nil
}
