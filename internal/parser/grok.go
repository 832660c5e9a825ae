package parser

import (
	"fmt"
	"regexp"
	"strings"

	grok "github.com/elastic/go-grok"
	"github.com/elastic/go-grok/patterns"
)

const maxGrokDepth = 32

// grokRef matches %{NAME}, %{NAME:field} and %{NAME:field:type} the way
// go-grok expands them
var grokRef = regexp.MustCompile(`%{(\w+)(?::([\w+.]+)(?::\w+)?)?}`)

// grokCatalogs is the pattern set compiled grok expressions can reference,
// on top of patterns.Default
var grokCatalogs = []map[string]string{
	patterns.AWS,
	patterns.Bind9,
	patterns.Bro,
	patterns.Exim,
	patterns.HAProxy,
	patterns.Httpd,
	patterns.Firewalls,
	patterns.Java,
	patterns.Junos,
	patterns.Maven,
	patterns.MCollective,
	patterns.MongoDB,
	patterns.PostgreSQL,
	patterns.Rails,
	patterns.Redis,
	patterns.Ruby,
	patterns.Squid,
	patterns.Syslog,
}

// grokEngine matches with go-grok and lays the named captures out
// positionally, in order of first appearance in the expanded expression
type grokEngine struct {
	g      *grok.Grok
	fields []string
}

func (e *grokEngine) Match(line string) ([]string, error) {
	captures, err := e.g.ParseString(line)
	if err != nil {
		return nil, err
	}
	if len(captures) == 0 && !e.g.MatchString(line) {
		return nil, nil
	}

	groups := make([]string, len(e.fields)+1)
	groups[0] = line
	for i, field := range e.fields {
		groups[i+1] = captures[field]
	}
	return groups, nil
}

func (e *grokEngine) NumGroups() int {
	return len(e.fields)
}

// grokFields lists the semantic field names of expr in the order their
// captures open, following definitions down to maxGrokDepth
type grokFields struct {
	defs  map[string]string
	names []string
	seen  map[string]bool
}

func newGrokFields(extra map[string]string) *grokFields {
	defs := make(map[string]string, len(patterns.Default))
	for k, v := range patterns.Default {
		defs[k] = v
	}
	for _, catalog := range grokCatalogs {
		for k, v := range catalog {
			defs[k] = v
		}
	}
	for k, v := range extra {
		defs[k] = v
	}
	return &grokFields{defs: defs, seen: make(map[string]bool)}
}

func (f *grokFields) walk(expr string, depth int) error {
	if depth > maxGrokDepth {
		return fmt.Errorf("grok definitions nest deeper than %d levels (recursive definition?)", maxGrokDepth)
	}
	for _, m := range grokRef.FindAllStringSubmatch(expr, -1) {
		name, field := m[1], m[2]
		def, ok := f.defs[name]
		if !ok {
			return fmt.Errorf("unknown grok pattern %s", name)
		}
		if field != "" && !f.seen[field] {
			f.seen[field] = true
			f.names = append(f.names, field)
		}
		if err := f.walk(def, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// compileGrok compiles a grok expression with the full go-grok catalog plus
// the user definitions and maps each %{NAME:field} to a field
func compileGrok(s Strategy) (*Compiled, error) {
	const mode = ModeGrok

	if strings.TrimSpace(s.GrokPattern) == "" {
		return nil, invalidPattern(mode, "empty grok pattern", nil)
	}

	fields := newGrokFields(s.GrokDefinitions)
	if err := fields.walk(s.GrokPattern, 0); err != nil {
		return nil, invalidPattern(mode, "grok pattern does not expand", err)
	}

	catalogs := append(append([]map[string]string{}, grokCatalogs...), s.GrokDefinitions)
	g, err := grok.NewWithPatterns(catalogs...)
	if err != nil {
		return nil, invalidPattern(mode, "invalid grok definitions", err)
	}
	if err := g.Compile(s.GrokPattern, true); err != nil {
		return nil, invalidPattern(mode, "grok pattern does not compile", err)
	}

	defaults := make(FieldMapping, 0, len(fields.names))
	for i, field := range fields.names {
		defaults = append(defaults, GroupMapping{
			FieldPath: grokFieldPath(field),
			Group:     i + 1,
		})
	}

	return &Compiled{
		Engine:   &grokEngine{g: g, fields: fields.names},
		Pattern:  s.GrokPattern,
		Defaults: defaults,
	}, nil
}

// grokFieldPath turns dotted a.b names into /a/b
func grokFieldPath(field string) string {
	return strings.ReplaceAll(field, ".", "/")
}
