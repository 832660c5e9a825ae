package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	clfPattern = `^(\S+) (\S+) (\S+) \[([^\]]+)\] "(\S+) (\S+)\s*(\S*)\s*" (\d{3}) (\S+)`

	combinedPattern = clfPattern + ` "([^"]*)" "([^"]*)"`

	errorLogPattern = `^\[([^\]]+)\] \[([\w:]+)\](?: \[pid (\d+)(?::tid \d+)?\])?(?: \[client ([^\]]+)\])? (.*)$`
)

var clfFields = []string{
	"remoteHost", "logName", "remoteUser", "requestTime",
	"verb", "request", "httpVersion", "status", "bytesSent",
}

// fixedFormats holds the built-in, non-configurable formats
var fixedFormats = map[Mode]struct {
	pattern string
	fields  []string
}{
	ModeCommonLogFormat: {
		pattern: clfPattern,
		fields:  clfFields,
	},
	ModeCombinedLogFormat: {
		pattern: combinedPattern,
		fields:  append(append([]string{}, clfFields...), "referer", "agent"),
	},
	ModeApacheErrorLogFormat: {
		pattern: errorLogPattern,
		fields:  []string{"dateTime", "severity", "processId", "clientIpAddress", "message"},
	},
}

func fixedFormat(mode Mode) CompileFunc {
	return func(Strategy) (*Compiled, error) {
		f, ok := fixedFormats[mode]
		if !ok {
			return nil, &ConfigError{Kind: KindUnknownMode, Mode: mode, Detail: "no built-in format"}
		}
		c, err := compileRegex(mode, f.pattern)
		if err != nil {
			return nil, err
		}
		c.Defaults = positional(f.fields)
		return c, nil
	}
}

// positional maps fields to groups 1..n
func positional(fields []string) FieldMapping {
	m := make(FieldMapping, len(fields))
	for i, f := range fields {
		m[i] = GroupMapping{FieldPath: f, Group: i + 1}
	}
	return m
}

// directive describes one Apache LogFormat %-directive
type directive struct {
	field   string
	pattern string
}

var directives = map[byte]directive{
	'a': {"remoteIp", `(\S+)`},
	'A': {"localIp", `(\S+)`},
	'B': {"bytesSent", `(\d+)`},
	'b': {"bytesSent", `(\d+|-)`},
	'D': {"timeTakenMicros", `(\d+)`},
	'f': {"fileName", `(\S+)`},
	'h': {"remoteHost", `(\S+)`},
	'H': {"protocol", `(\S+)`},
	'I': {"bytesReceived", `(\d+)`},
	'k': {"keepAliveRequests", `(\d+)`},
	'l': {"logName", `(\S+)`},
	'L': {"logId", `(\S+)`},
	'm': {"method", `(\S+)`},
	'O': {"bytesSentWithHeaders", `(\d+)`},
	'p': {"port", `(\d+)`},
	'P': {"processId", `(\d+)`},
	'q': {"queryString", `(\S*)`},
	'r': {"request", `([^"]*)`},
	'R': {"handler", `(\S+)`},
	's': {"status", `(\d{3})`},
	't': {"requestTime", `(\d{2}/\w{3}/\d{4}:\d{2}:\d{2}:\d{2} [+\-]\d{4})`},
	'T': {"timeTakenSeconds", `(\d+)`},
	'u': {"remoteUser", `(\S+)`},
	'U': {"urlPath", `(\S+)`},
	'v': {"serverName", `(\S+)`},
	'V': {"canonicalServerName", `(\S+)`},
	'X': {"connectionStatus", `([Xx+\-])`},
}

// compileCustomFormat turns an Apache LogFormat template such as
// %h %l %u [%t] "%r" %>s %b into a regular expression with one group per
// directive.
func compileCustomFormat(s Strategy) (*Compiled, error) {
	const mode = ModeApacheCustomLogFormat

	tmpl := s.CustomFormat
	if strings.TrimSpace(tmpl) == "" {
		return nil, invalidPattern(mode, "empty custom log format", nil)
	}

	var (
		expr   strings.Builder
		fields []string
		used   = make(map[string]int)
	)
	expr.WriteByte('^')

	addField := func(name, pattern string) {
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s%d", name, n)
		}
		fields = append(fields, name)
		expr.WriteString(pattern)
	}

	for i := 0; i < len(tmpl); i++ {
		ch := tmpl[i]
		if ch != '%' {
			expr.WriteString(regexp.QuoteMeta(tmpl[i : i+1]))
			continue
		}

		i++
		if i >= len(tmpl) {
			return nil, invalidPattern(mode, "template ends with a bare %", nil)
		}
		if tmpl[i] == '%' {
			expr.WriteString("%")
			continue
		}

		// status code conditions and redirect modifiers: %400,501{..}i %>s %<s %!200u
		for i < len(tmpl) && strings.IndexByte("<>!,0123456789", tmpl[i]) >= 0 {
			i++
		}

		var arg string
		if i < len(tmpl) && tmpl[i] == '{' {
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return nil, invalidPattern(mode, fmt.Sprintf("unterminated {} at position %d", i), nil)
			}
			arg = tmpl[i+1 : i+end]
			i += end + 1
		}
		if i >= len(tmpl) {
			return nil, invalidPattern(mode, "template ends inside a directive", nil)
		}

		code := tmpl[i]
		if arg != "" {
			name, pattern, ok := argDirective(code, arg)
			if !ok {
				return nil, invalidPattern(mode, fmt.Sprintf("unsupported directive %%{%s}%c", arg, code), nil)
			}
			addField(name, pattern)
			continue
		}

		d, ok := directives[code]
		if !ok {
			return nil, invalidPattern(mode, fmt.Sprintf("unsupported directive %%%c", code), nil)
		}
		addField(d.field, d.pattern)
	}

	c, err := compileRegex(mode, expr.String())
	if err != nil {
		return nil, err
	}
	c.Defaults = positional(fields)
	return c, nil
}

// argDirective handles %{arg}X directives
func argDirective(code byte, arg string) (string, string, bool) {
	switch code {
	case 'i', 'o':
		return lowerCamel(arg), `([^"]*)`, true
	case 'C', 'e', 'n':
		return lowerCamel(arg), `(\S*)`, true
	case 't':
		return "requestTime", `([^\]]+)`, true
	case 'p':
		return "port", `(\d+)`, true
	case 'P':
		return "processId", `(\d+)`, true
	default:
		return "", "", false
	}
}

// lowerCamel converts names like User-Agent to userAgent
func lowerCamel(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for i, p := range parts {
		p = strings.ToLower(p)
		if i > 0 {
			p = strings.ToUpper(p[:1]) + p[1:]
		}
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "header"
	}
	return b.String()
}
