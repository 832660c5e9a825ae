package parser

import (
	"errors"
	"strings"
	"testing"
)

const (
	apacheRegex = `^(\S+) (\S+) (\S+) \[([\w:/]+\s[+\-]\d{4})\] "(\S+ \S+ \S+)" (\d{3}) (\d+)`

	// missing the closing paren of the request group
	invalidApacheRegex = `^(\S+) (\S+) (\S+) \[([\w:/]+\s[+\-]\d{4})\] "(\S+ \S+ \S+" (\d{3}) (\d+)`

	line1 = `127.0.0.1 ss h [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326`
)

func apacheMapping() FieldMapping {
	return FieldMapping{
		{FieldPath: "remoteHost", Group: 1},
		{FieldPath: "logName", Group: 2},
		{FieldPath: "remoteUser", Group: 3},
		{FieldPath: "requestTime", Group: 4},
		{FieldPath: "request", Group: 5},
		{FieldPath: "status", Group: 6},
		{FieldPath: "bytesSent", Group: 7},
	}
}

func valuesOf(t *testing.T, o Outcome) map[string]string {
	t.Helper()
	if o.Kind != Matched {
		t.Fatalf("want matched outcome, got %v (cause %v)", o.Kind, o.Cause)
	}
	out := make(map[string]string, len(o.Values))
	for _, v := range o.Values {
		out[v.Path] = v.Value
	}
	return out
}

func TestRegexExtract(t *testing.T) {
	m, err := Compile(Strategy{Mode: ModeRegex, Regex: apacheRegex}, apacheMapping())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	o := m.Extract(line1)
	if o.Kind != Matched {
		t.Fatalf("want Matched, got %v", o.Kind)
	}

	want := []Value{
		{Path: "/remoteHost", Value: "127.0.0.1"},
		{Path: "/logName", Value: "ss"},
		{Path: "/remoteUser", Value: "h"},
		{Path: "/requestTime", Value: "10/Oct/2000:13:55:36 -0700"},
		{Path: "/request", Value: "GET /apache_pb.gif HTTP/1.0"},
		{Path: "/status", Value: "200"},
		{Path: "/bytesSent", Value: "2326"},
	}
	if len(o.Values) != len(want) {
		t.Fatalf("want %d values, got %d", len(want), len(o.Values))
	}
	for i := range want {
		if o.Values[i] != want[i] {
			t.Errorf("value %d: want %+v, got %+v", i, want[i], o.Values[i])
		}
	}

	if got := m.Extract("not an access log line"); got.Kind != Unmatched {
		t.Errorf("want Unmatched, got %v", got.Kind)
	}
}

func TestMappingOrderFollowsConfig(t *testing.T) {
	mapping := FieldMapping{
		{FieldPath: "status", Group: 6},
		{FieldPath: "remoteHost", Group: 1},
	}
	m, err := Compile(Strategy{Mode: ModeRegex, Regex: apacheRegex}, mapping)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	o := m.Extract(line1)
	if o.Values[0].Path != "/status" || o.Values[1].Path != "/remoteHost" {
		t.Errorf("values not in mapping order: %+v", o.Values)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		mapping  FieldMapping
		wantErr  error
	}{
		{
			name:     "invalid regex",
			strategy: Strategy{Mode: ModeRegex, Regex: invalidApacheRegex},
			mapping:  apacheMapping(),
			wantErr:  ErrInvalidPattern,
		},
		{
			name:     "empty regex",
			strategy: Strategy{Mode: ModeRegex},
			wantErr:  ErrInvalidPattern,
		},
		{
			name:     "group number past last group",
			strategy: Strategy{Mode: ModeRegex, Regex: apacheRegex},
			mapping:  append(apacheMapping(), GroupMapping{FieldPath: "nonExistingGroup", Group: 8}),
			wantErr:  ErrGroupOutOfRange,
		},
		{
			name:     "group zero",
			strategy: Strategy{Mode: ModeRegex, Regex: apacheRegex},
			mapping:  FieldMapping{{FieldPath: "whole", Group: 0}},
			wantErr:  ErrGroupOutOfRange,
		},
		{
			name:     "duplicate field",
			strategy: Strategy{Mode: ModeRegex, Regex: apacheRegex},
			mapping:  FieldMapping{{FieldPath: "a", Group: 1}, {FieldPath: "/a", Group: 2}},
			wantErr:  ErrDuplicateField,
		},
		{
			name:     "reserved field",
			strategy: Strategy{Mode: ModeRegex, Regex: apacheRegex},
			mapping:  FieldMapping{{FieldPath: "originalLine", Group: 1}},
			wantErr:  ErrInvalidField,
		},
		{
			name:     "unknown mode",
			strategy: Strategy{Mode: "log4j"},
			wantErr:  ErrUnknownMode,
		},
		{
			name:     "structured has three groups",
			strategy: Strategy{Mode: ModeStructured},
			mapping:  FieldMapping{{FieldPath: "extra", Group: 4}},
			wantErr:  ErrGroupOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(tt.strategy, tt.mapping)
			if err == nil {
				t.Fatalf("expected error, got matcher %v", m)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("error should be a config error: %v", err)
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Errorf("error should unwrap to *ConfigError: %T", err)
			}
		})
	}
}

func TestNamedGroupsAsDefaults(t *testing.T) {
	m, err := Compile(Strategy{Mode: ModeRegex, Regex: `^(?P<level>\w+): (?P<msg>.*)$`}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := valuesOf(t, m.Extract("ERROR: disk full"))
	if got["/level"] != "ERROR" || got["/msg"] != "disk full" {
		t.Errorf("unexpected values %v", got)
	}
}

func TestFixedFormats(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		input string
		want  map[string]string
	}{
		{
			name:  "common log format",
			mode:  ModeCommonLogFormat,
			input: line1,
			want: map[string]string{
				"/remoteHost":  "127.0.0.1",
				"/requestTime": "10/Oct/2000:13:55:36 -0700",
				"/verb":        "GET",
				"/request":     "/apache_pb.gif",
				"/httpVersion": "HTTP/1.0",
				"/status":      "200",
				"/bytesSent":   "2326",
			},
		},
		{
			name:  "combined log format",
			mode:  ModeCombinedLogFormat,
			input: line1 + ` "http://www.example.com/start.html" "Mozilla/4.08 [en] (Win98; I ;Nav)"`,
			want: map[string]string{
				"/remoteHost": "127.0.0.1",
				"/referer":    "http://www.example.com/start.html",
				"/agent":      "Mozilla/4.08 [en] (Win98; I ;Nav)",
			},
		},
		{
			name:  "apache 2.2 error log",
			mode:  ModeApacheErrorLogFormat,
			input: `[Wed Oct 11 14:32:52 2000] [error] [client 127.0.0.1] client denied by server configuration: /export/home/live/ap/htdocs/test`,
			want: map[string]string{
				"/dateTime":        "Wed Oct 11 14:32:52 2000",
				"/severity":        "error",
				"/processId":       "",
				"/clientIpAddress": "127.0.0.1",
				"/message":         "client denied by server configuration: /export/home/live/ap/htdocs/test",
			},
		},
		{
			name:  "apache 2.4 error log",
			mode:  ModeApacheErrorLogFormat,
			input: `[Fri Sep 09 10:42:29.902022 2011] [core:error] [pid 35708:tid 4328636416] [client 72.15.99.187] File does not exist: /usr/local/apache2/htdocs/favicon.ico`,
			want: map[string]string{
				"/severity":        "core:error",
				"/processId":       "35708",
				"/clientIpAddress": "72.15.99.187",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(Strategy{Mode: tt.mode}, nil)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got := valuesOf(t, m.Extract(tt.input))
			for path, want := range tt.want {
				if got[path] != want {
					t.Errorf("%s: want %q, got %q", path, want, got[path])
				}
			}
		})
	}
}

func TestCustomLogFormat(t *testing.T) {
	m, err := Compile(Strategy{
		Mode:         ModeApacheCustomLogFormat,
		CustomFormat: `%h %l %u [%t] "%m %U %H" %>s %b`,
	}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if m.NumGroups() != 9 {
		t.Errorf("want 9 groups, got %d", m.NumGroups())
	}

	got := valuesOf(t, m.Extract(line1))
	want := map[string]string{
		"/remoteHost":  "127.0.0.1",
		"/logName":     "ss",
		"/remoteUser":  "h",
		"/requestTime": "10/Oct/2000:13:55:36 -0700",
		"/method":      "GET",
		"/urlPath":     "/apache_pb.gif",
		"/protocol":    "HTTP/1.0",
		"/status":      "200",
		"/bytesSent":   "2326",
	}
	for path, w := range want {
		if got[path] != w {
			t.Errorf("%s: want %q, got %q", path, w, got[path])
		}
	}
}

func TestCustomLogFormatHeadersAndErrors(t *testing.T) {
	m, err := Compile(Strategy{
		Mode:         ModeApacheCustomLogFormat,
		CustomFormat: `%h "%{Referer}i" "%{User-Agent}i" %b %b`,
	}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := valuesOf(t, m.Extract(`10.0.0.1 "http://a/" "curl/8.0" 12 -`))
	if got["/referer"] != "http://a/" || got["/userAgent"] != "curl/8.0" {
		t.Errorf("unexpected header values %v", got)
	}
	if got["/bytesSent"] != "12" || got["/bytesSent2"] != "-" {
		t.Errorf("repeated directives should get distinct fields: %v", got)
	}

	for _, tmpl := range []string{"", "%h %", "%h %Z", "%{Referer"} {
		if _, err := Compile(Strategy{Mode: ModeApacheCustomLogFormat, CustomFormat: tmpl}, nil); !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("template %q: want invalid pattern, got %v", tmpl, err)
		}
	}
}

func TestGrok(t *testing.T) {
	m, err := Compile(Strategy{Mode: ModeGrok, GrokPattern: `%{COMMONAPACHELOG}`}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := valuesOf(t, m.Extract(line1))
	want := map[string]string{
		"/source/address":              "127.0.0.1",
		"/apache/access/user/identity": "ss",
		"/user/name":                   "h",
		"/timestamp":                   "10/Oct/2000:13:55:36 -0700",
		"/http/request/method":         "GET",
		"/url/original":                "/apache_pb.gif",
		"/http/version":                "1.0",
		"/http/response/status_code":   "200",
		"/http/response/body/size":     "2326",
	}
	for path, w := range want {
		if got[path] != w {
			t.Errorf("%s: want %q, got %q", path, w, got[path])
		}
	}

	if got := m.Extract("not an access log line"); got.Kind != Unmatched {
		t.Errorf("want unmatched, got %v", got.Kind)
	}
}

func TestGrokFieldOrder(t *testing.T) {
	m, err := Compile(Strategy{
		Mode:            ModeGrok,
		GrokPattern:     `%{WORD:verb} %{PAIR} %{WORD:verb}(?: %{INT:code})?`,
		GrokDefinitions: map[string]string{"PAIR": `%{WORD:key}=%{WORD:value}`},
	}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	var paths []string
	for _, fm := range m.Mapping() {
		paths = append(paths, fm.FieldPath)
	}
	want := []string{"/verb", "/key", "/value", "/code"}
	if len(paths) != len(want) {
		t.Fatalf("want mapping %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("want mapping %v, got %v", want, paths)
		}
	}

	got := valuesOf(t, m.Extract("GET a=b POST"))
	if got["/verb"] != "POST" || got["/key"] != "a" || got["/value"] != "b" {
		t.Errorf("unexpected values %v", got)
	}
	if v, ok := got["/code"]; !ok || v != "" {
		t.Errorf("optional capture should be empty, got %q (present %v)", v, ok)
	}
}

func TestGrokCustomDefinitions(t *testing.T) {
	m, err := Compile(Strategy{
		Mode:            ModeGrok,
		GrokPattern:     `%{TIMESTAMP_ISO8601:time} %{LOGLEVEL:log.level} %{ORDERID:order}`,
		GrokDefinitions: map[string]string{"ORDERID": `ORD-\d+`},
	}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	got := valuesOf(t, m.Extract("2024-01-02T15:04:05Z WARN ORD-42"))
	if got["/time"] != "2024-01-02T15:04:05Z" || got["/log/level"] != "WARN" || got["/order"] != "ORD-42" {
		t.Errorf("unexpected values %v", got)
	}

	errCases := []Strategy{
		{Mode: ModeGrok},
		{Mode: ModeGrok, GrokPattern: `%{NOPE:x}`},
		{Mode: ModeGrok, GrokPattern: `%{LOOP}`, GrokDefinitions: map[string]string{"LOOP": `%{LOOP}`}},
	}
	for _, s := range errCases {
		if _, err := Compile(s, nil); !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("pattern %q: want invalid pattern, got %v", s.GrokPattern, err)
		}
	}
}

func TestStructured(t *testing.T) {
	m, err := Compile(Strategy{Mode: ModeStructured}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	o := m.Extract(`{"timestamp":"2024-01-02T15:04:05Z","level":"ERROR","message":"Database connection failed"}`)
	got := valuesOf(t, o)
	if got["/message"] != "Database connection failed" {
		t.Errorf("want message 'Database connection failed', got %q", got["/message"])
	}
	if len(o.Values) != 3 {
		t.Errorf("want 3 values, got %d", len(o.Values))
	}

	if got["/timestamp"] != "2024-01-02T15:04:05Z" {
		t.Errorf("want timestamp as written, got %q", got["/timestamp"])
	}

	if got := m.Extract("   "); got.Kind != Unmatched {
		t.Errorf("blank line should not match, got %v", got.Kind)
	}
}

func TestStructuredTimestampText(t *testing.T) {
	m, err := Compile(Strategy{Mode: ModeStructured}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	tests := []struct {
		name string
		line string
		want string
	}{
		{"json without timestamp", `{"level":"ERROR","message":"disk full"}`, ""},
		{"json epoch", `{"ts":1700000000,"msg":"tick"}`, "1700000000"},
		{"json time key", `{"time":"2024-01-02 15:04:05","msg":"x"}`, "2024-01-02 15:04:05"},
		{"logfmt", `time="2024-01-02T15:04:05.123Z" level=warn msg="slow query"`, "2024-01-02T15:04:05.123Z"},
		{"logfmt without timestamp", `level=info msg=started`, ""},
		{"text", "2024-01-02 15:04:05 [ERROR] boom", "2024-01-02 15:04:05"},
		{"plain text", "plain text line", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := valuesOf(t, m.Extract(tt.line))
			if first["/timestamp"] != tt.want {
				t.Errorf("want timestamp %q, got %q", tt.want, first["/timestamp"])
			}
			second := valuesOf(t, m.Extract(tt.line))
			for path, v := range first {
				if second[path] != v {
					t.Errorf("%s differs between extractions: %q vs %q", path, v, second[path])
				}
			}
		})
	}
}

func TestModesListed(t *testing.T) {
	modes := Modes()
	if len(modes) != 7 {
		t.Fatalf("want 7 modes, got %d: %v", len(modes), modes)
	}
	for _, m := range modes {
		if DefaultRegistry.Describe(m) == "" {
			t.Errorf("mode %s has no description", m)
		}
	}
	if ParseMode(" Common-Log-Format ") != ModeCommonLogFormat {
		t.Errorf("ParseMode did not normalize")
	}
}

// splitEngine splits on spaces into two groups. Lines starting with "!"
// fail to decode and lines starting with "-" yield fewer groups than
// declared.
type splitEngine struct{}

var errUndecodable = errors.New("undecodable line")

func (splitEngine) Match(line string) ([]string, error) {
	switch {
	case strings.HasPrefix(line, "!"):
		return nil, errUndecodable
	case strings.HasPrefix(line, "-"):
		return []string{line}, nil
	}
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 {
		return nil, nil
	}
	return []string{line, parts[0], parts[1]}, nil
}

func (splitEngine) NumGroups() int { return 2 }

func TestExtractMalformed(t *testing.T) {
	const mode Mode = "split"

	r := NewRegistry()
	r.Register(mode, "space separated pair", func(Strategy) (*Compiled, error) {
		return &Compiled{Engine: splitEngine{}, Pattern: "split", Defaults: positional([]string{"key", "value"})}, nil
	})

	m, err := r.Compile(Strategy{Mode: mode}, nil)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	tests := []struct {
		name  string
		line  string
		want  OutcomeKind
		cause error
	}{
		{"matched", "a b", Matched, nil},
		{"unmatched", "single", Unmatched, nil},
		{"decode error", "!broken", Malformed, errUndecodable},
		{"missing groups", "-short", Malformed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Extract(tt.line)
			if got.Kind != tt.want {
				t.Fatalf("want %v, got %v (cause %v)", tt.want, got.Kind, got.Cause)
			}
			if tt.want == Malformed && got.Cause == nil {
				t.Errorf("malformed outcome should carry a cause")
			}
			if tt.cause != nil && !errors.Is(got.Cause, tt.cause) {
				t.Errorf("want cause %v, got %v", tt.cause, got.Cause)
			}
			if tt.want != Matched && len(got.Values) != 0 {
				t.Errorf("only matched outcomes carry values, got %v", got.Values)
			}
		})
	}
}
