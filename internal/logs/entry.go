package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"kura/internal/logging"
)

// Entry is one parsed log line.
type Entry struct {
	Time      time.Time
	Level     slog.Level
	Message   string
	Component string
	RunID     string
	Phase     string
	Code      string
	Directory string
	// Attrs holds every remaining field.
	Attrs map[string]any
	Raw   string
}

var reserved = map[string]struct{}{
	"ts": {}, "level": {}, "msg": {}, "source": {},
	logging.FieldComponent: {}, logging.FieldRunID: {}, logging.FieldPhase: {},
	logging.FieldCode: {}, logging.FieldDirectory: {},
}

// Parse decodes a JSON log line. Lines that are not JSON objects are
// reported as not ok.
func Parse(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Entry{}, false
	}
	e := Entry{
		Message:   str(fields["msg"]),
		Component: str(fields[logging.FieldComponent]),
		RunID:     str(fields[logging.FieldRunID]),
		Phase:     str(fields[logging.FieldPhase]),
		Code:      str(fields[logging.FieldCode]),
		Directory: str(fields[logging.FieldDirectory]),
		Raw:       line,
	}
	if ts, err := time.Parse(time.RFC3339, str(fields["ts"])); err == nil {
		e.Time = ts
	}
	_ = e.Level.UnmarshalText([]byte(str(fields["level"])))
	for key, value := range fields {
		if _, ok := reserved[key]; ok {
			continue
		}
		if e.Attrs == nil {
			e.Attrs = make(map[string]any)
		}
		e.Attrs[key] = value
	}
	return e, true
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Format renders e as a single human-readable line.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(e.Level.String()))
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.Directory != "" {
		fmt.Fprintf(&b, " directory=%q", e.Directory)
	}
	keys := make([]string, 0, len(e.Attrs))
	for key := range e.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, e.Attrs[key])
	}
	return b.String()
}

// Filter selects entries. Zero fields match everything.
type Filter struct {
	RunID    string
	Code     string
	MinLevel slog.Level
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if e.Level < f.MinLevel {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.Code != "" && !strings.EqualFold(e.Code, f.Code) {
		return false
	}
	return true
}
