package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one line per record:
//
//	15:04:05 INFO  filer [RJ123456]: directory filed target=/library/RJ123456
//
// The run id is left to the JSON file; every console line shares it.
type consoleHandler struct {
	out    *syncWriter
	level  slog.Level
	caller bool
	prefix string
	fields []field
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.w.Write(p)
	return err
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Level, caller bool) *consoleHandler {
	return &consoleHandler{out: &syncWriter{w: w}, level: level, caller: caller}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	all := slices.Clone(h.fields)
	record.Attrs(func(attr slog.Attr) bool {
		all = appendField(all, h.prefix, attr)
		return true
	})

	var component, code string
	rest := make([]field, 0, len(all))
	index := make(map[string]int, len(all))
	for _, f := range all {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
			continue
		case FieldCode:
			code = f.value.String()
			continue
		case FieldRunID:
			continue
		}
		if i, ok := index[f.key]; ok {
			rest[i] = f
			continue
		}
		index[f.key] = len(rest)
		rest = append(rest, f)
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(levelTag(record.Level))
	switch {
	case component != "" && code != "":
		fmt.Fprintf(&b, " %s [%s]:", component, code)
	case component != "":
		fmt.Fprintf(&b, " %s:", component)
	case code != "":
		fmt.Fprintf(&b, " [%s]:", code)
	}
	b.WriteByte(' ')
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if h.caller {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(renderValue(f.value))
	}
	b.WriteByte('\n')
	return h.out.write([]byte(b.String()))
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = slices.Clone(h.fields)
	for _, attr := range attrs {
		next.fields = appendField(next.fields, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = appendField(dst, prefix, member)
		}
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, value: attr.Value})
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().Local().Format(time.DateTime)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
