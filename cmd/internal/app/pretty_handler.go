package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders one console line per record:
//
//	15:04:05.000 INFO  http.request          POST /sso/link 409 12ms remote=...
//	15:04:05.000 WARN  AUDIT sso.link.failed user=alice did=3f9a0c1b reason=did_already_linked
//
// Request records lead with a positional method/path/status/duration summary.
// Records carrying audit=1 are tagged instead of printing the attribute.
type prettyHandler struct {
	w      io.Writer
	opts   slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
	color  bool
	mu     *sync.Mutex
}

const prettyMsgWidth = 22

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{w: w, color: color, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// prettyField is a flattened attribute, with group names joined by dots.
type prettyField struct {
	key string
	val slog.Value
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]prettyField, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields = flattenAttr(fields, a, "")
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = flattenAttr(fields, a, strings.Join(h.groups, "."))
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(paint(ts.Format("15:04:05.000"), ansiDim, h.color))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level, h.color))
	b.WriteByte(' ')

	msg := paint(r.Message, ansiBright, h.color)
	if takeField(&fields, "audit") != nil {
		msg = paint("AUDIT", ansiMagenta, h.color) + " " + msg
	}
	b.WriteString(msg)
	if pad := prettyMsgWidth - visualLen(msg); pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}

	if summary := h.requestSummary(&fields); summary != "" {
		b.WriteByte(' ')
		b.WriteString(summary)
	}

	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(h.renderField(f))
	}

	if h.opts.AddSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		if frame.File != "" {
			src := fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
			b.WriteString(" " + paint("src="+src, ansiDim, h.color))
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append([]slog.Attr{}, h.attrs...)
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		cp.attrs = append(cp.attrs, a)
	}
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	cp := *h
	cp.groups = append(append([]string{}, h.groups...), name)
	return &cp
}

// requestSummary consumes the http.request fields into "POST /path 409 12ms".
// status_class is dropped since the status code carries its color.
func (h *prettyHandler) requestSummary(fields *[]prettyField) string {
	status := takeField(fields, "status")
	if status == nil {
		return ""
	}
	var parts []string
	if m := takeField(fields, "method"); m != nil {
		parts = append(parts, colorizeHTTPMethod(strings.ToUpper(m.String()), h.color))
	}
	if p := takeField(fields, "path"); p != nil {
		parts = append(parts, paint(p.String(), ansiCyan, h.color))
	}
	if n, ok := valueToInt64(*status); ok {
		parts = append(parts, colorizeStatusCode(int(n), h.color))
	} else {
		parts = append(parts, status.String())
	}
	if d := takeField(fields, "duration_ms"); d != nil {
		if n, ok := valueToInt64(*d); ok {
			parts = append(parts, colorizeDurationMS(n, h.color))
		}
	}
	takeField(fields, "status_class")
	return strings.Join(parts, " ")
}

func (h *prettyHandler) renderField(f prettyField) string {
	switch f.key {
	case "did_fp":
		return "did=" + paint(f.val.String(), ansiDim, h.color)
	case "username":
		return "user=" + quoteIfNeeded(f.val.String())
	case "retry_after_s":
		if n, ok := valueToInt64(f.val); ok {
			return "retry=" + paint(strconv.FormatInt(n, 10)+"s", ansiYellow, h.color)
		}
	case "result", "outcome", "reason":
		return f.key + "=" + colorizeResult(strings.ToLower(f.val.String()), h.color)
	case "err", "error":
		return f.key + "=" + paint(quoteIfNeeded(valueToString(f.val)), ansiRed, h.color)
	}
	return f.key + "=" + quoteIfNeeded(valueToString(f.val))
}

func flattenAttr(out []prettyField, a slog.Attr, parent string) []prettyField {
	a.Value = a.Value.Resolve()
	key := strings.TrimSpace(a.Key)
	if a.Equal(slog.Attr{}) {
		return out
	}
	if parent != "" && key != "" {
		key = parent + "." + key
	} else if key == "" {
		key = parent
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			out = flattenAttr(out, ga, key)
		}
		return out
	}
	if key == "" {
		return out
	}
	// Empty strings (no user agent, no username) carry nothing on a console line.
	if a.Value.Kind() == slog.KindString && strings.TrimSpace(a.Value.String()) == "" {
		return out
	}
	return append(out, prettyField{key: key, val: a.Value})
}

// takeField removes the first field named key and returns its value.
func takeField(fields *[]prettyField, key string) *slog.Value {
	for i, f := range *fields {
		if f.key == key {
			*fields = append((*fields)[:i], (*fields)[i+1:]...)
			return &f.val
		}
	}
	return nil
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		return paint("ERROR", ansiRed, color)
	case level >= slog.LevelWarn:
		return paint("WARN ", ansiYellow, color)
	case level < slog.LevelInfo:
		return paint("DEBUG", ansiMagenta, color)
	default:
		return paint("INFO ", ansiBlue, color)
	}
}
