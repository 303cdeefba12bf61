package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	purple = "\033[35m"
	cyan   = "\033[36m"
	gray   = "\033[37m"
	white  = "\033[97m"
)

var levelColors = map[slog.Level]string{
	slog.LevelDebug: purple,
	slog.LevelInfo:  green,
	slog.LevelWarn:  yellow,
	slog.LevelError: red,
}

// PrettyHandler writes one coloured line per record for local development.
// Attributes keep their slog order; error values are highlighted.
type PrettyHandler struct {
	opts  slog.HandlerOptions
	w     io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{opts: *opts, w: w, mu: &sync.Mutex{}}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	color, ok := levelColors[r.Level]
	if !ok {
		color = white
	}
	fmt.Fprintf(&buf, "%s%s%s %s%-5s%s %s%s%s",
		gray, r.Time.Format("15:04:05.000"), reset,
		color, r.Level.String(), reset,
		white, r.Message, reset,
	)

	for _, a := range h.attrs {
		writeAttr(&buf, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func writeAttr(buf *bytes.Buffer, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, member := range a.Value.Group() {
			writeAttr(buf, key, member)
		}
		return
	}

	valueColor := ""
	if _, isErr := a.Value.Any().(error); isErr {
		valueColor = red
	}
	fmt.Fprintf(buf, " %s%s%s=%s%s%s", cyan, key, reset, valueColor, formatValue(a.Value), reset)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " =\"\n") {
			return strconv.Quote(s)
		}
		return s
	default:
		return fmt.Sprint(v.Any())
	}
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		// Qualify now so a later WithGroup does not rename these.
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	if h.group != "" {
		name = h.group + "." + name
	}
	next.group = name
	return next
}

// clone shares the writer mutex so derived loggers never interleave lines.
func (h *PrettyHandler) clone() *PrettyHandler {
	return &PrettyHandler{opts: h.opts, w: h.w, mu: h.mu, attrs: h.attrs, group: h.group}
}
