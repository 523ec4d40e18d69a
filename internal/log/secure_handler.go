package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// sensitiveKeywords mark attribute keys whose values are never logged.
// Keys are matched case-insensitively by substring, so "read_community"
// and "snmp_community" are covered by "community".
var sensitiveKeywords = []string{"community", "password", "passwd", "secret", "token"}

// SecureHandler wraps an slog.Handler and redacts SNMP credentials.
//
// Attributes with a sensitive key are masked whole. In addition, every
// configured secret is cut out of the message, string attributes and error
// attributes, so a community string that leaks into an error text from the
// SNMP library is masked too.
type SecureHandler struct {
	next    slog.Handler
	secrets []string
}

// NewSecureHandler wraps next. Empty secrets are ignored.
// A nil next falls back to slog.Default().Handler().
func NewSecureHandler(next slog.Handler, secrets ...string) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}

	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return &SecureHandler{next: next, secrets: kept}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle redacts the record and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.scrub(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs redacts attrs before they are bound to the child handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redact(a)
	}
	return &SecureHandler{next: h.next.WithAttrs(redacted), secrets: h.secrets}
}

// WithGroup returns a child handler for the group.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name), secrets: h.secrets}
}

func (h *SecureHandler) redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		redacted := make([]slog.Attr, len(group))
		for i, g := range group {
			redacted[i] = h.redact(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	case slog.KindString:
		return slog.String(a.Key, h.scrub(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			if msg := err.Error(); h.scrub(msg) != msg {
				return slog.String(a.Key, h.scrub(msg))
			}
		}
	}
	return a
}

// scrub replaces every configured secret in s.
func (h *SecureHandler) scrub(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, MaskValue)
	}
	return s
}

// isSensitiveKey reports whether values logged under key must be masked.
func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// handlerOptions sets Debug when verbose, Warn otherwise.
func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}

// NewSecureLogger returns a text logger writing to w that masks credential
// attributes and every secret in secrets.
func NewSecureLogger(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose)), secrets...))
}

// NewSecureJSONLogger is NewSecureLogger with JSON lines output.
func NewSecureJSONLogger(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose)), secrets...))
}
