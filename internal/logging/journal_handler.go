package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// DefaultIdentifier tags journal entries when Config.Identifier is empty.
const DefaultIdentifier = "gantry"

// JournalHandler is a slog.Handler that sends records to the systemd journal.
type JournalHandler struct {
	level      slog.Leveler
	identifier string
	attrs      []slog.Attr
	prefix     string
}

// NewJournalHandler creates a journal handler tagging entries with identifier.
func NewJournalHandler(level slog.Leveler, identifier string) *JournalHandler {
	if identifier == "" {
		identifier = DefaultIdentifier
	}
	return &JournalHandler{level: level, identifier: identifier}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := journalFields(h.identifier, h.prefix, h.attrs, r)
	if err := journal.Send(r.Message, levelPriority(r.Level), fields); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// WithAttrs returns a new handler with additional attributes.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		// Attributes added under a group keep that group's prefix.
		if h.prefix != "" {
			a = slog.Group(strings.TrimSuffix(h.prefix, "_"), a)
		}
		clone.attrs = append(clone.attrs, a)
	}
	return &clone
}

// WithGroup returns a new handler whose record attributes are prefixed by name.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "_"
	return &clone
}

// journalFields flattens the handler and record attributes into journal
// fields. Keys are upper-cased and reduced to [A-Z0-9_].
func journalFields(identifier, prefix string, attrs []slog.Attr, r slog.Record) map[string]string {
	fields := map[string]string{
		"SYSLOG_IDENTIFIER": identifier,
	}
	for _, a := range attrs {
		addField(fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(fields, prefix, a)
		return true
	})
	return fields
}

func addField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group += a.Key + "_"
		}
		for _, ga := range a.Value.Group() {
			addField(fields, group, ga)
		}
		return
	}

	key := fieldKey(prefix + a.Key)
	if key == "" {
		return
	}
	fields[key] = fieldValue(a.Value)
}

// fieldKey maps an attribute key onto a journal field name. Journal fields
// may not start with an underscore or a digit.
func fieldKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(key) {
		switch {
		case r >= 'A' && r <= 'Z', r == '_' && b.Len() > 0:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if b.Len() == 0 {
				b.WriteString("F")
			}
			b.WriteRune(r)
		case b.Len() > 0:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func fieldValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		return v.String()
	}
}

// levelPriority maps slog levels to journal priorities.
func levelPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
