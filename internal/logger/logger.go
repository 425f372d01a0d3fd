// Package logger implements a central, ring-buffered log that the core and
// its collaborators write diagnostic lines to. It intentionally is not a
// structured/leveled logging library: the core logs plain "tag: detail"
// lines, and callers decide what to do with them (print them, attach them to
// a test result, feed them to a GUI console). This mirrors an ambient
// ring-buffer logging package carried instead of a third-party logging
// library.
package logger

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Permission allows a caller to gate whether a particular Log() call is
// actually recorded. This is used, for example, to rate-limit noisy
// diagnostics (eg. repeated segment-outside-any-region warnings) without
// threading a verbosity flag through every call site.
type Permission interface {
	AllowLogging() bool
}

// permissionFunc adapts a bool to the Permission interface.
type permissionFunc bool

func (p permissionFunc) AllowLogging() bool { return bool(p) }

// Allow is a Permission that always allows logging.
var Allow Permission = permissionFunc(true)

// Deny is a Permission that never allows logging.
var Deny Permission = permissionFunc(false)

type entry struct {
	tag    string
	detail string
}

func (e entry) String() string {
	return fmt.Sprintf("%s: %s\n", e.tag, e.detail)
}

// Logger is a fixed-capacity ring of log entries. The zero value is not
// usable; construct with NewLogger.
type Logger struct {
	mu       sync.Mutex
	capacity int
	entries  []entry
	head     int
	count    int
}

// NewLogger creates a Logger that retains at most capacity entries, evicting
// the oldest entry once full.
func NewLogger(capacity int) *Logger {
	if capacity < 1 {
		capacity = 1
	}
	return &Logger{
		capacity: capacity,
		entries:  make([]entry, capacity),
	}
}

// Log records tag/detail if permission allows it. detail is formatted
// according to its type: errors and fmt.Stringer use their natural string
// form; everything else falls back to the %v verb.
func (l *Logger) Log(permission Permission, tag string, detail interface{}) {
	if permission != nil && !permission.AllowLogging() {
		return
	}
	l.append(tag, stringify(detail))
}

// Logf is like Log but builds detail from a format string, in the manner of
// fmt.Sprintf.
func (l *Logger) Logf(permission Permission, tag string, format string, args ...interface{}) {
	if permission != nil && !permission.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func stringify(detail interface{}) string {
	switch v := detail.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (l *Logger) append(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := (l.head + l.count) % l.capacity
	l.entries[idx] = entry{tag: tag, detail: detail}
	if l.count < l.capacity {
		l.count++
	} else {
		l.head = (l.head + 1) % l.capacity
	}
}

// Clear discards all recorded entries.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.head = 0
	l.count = 0
}

// Write renders every retained entry, oldest first, to w.
func (l *Logger) Write(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < l.count; i++ {
		idx := (l.head + i) % l.capacity
		io.WriteString(w, l.entries[idx].String())
	}
}

// Tail renders at most n of the most recently retained entries, oldest
// first, to w. Asking for more entries than are retained is not an error.
func (l *Logger) Tail(w io.Writer, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return
	}
	start := l.count - n
	for i := start; i < l.count; i++ {
		idx := (l.head + i) % l.capacity
		io.WriteString(w, l.entries[idx].String())
	}
}

// TagCounts returns how many retained entries carry each tag, sorted by tag
// for deterministic output. Useful for a harness summarising how many
// "segment skipped" or "unsupported peripheral" warnings a run produced.
func (l *Logger) TagCounts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[string]int)
	for i := 0; i < l.count; i++ {
		idx := (l.head + i) % l.capacity
		counts[l.entries[idx].tag]++
	}
	return counts
}

// central is the default, package-level logger that most of the core writes
// to. Tests that want isolation should construct their own Logger with
// NewLogger instead.
var central = NewLogger(1000)

// Log records tag/detail on the central logger, always allowed.
func Log(tag string, detail interface{}) { central.Log(Allow, tag, detail) }

// Logf records a formatted detail on the central logger, always allowed.
func Logf(tag string, format string, args ...interface{}) { central.Logf(Allow, tag, format, args...) }

// Write renders the central logger's entries to w.
func Write(w io.Writer) { central.Write(w) }

// Tail renders the central logger's n most recent entries to w.
func Tail(w io.Writer, n int) { central.Tail(w, n) }

// Clear discards the central logger's entries.
func Clear() { central.Clear() }

// SortedTags is a small convenience for callers that want a stable tag
// ordering when summarising TagCounts.
func SortedTags(counts map[string]int) []string {
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
