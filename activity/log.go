package activity

import (
	"fmt"
	"strings"
	"time"
)

// Level tags a log entry for display.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Error   Level = "error"
)

// DefaultCapacity is how many entries a session keeps.
const DefaultCapacity = 1000

type Entry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
	Level   Level     `json:"level"`
}

// Line renders e as "[HH:MM:SS] message".
func (e Entry) Line() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// Log is an append-only activity log holding the most recent entries.
// When full, the oldest entry is dropped.
type Log struct {
	capacity int
	entries  []Entry
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

func (l *Log) Append(at time.Time, level Level, msg string) Entry {
	e := Entry{Time: at, Message: msg, Level: level}
	if len(l.entries) == l.capacity {
		copy(l.entries, l.entries[1:])
		l.entries[len(l.entries)-1] = e
		return e
	}
	l.entries = append(l.entries, e)
	return e
}

func (l *Log) Appendf(at time.Time, level Level, format string, args ...any) Entry {
	return l.Append(at, level, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int      { return len(l.entries) }
func (l *Log) Capacity() int { return l.capacity }

func (l *Log) Clear() {
	l.entries = nil
}

// Text renders the log as newline-terminated "[HH:MM:SS] message" lines.
func (l *Log) Text() string {
	return Text(l.entries)
}

func Text(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Line())
		b.WriteByte('\n')
	}
	return b.String()
}
