// Package logger provides structured JSON logging and metrics tracking for cricpulse.
//
// The logger supports multiple log levels (DEBUG, INFO, WARN, ERROR) and writes
// one JSON object per line. Every entry carries a timestamp and may carry
// arbitrary structured fields. Child loggers created with With carry bound
// fields into every entry they write.
//
// Metrics keeps counters, gauges and bounded timing samples in memory and
// hands out JSON-ready snapshots.
//
// Example usage:
//
//	log := logger.New(logger.LevelInfo, os.Stderr).With(logger.Fields{"component": "engine"})
//	log.Info("tick published", logger.Fields{
//	    "match_id": "42",
//	    "events":   2,
//	})
//
//	metrics := logger.DefaultMetrics()
//	metrics.IncrCounter("engine.ticks")
//	metrics.RecordTiming("engine.tick", time.Since(start))
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if level == "WARNING" {
		level = LevelWarn
	}
	if _, ok := levelRank[level]; !ok {
		return "", fmt.Errorf("unknown log level: %q", s)
	}
	return level, nil
}

// Logger provides structured logging
type Logger struct {
	minLevel Level
	out      *syncWriter
	bound    Fields
}

// syncWriter serializes writes so concurrent ticks never interleave lines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// Fields represents structured log fields
type Fields map[string]interface{}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
	Error     string `json:"error,omitempty"`
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(LevelInfo, os.Stderr)
)

// New creates a new logger with the specified minimum log level and output destination.
// Messages below the minimum level will be discarded.
func New(level Level, output io.Writer) *Logger {
	if _, ok := levelRank[level]; !ok {
		level = LevelInfo
	}
	return &Logger{
		minLevel: level,
		out:      &syncWriter{w: output},
	}
}

// SetDefault sets the default package-level logger used by the convenience functions
// (Debug, Info, Warn, Error).
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default returns the package-level logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// With returns a child logger that adds fields to every entry it writes.
// Fields passed at the call site win over bound fields with the same key.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.bound)+len(fields))
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{minLevel: l.minLevel, out: l.out, bound: merged}
}

// log writes a structured log entry
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	if !l.shouldLog(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Fields:    l.mergeFields(fields),
	}

	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)

	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if marshalErr != nil {
		// Fallback to plain text if JSON marshal fails
		fmt.Fprintf(l.out.w, "[%s] %s: %s (marshal error: %v)\n",
			entry.Timestamp, entry.Level, entry.Message, marshalErr)
		return
	}

	fmt.Fprintln(l.out.w, string(data))
}

func (l *Logger) mergeFields(fields Fields) Fields {
	if len(l.bound) == 0 {
		return fields
	}
	merged := make(Fields, len(l.bound)+len(fields))
	for k, v := range l.bound {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

// shouldLog determines if a message should be logged based on level
func (l *Logger) shouldLog(level Level) bool {
	return levelRank[level] >= levelRank[l.minLevel]
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning message with optional structured fields.
// Warnings mark degraded results such as an empty match list after a failed fetch.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Metrics holds in-process counters, gauges and timing samples. It is safe
// for concurrent use.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string][]time.Duration
}

// maxTimingSamples bounds memory for long-running pollers.
const maxTimingSamples = 1000

var defaultMetrics = NewMetrics()

// NewMetrics returns an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string][]time.Duration),
	}
}

// DefaultMetrics returns the process-wide Metrics shared by every component
// that was not given its own.
func DefaultMetrics() *Metrics {
	return defaultMetrics
}

func (m *Metrics) IncrCounter(name string) {
	m.mu.Lock()
	m.counters[name]++
	m.mu.Unlock()
}

func (m *Metrics) Counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *Metrics) SetGauge(name string, value float64) {
	m.mu.Lock()
	m.gauges[name] = value
	m.mu.Unlock()
}

// RecordTiming appends a sample, keeping the newest maxTimingSamples.
func (m *Metrics) RecordTiming(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	samples := append(m.timings[name], d)
	if n := len(samples) - maxTimingSamples; n > 0 {
		samples = append(samples[:0:0], samples[n:]...)
	}
	m.timings[name] = samples
}

// TimingStats aggregates the retained samples of one timing. Durations
// encode as strings such as "150ms".
type TimingStats struct {
	Count   int           `json:"count"`
	Total   time.Duration `json:"-"`
	Average time.Duration `json:"-"`
	Min     time.Duration `json:"-"`
	Max     time.Duration `json:"-"`
}

// MarshalJSON implements json.Marshaler.
func (s TimingStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count   int    `json:"count"`
		Total   string `json:"total"`
		Average string `json:"average"`
		Min     string `json:"min"`
		Max     string `json:"max"`
	}{s.Count, s.Total.String(), s.Average.String(), s.Min.String(), s.Max.String()})
}

func newTimingStats(samples []time.Duration) TimingStats {
	st := TimingStats{Count: len(samples), Min: samples[0], Max: samples[0]}
	for _, d := range samples {
		st.Total += d
		st.Min = min(st.Min, d)
		st.Max = max(st.Max, d)
	}
	st.Average = st.Total / time.Duration(len(samples))
	return st
}

// Snapshot is a point-in-time copy of a Metrics, as served on /metrics.
type Snapshot struct {
	Counters map[string]int64       `json:"counters"`
	Gauges   map[string]float64     `json:"gauges"`
	Timings  map[string]TimingStats `json:"timings"`
}

// Snapshot copies the current values. The result shares nothing with m.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Counters: make(map[string]int64, len(m.counters)),
		Gauges:   make(map[string]float64, len(m.gauges)),
		Timings:  make(map[string]TimingStats, len(m.timings)),
	}
	for k, v := range m.counters {
		snap.Counters[k] = v
	}
	for k, v := range m.gauges {
		snap.Gauges[k] = v
	}
	for k, samples := range m.timings {
		if len(samples) > 0 {
			snap.Timings[k] = newTimingStats(samples)
		}
	}
	return snap
}
