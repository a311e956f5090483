package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "tick published",
			fields:  Fields{"match_id": "42"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "debug message",
			want:    false,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "store write failed",
			err:     errors.New("disk full"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := buf.Len()
			logger.log(tt.level, tt.message, tt.fields, tt.err)
			logged := buf.Len() > before

			if logged != tt.want {
				t.Errorf("log() logged = %v, want %v", logged, tt.want)
			}
		})
	}
}

func TestLogger_EntryShape(t *testing.T) {
	var buf bytes.Buffer
	New(LevelDebug, &buf).Error("detail fetch failed", Fields{"match_id": "42"}, errors.New("status 503"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v (line %q)", err, buf.String())
	}
	if entry.Level != "ERROR" {
		t.Errorf("Level = %q, want ERROR", entry.Level)
	}
	if entry.Error != "status 503" {
		t.Errorf("Error = %q, want %q", entry.Error, "status 503")
	}
	if entry.Fields["match_id"] != "42" {
		t.Errorf("Fields[match_id] = %v, want 42", entry.Fields["match_id"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	child := New(LevelInfo, &buf).With(Fields{"component": "engine", "match_id": "1"})

	child.Info("published", Fields{"match_id": "2"})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if entry.Fields["component"] != "engine" {
		t.Errorf("bound field missing: %v", entry.Fields)
	}
	if entry.Fields["match_id"] != "2" {
		t.Errorf("call-site field should win, got %v", entry.Fields["match_id"])
	}
}

func TestLogger_ConcurrentLinesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("tick", Fields{"n": i})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Fatalf("got %d lines, want 50", len(lines))
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Errorf("invalid JSON line: %q", line)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("engine.ticks")
	m.IncrCounter("engine.ticks")
	m.IncrCounter("engine.ticks")

	if got := m.Snapshot().Counters["engine.ticks"]; got != 3 {
		t.Errorf("Counters[engine.ticks] = %v, want 3", got)
	}
	if m.Counter("engine.ticks") != 3 {
		t.Errorf("Counter() = %v, want 3", m.Counter("engine.ticks"))
	}
	if m.Counter("unknown") != 0 {
		t.Errorf("Counter(unknown) = %v, want 0", m.Counter("unknown"))
	}
}

func TestMetrics_Gauge(t *testing.T) {
	m := NewMetrics()

	m.SetGauge("store.subscribers", 1)
	m.SetGauge("store.subscribers", 3)

	if got := m.Snapshot().Gauges["store.subscribers"]; got != 3 {
		t.Errorf("Gauge = %v, want 3", got)
	}
}

func TestMetrics_Timing(t *testing.T) {
	m := NewMetrics()

	m.RecordTiming("engine.tick", 100*time.Millisecond)
	m.RecordTiming("engine.tick", 200*time.Millisecond)
	m.RecordTiming("engine.tick", 150*time.Millisecond)

	tick := m.Snapshot().Timings["engine.tick"]
	want := TimingStats{
		Count:   3,
		Total:   450 * time.Millisecond,
		Average: 150 * time.Millisecond,
		Min:     100 * time.Millisecond,
		Max:     200 * time.Millisecond,
	}
	if tick != want {
		t.Errorf("Timings[engine.tick] = %+v, want %+v", tick, want)
	}
}

func TestMetrics_TimingIsBounded(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < maxTimingSamples+10; i++ {
		m.RecordTiming("engine.tick", time.Millisecond)
	}

	if got := m.Snapshot().Timings["engine.tick"].Count; got != maxTimingSamples {
		t.Errorf("count = %d, want %d", got, maxTimingSamples)
	}
}

func TestMetrics_SnapshotIsIndependent(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("a")

	snap := m.Snapshot()
	m.IncrCounter("a")
	snap.Counters["b"] = 1

	if snap.Counters["a"] != 1 {
		t.Errorf("snapshot changed after write: %v", snap.Counters["a"])
	}
	if m.Counter("b") != 0 {
		t.Error("writing the snapshot changed the metrics")
	}
}

func TestSnapshot_JSON(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("engine.ticks")
	m.RecordTiming("engine.tick", 150*time.Millisecond)

	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded struct {
		Counters map[string]int64          `json:"counters"`
		Gauges   map[string]float64        `json:"gauges"`
		Timings  map[string]map[string]any `json:"timings"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Counters["engine.ticks"] != 1 || decoded.Gauges == nil {
		t.Errorf("decoded = %+v", decoded)
	}
	tick := decoded.Timings["engine.tick"]
	if tick["average"] != "150ms" || tick["count"] != float64(1) {
		t.Errorf("timing = %v", tick)
	}
}

func TestDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(LevelDebug, &buf))
	defer SetDefault(prev)

	Default().Debug("test debug", nil)
	Default().Error("test error", Fields{"component": "test"}, errors.New("test"))

	if got := strings.Count(buf.String(), "\n"); got != 2 {
		t.Errorf("wrote %d lines, want 2", got)
	}
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics() is not shared")
	}
}
