// Package metrics provides scoped timing instrumentation for pipeline
// stages. A Timer records its duration on both success and failure paths,
// which keeps operator timing data honest when a backend call blows up.
package metrics

import (
	"log/slog"
	"sync"
	"time"
)

// Fields carries the tags attached to one measurement.
type Fields map[string]any

// Recorder receives one measurement per timed operation.
type Recorder interface {
	Record(op string, fields Fields, d time.Duration)
}

// Timer starts the clock for op and returns the stop function. Meant to be
// deferred at the top of the measured call:
//
//	defer metrics.Timer(rec, "embedding", metrics.Fields{"embedding_type": t})()
func Timer(rec Recorder, op string, fields Fields) func() {
	start := time.Now()
	return func() {
		rec.Record(op, fields, time.Since(start))
	}
}

// LogRecorder writes measurements as structured log lines.
type LogRecorder struct {
	logger *slog.Logger
}

func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	return &LogRecorder{logger: logger}
}

func (r *LogRecorder) Record(op string, fields Fields, d time.Duration) {
	attrs := make([]any, 0, len(fields)*2+2)
	attrs = append(attrs, slog.Duration("duration", d))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	r.logger.Info("metric "+op, attrs...)
}

// CaptureRecorder keeps measurements in memory. Test helper.
type CaptureRecorder struct {
	mu      sync.Mutex
	Entries []CapturedEntry
}

type CapturedEntry struct {
	Op       string
	Fields   Fields
	Duration time.Duration
}

func (r *CaptureRecorder) Record(op string, fields Fields, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, CapturedEntry{Op: op, Fields: fields, Duration: d})
}

// ByOp returns the captured entries for one operation name.
func (r *CaptureRecorder) ByOp(op string) []CapturedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CapturedEntry
	for _, e := range r.Entries {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}
