package logging

import (
	"context"
	"os"
	"runtime/trace"
	"sync"
	"time"
)

// FlightRecorder keeps a bounded ring buffer of recent runtime trace data so
// a failing search can be diagnosed after the fact. Long searches cannot be
// traced end to end; the recorder holds only the last window of activity and
// writes it out when a worker fails or an engine misbehaves.
//
// Workers annotate the buffer through TraceTask (one task per GA run) and
// TraceRegion (one region per iteration), so a snapshot shows where each run
// was spending its time when the search went wrong.
type FlightRecorder struct {
	recorder *trace.FlightRecorder
	config   trace.FlightRecorderConfig

	mu      sync.Mutex
	running bool
}

// FlightRecorderOption configures a FlightRecorder.
type FlightRecorderOption func(*FlightRecorder)

// WithMinAge sets how far back the trace buffer reaches. Slow engines need a
// longer window for a whole iteration to fit in one snapshot.
func WithMinAge(d time.Duration) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MinAge = d
	}
}

// WithMaxBytes caps the buffer size; it takes precedence over WithMinAge.
// Zero leaves the cap implementation defined.
func WithMaxBytes(n uint64) FlightRecorderOption {
	return func(fr *FlightRecorder) {
		fr.config.MaxBytes = n
	}
}

// NewFlightRecorder creates a recorder with a 10 second window by default.
func NewFlightRecorder(opts ...FlightRecorderOption) *FlightRecorder {
	fr := &FlightRecorder{
		config: trace.FlightRecorderConfig{
			MinAge: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(fr)
	}
	fr.recorder = trace.NewFlightRecorder(fr.config)
	return fr
}

// Start begins recording into the ring buffer. Overhead is low enough to
// leave on for the whole search. Starting twice is a no-op.
func (fr *FlightRecorder) Start() error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.running {
		return nil
	}
	if err := fr.recorder.Start(); err != nil {
		return err
	}
	fr.running = true
	return nil
}

// Stop stops recording. Stopping twice is a no-op.
func (fr *FlightRecorder) Stop() {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return
	}
	fr.recorder.Stop()
	fr.running = false
}

// Enabled reports whether the recorder is currently capturing.
func (fr *FlightRecorder) Enabled() bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	return fr.running && fr.recorder.Enabled()
}

// Snapshot writes the buffered trace window to filename. When the recorder
// is not running there is nothing to write and the call is a no-op.
func (fr *FlightRecorder) Snapshot(filename string) error {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if !fr.running {
		return nil
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = fr.recorder.WriteTo(f)
	return err
}

// SnapshotOnError snapshots the buffer when err is non-nil and passes err
// through, so it slots into a return statement on the failure path.
func (fr *FlightRecorder) SnapshotOnError(err error, filename string) error {
	if err != nil {
		fr.Snapshot(filename)
	}
	return err
}

// TraceRegion opens a named region at the current point and returns its end
// function. The GA wraps each iteration in one so snapshots separate
// proposal, evaluation and bookkeeping time per iteration.
func TraceRegion(ctx context.Context, name string) func() {
	region := trace.StartRegion(ctx, name)
	return region.End
}

// TraceTask opens a named task and returns the derived context plus its end
// function. Each worker opens one task per GA run; regions created under the
// returned context group beneath it in the trace viewer.
func TraceTask(ctx context.Context, name string) (context.Context, func()) {
	ctx, task := trace.NewTask(ctx, name)
	return ctx, task.End
}

// TraceLog marks a point event in the trace, e.g. a best-model improvement.
func TraceLog(ctx context.Context, category, message string) {
	trace.Log(ctx, category, message)
}
