package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"sailperf/internal/metrics"
	"sailperf/internal/source"
)

// WorkerState is the lifecycle of one source worker. Stopped is terminal.
type WorkerState int32

const (
	StateIdle WorkerState = iota
	StateRunning
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned by Run on a worker that already ran.
var ErrAlreadyStarted = errors.New("worker already started")

type WorkerOption func(*Worker)

// WithLimit stops the worker after n lines. Zero means no limit.
func WithLimit(n int) WorkerOption {
	return func(w *Worker) { w.limit = n }
}

func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

func WithWorkerMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

// WorkerSnapshot is the reporting view of a worker.
type WorkerSnapshot struct {
	Source    string    `json:"source"`
	State     string    `json:"state"`
	Lines     uint64    `json:"lines"`
	Decoded   uint64    `json:"decoded"`
	Rejected  uint64    `json:"checksum_errors"`
	LastError string    `json:"last_error,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
}

// Worker drives one source through the pipeline. A worker runs once; to
// restart a source, build a new worker.
type Worker struct {
	src      source.Source
	pipeline *Pipeline
	limit    int
	logger   *zap.Logger
	metrics  *metrics.Metrics

	state  atomic.Int32
	opened atomic.Bool

	mu       sync.Mutex
	lines    uint64
	decoded  uint64
	rejected uint64
	lastErr  string
	lastSeen time.Time
}

func NewWorker(src source.Source, p *Pipeline, opts ...WorkerOption) *Worker {
	w := &Worker{src: src, pipeline: p, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Name() string { return w.src.Name() }

// Opened reports whether the source was acquired.
func (w *Worker) Opened() bool { return w.opened.Load() }

func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
	w.metrics.SetSourceState(w.src.Name(), int(s))
}

// Run opens the source and feeds its lines to the pipeline until end of
// stream, a read failure, the line limit or ctx cancellation.
//
// Only a failure to open the source is returned. The source is closed
// before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if !w.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	name := w.src.Name()

	lines, err := w.src.Open(ctx)
	if err != nil {
		w.setErr(err)
		w.setState(StateStopped)
		return fmt.Errorf("open source %s: %w", name, err)
	}
	w.opened.Store(true)
	w.setState(StateRunning)
	w.logger.Info("source started", zap.String("source", name))

	// A cancelled ctx closes the source to unblock a pending Next.
	stop := context.AfterFunc(ctx, func() { _ = lines.Close() })
	defer func() {
		stop()
		if err := lines.Close(); err != nil {
			w.logger.Debug("source close", zap.String("source", name), zap.Error(err))
		}
		w.setState(StateStopped)
		w.logger.Info("source stopped", zap.String("source", name), zap.Uint64("lines", w.Snapshot().Lines))
	}()

	for n := 0; w.limit <= 0 || n < w.limit; n++ {
		line, err := lines.Next()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				w.setErr(err)
				w.logger.Warn("source read failed", zap.String("source", name), zap.Error(err))
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		w.record(w.pipeline.HandleLine(name, line))
	}
	return nil
}

func (w *Worker) record(o Outcome) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines++
	w.lastSeen = time.Now()
	switch o {
	case OutcomeDecoded:
		w.decoded++
	case OutcomeChecksumError:
		w.rejected++
	}
}

func (w *Worker) setErr(err error) {
	w.mu.Lock()
	w.lastErr = err.Error()
	w.mu.Unlock()
}

func (w *Worker) Snapshot() WorkerSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerSnapshot{
		Source:    w.src.Name(),
		State:     w.State().String(),
		Lines:     w.lines,
		Decoded:   w.decoded,
		Rejected:  w.rejected,
		LastError: w.lastErr,
		LastSeen:  w.lastSeen,
	}
}
