// Package audit provides a tamper-evident, hash-chained audit log.
//
// Every entry's hash covers the previous entry's hash, so any mutation or
// removal breaks the chain. A single worker goroutine serializes hash
// computation and emission: two concurrent Log calls can never race on
// the previous hash.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Entry is one emitted audit record. Immutable once written.
type Entry struct {
	Event     map[string]any `json:"event"`
	ChainHash string         `json:"chain_hash"`
	PrevHash  string         `json:"prev_hash,omitempty"`
	Signature string         `json:"signature,omitempty"`
}

type job struct {
	event any
	flush chan struct{} // non-nil for flush markers
}

// Logger appends hash-chained entries to a sink, one JSON object per
// line. Logging never blocks or fails from the caller's perspective:
// serialization and write errors are swallowed onto a side channel, and a
// full queue drops the event. Gap detection is the job of an external
// monitor watching the sink, not of Log.
type Logger struct {
	sink   io.Writer
	side   *slog.Logger
	signer *Signer
	now    func() time.Time

	queueSize int
	queue     chan job
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	mu   sync.Mutex
	prev string

	dropped atomic.Int64
}

// Option configures a Logger.
type Option func(*Logger)

// WithQueueSize sets the pending-entry buffer size (default 1024).
func WithQueueSize(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithSideChannel sets the logger used for swallowed failures.
func WithSideChannel(logger *slog.Logger) Option {
	return func(l *Logger) {
		if logger != nil {
			l.side = logger
		}
	}
}

// WithSigner signs every entry's chain hash.
func WithSigner(s *Signer) Option {
	return func(l *Logger) { l.signer = s }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Logger writing to sink and starts its worker.
func New(sink io.Writer, opts ...Option) *Logger {
	l := &Logger{
		sink:      sink,
		side:      slog.Default(),
		now:       time.Now,
		queueSize: 1024,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.queue = make(chan job, l.queueSize)

	l.wg.Add(1)
	go l.run()
	return l
}

// Log enqueues an event for chained emission. Fire-and-forget: it never
// blocks and never returns an error. If the queue is full the event is
// dropped and counted.
func (l *Logger) Log(event any) {
	select {
	case l.queue <- job{event: event}:
	default:
		l.dropped.Add(1)
		l.side.Warn("audit queue full, event dropped", "dropped_total", l.dropped.Load())
	}
}

// Flush blocks until everything enqueued before it has been emitted.
func (l *Logger) Flush(ctx context.Context) error {
	marker := make(chan struct{})
	select {
	case l.queue <- job{flush: marker}:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return nil
	}

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending entries and stops the worker.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	l.wg.Wait()
	return nil
}

// Head returns the current chain head hash, empty before the first entry.
func (l *Logger) Head() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prev
}

// Dropped returns the number of events dropped on queue overflow.
func (l *Logger) Dropped() int64 { return l.dropped.Load() }

func (l *Logger) run() {
	defer l.wg.Done()
	for {
		select {
		case j := <-l.queue:
			l.handle(j)
		case <-l.done:
			// Drain whatever made it into the queue before Close.
			for {
				select {
				case j := <-l.queue:
					l.handle(j)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) handle(j job) {
	if j.flush != nil {
		close(j.flush)
		return
	}

	obj, err := toObject(j.event)
	if err != nil {
		l.side.Warn("audit event not serializable, dropped", "error", err)
		return
	}

	// Timestamp attached inside the serialized section so chain order
	// matches temporal order.
	obj["timestamp"] = l.now().UTC().Format(time.RFC3339Nano)

	canonical, err := json.Marshal(obj)
	if err != nil {
		l.side.Warn("audit canonicalization failed, dropped", "error", err)
		return
	}

	prev := l.Head()
	sum := sha256.Sum256(append([]byte(prev), canonical...))
	chain := hex.EncodeToString(sum[:])

	entry := Entry{Event: obj, ChainHash: chain, PrevHash: prev}
	if l.signer != nil {
		entry.Signature = l.signer.Sign(chain)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		l.side.Warn("audit entry marshal failed, dropped", "error", err)
		return
	}

	if _, err := l.sink.Write(append(line, '\n')); err != nil {
		l.side.Warn("audit sink write failed", "error", err)
		// The entry still advances the chain; the sink gap is what an
		// external monitor detects.
	}

	l.mu.Lock()
	l.prev = chain
	l.mu.Unlock()
}
