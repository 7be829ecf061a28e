package activity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// TimestampLayout matches the ISO-8601 form used in the activity log.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("activity logger closed")

// Event is one line of activity.
type Event struct {
	Time   time.Time
	Action string
}

// Line renders the event as "<timestamp> - <action>".
func (e Event) Line() string {
	return e.Time.UTC().Format(TimestampLayout) + " - " + e.Action
}

// Sink receives events from the logger's worker goroutine. Write is never
// called concurrently for the same sink.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Event) error
	Close() error
}

// Observer is notified about queue and sink outcomes. Used for metrics.
type Observer interface {
	EventRecorded()
	EventDropped()
	SinkFailed(sink string)
}

type noopObserver struct{}

func (noopObserver) EventRecorded() {}
func (noopObserver) EventDropped() {}
func (noopObserver) SinkFailed(string) {}

// Logger dispatches events to sinks on its own goroutine. Record never
// blocks the caller: when the queue is full the event is dropped.
type Logger struct {
	sinks    []Sink
	log      logrus.FieldLogger
	observer Observer
	timeout  time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	closed    bool
	abandoned atomic.Bool
	queue     chan Event
	done      chan struct{}
}

// Option configures a Logger.
type Option func(*Logger)

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(l *Logger) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithSinkTimeout bounds each sink write.
func WithSinkTimeout(d time.Duration) Option {
	return func(l *Logger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// New starts a logger with a queue of size capacity.
func New(log logrus.FieldLogger, capacity int, sinks []Sink, opts ...Option) *Logger {
	if capacity <= 0 {
		capacity = 1
	}
	l := &Logger{
		sinks:    sinks,
		log:      log,
		observer: noopObserver{},
		timeout:  5 * time.Second,
		now:      time.Now,
		queue:    make(chan Event, capacity),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	go l.run()
	return l
}

// Record stamps action with the current time and queues it.
func (l *Logger) Record(action string) {
	e := Event{Time: l.now().UTC(), Action: action}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.log.WithField("action", action).Warn("activity logger closed, event dropped")
		l.observer.EventDropped()
		return
	}
	select {
	case l.queue <- e:
		l.observer.EventRecorded()
	default:
		l.log.WithField("action", action).Warn("activity queue full, event dropped")
		l.observer.EventDropped()
	}
}

// Close stops accepting events, drains the queue and closes the sinks.
// If ctx expires first the remaining events are abandoned. Sinks are closed
// only after the worker has stopped, so at most the write in progress at
// expiry still runs, bounded by the sink timeout.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	var err error
	select {
	case <-l.done:
	case <-ctx.Done():
		err = ctx.Err()
		l.abandoned.Store(true)
		<-l.done
	}
	for _, s := range l.sinks {
		if cerr := s.Close(); cerr != nil {
			l.log.WithError(cerr).WithField("sink", s.Name()).Error("close activity sink")
		}
	}
	return err
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.queue {
		if l.abandoned.Load() {
			l.observer.EventDropped()
			continue
		}
		for _, s := range l.sinks {
			l.write(s, e)
		}
	}
}

func (l *Logger) write(s Sink, e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := s.Write(ctx, e); err != nil {
		l.observer.SinkFailed(s.Name())
		l.log.WithError(err).WithFields(logrus.Fields{
			"sink":   s.Name(),
			"action": e.Action,
		}).Error("write activity event")
	}
}
