package activity

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memorySink collects events; block, when set, holds every write until
// closed or until the write context ends.
type memorySink struct {
	mu               sync.Mutex
	events           []Event
	err              error
	block            chan struct{}
	closed           bool
	writesAfterClose int
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(ctx context.Context, e Event) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.writesAfterClose++
	}
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

type countingObserver struct {
	mu                       sync.Mutex
	recorded, dropped, fails int
}

func (o *countingObserver) EventRecorded() { o.mu.Lock(); o.recorded++; o.mu.Unlock() }
func (o *countingObserver) EventDropped() { o.mu.Lock(); o.dropped++; o.mu.Unlock() }
func (o *countingObserver) SinkFailed(string) {
	o.mu.Lock()
	o.fails++
	o.mu.Unlock()
}

func TestEventLine(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123_000_000, time.UTC)
	e := Event{Time: ts, Action: "POST /todos - Created todo ID 1"}
	assert.Equal(t, "2024-03-09T14:05:07.123Z - POST /todos - Created todo ID 1", e.Line())
}

func TestLoggerDeliversInOrder(t *testing.T) {
	sink := &memorySink{}
	l := New(quietLogger(), 16, []Sink{sink})

	l.Record("first")
	l.Record("second")
	l.Record("third")
	require.NoError(t, l.Close(context.Background()))

	assert.Equal(t, []string{"first", "second", "third"}, sink.actions())
	assert.True(t, sink.closed)
}

func TestLoggerRecordNeverBlocks(t *testing.T) {
	sink := &memorySink{block: make(chan struct{})}
	obs := &countingObserver{}
	l := New(quietLogger(), 2, []Sink{sink}, WithObserver(obs))

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			l.Record("event")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a stuck sink")
	}

	close(sink.block)
	require.NoError(t, l.Close(context.Background()))

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 20, obs.recorded+obs.dropped)
	assert.Greater(t, obs.dropped, 0)
	assert.Len(t, sink.actions(), obs.recorded)
}

func TestLoggerSinkFailureIsContained(t *testing.T) {
	bad := &memorySink{err: errors.New("disk full")}
	good := &memorySink{}
	obs := &countingObserver{}
	l := New(quietLogger(), 4, []Sink{bad, good}, WithObserver(obs))

	l.Record("a")
	require.NoError(t, l.Close(context.Background()))

	assert.Equal(t, []string{"a"}, good.actions())
	assert.Equal(t, 1, obs.fails)
}

func TestLoggerClose(t *testing.T) {
	t.Run("record after close is dropped", func(t *testing.T) {
		sink := &memorySink{}
		obs := &countingObserver{}
		l := New(quietLogger(), 4, []Sink{sink}, WithObserver(obs))
		require.NoError(t, l.Close(context.Background()))

		l.Record("late")
		assert.Empty(t, sink.actions())
		assert.Equal(t, 1, obs.dropped)
		assert.ErrorIs(t, l.Close(context.Background()), ErrClosed)
	})

	t.Run("close honours the context", func(t *testing.T) {
		sink := &memorySink{block: make(chan struct{})}
		defer close(sink.block)
		obs := &countingObserver{}
		l := New(quietLogger(), 4, []Sink{sink}, WithObserver(obs), WithSinkTimeout(100*time.Millisecond))
		l.Record("stuck")
		l.Record("queued 1")
		l.Record("queued 2")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, l.Close(ctx), context.DeadlineExceeded)

		sink.mu.Lock()
		defer sink.mu.Unlock()
		assert.True(t, sink.closed)
		assert.Zero(t, sink.writesAfterClose)
		assert.Empty(t, sink.events)

		obs.mu.Lock()
		defer obs.mu.Unlock()
		assert.Equal(t, 2, obs.dropped, "queued events are abandoned, not written to a closed sink")
	})
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("existing line\n"), 0o644))

	sink, err := NewFileSink(path)
	require.NoError(t, err)

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l := New(quietLogger(), 8, []Sink{sink}, WithClock(func() time.Time { return fixed }))
	l.Record("GET /todos")
	l.Record("DELETE /todos/3 - Deleted todo ID 3")
	require.NoError(t, l.Close(context.Background()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
	assert.Equal(t, []string{
		"existing line",
		"2025-01-02T03:04:05.000Z - GET /todos",
		"2025-01-02T03:04:05.000Z - DELETE /todos/3 - Deleted todo ID 3",
	}, lines)
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sink := NewRedisSink(rdb, "todos:activity", 100)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := New(quietLogger(), 8, []Sink{sink}, WithClock(func() time.Time { return fixed }))
	l.Record("POST /todos - Created todo ID 1")
	l.Record("GET /todos")
	require.NoError(t, l.Close(context.Background()))

	check := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer check.Close()
	msgs, err := check.XRange(context.Background(), "todos:activity", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "POST /todos - Created todo ID 1", msgs[0].Values["action"])
	assert.Equal(t, "2025-06-01T12:00:00.000Z", msgs[0].Values["ts"])
	assert.Equal(t, "GET /todos", msgs[1].Values["action"])
}
