package activity

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
)

// FileSink appends one line per event to a text file.
type FileSink struct {
	f *os.File
}

// NewFileSink opens path for appending, creating it if needed.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open activity log: %w", err)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, e Event) error {
	if _, err := s.f.WriteString(e.Line() + "\n"); err != nil {
		return fmt.Errorf("append activity log: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error { return s.f.Close() }

// RedisSink appends events to a capped Redis stream.
type RedisSink struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink writes to stream, trimming it to roughly maxLen entries.
func NewRedisSink(rdb *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, e Event) error {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"ts":     e.Time.UTC().Format(TimestampLayout),
			"action": e.Action,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	if err := s.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisSink) Close() error { return s.rdb.Close() }
