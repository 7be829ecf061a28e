package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	dom "github.com/birlikkoshan/todos-api/internal/domain"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// FileStore keeps the collection in a single JSON file.
//
// Writers are serialized by a one-slot semaphore so acquisition can be
// bounded by the caller's context. Readers take no lock: Save replaces the
// file with a rename, so a reader sees either the old or the new document.
type FileStore struct {
	path   string
	writer *semaphore.Weighted
	reads  singleflight.Group
}

// NewFileStore returns a store backed by path. The file does not have to
// exist yet; its directory does.
func NewFileStore(path string) (*FileStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	info, err := os.Stat(filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("store dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store dir %s is not a directory", filepath.Dir(abs))
	}
	return &FileStore{path: abs, writer: semaphore.NewWeighted(1)}, nil
}

// Path returns the absolute path of the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (dom.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("load", err)
	}
	// Concurrent readers share one read of the file. write drops the
	// shared read on commit, so a Load that starts after a committed write
	// never joins a read of the previous document.
	v, err, _ := s.reads.Do(s.path, func() (interface{}, error) {
		return s.read()
	})
	if err != nil {
		return nil, storageErr("load", err)
	}
	return v.(dom.Collection).Clone(), nil
}

func (s *FileStore) Save(ctx context.Context, todos dom.Collection) error {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return storageErr("save", err)
	}
	defer s.writer.Release(1)
	return storageErr("save", s.write(ctx, todos))
}

func (s *FileStore) WithExclusiveAccess(ctx context.Context, fn MutateFunc) error {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return storageErr("lock", err)
	}
	defer s.writer.Release(1)

	current, err := loadOrEmpty(s.read())
	if err != nil {
		return storageErr("load", err)
	}
	next, changed, err := fn(current)
	if err != nil || !changed {
		return err
	}
	return storageErr("save", s.write(ctx, next))
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) read() (dom.Collection, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return decodeCollection(b)
}

// write replaces the file atomically: temp file in the same directory,
// fsync, rename. Callers hold the writer semaphore.
func (s *FileStore) write(ctx context.Context, todos dom.Collection) error {
	b, err := encodeCollection(todos)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	committed = true
	s.reads.Forget(s.path)
	return nil
}
