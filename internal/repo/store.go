package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	dom "github.com/birlikkoshan/todos-api/internal/domain"
)

var (
	// ErrStoreNotFound means nothing has been persisted yet.
	ErrStoreNotFound = errors.New("todo store not found")
	// ErrCorruptData means the persisted bytes are not a valid collection.
	ErrCorruptData = errors.New("todo store data is corrupt")
	// ErrStoreTimeout means the exclusive access window or the I/O did not finish in time.
	ErrStoreTimeout = errors.New("todo store timed out")
)

// MutateFunc receives the current collection and returns the next one.
// The collection is persisted only when changed is true and err is nil.
type MutateFunc func(todos dom.Collection) (next dom.Collection, changed bool, err error)

// Store persists the whole todo collection as one blob.
type Store interface {
	Load(ctx context.Context) (dom.Collection, error)
	Save(ctx context.Context, todos dom.Collection) error
	WithExclusiveAccess(ctx context.Context, fn MutateFunc) error
	Close() error
}

// StorageError wraps every failure that originates in a store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err came from a store.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsStorageError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrStoreTimeout, err)
	}
	return &StorageError{Op: op, Err: err}
}

// todoRecord is the persisted shape of a todo.
type todoRecord struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

func encodeCollection(todos dom.Collection) ([]byte, error) {
	records := make([]todoRecord, len(todos))
	for i, t := range todos {
		records[i] = todoRecord{ID: t.ID, Title: t.Title, Completed: t.Completed}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}
	return b, nil
}

func decodeCollection(b []byte) (dom.Collection, error) {
	var records []todoRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	out := make(dom.Collection, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if r.ID <= 0 {
			return nil, fmt.Errorf("%w: non-positive id %d", ErrCorruptData, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrCorruptData, r.ID)
		}
		seen[r.ID] = struct{}{}
		out = append(out, dom.Todo{ID: r.ID, Title: r.Title, Completed: r.Completed})
	}
	return out, nil
}

// loadOrEmpty treats a store that was never written as an empty collection.
func loadOrEmpty(todos dom.Collection, err error) (dom.Collection, error) {
	if errors.Is(err, ErrStoreNotFound) {
		return dom.Collection{}, nil
	}
	return todos, err
}
