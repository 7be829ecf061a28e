package repo

import (
	"context"
	"errors"
	"time"

	dom "github.com/birlikkoshan/todos-api/internal/domain"
)

// Observer receives the duration and outcome of every store call.
type Observer interface {
	ObserveStore(op string, d time.Duration, err error)
}

// Instrumented wraps a Store and reports each call to an Observer.
type Instrumented struct {
	Store
	obs Observer
}

func NewInstrumented(s Store, obs Observer) *Instrumented {
	return &Instrumented{Store: s, obs: obs}
}

func (s *Instrumented) Load(ctx context.Context) (dom.Collection, error) {
	start := time.Now()
	todos, err := s.Store.Load(ctx)
	// A store that was never written is an empty collection, not a failure.
	var lerr error
	if !errors.Is(err, ErrStoreNotFound) {
		lerr = err
	}
	s.obs.ObserveStore("load", time.Since(start), lerr)
	return todos, err
}

func (s *Instrumented) Save(ctx context.Context, todos dom.Collection) error {
	start := time.Now()
	err := s.Store.Save(ctx, todos)
	s.obs.ObserveStore("save", time.Since(start), err)
	return err
}

func (s *Instrumented) WithExclusiveAccess(ctx context.Context, fn MutateFunc) error {
	start := time.Now()
	err := s.Store.WithExclusiveAccess(ctx, fn)
	// Domain errors from fn (not found) are not store failures.
	var serr error
	if IsStorageError(err) {
		serr = err
	}
	s.obs.ObserveStore("exclusive", time.Since(start), serr)
	return err
}
