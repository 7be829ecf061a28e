package service

import (
	"context"
	"errors"
	"strings"
	"time"

	dom "github.com/birlikkoshan/todos-api/internal/domain"
	"github.com/birlikkoshan/todos-api/internal/repo"
)

var ErrNotFound = errors.New("not found")

// TodoPatch carries the fields of a partial update. Nil means "keep".
type TodoPatch struct {
	Title     *string
	Completed *bool
}

type TodoService struct {
	store   repo.Store
	timeout time.Duration
}

// NewTodoService creates a TodoService. timeout bounds every store call,
// including the wait for exclusive access; zero disables the bound.
func NewTodoService(s repo.Store, timeout time.Duration) *TodoService {
	return &TodoService{store: s, timeout: timeout}
}

// List returns all todos, or only those whose Completed equals *completed.
func (s *TodoService) List(ctx context.Context, completed *bool) (dom.Collection, error) {
	todos, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if completed != nil {
		return todos.FilterCompleted(*completed), nil
	}
	return todos, nil
}

func (s *TodoService) GetByID(ctx context.Context, id int64) (dom.Todo, error) {
	todos, err := s.load(ctx)
	if err != nil {
		return dom.Todo{}, err
	}
	t, ok := todos.Find(id)
	if !ok {
		return dom.Todo{}, ErrNotFound
	}
	return t, nil
}

// Create appends a todo. The id is allocated inside the exclusive access
// window so concurrent creates never share one.
func (s *TodoService) Create(ctx context.Context, title string, completed bool) (dom.Todo, error) {
	if strings.TrimSpace(title) == "" {
		return dom.Todo{}, dom.ErrMissingTitle
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created dom.Todo
	err := s.store.WithExclusiveAccess(ctx, func(todos dom.Collection) (dom.Collection, bool, error) {
		created = dom.Todo{ID: dom.NextID(todos), Title: title, Completed: completed}
		return append(todos, created), true, nil
	})
	if err != nil {
		return dom.Todo{}, err
	}
	return created, nil
}

// Update merges patch onto the todo with the given id. The id never changes.
func (s *TodoService) Update(ctx context.Context, id int64, patch TodoPatch) (dom.Todo, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var updated dom.Todo
	err := s.store.WithExclusiveAccess(ctx, func(todos dom.Collection) (dom.Collection, bool, error) {
		i := todos.Index(id)
		if i < 0 {
			return nil, false, ErrNotFound
		}
		t := todos[i]
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Completed != nil {
			t.Completed = *patch.Completed
		}
		t.ID = id

		next := todos.Clone()
		next[i] = t
		updated = t
		return next, true, nil
	})
	if err != nil {
		return dom.Todo{}, err
	}
	return updated, nil
}

func (s *TodoService) Delete(ctx context.Context, id int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.store.WithExclusiveAccess(ctx, func(todos dom.Collection) (dom.Collection, bool, error) {
		next, removed := todos.Without(id)
		if !removed {
			return nil, false, ErrNotFound
		}
		return next, true, nil
	})
}

// load reads a snapshot; a store that was never written reads as empty.
func (s *TodoService) load(ctx context.Context) (dom.Collection, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	todos, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrStoreNotFound) {
			return dom.Collection{}, nil
		}
		return nil, err
	}
	return todos, nil
}

func (s *TodoService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
