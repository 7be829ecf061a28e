package domain

import "errors"

// Todo is the business entity. It knows nothing about gin, files or Postgres.
type Todo struct {
	ID        int64
	Title     string
	Completed bool
}

// Collection is the ordered set of todos as persisted. Order is insertion order.
type Collection []Todo

// ErrMissingTitle is returned when a todo is created without a usable title.
var ErrMissingTitle = errors.New("missing title")

// Index returns the position of the todo with the given id, or -1.
func (c Collection) Index(id int64) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the todo with the given id.
func (c Collection) Find(id int64) (Todo, bool) {
	i := c.Index(id)
	if i < 0 {
		return Todo{}, false
	}
	return c[i], true
}

// FilterCompleted keeps todos whose Completed equals done, preserving order.
func (c Collection) FilterCompleted(done bool) Collection {
	out := make(Collection, 0, len(c))
	for _, t := range c {
		if t.Completed == done {
			out = append(out, t)
		}
	}
	return out
}

// Without returns a copy of c with the todo id removed and whether it was present.
func (c Collection) Without(id int64) (Collection, bool) {
	out := make(Collection, 0, len(c))
	removed := false
	for _, t := range c {
		if t.ID == id {
			removed = true
			continue
		}
		out = append(out, t)
	}
	return out, removed
}

// Clone returns a copy that can be mutated without touching c.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}
