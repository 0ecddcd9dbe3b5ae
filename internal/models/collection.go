package models

import (
	"fmt"
	"math"
)

// Collection is the ordered set of all tasks. Insertion order is preserved.
type Collection []Task

// Find returns a pointer to the task with the given id.
func (c Collection) Find(id int64) (*Task, bool) {
	i := c.Index(id)
	if i < 0 {
		return nil, false
	}
	return &c[i], true
}

// Index returns the position of the task with the given id, or -1.
func (c Collection) Index(id int64) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// NextID returns one more than the highest id in the collection, or 1 if it is empty.
// The highest id is used rather than the last element's, so removing the tail task
// never causes its id to be handed out again.
func (c Collection) NextID() (int64, error) {
	var max int64
	for _, t := range c {
		if t.ID > max {
			max = t.ID
		}
	}
	if max == math.MaxInt64 {
		return 0, ErrIDsExhausted
	}
	return max + 1, nil
}

// Add appends a new task built from in and returns it with its assigned id.
// The collection is left untouched when no id is available.
func (c *Collection) Add(in TaskInput) (Task, error) {
	id, err := c.NextID()
	if err != nil {
		return Task{}, err
	}
	task := Task{ID: id}
	in.apply(&task)
	*c = append(*c, task)
	return task, nil
}

// Replace overwrites the fields of the task with the given id.
func (c Collection) Replace(id int64, in TaskInput) (Task, error) {
	task, ok := c.Find(id)
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	in.apply(task)
	return *task, nil
}

// Remove deletes the task with the given id, keeping the order of the rest.
func (c *Collection) Remove(id int64) error {
	i := c.Index(id)
	if i < 0 {
		return ErrTaskNotFound
	}
	*c = append((*c)[:i], (*c)[i+1:]...)
	return nil
}

// Check verifies that every id is positive and unique.
func (c Collection) Check() error {
	seen := make(map[int64]struct{}, len(c))
	for i, t := range c {
		if t.ID <= 0 {
			return fmt.Errorf("tasks[%d]: id must be positive, got %d", i, t.ID)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("tasks[%d]: duplicate id %d", i, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
