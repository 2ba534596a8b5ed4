package taskgraph

import (
	"context"

	"github.com/teranos/annogen/errors"
)

// Submit adds a task returning a T. See Pool.Submit.
func Submit[T any](p *Pool, name string, fn func(ctx context.Context) (T, error), deps ...Handle) (Handle, error) {
	return p.Submit(name, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	}, deps...)
}

// ResultOf returns the value and error of a completed task. Successors may
// call it on their predecessors from inside their task body.
func ResultOf[T any](p *Pool, h Handle) (T, error) {
	var zero T
	p.mu.Lock()
	defer p.mu.Unlock()

	if h < 0 || int(h) >= len(p.tasks) {
		return zero, errors.Newf("unknown task %d", h)
	}
	t := p.tasks[h]
	if t.state != Done {
		return zero, errors.Newf("task %s is %s", t.name, t.state)
	}
	if t.value == nil {
		return zero, t.err
	}
	v, ok := t.value.(T)
	if !ok {
		return zero, errors.AssertionFailedf("task %s returned %T", t.name, t.value)
	}
	return v, t.err
}
