// Package taskgraph runs a batch of dependent tasks on a fixed worker pool.
//
// A Pool starts paused. Callers submit the whole batch, declaring for each
// task the handles of the tasks it depends on, then release the pool with
// Start. A task becomes ready once every predecessor has completed, and a
// completed task's value can be read by its successors with ResultOf.
//
// Dependencies can only name tasks that were already submitted, so the graph
// is acyclic by construction.
package taskgraph

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/logger"
	"go.uber.org/zap"
)

// Handle identifies a submitted task.
type Handle int

// State is the lifecycle state of a task.
type State int

const (
	Waiting State = iota // predecessors still running
	Ready                // queued for a worker
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// pulseLogger distinguishes pool lifecycle events from task traffic.
type pulseLogger struct {
	*zap.SugaredLogger
}

// Starting logs an opening (✿) event.
func (l pulseLogger) Starting(msg string, keysAndValues ...interface{}) {
	l.Debugw("✿ "+msg, keysAndValues...)
}

// Closing logs a closing (❀) event.
func (l pulseLogger) Closing(msg string, keysAndValues ...interface{}) {
	l.Debugw("❀ "+msg, keysAndValues...)
}

// Pulse logs task traffic.
func (l pulseLogger) Pulse(msg string, keysAndValues ...interface{}) {
	l.Debugw(msg, keysAndValues...)
}

type task struct {
	name       string
	fn         func(ctx context.Context) (interface{}, error)
	state      State
	remaining  int
	successors []Handle
	value      interface{}
	err        error
	duration   time.Duration
}

// Pool executes submitted tasks once released. The zero value is not usable;
// create pools with New.
type Pool struct {
	workers int
	logger  pulseLogger

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []*task
	ready   []Handle
	pending int
	running bool
	closed  bool
	ctx     context.Context
	wg      sync.WaitGroup
}

// New returns a paused pool. workers <= 0 uses GOMAXPROCS.
func New(workers int, log *zap.SugaredLogger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workers: workers,
		logger:  pulseLogger{logger.ComponentLogger(log, "pulse")},
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Workers returns the size of the worker pool.
func (p *Pool) Workers() int {
	return p.workers
}

// Paused reports whether the pool has not been started yet.
func (p *Pool) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.running
}

// Len returns the number of submitted tasks.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Submit adds a task that runs after every task in deps has completed.
// Tasks submitted to a running pool are scheduled as soon as they are ready.
func (p *Pool) Submit(name string, fn func(ctx context.Context) (interface{}, error), deps ...Handle) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return -1, errors.Newf("submit %s: pool is closed", name)
	}
	for _, d := range deps {
		if d < 0 || int(d) >= len(p.tasks) {
			return -1, errors.Newf("submit %s: unknown dependency %d", name, d)
		}
	}

	h := Handle(len(p.tasks))
	t := &task{name: name, fn: fn}
	for _, d := range deps {
		pred := p.tasks[d]
		if pred.state == Done {
			continue
		}
		t.remaining++
		pred.successors = append(pred.successors, h)
	}
	p.tasks = append(p.tasks, t)
	p.pending++
	if t.remaining == 0 {
		p.enqueue(h)
	}
	return h, nil
}

func (p *Pool) enqueue(h Handle) {
	p.tasks[h].state = Ready
	p.ready = append(p.ready, h)
	if p.running {
		p.cond.Broadcast()
	}
}

// Start releases the pool. Tasks receive ctx; cancelling it does not stop
// tasks that are already queued.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running || p.closed {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.ctx = ctx
	queued := len(p.ready)
	p.mu.Unlock()

	p.logger.Starting("Releasing task pool",
		logger.FieldWorkers, p.workers,
		logger.FieldCount, queued)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.ready) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.ready) == 0 {
			p.mu.Unlock()
			return
		}
		h := p.ready[0]
		p.ready = p.ready[1:]
		t := p.tasks[h]
		t.state = Running
		ctx := p.ctx
		p.mu.Unlock()

		p.logger.Pulse("Task started", logger.FieldTask, t.name, "worker", id)
		start := time.Now()
		value, err := run(ctx, t)
		p.complete(h, value, err, time.Since(start))
	}
}

// run executes a task body, turning a panic into the task's error.
func run(ctx context.Context, t *task) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("task %s panicked: %v", t.name, r)
		}
	}()
	return t.fn(ctx)
}

func (p *Pool) complete(h Handle, value interface{}, err error, d time.Duration) {
	p.mu.Lock()
	t := p.tasks[h]
	t.value, t.err, t.duration = value, err, d
	t.state = Done
	for _, s := range t.successors {
		succ := p.tasks[s]
		succ.remaining--
		if succ.remaining == 0 {
			p.enqueue(s)
		}
	}
	t.successors = nil
	p.pending--
	p.cond.Broadcast()
	p.mu.Unlock()

	if err != nil {
		p.logger.Pulse("Task failed",
			logger.FieldTask, t.name,
			logger.FieldDurationMS, d.Milliseconds(),
			logger.FieldError, err)
		return
	}
	p.logger.Pulse("Task done",
		logger.FieldTask, t.name,
		logger.FieldDurationMS, d.Milliseconds())
}

// Wait blocks until every submitted task has completed. Waiting on a pool
// that was never started returns ErrPoolPaused instead of blocking forever.
func (p *Pool) Wait() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		if p.pending == 0 {
			return nil
		}
		return errors.Wrapf(errors.ErrPoolPaused, "%d tasks waiting", p.pending)
	}
	for p.pending > 0 {
		p.cond.Wait()
	}
	return nil
}

// Close stops the workers once every runnable task has finished. Tasks of a
// pool that was never started never run.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Closing("Task pool closed", logger.FieldCount, p.Len())
}

// Run starts the pool, waits for every task and closes it.
func (p *Pool) Run(ctx context.Context) error {
	p.Start(ctx)
	defer p.Close()
	return p.Wait()
}

// State returns the lifecycle state of task h.
func (p *Pool) State(h Handle) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h < 0 || int(h) >= len(p.tasks) {
		return Waiting
	}
	return p.tasks[h].state
}

// Stats summarizes completed tasks.
type Stats struct {
	Submitted int
	Completed int
	Failed    int
	Busy      time.Duration
}

// Stats returns counters over every task submitted so far.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{Submitted: len(p.tasks)}
	for _, t := range p.tasks {
		if t.state != Done {
			continue
		}
		s.Completed++
		s.Busy += t.duration
		if t.err != nil {
			s.Failed++
		}
	}
	return s
}
