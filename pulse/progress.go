// Package pulse holds the execution infrastructure shared by annogen
// commands: the task graph (see pulse/taskgraph) and progress reporting.
package pulse

import "sync"

// ProgressEmitter receives progress updates during a generation run.
// Implementations must be safe for concurrent use: files complete on
// worker goroutines.
type ProgressEmitter interface {
	// EmitStage announces the start of a processing stage
	EmitStage(stage string, message string)

	// EmitProgress announces that done of total units finished.
	EmitProgress(done, total int, item string)

	// EmitComplete announces completion with summary counts
	EmitComplete(summary map[string]interface{})

	// EmitError announces an error during processing
	EmitError(stage string, err error)
}

// NopEmitter discards every update.
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string)            {}
func (NopEmitter) EmitProgress(int, int, string)       {}
func (NopEmitter) EmitComplete(map[string]interface{}) {}
func (NopEmitter) EmitError(string, error)             {}

// OrNop returns e, or a NopEmitter when e is nil.
func OrNop(e ProgressEmitter) ProgressEmitter {
	if e == nil {
		return NopEmitter{}
	}
	return e
}

// Counter tracks completed units for an emitter.
type Counter struct {
	mu      sync.Mutex
	done    int
	total   int
	emitter ProgressEmitter
}

// NewCounter returns a counter reporting to e.
func NewCounter(e ProgressEmitter, total int) *Counter {
	return &Counter{total: total, emitter: OrNop(e)}
}

// Done marks one unit finished and emits the new count.
func (c *Counter) Done(item string) {
	c.mu.Lock()
	c.done++
	done := c.done
	c.mu.Unlock()
	c.emitter.EmitProgress(done, c.total, item)
}
