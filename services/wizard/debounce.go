package wizard

import (
	"sync"
	"time"
)

// Task is a handle to one scheduled run. Done is closed after the run
// completes; Cancelled is closed when a newer schedule supersedes it
// or the owning debouncer stops. Exactly one of the two fires.
type Task struct {
	done      chan struct{}
	cancelled chan struct{}
}

func newTask() *Task {
	return &Task{
		done:      make(chan struct{}),
		cancelled: make(chan struct{}),
	}
}

// Done is closed once the scheduled function has run.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancelled is closed when the task was superseded or stopped.
func (t *Task) Cancelled() <-chan struct{} { return t.cancelled }

// Debouncer coalesces bursts of triggers into a single run after a
// fixed quiet window. Scheduling again cancels the pending run; Stop
// ties cancellation to the owning step's teardown so a late timer
// cannot mutate state the step has already left behind.
type Debouncer struct {
	mu         sync.Mutex
	window     time.Duration
	timer      *time.Timer
	pending    *Task
	generation uint64
	stopped    bool
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Schedule runs fn after the quiet window elapses with no further
// Schedule calls. Any previously pending run is cancelled.
func (d *Debouncer) Schedule(fn func()) *Task {
	d.mu.Lock()
	defer d.mu.Unlock()

	task := newTask()
	if d.stopped {
		close(task.cancelled)
		return task
	}

	d.generation++
	gen := d.generation

	if d.timer != nil {
		d.timer.Stop()
	}
	if d.pending != nil {
		close(d.pending.cancelled)
	}
	d.pending = task

	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped || gen != d.generation {
			d.mu.Unlock()
			return
		}
		d.pending = nil
		d.mu.Unlock()

		fn()
		close(task.done)
	})
	return task
}

// Stop cancels any pending run and rejects future schedules.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.pending != nil {
		close(d.pending.cancelled)
		d.pending = nil
	}
}
