package wizard

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer(t *testing.T) {
	t.Run("runs after the quiet window", func(t *testing.T) {
		d := NewDebouncer(10 * time.Millisecond)
		var runs int32
		task := d.Schedule(func() { atomic.AddInt32(&runs, 1) })

		select {
		case <-task.Done():
		case <-time.After(time.Second):
			t.Fatal("task never ran")
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
	})

	t.Run("only the last scheduled call in a burst executes", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		var first, second int32
		taskOne := d.Schedule(func() { atomic.AddInt32(&first, 1) })
		taskTwo := d.Schedule(func() { atomic.AddInt32(&second, 1) })

		select {
		case <-taskOne.Cancelled():
		case <-time.After(time.Second):
			t.Fatal("superseded task was never cancelled")
		}

		select {
		case <-taskTwo.Done():
		case <-time.After(time.Second):
			t.Fatal("replacement task never ran")
		}

		assert.Zero(t, atomic.LoadInt32(&first))
		assert.Equal(t, int32(1), atomic.LoadInt32(&second))
	})

	t.Run("stop cancels the pending run", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		var runs int32
		task := d.Schedule(func() { atomic.AddInt32(&runs, 1) })
		d.Stop()

		select {
		case <-task.Cancelled():
		case <-time.After(time.Second):
			t.Fatal("stopped task was never cancelled")
		}

		time.Sleep(40 * time.Millisecond)
		assert.Zero(t, atomic.LoadInt32(&runs))
	})

	t.Run("schedule after stop is cancelled immediately", func(t *testing.T) {
		d := NewDebouncer(10 * time.Millisecond)
		d.Stop()

		var runs int32
		task := d.Schedule(func() { atomic.AddInt32(&runs, 1) })

		select {
		case <-task.Cancelled():
		default:
			t.Fatal("task scheduled after stop should be cancelled")
		}
		assert.Zero(t, atomic.LoadInt32(&runs))
	})
}
