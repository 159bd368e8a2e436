package async

import "errors"

// ErrSchedulerClosed is returned by a suspension point, or surfaced as a
// Task's Err, when the scheduler was closed while the task was waiting for
// its turn.
var ErrSchedulerClosed = errors.New("async: scheduler closed")

// Task is one cooperatively-scheduled unit of work. A Task holds the
// scheduler's token for as long as it is actually running; it gives the
// token up at every suspension point (Yield, Await, AwaitFunc).
type Task struct {
	sched *Scheduler
	done  chan struct{}
	err   error
}

// acquire blocks until this task may run, returning false if the scheduler
// closed first.
func (t *Task) acquire() bool { return t.sched.acquire(t) }

func (t *Task) finish(err error) {
	t.err = err
	t.sched.release(t)
	close(t.done)
	t.sched.taskDone()
}

// Done reports whether the task has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task's result error once it has finished; nil before that.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Yield gives up the token and rejoins the ready queue at the tail,
// resuming once every task already waiting has had its turn.
func (t *Task) Yield() error {
	t.sched.release(t)
	t.sched.enqueue(t)
	if !t.acquire() {
		return ErrSchedulerClosed
	}
	return nil
}

// Await suspends the calling task until other has finished, without holding
// the token while it waits.
func (t *Task) Await(other *Task) error {
	t.sched.release(t)
	<-other.done
	t.sched.enqueue(t)
	if !t.acquire() {
		return ErrSchedulerClosed
	}
	return other.err
}

// AwaitFunc runs fn on its own goroutine without holding the token, then
// resumes the calling task once fn returns. This is the suspension point a
// handler uses around blocking I/O (spec's "await a blocking operation").
func AwaitFunc[T any](t *Task, fn func() (T, error)) (T, error) {
	t.sched.release(t)
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	r := <-ch
	t.sched.enqueue(t)
	if !t.acquire() {
		var zero T
		return zero, ErrSchedulerClosed
	}
	return r.v, r.err
}
