package task

import "golang.org/x/sync/errgroup"

// Worker runs at most one lock-guarded job at a time on a background
// goroutine.
type Worker struct {
	lock *Lock
	g    errgroup.Group
}

// NewWorker creates a worker whose jobs are guarded by lock. The same lock
// is handed to the code the job runs so it can check Proceed.
func NewWorker(lock *Lock) *Worker {
	w := &Worker{lock: lock}
	w.g.SetLimit(1)
	return w
}

// Lock returns the lock guarding the worker's jobs.
func (w *Worker) Lock() *Lock {
	return w.lock
}

// Go starts job unless one is already running. The lock is Running when
// job starts, and job owns ending it: every return must follow a Release
// or a Proceed that reported false. The worker never touches the
// lock once job runs, so a new owner may take it as soon as job lets go.
func (w *Worker) Go(job func() error) bool {
	if !w.lock.TryStart() {
		return false
	}
	if !w.g.TryGo(job) {
		w.lock.Release()
		return false
	}
	return true
}

// Busy reports whether a job holds the lock.
func (w *Worker) Busy() bool {
	return w.lock.State() != Stopped
}

// Cancel stops the running job, if any, and waits for it to notice.
func (w *Worker) Cancel() {
	w.lock.CancelAndWait()
}

// Wait blocks until the running job returns and reports the first error
// any job returned.
func (w *Worker) Wait() error {
	return w.g.Wait()
}
