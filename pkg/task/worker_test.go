package task

import (
	"errors"
	"testing"
)

func TestWorkerRunsJob(t *testing.T) {
	w := NewWorker(&Lock{})
	ran := make(chan struct{})
	if !w.Go(func() error {
		defer w.Lock().Release()
		close(ran)
		return nil
	}) {
		t.Fatal("Go refused an idle worker")
	}
	<-ran
	if err := w.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if w.Busy() {
		t.Error("worker busy after job returned")
	}
}

func TestWorkerSingleJob(t *testing.T) {
	w := NewWorker(&Lock{})
	release := make(chan struct{})
	started := make(chan struct{})
	w.Go(func() error {
		defer w.Lock().Release()
		close(started)
		<-release
		return nil
	})
	<-started
	if w.Go(func() error { return nil }) {
		t.Error("second job started while the first is running")
	}
	close(release)
	if err := w.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}

func TestWorkerCancel(t *testing.T) {
	lock := &Lock{}
	w := NewWorker(lock)
	started := make(chan struct{})
	w.Go(func() error {
		close(started)
		for lock.Proceed() {
		}
		return nil
	})
	<-started
	w.Cancel()
	if lock.State() != Stopped {
		t.Errorf("state after Cancel = %v, want stopped", lock.State())
	}
	if err := w.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}

func TestWorkerError(t *testing.T) {
	w := NewWorker(&Lock{})
	errBoom := errors.New("boom")
	w.Go(func() error {
		w.Lock().Release()
		return errBoom
	})
	if err := w.Wait(); !errors.Is(err, errBoom) {
		t.Errorf("Wait() = %v, want %v", err, errBoom)
	}
}

func TestWorkerLeavesReleasedLockAlone(t *testing.T) {
	lock := &Lock{}
	w := NewWorker(lock)
	released := make(chan struct{})
	exit := make(chan struct{})
	w.Go(func() error {
		lock.Release()
		close(released)
		<-exit
		return nil
	})
	<-released
	if !lock.TryStart() {
		t.Fatal("TryStart failed after the job released the lock")
	}
	close(exit)
	if err := w.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if got := lock.State(); got != Running {
		t.Errorf("state after the old job exited = %v, want running", got)
	}
	if !lock.Cancel() {
		t.Error("Cancel could not reach the new owner")
	}
}
