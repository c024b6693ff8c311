package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type runRecorder struct {
	mu   sync.Mutex
	runs int
	errs []error
}

func (r *runRecorder) run(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return err
	}
	return nil
}

func (r *runRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestScheduler() *Scheduler {
	s := New(zap.NewNop())
	s.backoffBase = time.Millisecond
	return s
}

func TestSchedulerRunsOnStartAndOnTicks(t *testing.T) {
	recorder := &runRecorder{}
	s := newTestScheduler()
	s.Register(Job{Name: "sweep", Interval: 20 * time.Millisecond, RunOnStart: true, Run: recorder.run})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	waitFor(t, time.Second, func() bool { return recorder.count() >= 3 })
	cancel()
	s.Wait()
}

func TestSchedulerRetriesWithBoundedAttempts(t *testing.T) {
	recorder := &runRecorder{errs: []error{errors.New("one"), errors.New("two")}}
	s := newTestScheduler()
	s.Register(Job{Name: "flaky", Interval: time.Hour, RunOnStart: true, Run: recorder.run})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	// Two failures then success inside a single scheduled run.
	waitFor(t, time.Second, func() bool { return recorder.count() == 3 })
	cancel()
	s.Wait()

	if recorder.count() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", recorder.count())
	}
}

func TestSchedulerGivesUpAfterMaxAttempts(t *testing.T) {
	recorder := &runRecorder{errs: []error{errors.New("1"), errors.New("2"), errors.New("3"), errors.New("4")}}
	s := newTestScheduler()
	s.Register(Job{Name: "broken", Interval: time.Hour, RunOnStart: true, Run: recorder.run})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	waitFor(t, time.Second, func() bool { return recorder.count() == 3 })
	// Give it a moment to prove no fourth attempt happens.
	time.Sleep(20 * time.Millisecond)
	if recorder.count() != 3 {
		t.Fatalf("expected 3 attempts max, got %d", recorder.count())
	}
	cancel()
	s.Wait()
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	recorder := &runRecorder{}
	s := newTestScheduler()
	s.Register(Job{Name: "sweep", Interval: 10 * time.Millisecond, Run: recorder.run})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	waitFor(t, time.Second, func() bool { return recorder.count() >= 1 })
	cancel()
	s.Wait()

	final := recorder.count()
	time.Sleep(30 * time.Millisecond)
	if recorder.count() != final {
		t.Fatal("job kept running after cancel")
	}
}
