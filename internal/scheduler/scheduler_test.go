package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestRegisterTask_RejectsDuplicates(t *testing.T) {
	s := newTestScheduler(t)
	task := TaskConfig{ID: "a", Name: "A", Cron: "0 * * * *", Func: func(context.Context) error { return nil }}

	if err := s.RegisterTask(task); err != nil {
		t.Fatalf("first RegisterTask() error = %v", err)
	}
	if err := s.RegisterTask(task); err == nil {
		t.Error("duplicate RegisterTask() should fail")
	}
}

func TestRegisterTask_InvalidCron(t *testing.T) {
	s := newTestScheduler(t)
	err := s.RegisterTask(TaskConfig{ID: "bad", Cron: "not a cron", Func: func(context.Context) error { return nil }})
	if err == nil {
		t.Error("invalid cron expression should fail")
	}
}

func TestRunNow_RecordsOutcome(t *testing.T) {
	s := newTestScheduler(t)
	var calls atomic.Int32
	failure := errors.New("probe failed")

	_ = s.RegisterTask(TaskConfig{ID: "ok", Cron: "0 * * * *", Func: func(context.Context) error {
		calls.Add(1)
		return nil
	}})
	_ = s.RegisterTask(TaskConfig{ID: "fail", Cron: "0 * * * *", Func: func(context.Context) error {
		return failure
	}})

	if err := s.RunNow("ok"); err != nil {
		t.Errorf("RunNow(ok) error = %v", err)
	}
	if err := s.RunNow("fail"); !errors.Is(err, failure) {
		t.Errorf("RunNow(fail) error = %v, want %v", err, failure)
	}
	if err := s.RunNow("missing"); err == nil {
		t.Error("RunNow(missing) should fail")
	}
	if calls.Load() != 1 {
		t.Errorf("task ran %d times, want 1", calls.Load())
	}

	tasks := s.ListTasks()
	if len(tasks) != 2 || tasks[0].ID != "fail" || tasks[1].ID != "ok" {
		t.Fatalf("ListTasks() = %+v", tasks)
	}
	if tasks[0].LastError != "probe failed" || tasks[0].Runs != 1 || tasks[0].LastRun == nil {
		t.Errorf("failed task info = %+v", tasks[0])
	}
	if tasks[1].LastError != "" || tasks[1].Runs != 1 {
		t.Errorf("ok task info = %+v", tasks[1])
	}
}
