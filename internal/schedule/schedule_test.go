package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAddValidatesJobs(t *testing.T) {
	s := New(context.Background())
	noop := func(context.Context) error { return nil }

	if err := s.Add(Job{Name: "sync", Spec: "not a cron", Run: noop}); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if err := s.Add(Job{Name: "sync", Spec: "*/15 * * * *"}); err == nil {
		t.Fatal("expected nil run func error")
	}
	if err := s.Add(Job{Name: "sync", Spec: "*/15 * * * *", Run: noop}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(Job{Name: "sync", Spec: "@hourly", Run: noop}); err == nil {
		t.Fatal("expected duplicate name error")
	}
	if err := s.Add(Job{Name: "capture", Spec: "", Run: noop}); err != nil {
		t.Fatalf("empty spec should disable, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestRunNowPassesContextAndTimeout(t *testing.T) {
	type ctxKey struct{}
	parent := context.WithValue(context.Background(), ctxKey{}, "planner")
	s := New(parent)

	var sawValue, sawDeadline bool
	want := errors.New("boom")
	err := s.Add(Job{
		Name:    "capture",
		Spec:    "@daily",
		Timeout: time.Minute,
		Run: func(ctx context.Context) error {
			sawValue = ctx.Value(ctxKey{}) == "planner"
			_, sawDeadline = ctx.Deadline()
			return want
		},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.RunNow("capture"); !errors.Is(err, want) {
		t.Fatalf("RunNow err = %v, want %v", err, want)
	}
	if !sawValue || !sawDeadline {
		t.Fatalf("job ctx value=%v deadline=%v, want both", sawValue, sawDeadline)
	}
	if err := s.RunNow("missing"); err == nil {
		t.Fatal("expected unknown job error")
	}
}

func TestStartStop(t *testing.T) {
	s := New(context.Background())
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestRunOnceWithoutScheduler(t *testing.T) {
	ran := false
	job := Job{Name: "sync", Run: func(context.Context) error { ran = true; return nil }}
	if err := RunOnce(context.Background(), job); err != nil || !ran {
		t.Fatalf("RunOnce err=%v ran=%v", err, ran)
	}
	if err := RunOnce(context.Background(), Job{Name: "empty"}); err == nil {
		t.Fatal("expected nil run func error")
	}
}
