package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/leiwong/rpscan/pkg/config"
	"github.com/leiwong/rpscan/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

// stubJob replays a scripted sequence of outcomes.
type stubJob struct {
	name     string
	schedule string
	outcomes []error
	calls    int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	err := j.outcomes[j.calls]
	j.calls++
	return err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(testLogger())
	job := &stubJob{name: "daily-screen", schedule: "0 30 17 * * MON-FRI"}

	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	if err := s.AddJob(job); err == nil {
		t.Error("duplicate job name must error")
	}
}

func TestScheduler_AddJobBadSchedule(t *testing.T) {
	s := New(testLogger())
	job := &stubJob{name: "broken", schedule: "not a cron expression"}

	if err := s.AddJob(job); err == nil {
		t.Error("unparseable schedule must error")
	}
}

func TestScheduler_History(t *testing.T) {
	s := New(testLogger())
	job := &stubJob{
		name:     "daily-screen",
		schedule: "0 30 17 * * MON-FRI",
		outcomes: []error{errors.New("upstream down"), nil},
	}
	if err := s.AddJob(job); err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}

	s.runJob(job)
	s.runJob(job)

	results := s.History("daily-screen")
	if len(results) != 2 {
		t.Fatalf("history holds %d results, want 2", len(results))
	}
	if results[0].Success || results[0].Error != "upstream down" {
		t.Errorf("first run = %+v, want recorded failure", results[0])
	}
	if !results[1].Success || results[1].Error != "" {
		t.Errorf("second run = %+v, want recorded success", results[1])
	}

	// The returned slice is a copy, not a view into the live history.
	results[0].JobName = "mutated"
	if s.History("daily-screen")[0].JobName != "daily-screen" {
		t.Error("History must return a copy")
	}

	if s.History("unknown") != nil {
		t.Error("unknown job must have nil history")
	}
}
