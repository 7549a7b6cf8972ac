package scheduler

import (
	"context"
	"errors"
	"testing"

	"prospect_backend/internal/prospects/scoring"
	"prospect_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type fakeRecalculator struct {
	calls int
	err   error
}

func (f *fakeRecalculator) Recalculate(context.Context) (scoring.Summary, error) {
	f.calls++
	return scoring.Summary{Rescored: 3}, f.err
}

func newTestWorker(r Recalculator) *Worker {
	return &Worker{recalculator: r, log: logger.Discard()}
}

func TestRecalculateTaskHasNoRetries(t *testing.T) {
	task, err := NewRecalculateScoresTask(RecalculateScoresPayload{Trigger: TriggerManual})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type() != TaskRecalculateScores {
		t.Fatalf("expected %s, got %s", TaskRecalculateScores, task.Type())
	}
	payload, err := ParseRecalculateScoresPayload(task)
	if err != nil || payload.Trigger != TriggerManual {
		t.Fatalf("expected manual trigger, got %+v err=%v", payload, err)
	}
}

func TestHandleRecalculateRunsOnce(t *testing.T) {
	r := &fakeRecalculator{}
	task, _ := NewRecalculateScoresTask(RecalculateScoresPayload{Trigger: TriggerSchedule})

	if err := newTestWorker(r).handleRecalculateScores(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.calls != 1 {
		t.Fatalf("expected one run, got %d", r.calls)
	}
}

func TestHandleRecalculateSkippedRunIsNotAFailure(t *testing.T) {
	r := &fakeRecalculator{err: scoring.ErrRunInProgress}
	task, _ := NewRecalculateScoresTask(RecalculateScoresPayload{Trigger: TriggerManual})

	if err := newTestWorker(r).handleRecalculateScores(context.Background(), task); err != nil {
		t.Fatalf("expected nil for a skipped run, got %v", err)
	}
}

func TestHandleRecalculateFailureSkipsRetry(t *testing.T) {
	r := &fakeRecalculator{err: errors.New("commit failed")}
	task, _ := NewRecalculateScoresTask(RecalculateScoresPayload{Trigger: TriggerSchedule})

	err := newTestWorker(r).handleRecalculateScores(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestHandleRecalculateAcceptsEmptyPayload(t *testing.T) {
	r := &fakeRecalculator{}
	if err := newTestWorker(r).handleRecalculateScores(context.Background(), asynq.NewTask(TaskRecalculateScores, nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
