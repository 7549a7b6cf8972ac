//go:build integration

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"prospect_backend/internal/testutil/containers"

	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct{ url string }

func (c testSchedulerConfig) GetRedisURL() string                { return c.url }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool          { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string          { return "prospects-test" }
func (c testSchedulerConfig) GetAsynqConcurrency() int           { return 1 }
func (c testSchedulerConfig) GetScoringCron() string             { return "0 3 * * *" }
func (c testSchedulerConfig) GetScoringLocation() *time.Location { return time.UTC }

func TestEnqueueRecalculation(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	cfg := testSchedulerConfig{url: rc.URL}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	id, err := client.EnqueueRecalculation(ctx)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	opt, err := connOpt(cfg)
	if err != nil {
		t.Fatalf("conn opt: %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer func() { _ = inspector.Close() }()

	info, err := inspector.GetTaskInfo(cfg.GetAsynqQueueName(), id)
	if err != nil {
		t.Fatalf("get task info: %v", err)
	}
	if info.Type != TaskRecalculateScores {
		t.Fatalf("expected %s, got %s", TaskRecalculateScores, info.Type)
	}
	if info.MaxRetry != 0 {
		t.Fatalf("expected no retries, got %d", info.MaxRetry)
	}

	if _, err := client.EnqueueRecalculation(ctx); !errors.Is(err, asynq.ErrDuplicateTask) {
		t.Fatalf("expected duplicate manual trigger to be rejected, got %v", err)
	}
}
