package scheduler

import (
	"context"
	"errors"
	"fmt"

	"prospect_backend/internal/prospects/scoring"
	"prospect_backend/platform/config"
	"prospect_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Recalculator runs one scoring pass.
type Recalculator interface {
	Recalculate(ctx context.Context) (scoring.Summary, error)
}

type Worker struct {
	server       *asynq.Server
	mux          *asynq.ServeMux
	recalculator Recalculator
	log          *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, recalculator Recalculator, log *logger.Logger) (*Worker, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:       server,
		mux:          mux,
		recalculator: recalculator,
		log:          log,
	}

	mux.HandleFunc(TaskRecalculateScores, w.handleRecalculateScores)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleRecalculateScores(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRecalculateScoresPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	summary, err := w.recalculator.Recalculate(ctx)
	if errors.Is(err, scoring.ErrRunInProgress) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	w.log.Info("recalculation task done",
		"trigger", payload.Trigger,
		"rescored", summary.Rescored,
	)
	return nil
}
