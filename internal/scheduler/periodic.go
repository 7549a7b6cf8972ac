package scheduler

import (
	"context"
	"fmt"
	"time"

	"prospect_backend/platform/config"
	"prospect_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the daily recalculation on the configured cron.
type Periodic struct {
	scheduler *asynq.Scheduler
	cron      string
	queue     string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := connOpt(cfg)
	if err != nil {
		return nil, err
	}

	location := cfg.GetScoringLocation()
	if location == nil {
		location = time.UTC
	}

	cron := cfg.GetScoringCron()
	if cron == "" {
		return nil, fmt.Errorf("scoring cron not configured")
	}

	p := &Periodic{
		cron:  cron,
		queue: queueName(cfg),
		log:   log,
	}
	p.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: location,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("scheduled recalculation enqueue failed", "error", err)
				return
			}
			log.Info("scheduled recalculation enqueued", "task_id", info.ID)
		},
	})
	return p, nil
}

func (p *Periodic) Run(ctx context.Context) error {
	task, err := NewRecalculateScoresTask(RecalculateScoresPayload{Trigger: TriggerSchedule})
	if err != nil {
		return err
	}
	entryID, err := p.scheduler.Register(p.cron, task, asynq.Queue(p.queue))
	if err != nil {
		return fmt.Errorf("register recalculation cron %q: %w", p.cron, err)
	}
	p.log.Info("recalculation scheduled", "cron", p.cron, "entry_id", entryID)

	if err := p.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}
