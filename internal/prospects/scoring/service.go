// Package scoring recomputes score decay and threshold stages for every
// prospect of every tenant in one atomic run.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prospect_backend/internal/events"
	"prospect_backend/internal/prospects/batch"
	"prospect_backend/internal/prospects/domain"
	"prospect_backend/internal/prospects/repository"
	"prospect_backend/platform/logger"
)

// DefaultLockTTL is used when the configured TTL is not positive.
const DefaultLockTTL = 30 * time.Minute

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("recalculation already running")

// Store runs fn in one transaction covering the reads and writes of a run.
type Store interface {
	RunScoring(ctx context.Context, fn func(ctx context.Context, tx repository.ScoringTx) error) error
}

// Summary describes a committed run.
type Summary struct {
	Rescored     int
	Decayed      int
	StageChanged int
	Duration     time.Duration
}

// Service is the scoring recalculator.
type Service struct {
	store        Store
	locker       Locker
	eventBus     events.Bus
	log          *logger.Logger
	preserveHold bool
	lockTTL      time.Duration
	now          func() time.Time
}

// Options tune a recalculator.
type Options struct {
	// PreserveHold keeps a manually set hold stage instead of recomputing it.
	PreserveHold bool
	LockTTL      time.Duration
}

// New creates the recalculator. locker and eventBus may be nil.
func New(store Store, locker Locker, eventBus events.Bus, log *logger.Logger, opts Options) *Service {
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Service{
		store:        store,
		locker:       locker,
		eventBus:     eventBus,
		log:          log,
		preserveHold: opts.PreserveHold,
		lockTTL:      ttl,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Recalculate decays scores, recomputes stages and writes score, stage and
// updated_at of every prospect. Either every row is written or none is.
// Failures are logged here since scheduled runs have no caller to report to.
func (s *Service) Recalculate(ctx context.Context) (Summary, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, LockKey, s.lockTTL)
		if err != nil {
			return Summary{}, s.fail(ctx, events.RecalculationFailed, err)
		}
		if !ok {
			return Summary{}, s.fail(ctx, events.RecalculationSkipped, ErrRunInProgress)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warn("release recalculation lock", "error", err)
			}
		}()
	}

	started := time.Now()
	now := s.now()
	var summary Summary

	err := s.store.RunScoring(ctx, func(ctx context.Context, tx repository.ScoringTx) error {
		prospects, err := tx.ListForScoring(ctx)
		if err != nil {
			return err
		}

		unit := batch.NewUnit(tx, 0)
		for _, p := range prospects {
			next := domain.Recalculate(p, now, s.preserveHold)
			if next.Score != p.Score {
				summary.Decayed++
			}
			if next.Stage != p.Stage {
				summary.StageChanged++
			}
			if err := unit.Stage(batch.ScoreUpdate{Rescore: next, At: now}); err != nil {
				return err
			}
		}
		summary.Rescored = unit.Len()
		return unit.Commit(ctx)
	})
	if err != nil {
		return Summary{}, s.fail(ctx, events.RecalculationFailed, fmt.Errorf("recalculate scores: %w", err))
	}

	summary.Duration = time.Since(started)
	s.log.WithContext(ctx).Info("scores_recalculated",
		"rescored", summary.Rescored,
		"decayed", summary.Decayed,
		"stage_changed", summary.StageChanged,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ScoresRecalculated{
			BaseEvent:    events.NewBaseEvent(),
			Rescored:     summary.Rescored,
			Decayed:      summary.Decayed,
			StageChanged: summary.StageChanged,
			DurationMs:   summary.Duration.Milliseconds(),
		})
	}
	return summary, nil
}

func (s *Service) fail(ctx context.Context, result string, err error) error {
	if result == events.RecalculationSkipped {
		s.log.WithContext(ctx).Warn("scores_recalculation_skipped", "error", err)
	} else {
		s.log.WithContext(ctx).Error("scores_recalculation_failed", "error", err)
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.ScoreRecalculationFailed{
			BaseEvent: events.NewBaseEvent(),
			Result:    result,
			Error:     err.Error(),
		})
	}
	return err
}
