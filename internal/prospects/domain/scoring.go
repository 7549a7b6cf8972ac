package domain

import "time"

// Decay rule and stage thresholds applied by the nightly recalculation.
const (
	DecayAfterDays   = 3
	DecayStep        = 2
	P1Threshold      = 80
	NurtureThreshold = 60
)

// DaysSince returns whole days elapsed between t and now, rounded down.
// ok is false when t is unset.
func DaysSince(t *time.Time, now time.Time) (days int, ok bool) {
	if t == nil {
		return 0, false
	}
	return int(now.Sub(*t) / (24 * time.Hour)), true
}

// DecayScore applies one run of time decay. Prospects never contacted keep their score.
func DecayScore(score int, lastContactedAt *time.Time, now time.Time) int {
	days, ok := DaysSince(lastContactedAt, now)
	if !ok || days < DecayAfterDays {
		return ClampScore(score)
	}
	return ClampScore(score - DecayStep)
}

// StageForScore maps a score onto its threshold stage.
func StageForScore(score int) Stage {
	switch {
	case score >= P1Threshold:
		return StageP1
	case score >= NurtureThreshold:
		return StageNurture
	default:
		return StageResearch
	}
}

// ClampScore bounds a score to [MinScore, MaxScore].
func ClampScore(score int) int {
	return min(max(score, MinScore), MaxScore)
}

// Rescore is the result of one recalculation for a prospect.
type Rescore struct {
	TenantID string
	ID       string
	Score    int
	Stage    Stage
}

// Recalculate applies decay and the stage rule to p. With preserveHold a
// prospect parked in hold keeps that stage while its score still decays.
func Recalculate(p Prospect, now time.Time, preserveHold bool) Rescore {
	score := DecayScore(p.Score, p.LastContactedAt, now)
	stage := StageForScore(score)
	if preserveHold && p.Stage == StageHold {
		stage = StageHold
	}
	return Rescore{TenantID: p.TenantID, ID: p.ID, Score: score, Stage: stage}
}
