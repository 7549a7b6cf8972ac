// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"prospect_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Import Events
// =============================================================================

// ProspectsImported is published after an import call committed.
type ProspectsImported struct {
	BaseEvent
	CallerID   string   `json:"callerId"`
	Processed  int      `json:"processed"`
	Assigned   int      `json:"assigned"`
	Unassigned int      `json:"unassigned"`
	Supplied   int      `json:"supplied"`
	Tenants    []string `json:"tenants"`
}

func (e ProspectsImported) EventName() string { return "prospects.imported" }

// Reasons carried by ImportRejected.
const (
	RejectUnauthorized = "unauthorized"
	RejectValidation   = "validation"
	RejectTooLarge     = "too_large"
	RejectAssignment   = "assignment"
	RejectCommit       = "commit"
)

// ImportRejected is published when an import call wrote nothing.
type ImportRejected struct {
	BaseEvent
	CallerID string `json:"callerId"`
	Reason   string `json:"reason"`
	Records  int    `json:"records"`
}

func (e ImportRejected) EventName() string { return "prospects.import_rejected" }

// =============================================================================
// Scoring Events
// =============================================================================

// ScoresRecalculated is published after a recalculation run committed.
type ScoresRecalculated struct {
	BaseEvent
	Rescored     int   `json:"rescored"`
	Decayed      int   `json:"decayed"`
	StageChanged int   `json:"stageChanged"`
	DurationMs   int64 `json:"durationMs"`
}

func (e ScoresRecalculated) EventName() string { return "prospects.scores_recalculated" }

// Results carried by ScoreRecalculationFailed.
const (
	RecalculationFailed  = "failed"
	RecalculationSkipped = "skipped"
)

// ScoreRecalculationFailed is published when a run was skipped or rolled back.
type ScoreRecalculationFailed struct {
	BaseEvent
	Result string `json:"result"`
	Error  string `json:"error"`
}

func (e ScoreRecalculationFailed) EventName() string { return "prospects.score_recalculation_failed" }
