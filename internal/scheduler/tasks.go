package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRecalculateScores = "prospects.recalculate_scores"

// Trigger values recorded on a recalculation task.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// RecalculateScoresPayload stays free of timestamps so asynq.Unique can
// collapse identical manual triggers.
type RecalculateScoresPayload struct {
	Trigger string `json:"trigger"`
}

// NewRecalculateScoresTask builds the task with no retries; a failed run
// waits for the next trigger.
func NewRecalculateScoresTask(payload RecalculateScoresPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecalculateScores, data, asynq.MaxRetry(0)), nil
}

func ParseRecalculateScoresPayload(task *asynq.Task) (RecalculateScoresPayload, error) {
	var payload RecalculateScoresPayload
	if len(task.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RecalculateScoresPayload{}, err
	}
	return payload, nil
}
