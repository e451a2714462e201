package scheduler

import (
	"context"
	"time"
)

// Job is a unit of scheduled work
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression, e.g. "0 0 * * *" or "@daily"
	Schedule() string
}

// JobResult records one execution of a job
type JobResult struct {
	JobName   string        `json:"jobName"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the most recent results of one job
type JobHistory struct {
	Results []JobResult
}

const historyLimit = 100

// AddResult appends a result, keeping only the most recent entries
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Latest returns the most recent result, if any
func (h *JobHistory) Latest() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// SuccessRate returns the fraction of recorded runs that succeeded
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	succeeded := 0
	for _, r := range h.Results {
		if r.Success {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(h.Results))
}
