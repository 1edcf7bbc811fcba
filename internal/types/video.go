package types

import "time"

// JobStatus is the state of an asynchronous video job
type JobStatus string

// Video job states. SUBMITTED -> {PENDING, RUNNING}* -> SUCCEEDED | FAILED | TIMED_OUT
const (
	JobPending   JobStatus = "PENDING"
	JobRunning   JobStatus = "RUNNING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
	JobTimedOut  JobStatus = "TIMED_OUT"
)

// IsTerminal reports whether the job has finished one way or another
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobTimedOut:
		return true
	default:
		return false
	}
}

// VideoJob tracks one submitted video generation job.
// It is owned by the polling loop that created it.
type VideoJob struct {
	Handle      string    `json:"handle"`
	Status      JobStatus `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	Polls       int       `json:"polls"`
}

// VideoProgress is reported once per status query
type VideoProgress struct {
	Handle    string        `json:"handle"`
	Status    JobStatus     `json:"status"`
	Elapsed   time.Duration `json:"elapsed"`
	Poll      int           `json:"poll"`
	NextDelay time.Duration `json:"next_delay"`
}

// VideoProgressFunc receives polling progress
type VideoProgressFunc func(VideoProgress)
