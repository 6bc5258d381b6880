package jobs

import (
	"time"

	"github.com/buemura/safeurl/pkg/types"
)

// JobStatus represents the current state of a batch job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// JobProgress tracks URL-level progress within a job.
type JobProgress struct {
	TotalURLs     int `json:"total_urls"`
	CompletedURLs int `json:"completed_urls"`
}

// Failure is a URL that could not be scored, usually because it is not a
// valid http(s) URL.
type Failure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Job is an async batch of URL scans.
type Job struct {
	ID          string             `json:"id"`
	User        string             `json:"-"`
	URLs        []string           `json:"urls"`
	SkipAI      bool               `json:"skip_ai"`
	Status      JobStatus          `json:"status"`
	Results     []types.ScanResult `json:"results,omitempty"`
	Failures    []Failure          `json:"failures,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   time.Time          `json:"started_at,omitempty"`
	CompletedAt time.Time          `json:"completed_at,omitempty"`
	Progress    JobProgress        `json:"progress"`
}

// VerdictCounts tallies the verdicts of the finished scans.
func (j *Job) VerdictCounts() map[types.Verdict]int {
	counts := map[types.Verdict]int{}
	for _, r := range j.Results {
		counts[r.Verdict]++
	}
	return counts
}

func (j *Job) clone() Job {
	c := *j
	c.URLs = append([]string(nil), j.URLs...)
	c.Results = append([]types.ScanResult(nil), j.Results...)
	c.Failures = append([]Failure(nil), j.Failures...)
	return c
}
