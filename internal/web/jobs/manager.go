package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/buemura/safeurl/internal/scan"
	"github.com/buemura/safeurl/internal/store"
	"github.com/buemura/safeurl/pkg/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned for unknown job IDs and for jobs owned by another user.
var ErrNotFound = errors.New("job not found")

// newUUID is a variable so tests can make IDs deterministic.
var newUUID = func() string { return uuid.NewString() }

// Scanner scores one URL for a user.
type Scanner interface {
	Scan(ctx context.Context, user, raw string, opts ...scan.ScanOption) (types.ScanResult, error)
}

// Recorder persists finished scans. It is optional.
type Recorder interface {
	Record(ctx context.Context, user string, result types.ScanResult) (store.HistoryEntry, error)
}

// Config bounds how jobs run.
type Config struct {
	Concurrency int
	Timeout     time.Duration
}

// Manager manages batch job lifecycle: create, execute, track, store results.
type Manager struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	scanner  Scanner
	recorder Recorder
	cfg      Config
	log      logrus.FieldLogger
}

// NewManager creates a job manager that scans through s. recorder may be
// nil; when set, results of authenticated users are written to history.
func NewManager(s Scanner, recorder Recorder, cfg Config, log logrus.FieldLogger) *Manager {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Manager{
		jobs:     make(map[string]*Job),
		scanner:  s,
		recorder: recorder,
		cfg:      cfg,
		log:      log,
	}
}

// Create creates a new pending job for user.
func (m *Manager) Create(user string, urls []string, skipAI bool) Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        newUUID(),
		User:      user,
		URLs:      append([]string(nil), urls...),
		SkipAI:    skipAI,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		Progress: JobProgress{
			TotalURLs: len(urls),
		},
	}
	m.jobs[job.ID] = job
	return job.clone()
}

// Start launches the job in a background goroutine.
func (m *Manager) Start(jobID string) error {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNotFound, jobID)
	}
	if job.Status != StatusPending {
		m.mu.Unlock()
		return fmt.Errorf("job %q already %s", jobID, job.Status)
	}
	job.Status = StatusRunning
	job.StartedAt = time.Now()
	m.mu.Unlock()

	go m.execute(job)
	return nil
}

func (m *Manager) execute(job *Job) {
	log := m.log.WithFields(logrus.Fields{"job": job.ID, "urls": len(job.URLs)})
	defer func() {
		if r := recover(); r != nil {
			m.mu.Lock()
			job.Status = StatusFailed
			job.Error = fmt.Sprintf("panic: %v", r)
			job.CompletedAt = time.Now()
			m.mu.Unlock()
			log.WithField("panic", r).Error("batch job failed")
		}
	}()

	ctx := context.Background()
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	var opts []scan.ScanOption
	if job.SkipAI {
		opts = append(opts, scan.WithoutAI())
	}

	results := make([]*types.ScanResult, len(job.URLs))
	failures := make([]*Failure, len(job.URLs))

	g := new(errgroup.Group)
	g.SetLimit(m.cfg.Concurrency)
	for i, raw := range job.URLs {
		i, raw := i, raw // per-iteration copies (Go <1.22 loop semantics)
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failures[i] = &Failure{URL: raw, Error: fmt.Sprintf("panic: %v", r)}
					log.WithField("panic", r).Error("scan panicked")
				}
				m.mu.Lock()
				job.Progress.CompletedURLs++
				m.mu.Unlock()
			}()

			res, err := m.scanner.Scan(ctx, job.User, raw, opts...)
			if err != nil {
				failures[i] = &Failure{URL: raw, Error: err.Error()}
			} else {
				results[i] = &res
				m.record(ctx, job.User, res, log)
			}
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	for i := range job.URLs {
		if results[i] != nil {
			job.Results = append(job.Results, *results[i])
		}
		if failures[i] != nil {
			job.Failures = append(job.Failures, *failures[i])
		}
	}
	job.Status = StatusCompleted
	job.CompletedAt = time.Now()
	m.mu.Unlock()

	log.WithField("failures", len(job.Failures)).Info("batch job complete")
}

func (m *Manager) record(ctx context.Context, user string, res types.ScanResult, log logrus.FieldLogger) {
	if m.recorder == nil || user == "" {
		return
	}
	if _, err := m.recorder.Record(ctx, user, res); err != nil {
		log.WithError(err).Warn("failed to record scan history")
	}
}

// Get returns a snapshot of the user's job.
func (m *Manager) Get(user, jobID string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok || job.User != user {
		return Job{}, fmt.Errorf("%w: %q", ErrNotFound, jobID)
	}
	return job.clone(), nil
}

// List returns snapshots of the user's jobs sorted by CreatedAt descending.
func (m *Manager) List(user string) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.User == user {
			result = append(result, j.clone())
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})
	return result
}

// Delete removes a job from the manager. A running job keeps running but
// its results are dropped.
func (m *Manager) Delete(user, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.User != user {
		return fmt.Errorf("%w: %q", ErrNotFound, jobID)
	}
	delete(m.jobs, jobID)
	return nil
}
