package api

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/Linegra/core/errors"
	"github.com/FocuswithJustin/Linegra/internal/importer"
	"github.com/FocuswithJustin/Linegra/internal/logging"
)

// JobStatus is the state of an import job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Done reports whether the status is final.
func (s JobStatus) Done() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is one asynchronous import.
type Job struct {
	ID          string            `json:"id"`
	TreeID      string            `json:"treeId"`
	Document    string            `json:"document"`
	Status      JobStatus         `json:"status"`
	Stage       string            `json:"stage,omitempty"`
	Progress    int               `json:"progress"`
	Message     string            `json:"message,omitempty"`
	Outcome     *importer.Outcome `json:"outcome,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
	CompletedAt string            `json:"completedAt,omitempty"`

	seq    int
	cancel context.CancelFunc
}

// DefaultJobRetention is the number of finished jobs kept when no limit is
// configured.
const DefaultJobRetention = 100

// JobStore keeps jobs in memory. Unfinished jobs are always kept; of the
// finished ones only the newest retain are. Every method returns copies.
type JobStore struct {
	jobs   map[string]*Job
	next   int
	retain int
	mu     sync.RWMutex
}

// NewJobStore creates an empty job store keeping at most retain finished
// jobs.
func NewJobStore(retain int) *JobStore {
	if retain <= 0 {
		retain = DefaultJobRetention
	}
	return &JobStore{jobs: make(map[string]*Job), retain: retain}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Create adds a pending job and returns it with the context its import
// must run under.
func (s *JobStore) Create(treeID, document string) (Job, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	now := timestamp()
	s.next++
	job := &Job{
		ID:        uuid.NewString(),
		TreeID:    treeID,
		Document:  document,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		seq:       s.next,
		cancel:    cancel,
	}
	s.jobs[job.ID] = job
	return *job, ctx
}

// Get returns a job by id.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// update applies fn to a job and refreshes its timestamps.
func (s *JobStore) update(id string, fn func(*Job)) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	fn(job)
	job.UpdatedAt = timestamp()
	if job.Status.Done() && job.CompletedAt == "" {
		job.CompletedAt = job.UpdatedAt
		job.cancel()
		defer s.prune()
	}
	return *job, true
}

// prune drops the oldest finished jobs beyond the retention limit. The
// caller holds the lock.
func (s *JobStore) prune() {
	var done []*Job
	for _, job := range s.jobs {
		if job.Status.Done() {
			done = append(done, job)
		}
	}
	if len(done) <= s.retain {
		return
	}
	slices.SortFunc(done, func(a, b *Job) int { return a.seq - b.seq })
	for _, job := range done[:len(done)-s.retain] {
		delete(s.jobs, job.ID)
	}
}

// List returns jobs in creation order, optionally only those of one tree.
func (s *JobStore) List(treeID string) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if treeID == "" || job.TreeID == treeID {
			jobs = append(jobs, *job)
		}
	}
	slices.SortFunc(jobs, func(a, b Job) int { return a.seq - b.seq })
	return jobs
}

// Cancel requests cancellation of an unfinished job. The import stops at
// its next stage boundary.
func (s *JobStore) Cancel(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, errors.NewNotFound("job", id)
	}
	if job.Status.Done() {
		return *job, errors.NewValidation("status", "job already "+string(job.Status))
	}
	job.cancel()
	return *job, nil
}

// CancelAll cancels every unfinished job.
func (s *JobStore) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if !job.Status.Done() {
			job.cancel()
		}
	}
}

// runJob runs one import and records its progress on the job and the hub.
func (s *Server) runJob(ctx context.Context, job Job, req importer.Request) {
	s.jobs.update(job.ID, func(j *Job) { j.Status = JobStatusRunning })

	outcome, err := s.importer.Import(ctx, req, func(p importer.Progress) {
		s.jobs.update(job.ID, func(j *Job) {
			j.Stage = p.Stage
			j.Progress = p.Percent
			j.Message = p.Message
		})
		s.hub.Broadcast(ProgressMessage{
			Type:     MessageProgress,
			JobID:    job.ID,
			TreeID:   job.TreeID,
			Stage:    p.Stage,
			Progress: p.Percent,
			Message:  p.Message,
		})
	})

	switch {
	case err == nil:
		s.jobs.update(job.ID, func(j *Job) {
			j.Status = JobStatusCompleted
			j.Progress = 100
			j.Outcome = outcome
		})
		s.hub.Broadcast(ProgressMessage{
			Type:     MessageComplete,
			JobID:    job.ID,
			TreeID:   job.TreeID,
			Progress: 100,
			Message:  "import completed",
			Data: map[string]any{
				"importId": outcome.Summary.ImportID,
				"people":   outcome.Summary.People,
				"warnings": len(outcome.Warnings),
			},
		})
	case errors.Is(err, errors.ErrCanceled):
		s.jobs.update(job.ID, func(j *Job) {
			j.Status = JobStatusCancelled
			j.Error = err.Error()
		})
		s.hub.Broadcast(ProgressMessage{Type: MessageError, JobID: job.ID, TreeID: job.TreeID, Message: err.Error()})
		logging.Info("import job cancelled", "job_id", job.ID, "tree_id", job.TreeID)
	default:
		s.jobs.update(job.ID, func(j *Job) {
			j.Status = JobStatusFailed
			j.Error = err.Error()
		})
		s.hub.Broadcast(ProgressMessage{Type: MessageError, JobID: job.ID, TreeID: job.TreeID, Message: err.Error()})
	}
}
