package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued       JobStatus = "queued"
	StatusChunking     JobStatus = "chunking"
	StatusExtracting   JobStatus = "extracting"
	StatusSummarizing  JobStatus = "summarizing"
	StatusSynthesizing JobStatus = "synthesizing"
	StatusCompleted    JobStatus = "completed"
	StatusFailed       JobStatus = "failed"
)

// ErrorKind classifies terminal failures for client-side handling.
type ErrorKind string

const (
	ErrKindUnreachable       ErrorKind = "unreachable"
	ErrKindNothingAnalyzable ErrorKind = "nothing_analyzable"
	ErrKindSynthesisFailed   ErrorKind = "synthesis_failed"
	ErrKindInternal          ErrorKind = "internal"
)

// Job tracks the state of a single contract analysis run.
type Job struct {
	mu sync.Mutex

	ID       string
	UserID   string
	FileName string

	Status     JobStatus
	ErrorKind  ErrorKind
	Error      string
	AnalysisID string

	CreatedAt time.Time
	UpdatedAt time.Time

	// Inputs held until a worker picks the job up. Not serialized.
	documentText string
	role         string
}

func NewJob(id, userID, fileName, documentText, role string) *Job {
	now := time.Now()
	return &Job{
		ID:           id,
		UserID:       userID,
		FileName:     fileName,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
		documentText: documentText,
		role:         role,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.UpdatedAt = time.Now()
}

// Fail marks the job terminal with a classified error.
func (j *Job) Fail(kind ErrorKind, msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.ErrorKind = kind
	j.Error = msg
	j.UpdatedAt = time.Now()
}

// Complete marks the job done and records the stored analysis id.
func (j *Job) Complete(analysisID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusCompleted
	j.AnalysisID = analysisID
	j.UpdatedAt = time.Now()
}

// updatedAt reads the last-touched time under the job lock. Workers update
// it concurrently with the cleanup ticker.
func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
}

func (j *Job) inputs() (text, role string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.documentText, j.role
}

// releaseInputs drops the document text once the job is terminal so the
// store does not pin large uploads for the whole TTL.
func (j *Job) releaseInputs() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.documentText = ""
	j.role = ""
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID         string    `json:"jobId"`
	UserID     string    `json:"userId"`
	FileName   string    `json:"fileName"`
	Status     JobStatus `json:"status"`
	ErrorKind  ErrorKind `json:"errorKind,omitempty"`
	Error      string    `json:"error,omitempty"`
	AnalysisID string    `json:"analysisId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:         j.ID,
		UserID:     j.UserID,
		FileName:   j.FileName,
		Status:     j.Status,
		ErrorKind:  j.ErrorKind,
		Error:      j.Error,
		AnalysisID: j.AnalysisID,
		CreatedAt:  j.CreatedAt,
		UpdatedAt:  j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}
