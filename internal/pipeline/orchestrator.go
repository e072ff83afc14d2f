package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unbindai/unbind/internal/analysis"
	"github.com/unbindai/unbind/internal/config"
	"github.com/unbindai/unbind/internal/llm"
	"github.com/unbindai/unbind/internal/store"
)

// Orchestrator runs contract analyses on a bounded worker pool and
// persists completed reports.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	analyzer *analysis.Analyzer
	store    *store.Store
	log      *slog.Logger
	cfg      config.Config

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewOrchestrator(cfg config.Config, analyzer *analysis.Analyzer, st *store.Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		analyzer: analyzer,
		store:    st,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. The queue stays open so a
// late Submit degrades to a refusal instead of a send on a closed channel;
// workers exit through context cancellation.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Submit queues a new job for processing. Jobs submitted after Stop are
// refused.
func (o *Orchestrator) Submit(job *Job) error {
	if o.stopped.Load() {
		job.Fail(ErrKindInternal, "the service is shutting down")
		o.jobs.Put(job)
		return fmt.Errorf("orchestrator is stopped")
	}
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.Fail(ErrKindInternal, "analysis queue is full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

func (o *Orchestrator) process(ctx context.Context, job *Job) {
	text, role := job.inputs()
	defer job.releaseInputs()

	start := time.Now()
	report, err := o.analyzer.AnalyzeContract(ctx, text, role, func(stage string) {
		job.SetStatus(statusForStage(stage))
	})
	if err != nil {
		kind, msg := classifyError(err)
		job.Fail(kind, msg)
		o.log.Error("analysis failed",
			"job_id", job.ID,
			"kind", string(kind),
			"error", err,
			"duration", time.Since(start))
		return
	}

	resultJSON, err := json.Marshal(report)
	if err != nil {
		job.Fail(ErrKindInternal, "failed to encode analysis result")
		o.log.Error("encode report", "job_id", job.ID, "error", err)
		return
	}

	rec := &store.Analysis{
		UserID:       job.UserID,
		FileName:     job.FileName,
		Result:       resultJSON,
		DocumentText: text,
	}
	if err := o.store.SaveAnalysis(ctx, rec); err != nil {
		job.Fail(ErrKindInternal, "failed to save analysis")
		o.log.Error("save analysis", "job_id", job.ID, "error", err)
		return
	}

	job.Complete(rec.ID)
	o.log.Info("analysis completed",
		"job_id", job.ID,
		"analysis_id", rec.ID,
		"clauses", len(report.Clauses),
		"duration", time.Since(start))
}

func statusForStage(stage string) JobStatus {
	switch stage {
	case analysis.StageExtracting:
		return StatusExtracting
	case analysis.StageSummarizing:
		return StatusSummarizing
	case analysis.StageSynthesizing:
		return StatusSynthesizing
	default:
		return StatusChunking
	}
}

func classifyError(err error) (ErrorKind, string) {
	var apiErr *llm.APIError
	switch {
	case errors.Is(err, analysis.ErrNoClauses):
		return ErrKindNothingAnalyzable, "The AI engine could not extract any analyzable clauses from this document."
	case errors.Is(err, analysis.ErrReportSynthesis):
		return ErrKindSynthesisFailed, "The AI engine failed to synthesize a final report."
	case errors.As(err, &apiErr):
		return ErrKindUnreachable, "The AI analysis engine is currently unreachable. Please try again later."
	default:
		return ErrKindInternal, "An unexpected error occurred during analysis."
	}
}
