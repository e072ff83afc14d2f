package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/unbindai/unbind/internal/analysis"
	"github.com/unbindai/unbind/internal/llm"
)

func TestJobLifecycle(t *testing.T) {
	job := NewJob("j1", "u1", "lease.pdf", "document text", "tenant")
	if job.Snapshot().Status != StatusQueued {
		t.Fatalf("new job must be queued, got %s", job.Snapshot().Status)
	}

	job.SetStatus(StatusExtracting)
	snap := job.Snapshot()
	if snap.Status != StatusExtracting {
		t.Errorf("expected extracting, got %s", snap.Status)
	}

	job.Complete("a1")
	snap = job.Snapshot()
	if snap.Status != StatusCompleted || snap.AnalysisID != "a1" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.Error != "" || snap.ErrorKind != "" {
		t.Errorf("completed job must carry no error, got %+v", snap)
	}
}

func TestJobFail(t *testing.T) {
	job := NewJob("j1", "u1", "lease.pdf", "text", "tenant")
	job.Fail(ErrKindUnreachable, "engine down")
	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.ErrorKind != ErrKindUnreachable || snap.Error != "engine down" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestJobReleaseInputs(t *testing.T) {
	job := NewJob("j1", "u1", "lease.pdf", "document text", "tenant")
	text, role := job.inputs()
	if text != "document text" || role != "tenant" {
		t.Fatalf("unexpected inputs %q %q", text, role)
	}
	job.releaseInputs()
	if text, _ := job.inputs(); text != "" {
		t.Errorf("inputs must be dropped, got %q", text)
	}
}

func TestJobStoreCleanup(t *testing.T) {
	s := NewJobStore(time.Minute)

	fresh := NewJob("fresh", "u1", "a.txt", "t", "")
	stale := NewJob("stale", "u1", "b.txt", "t", "")
	stale.UpdatedAt = time.Now().Add(-2 * time.Minute)
	s.Put(fresh)
	s.Put(stale)

	s.Cleanup()
	if s.Get("fresh") == nil {
		t.Error("fresh job must survive cleanup")
	}
	if s.Get("stale") != nil {
		t.Error("stale job must be evicted")
	}
}

// Exercises the cleanup ticker racing worker status updates; run with
// -race to verify the expiry read is synchronized.
func TestJobStoreCleanupConcurrentWithUpdates(t *testing.T) {
	s := NewJobStore(time.Hour)
	job := NewJob("j1", "u1", "a.txt", "t", "")
	s.Put(job)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 1000 {
			job.SetStatus(StatusExtracting)
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			s.Cleanup()
		}
	}()
	wg.Wait()

	if s.Get("j1") == nil {
		t.Error("job within TTL must survive cleanup")
	}
}

func TestStatusForStage(t *testing.T) {
	cases := map[string]JobStatus{
		analysis.StageConverting:   StatusChunking,
		analysis.StageChunking:     StatusChunking,
		analysis.StageExtracting:   StatusExtracting,
		analysis.StageSummarizing:  StatusSummarizing,
		analysis.StageSynthesizing: StatusSynthesizing,
	}
	for stage, want := range cases {
		if got := statusForStage(stage); got != want {
			t.Errorf("statusForStage(%q) = %s, want %s", stage, got, want)
		}
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		kind ErrorKind
	}{
		{fmt.Errorf("extract clauses: %w", &llm.APIError{StatusCode: 502}), ErrKindUnreachable},
		{analysis.ErrNoClauses, ErrKindNothingAnalyzable},
		{fmt.Errorf("%w: bad json", analysis.ErrReportSynthesis), ErrKindSynthesisFailed},
		{errors.New("disk full"), ErrKindInternal},
	}
	for _, tc := range cases {
		kind, msg := classifyError(tc.err)
		if kind != tc.kind {
			t.Errorf("classifyError(%v) = %s, want %s", tc.err, kind, tc.kind)
		}
		if msg == "" {
			t.Errorf("classifyError(%v) returned empty message", tc.err)
		}
	}
}
