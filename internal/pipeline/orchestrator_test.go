package pipeline

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unbindai/unbind/internal/analysis"
	"github.com/unbindai/unbind/internal/config"
	"github.com/unbindai/unbind/internal/llm"
	"github.com/unbindai/unbind/internal/store"
)

// scriptedCapability answers every capability call by recognizing the
// system prompt, so the worker runs the real pipeline end to end.
type scriptedCapability struct{}

const workerClausesJSON = `{"clauses":[{"clauseText":"Either party may terminate.","simplifiedExplanation":"Anyone can end the deal.","riskLevel":"Medium","riskReason":"Short notice.","negotiationSuggestion":"Ask for 90 days."}]}`

const workerReportJSON = `{"summary":"A services agreement.","keyTerms":[],"keyDates":[],"missingClauses":[]}`

func (scriptedCapability) ChatComplete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	system := messages[0].Content
	switch {
	case strings.Contains(system, "clauses array"):
		return workerClausesJSON, nil
	case strings.Contains(system, "chunkSummaries"):
		return workerReportJSON, nil
	default:
		return "This chunk covers termination.", nil
	}
}

func (scriptedCapability) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	vecs := make([][]float64, len(texts))
	for i := range vecs {
		vecs[i] = []float64{1, 0}
	}
	return vecs, nil
}

func testOrchestrator(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := analysis.NewAnalyzer(scriptedCapability{}, log, analysis.Config{})

	cfg := config.Config{
		WorkerCount:  2,
		MaxQueueSize: 4,
		JobTTL:       time.Minute,
	}
	o := NewOrchestrator(cfg, analyzer, st, log)
	o.Start(context.Background())
	t.Cleanup(o.Stop)
	return o, st
}

func waitForTerminal(t *testing.T, o *Orchestrator, jobID string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap := o.GetJob(jobID).Snapshot()
		if snap.Status == StatusCompleted || snap.Status == StatusFailed {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return JobSnapshot{}
}

func TestOrchestratorProcessesJob(t *testing.T) {
	o, st := testOrchestrator(t)

	u, err := st.CreateUser(context.Background(), "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	job := NewJob("j1", u.ID, "lease.txt", "ARTICLE 1\n\nThe tenant pays rent monthly.", "tenant")
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitForTerminal(t, o, "j1")
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (%s: %s)", snap.Status, snap.ErrorKind, snap.Error)
	}
	if snap.AnalysisID == "" {
		t.Fatal("expected a stored analysis id")
	}

	rec, err := st.AnalysisByID(context.Background(), snap.AnalysisID, u.ID)
	if err != nil {
		t.Fatalf("AnalysisByID: %v", err)
	}
	if rec.FileName != "lease.txt" {
		t.Errorf("unexpected file name %q", rec.FileName)
	}
	if !strings.Contains(string(rec.Result), "Either party may terminate.") {
		t.Errorf("stored result missing clause, got %s", rec.Result)
	}
	if rec.DocumentText == "" {
		t.Error("document text must be persisted for later simulation")
	}
}

func TestOrchestratorClassifiesTransportFailure(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := analysis.NewAnalyzer(failingCapability{}, log, analysis.Config{})
	o := NewOrchestrator(config.Config{WorkerCount: 1, MaxQueueSize: 2, JobTTL: time.Minute}, analyzer, st, log)
	o.Start(context.Background())
	t.Cleanup(o.Stop)

	job := NewJob("j1", "u1", "lease.txt", "Some contract text.", "")
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	snap := waitForTerminal(t, o, "j1")
	if snap.Status != StatusFailed || snap.ErrorKind != ErrKindUnreachable {
		t.Fatalf("expected failed/unreachable, got %s/%s", snap.Status, snap.ErrorKind)
	}
}

type failingCapability struct{}

func (failingCapability) ChatComplete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	return "", &llm.APIError{StatusCode: 503, Body: "unavailable"}
}

func (failingCapability) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	return nil, &llm.APIError{StatusCode: 503, Body: "unavailable"}
}

func TestSubmitAfterStopIsRefused(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := analysis.NewAnalyzer(scriptedCapability{}, log, analysis.Config{})
	o := NewOrchestrator(config.Config{WorkerCount: 1, MaxQueueSize: 2, JobTTL: time.Minute}, analyzer, st, log)
	o.Start(context.Background())
	o.Stop()

	job := NewJob("late", "u1", "a.txt", "t", "")
	if err := o.Submit(job); err == nil {
		t.Fatal("expected submit to be refused after stop")
	}
	snap := o.GetJob("late").Snapshot()
	if snap.Status != StatusFailed || snap.ErrorKind != ErrKindInternal {
		t.Errorf("late job must fail terminally, got %s/%s", snap.Status, snap.ErrorKind)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	// No workers running, so the queue fills.
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := analysis.NewAnalyzer(scriptedCapability{}, log, analysis.Config{})
	o := NewOrchestrator(config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Minute}, analyzer, st, log)

	if err := o.Submit(NewJob("j1", "u", "a.txt", "t", "")); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	err = o.Submit(NewJob("j2", "u", "b.txt", "t", ""))
	if err == nil {
		t.Fatal("expected queue-full error")
	}
	if snap := o.GetJob("j2").Snapshot(); snap.Status != StatusFailed {
		t.Errorf("overflow job must be failed, got %s", snap.Status)
	}
}
