package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/unbindai/unbind/internal/chunker"
	"github.com/unbindai/unbind/internal/llm"
)

// Capability is the external language-understanding dependency. It is passed
// in explicitly so the pipeline runs against a fake in tests.
type Capability interface {
	ChatComplete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// Pipeline stages reported through the progress callback. The callback is a
// side channel only; it never affects control flow or results.
const (
	StageConverting   = "converting"
	StageChunking     = "chunking"
	StageExtracting   = "extracting"
	StageSummarizing  = "summarizing"
	StageSynthesizing = "synthesizing"
)

// ProgressFunc receives pipeline stage transitions.
type ProgressFunc func(stage string)

// ErrNoClauses means extraction found nothing across all chunks. This is a
// document problem, not a system fault, and callers surface it as such.
var ErrNoClauses = errors.New("no legal clauses were identified in the document; it might be too short or in an unsupported format")

// ErrReportSynthesis means the synthesis response could not be parsed. No
// partial report is acceptable, so this fails the whole pipeline.
var ErrReportSynthesis = errors.New("could not assemble a coherent report")

// Config tunes the analyzer.
type Config struct {
	ChunkSize     int // Analysis chunk window in characters.
	Overlap       int // Overlap between adjacent chunks.
	MaxConcurrent int // Cap on in-flight capability calls per phase.
}

// Analyzer orchestrates the chunking, extraction, summarization and
// synthesis pipeline over a capability client.
type Analyzer struct {
	client Capability
	log    *slog.Logger
	cfg    Config
}

func NewAnalyzer(client Capability, log *slog.Logger, cfg Config) *Analyzer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultConfig().ChunkSize
	}
	if cfg.Overlap <= 0 {
		cfg.Overlap = chunker.DefaultConfig().Overlap
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	return &Analyzer{
		client: client,
		log:    log,
		cfg:    cfg,
	}
}

// AnalyzeContract runs the full pipeline: normalize to markdown, chunk,
// extract clauses from every chunk concurrently, summarize chunks, then
// synthesize the final report. The returned report's ChunkSummaries has one
// entry per chunk, indexed from 1.
func (a *Analyzer) AnalyzeContract(ctx context.Context, text, role string, progress ProgressFunc) (*Report, error) {
	notify := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	notify(StageConverting)
	markdown := chunker.ToMarkdown(text)

	notify(StageChunking)
	chunks := chunker.ChunkText(markdown, chunker.Config{ChunkSize: a.cfg.ChunkSize, Overlap: a.cfg.Overlap})
	a.log.Info("chunked document", "chunks", len(chunks), "chars", len(markdown))

	notify(StageExtracting)
	findings, err := a.extractClauses(ctx, chunks, role)
	if err != nil {
		return nil, fmt.Errorf("extract clauses: %w", err)
	}
	if len(findings) == 0 {
		return nil, ErrNoClauses
	}
	a.log.Info("extraction complete", "findings", len(findings))

	notify(StageSummarizing)
	summaries, err := a.summarizeChunks(ctx, chunks, findings, role)
	if err != nil {
		return nil, fmt.Errorf("summarize chunks: %w", err)
	}

	notify(StageSynthesizing)
	report, err := a.synthesizeReport(ctx, findings, role)
	if err != nil {
		return nil, err
	}

	report.Clauses = findings
	report.ChunkSummaries = summaries
	return report, nil
}

// extractClauses fans one generation call per chunk out to the capability
// and fans findings back in positionally: results land in a pre-sized slot
// array indexed by chunk, so completion order never reorders output. A chunk
// whose response fails to parse contributes zero findings; a transport
// failure on any chunk fails the batch.
func (a *Analyzer) extractClauses(ctx context.Context, chunks []string, role string) ([]ClauseFinding, error) {
	perChunk := make([][]ClauseFinding, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.cfg.MaxConcurrent)

	for i, chunk := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, chunk string) {
			defer wg.Done()
			defer func() { <-sem }()

			out, err := a.client.ChatComplete(ctx, []llm.Message{
				{Role: "system", Content: extractionSystemPrompt},
				{Role: "user", Content: extractionUserPrompt(chunk, role)},
			}, llm.Options{})
			if err != nil {
				errs[i] = err
				return
			}

			var parsed struct {
				Clauses []ClauseFinding `json:"clauses"`
			}
			if err := llm.DecodeJSON(out, &parsed); err != nil {
				a.log.Warn("unparseable chunk response, no findings contributed", "chunk", i, "error", err)
				return
			}
			perChunk[i] = parsed.Clauses
		}(i, chunk)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var findings []ClauseFinding
	for _, fs := range perChunk {
		findings = append(findings, fs...)
	}
	return findings, nil
}

// summarizeChunks produces one short gloss per chunk. Findings are
// attributed to chunks by even index slicing; findings are not reliably
// chunk-tagged, so this trades precision for simplicity.
func (a *Analyzer) summarizeChunks(ctx context.Context, chunks []string, findings []ClauseFinding, role string) ([]ChunkSummary, error) {
	if len(chunks) == 0 {
		return []ChunkSummary{}, nil
	}
	perChunk := (len(findings) + len(chunks) - 1) / len(chunks)

	summaries := make([]ChunkSummary, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.cfg.MaxConcurrent)

	for i, chunk := range chunks {
		start := i * perChunk
		if start > len(findings) {
			start = len(findings)
		}
		end := start + perChunk
		if end > len(findings) {
			end = len(findings)
		}
		slice := findings[start:end]

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, chunk string, slice []ClauseFinding) {
			defer wg.Done()
			defer func() { <-sem }()

			out, err := a.client.ChatComplete(ctx, []llm.Message{
				{Role: "system", Content: chunkSummarySystemPrompt},
				{Role: "user", Content: chunkSummaryUserPrompt(i+1, chunk, slice, role)},
			}, llm.Options{})
			if err != nil {
				errs[i] = err
				return
			}
			summaries[i] = ChunkSummary{ChunkIndex: i + 1, Summary: strings.TrimSpace(out)}
		}(i, chunk, slice)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

// synthesizeReport reduces all findings into the report skeleton with a
// single generation call. An unparseable response is terminal.
func (a *Analyzer) synthesizeReport(ctx context.Context, findings []ClauseFinding, role string) (*Report, error) {
	out, err := a.client.ChatComplete(ctx, []llm.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: synthesisUserPrompt(findings, role)},
	}, llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("synthesize report: %w", err)
	}

	var report Report
	if err := llm.DecodeJSON(out, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportSynthesis, err)
	}
	if report.ChunkSummaries == nil {
		report.ChunkSummaries = []ChunkSummary{}
	}
	return &report, nil
}
