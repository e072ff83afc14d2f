package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/unbindai/unbind/internal/chunker"
	"github.com/unbindai/unbind/internal/llm"
)

const defaultTopK = 6

// Fixed responses on the simulation short-circuit paths.
const (
	msgEmptyScenario   = "Please enter a scenario to simulate."
	msgNothingRelevant = "Could not find any information in the document relevant to your scenario. Please try rephrasing your question or check if the topic is covered in the contract."
)

// SimulateImpact answers a what-if scenario against the document. The
// document is re-chunked with the retrieval window, the most relevant chunks
// are selected by embedding similarity, and a single generation call writes
// a short plain-language answer grounded in those excerpts.
func (a *Analyzer) SimulateImpact(ctx context.Context, documentText, scenario string) (string, error) {
	if strings.TrimSpace(scenario) == "" {
		return msgEmptyScenario, nil
	}

	chunks := chunker.ChunkText(documentText, chunker.RetrievalConfig())
	relevant := a.retrieveRelevant(ctx, chunks, scenario, defaultTopK)
	if len(relevant) == 0 {
		return msgNothingRelevant, nil
	}

	out, err := a.client.ChatComplete(ctx, []llm.Message{
		{Role: "system", Content: simulationSystemPrompt},
		{Role: "user", Content: simulationUserPrompt(scenario, relevant)},
	}, llm.Options{Model: llm.DefaultChatModel, Temperature: 0.2})
	if err != nil {
		return "", fmt.Errorf("simulate impact: %w", err)
	}
	return out, nil
}

// retrieveRelevant embeds chunks plus the query in one batch (query last)
// and returns the topK chunks by cosine similarity, most relevant first,
// ties broken by original order. Retrieval is best effort: any failure, or a
// vector count that does not match the input count, degrades to returning
// all chunks unranked rather than failing the caller.
func (a *Analyzer) retrieveRelevant(ctx context.Context, chunks []string, query string, topK int) []string {
	inputs := make([]string, 0, len(chunks)+1)
	inputs = append(inputs, chunks...)
	inputs = append(inputs, query)

	vectors, err := a.client.EmbedTexts(ctx, inputs)
	if err != nil {
		a.log.Warn("embedding failed, returning all chunks unranked", "error", err)
		return chunks
	}
	if len(vectors) != len(inputs) {
		a.log.Warn("embedding count mismatch, returning all chunks unranked",
			"want", len(inputs), "got", len(vectors))
		return chunks
	}

	queryVec := vectors[len(vectors)-1]
	chunkVecs := vectors[:len(vectors)-1]

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(chunkVecs))
	for i, v := range chunkVecs {
		ranked[i] = scored{idx: i, score: cosineSimilarity(v, queryVec)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	k := topK
	if k > len(ranked) {
		k = len(ranked)
	}
	selected := make([]string, 0, k)
	for _, r := range ranked[:k] {
		selected = append(selected, chunks[r.idx])
	}
	if len(selected) == 0 {
		return chunks
	}
	return selected
}

// cosineSimilarity is dot(a,b)/(|a|*|b|), with the denominator clamped to 1
// when either norm is zero so a zero vector yields 0 instead of a division
// fault.
func cosineSimilarity(a, b []float64) float64 {
	var dot, na, nb float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		denom = 1.0
	}
	return dot / denom
}
