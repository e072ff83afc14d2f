package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/unbindai/unbind/internal/llm"
)

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors: expected 0, got %v", got)
	}
	if got := cosineSimilarity([]float64{3, 4}, []float64{3, 4}); math.Abs(got-1) > 1e-9 {
		t.Errorf("identical vectors: expected 1, got %v", got)
	}
	if got := cosineSimilarity([]float64{0, 0}, []float64{1, 2}); got != 0 {
		t.Errorf("zero vector: expected 0 without a division fault, got %v", got)
	}
}

func TestRetrieveRelevantRanksBySimilarity(t *testing.T) {
	fake := &fakeCapability{
		embed: func(texts []string) ([][]float64, error) {
			if len(texts) != 4 {
				t.Fatalf("expected chunks+query batch of 4, got %d", len(texts))
			}
			// Chunks a, b, c then the query; c matches the query best.
			return [][]float64{
				{1, 0},
				{0.5, 0.5},
				{0, 1},
				{0, 1},
			}, nil
		},
	}

	a := NewAnalyzer(fake, testLogger(), Config{})
	got := a.retrieveRelevant(context.Background(), []string{"a", "b", "c"}, "q", 6)

	want := []string{"c", "b", "a"}
	if len(got) != 3 {
		t.Fatalf("topK beyond chunk count must return all chunks ranked, got %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRetrieveRelevantTiesKeepOriginalOrder(t *testing.T) {
	fake := &fakeCapability{
		embed: func(texts []string) ([][]float64, error) {
			return [][]float64{{1, 0}, {1, 0}, {1, 0}}, nil
		},
	}

	a := NewAnalyzer(fake, testLogger(), Config{})
	got := a.retrieveRelevant(context.Background(), []string{"a", "b"}, "q", 2)
	if got[0] != "a" || got[1] != "b" {
		t.Errorf("expected stable order on ties, got %v", got)
	}
}

func TestRetrieveRelevantDegradesOnCountMismatch(t *testing.T) {
	fake := &fakeCapability{
		embed: func(texts []string) ([][]float64, error) {
			return [][]float64{{1, 0}}, nil
		},
	}

	a := NewAnalyzer(fake, testLogger(), Config{})
	got := a.retrieveRelevant(context.Background(), []string{"a", "b", "c"}, "q", 2)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected full unranked chunk list, got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRetrieveRelevantDegradesOnEmbedFailure(t *testing.T) {
	fake := &fakeCapability{
		embed: func(texts []string) ([][]float64, error) {
			return nil, &llm.APIError{StatusCode: 500, Body: "boom"}
		},
	}

	a := NewAnalyzer(fake, testLogger(), Config{})
	got := a.retrieveRelevant(context.Background(), []string{"a", "b"}, "q", 2)
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("embedding failure must degrade to all chunks, got %v", got)
	}
}

func TestSimulateImpactEmptyScenario(t *testing.T) {
	fake := &fakeCapability{
		chat: func(n int, messages []llm.Message, opts llm.Options) (string, error) {
			return "", errors.New("must not be called")
		},
	}

	a := NewAnalyzer(fake, testLogger(), Config{})
	out, err := a.SimulateImpact(context.Background(), "some document", "   ")
	if err != nil {
		t.Fatalf("SimulateImpact: %v", err)
	}
	if out != msgEmptyScenario {
		t.Errorf("expected fixed guidance message, got %q", out)
	}
	if fake.chatCalls != 0 || fake.embedCalls != 0 {
		t.Errorf("expected zero external calls, got %d chat / %d embed", fake.chatCalls, fake.embedCalls)
	}
}

func TestSimulateImpact(t *testing.T) {
	var gotOpts llm.Options
	fake := &fakeCapability{
		embed: func(texts []string) ([][]float64, error) {
			vecs := make([][]float64, len(texts))
			for i := range vecs {
				vecs[i] = []float64{1, 0}
			}
			return vecs, nil
		},
	}
	fake.chat = func(n int, messages []llm.Message, opts llm.Options) (string, error) {
		gotOpts = opts
		return "- You would owe a late fee.", nil
	}

	a := NewAnalyzer(fake, testLogger(), Config{})
	out, err := a.SimulateImpact(context.Background(), "The tenant pays rent monthly.", "What if I pay late?")
	if err != nil {
		t.Fatalf("SimulateImpact: %v", err)
	}
	if out != "- You would owe a late fee." {
		t.Errorf("unexpected answer %q", out)
	}
	if gotOpts.Model != llm.DefaultChatModel {
		t.Errorf("expected model %q, got %q", llm.DefaultChatModel, gotOpts.Model)
	}
	if gotOpts.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", gotOpts.Temperature)
	}
}
