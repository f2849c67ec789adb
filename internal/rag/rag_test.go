package rag

import (
	"context"
	"testing"

	"github.com/antigravity-dev/banking-platform/internal/vectorstore"
)

func TestClassifyIntent(t *testing.T) {
	cases := map[string]Intent{
		"what is the default rate":         IntentFactual,
		"why did defaults increase":        IntentAnalytical,
		"compare fraud vs aml alerts":      IntentComparative,
		"how to flag a suspicious account": IntentProcedural,
		"tell me something interesting":    IntentGeneral,
	}
	for q, want := range cases {
		if got := ClassifyIntent(q); got != want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", q, got, want)
		}
	}
}

func TestExtractEntities(t *testing.T) {
	e := ExtractEntities("account 12345678 had a fraud alert for $1,200.50 on 2024-01-15")
	if len(e.AccountNumbers) != 1 || e.AccountNumbers[0] != "12345678" {
		t.Errorf("AccountNumbers = %v", e.AccountNumbers)
	}
	if len(e.Amounts) != 1 {
		t.Errorf("Amounts = %v", e.Amounts)
	}
	if len(e.Dates) != 1 {
		t.Errorf("Dates = %v", e.Dates)
	}
	found := false
	for _, tag := range e.DomainTags {
		if tag == "fraud" {
			found = true
		}
	}
	if !found {
		t.Errorf("DomainTags = %v, want to contain fraud", e.DomainTags)
	}
}

func TestEmbeddingPipelineFallsBackToTFIDF(t *testing.T) {
	p := NewEmbeddingPipeline(nil, "", nil)
	if p.Method() != MethodTFIDF {
		t.Fatalf("Method = %s, want tfidf", p.Method())
	}
	vec, err := p.Embed(context.Background(), "loan default risk")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != TFIDFDimensions {
		t.Errorf("len(vec) = %d, want %d", len(vec), TFIDFDimensions)
	}
}

func TestEmbeddingPipelineResolvesLLMEndpointTier(t *testing.T) {
	p := NewEmbeddingPipeline(nil, "http://localhost:11434", nil)
	if p.Method() != MethodLLMEndpoint {
		t.Errorf("Method = %s, want llm_endpoint", p.Method())
	}
}

func TestRerankFallsBackToJaccardBlend(t *testing.T) {
	matches := []vectorstore.Match{
		{Document: vectorstore.Document{ID: "a", Content: "loan default risk policy"}, Score: 0.8},
		{Document: vectorstore.Document{ID: "b", Content: "unrelated quarterly earnings"}, Score: 0.8},
	}
	ranked := Rerank("loan default risk", matches, nil)
	if ranked[0].ID != "a" {
		t.Errorf("top ranked = %s, want a", ranked[0].ID)
	}
}

func TestFilterDropsLowScores(t *testing.T) {
	chunks := []RankedChunk{
		{Match: vectorstore.Match{Document: vectorstore.Document{ID: "a"}}, FinalScore: 0.5},
		{Match: vectorstore.Match{Document: vectorstore.Document{ID: "b"}}, FinalScore: 0.1},
	}
	out := Filter(chunks, 0)
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("Filter kept = %+v", out)
	}
}

func TestDeduplicateDropsNearDuplicates(t *testing.T) {
	chunks := []RankedChunk{
		{Match: vectorstore.Match{Document: vectorstore.Document{ID: "a", Content: "the quick brown fox jumps"}}, FinalScore: 0.9},
		{Match: vectorstore.Match{Document: vectorstore.Document{ID: "b", Content: "the quick brown fox jumps"}}, FinalScore: 0.85},
		{Match: vectorstore.Match{Document: vectorstore.Document{ID: "c", Content: "completely different content here"}}, FinalScore: 0.7},
	}
	out := Deduplicate(chunks)
	if len(out) != 2 {
		t.Fatalf("Deduplicate kept %d, want 2", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "c" {
		t.Errorf("Deduplicate kept = %v", []string{out[0].ID, out[1].ID})
	}
}

func TestAssembleContextRespectsTokenBudget(t *testing.T) {
	chunks := []RankedChunk{
		{Match: vectorstore.Match{Document: vectorstore.Document{ID: "a", Content: "short chunk one"}}, FinalScore: 0.9},
		{Match: vectorstore.Match{Document: vectorstore.Document{ID: "b", Content: "short chunk two"}}, FinalScore: 0.8},
	}
	text, used := AssembleContext(chunks, 5, func(s string) int { return 100 })
	if len(used) != 1 {
		t.Errorf("used = %d chunks, want 1 under a tiny budget", len(used))
	}
	if text == "" {
		t.Error("assembled text is empty")
	}
}

func TestEvaluateGroundedResponse(t *testing.T) {
	context := "The default rate for credit risk applications was 4.2 percent in the last quarter."
	response := "The default rate was 4.2 percent in the last quarter."
	scores := Evaluate("what was the default rate", response, context)
	if scores.Groundedness < 0.5 {
		t.Errorf("Groundedness = %v, want grounded response scored highly", scores.Groundedness)
	}
	if scores.Hallucination != 1-scores.Groundedness {
		t.Errorf("Hallucination should be 1 - Groundedness")
	}
}

func TestEvaluateNoResultsAreBounded(t *testing.T) {
	scores := Evaluate("", "", "")
	if scores.Relevance < 0 || scores.Relevance > 1 {
		t.Errorf("Relevance out of bounds: %v", scores.Relevance)
	}
}
