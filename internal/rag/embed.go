package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

// EmbeddingMethod names which tier of the EmbeddingPipeline produced a vector.
type EmbeddingMethod string

const (
	MethodLocalTransformer EmbeddingMethod = "local_transformer"
	MethodLLMEndpoint      EmbeddingMethod = "llm_endpoint"
	MethodTFIDF            EmbeddingMethod = "tfidf"
)

// TFIDFDimensions is the fixed output width of the TF-IDF fallback, so
// its vectors remain comparable across calls and collections.
const TFIDFDimensions = 384

// LocalEmbedder is satisfied by an in-process transformer model, the
// first tier of the fallback chain. The platform ships none, so in
// practice this is always nil and tier one is skipped.
type LocalEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingPipeline resolves one of three embedding methods at
// construction and does not fail over per call: local transformer,
// then an HTTP embedding endpoint on the LLM service, then TF-IDF.
type EmbeddingPipeline struct {
	method     EmbeddingMethod
	local      LocalEmbedder
	httpClient *http.Client
	llmBaseURL string
	vocab      map[string]int // fixed at construction for the TF-IDF tier
}

// NewEmbeddingPipeline resolves the method at construction time: local
// is used if provided; else, if llmBaseURL is non-empty, the LLM
// endpoint tier is selected; else TF-IDF.
func NewEmbeddingPipeline(local LocalEmbedder, llmBaseURL string, httpClient *http.Client) *EmbeddingPipeline {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	p := &EmbeddingPipeline{httpClient: httpClient, llmBaseURL: llmBaseURL}
	switch {
	case local != nil:
		p.method = MethodLocalTransformer
		p.local = local
	case llmBaseURL != "":
		p.method = MethodLLMEndpoint
	default:
		p.method = MethodTFIDF
		p.vocab = map[string]int{}
	}
	return p
}

// Method reports which tier this pipeline resolved to.
func (p *EmbeddingPipeline) Method() EmbeddingMethod { return p.method }

// Embed produces an embedding for text using the resolved method.
func (p *EmbeddingPipeline) Embed(ctx context.Context, text string) ([]float32, error) {
	switch p.method {
	case MethodLocalTransformer:
		vec, err := p.local.Embed(ctx, text)
		if err != nil {
			return nil, apierrors.ExternalService(err, "local transformer embedding failed")
		}
		return vec, nil
	case MethodLLMEndpoint:
		return p.embedViaLLM(ctx, text)
	default:
		return p.embedTFIDF(text), nil
	}
}

type embedRequest struct {
	Input string `json:"input"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (p *EmbeddingPipeline) embedViaLLM(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Input: text})
	if err != nil {
		return nil, apierrors.Data(err, "marshal embed request")
	}
	url := strings.TrimRight(p.llmBaseURL, "/") + "/api/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apierrors.Data(err, "build embed request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.ExternalService(err, "embedding endpoint unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apierrors.ExternalService(fmt.Errorf("status %d", resp.StatusCode), "embedding endpoint returned an error")
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apierrors.ExternalService(err, "decode embedding response")
	}
	return out.Embedding, nil
}

// embedTFIDF hashes terms into a fixed 384-wide vector (a hashing
// vectorizer rather than a corpus-fit TF-IDF, since the vocabulary is
// not known ahead of time), then L2-normalizes.
func (p *EmbeddingPipeline) embedTFIDF(text string) []float32 {
	vec := make([]float64, TFIDFDimensions)
	terms := strings.Fields(strings.ToLower(text))
	if len(terms) == 0 {
		return make([]float32, TFIDFDimensions)
	}
	counts := map[string]int{}
	for _, t := range terms {
		counts[t]++
	}
	for term, count := range counts {
		idx := hashTerm(term) % TFIDFDimensions
		tf := float64(count) / float64(len(terms))
		idf := math.Log(1 + 1.0/float64(count))
		vec[idx] += tf * (1 + idf)
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, TFIDFDimensions)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func hashTerm(s string) int {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return int(h)
}

// jaccard computes set-based Jaccard similarity between two word sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// sortMatchesByScoreDesc sorts in place, highest score first.
func sortMatchesByScoreDesc(scores []float64, idx []int) {
	sort.Slice(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })
}
