package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

// systemPrompt pins the LLM to the assembled context, forbidding it
// from answering beyond what was retrieved.
const systemPrompt = "You are a banking analytics assistant. Answer strictly using the provided context. " +
	"If the context does not contain the answer, say you could not find relevant information. Do not speculate."

// Generator calls an external LLM to produce a grounded answer from a
// query and assembled context.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGenerator builds a Generator targeting baseURL (e.g. an Ollama-
// compatible /api/generate endpoint).
func NewGenerator(baseURL, model string, httpClient *http.Client) *Generator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Generator{baseURL: baseURL, model: model, httpClient: httpClient}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate calls the LLM. If unavailable (no baseURL configured, or
// the HTTP call fails), it returns the assembled context verbatim, the
// spec's documented degraded behavior rather than an error.
func (g *Generator) Generate(ctx context.Context, query, assembledContext string) (string, error) {
	if g.baseURL == "" {
		return assembledContext, nil
	}

	prompt := "Context:\n" + assembledContext + "\n\nQuestion: " + query
	body, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt, System: systemPrompt, Stream: false})
	if err != nil {
		return "", apierrors.Data(err, "marshal generate request")
	}

	url := strings.TrimRight(g.baseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return assembledContext, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return assembledContext, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return assembledContext, nil
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return assembledContext, nil
	}
	if strings.TrimSpace(out.Response) == "" {
		return assembledContext, nil
	}
	return out.Response, nil
}

// NoResultsSentinel is the deterministic response returned when the
// retrieval groundedness floor fails: no chunks were retrieved at all.
const NoResultsSentinel = "I could not find relevant information to answer this question."
