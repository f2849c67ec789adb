package rag

import (
	"context"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/cache"
	"github.com/antigravity-dev/banking-platform/internal/logging"
	"github.com/antigravity-dev/banking-platform/internal/vectorstore"
)

var log = logging.For("rag")

// Response is the final answer returned to a caller, including the
// trail of decisions made along the way for observability.
type Response struct {
	Answer     string            `json:"answer"`
	Intent     Intent             `json:"intent"`
	Entities   Entities           `json:"entities"`
	Sources    []vectorstore.Match `json:"sources"`
	Scores     Scores             `json:"scores"`
	NoResults  bool               `json:"no_results"`
	FromCache  bool               `json:"from_cache"`
	Method     EmbeddingMethod    `json:"embedding_method"`
}

// Pipeline wires together the eight-step RAG core loop.
type Pipeline struct {
	Store        vectorstore.Store
	Embeddings   *EmbeddingPipeline
	Generator    *Generator
	QueryCache   *cache.Cache
	CrossEncoder CrossEncoder // nil unless a rerank model is wired in
	TopK         int
	TokenBudget  int
	RelevanceFloor float64
}

type cachedResponse struct {
	Answer   string              `json:"answer"`
	Sources  []vectorstore.Match `json:"sources"`
	Scores   Scores              `json:"scores"`
}

// Answer runs the eight-step core loop for a query, optionally scoped
// to a single collection (use case). An empty collection searches
// every collection known to the store.
func (p *Pipeline) Answer(ctx context.Context, query string, collection string) (Response, error) {
	topK := p.TopK
	if topK <= 0 {
		topK = 5
	}

	key := cache.Key(query, collection)
	var cached cachedResponse
	if err := p.QueryCache.Get(key, &cached); err == nil {
		return Response{
			Answer:    cached.Answer,
			Sources:   cached.Sources,
			Scores:    cached.Scores,
			FromCache: true,
		}, nil
	}

	intent := ClassifyIntent(query)
	entities := ExtractEntities(query)
	rewritten := RewritePrefix(intent) + query

	queryEmbedding, err := p.Embeddings.Embed(ctx, rewritten)
	if err != nil {
		log.Errorf(err, "failed to embed query")
		return Response{
			Answer:    "could not generate a response: embedding failed",
			Intent:    intent,
			Entities:  entities,
			NoResults: true,
		}, nil
	}

	collections := []string{collection}
	if collection == "" {
		all, err := p.Store.ListCollections(ctx)
		if err != nil {
			log.Errorf(err, "failed to list collections")
		}
		collections = all
	}

	filters := MetadataFilters(entities)

	var allMatches []vectorstore.Match
	for _, c := range collections {
		matches, err := p.Store.Search(ctx, c, queryEmbedding, topK*2, filters)
		if err != nil {
			log.Warnf("search on collection %s failed: %v", c, err)
			continue
		}
		allMatches = append(allMatches, matches...)
	}

	if len(allMatches) == 0 {
		return Response{
			Answer:    NoResultsSentinel,
			Intent:    intent,
			Entities:  entities,
			Method:    p.Embeddings.Method(),
			NoResults: true,
		}, nil
	}

	ranked := Rerank(query, allMatches, p.CrossEncoder)
	ranked = Filter(ranked, p.RelevanceFloor)
	ranked = Deduplicate(ranked)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	if len(ranked) == 0 {
		return Response{
			Answer:    NoResultsSentinel,
			Intent:    intent,
			Entities:  entities,
			Method:    p.Embeddings.Method(),
			NoResults: true,
		}, nil
	}

	assembled, used := AssembleContext(ranked, p.TokenBudget, nil)

	answer, err := p.Generator.Generate(ctx, query, assembled)
	if err != nil {
		log.Errorf(err, "generation failed")
		answer = assembled
	}

	scores := Evaluate(query, answer, assembled)

	sources := make([]vectorstore.Match, 0, len(used))
	for _, c := range used {
		sources = append(sources, c.Match)
	}

	resp := Response{
		Answer:   answer,
		Intent:   intent,
		Entities: entities,
		Sources:  sources,
		Scores:   scores,
		Method:   p.Embeddings.Method(),
	}

	if err := p.QueryCache.Set(key, cachedResponse{Answer: answer, Sources: sources, Scores: scores}); err != nil {
		log.Warnf("failed to cache response: %v", err)
	}

	return resp, nil
}

// EmbedTimeout is a 30-second budget for one external embedding call.
// Answer does not apply it: a call whose context carries no deadline is
// bounded only by the timeout of the http.Client given to
// NewEmbeddingPipeline and NewGenerator.
const EmbedTimeout = 30 * time.Second
