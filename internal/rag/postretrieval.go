package rag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antigravity-dev/banking-platform/internal/vectorstore"
)

// CrossEncoder optionally reranks a (query, chunk) pair with a more
// expensive, more accurate model. The platform ships no such model, so
// Rerank always falls back to the Jaccard blend, per the design ledger.
type CrossEncoder interface {
	Score(query, chunk string) (float64, error)
}

// RankedChunk is a vectorstore.Match carried through rerank/filter/dedupe.
type RankedChunk struct {
	vectorstore.Match
	FinalScore float64
}

const (
	relevanceFilterFloor = 0.2
	dedupeThreshold       = 0.9
)

// Rerank blends each match's original similarity score with either a
// cross-encoder score (weighted 0.7) or, lacking one, a Jaccard
// word-overlap score against the query (weighted 0.5/0.5).
func Rerank(query string, matches []vectorstore.Match, encoder CrossEncoder) []RankedChunk {
	queryWords := wordSet(query)
	out := make([]RankedChunk, 0, len(matches))
	for _, m := range matches {
		var final float64
		if encoder != nil {
			ceScore, err := encoder.Score(query, m.Content)
			if err == nil {
				final = 0.3*m.Score + 0.7*ceScore
				out = append(out, RankedChunk{Match: m, FinalScore: final})
				continue
			}
		}
		j := jaccard(queryWords, wordSet(m.Content))
		final = 0.5*m.Score + 0.5*j
		out = append(out, RankedChunk{Match: m, FinalScore: final})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	return out
}

// Filter drops chunks whose final score is below floor (default
// relevanceFilterFloor when floor <= 0).
func Filter(chunks []RankedChunk, floor float64) []RankedChunk {
	if floor <= 0 {
		floor = relevanceFilterFloor
	}
	out := make([]RankedChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.FinalScore >= floor {
			out = append(out, c)
		}
	}
	return out
}

// Deduplicate drops any chunk whose word-set Jaccard similarity against
// an already-kept chunk is >= dedupeThreshold. Input must already be
// sorted best-first; ties favor whichever appears first.
func Deduplicate(chunks []RankedChunk) []RankedChunk {
	kept := make([]RankedChunk, 0, len(chunks))
	keptWords := make([]map[string]struct{}, 0, len(chunks))
	for _, c := range chunks {
		words := wordSet(c.Content)
		isDup := false
		for _, kw := range keptWords {
			if jaccard(words, kw) >= dedupeThreshold {
				isDup = true
				break
			}
		}
		if !isDup {
			kept = append(kept, c)
			keptWords = append(keptWords, words)
		}
	}
	return kept
}

const defaultTokenBudget = 3000

// AssembleContext concatenates chunks with source-attribution headers,
// stopping once the running token estimate would exceed tokenBudget
// (default 3000). The first chunk is always included, even when it alone
// exceeds the budget. Returns the assembled text and the chunks actually used.
func AssembleContext(chunks []RankedChunk, tokenBudget int, counter func(string) int) (string, []RankedChunk) {
	if tokenBudget <= 0 {
		tokenBudget = defaultTokenBudget
	}
	if counter == nil {
		counter = func(s string) int { return len(strings.Fields(s)) }
	}

	var b strings.Builder
	var used []RankedChunk
	budgetSpent := 0
	for i, c := range chunks {
		source := "unknown"
		if id, ok := c.Metadata["source"].(string); ok && id != "" {
			source = filepath.Base(id)
		} else if c.ID != "" {
			source = c.ID
		}
		header := fmt.Sprintf("[Source %d: %s, relevance: %.2f]\n", i+1, source, c.FinalScore)
		block := header + c.Content + "\n\n"
		cost := counter(block)
		if budgetSpent > 0 && budgetSpent+cost > tokenBudget {
			break
		}
		b.WriteString(block)
		budgetSpent += cost
		used = append(used, c)
	}
	return strings.TrimSpace(b.String()), used
}
