package rag

import (
	"strings"
	"unicode"
)

// Scores holds the five [0,1] quality scores computed for a generated response.
type Scores struct {
	Relevance     float64 `json:"relevance"`
	Groundedness  float64 `json:"groundedness"`
	Completeness  float64 `json:"completeness"`
	Hallucination float64 `json:"hallucination"`
	Coherence     float64 `json:"coherence"`
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"of": {}, "to": {}, "and": {}, "or": {}, "in": {}, "on": {}, "for": {},
	"with": {}, "by": {}, "it": {}, "this": {}, "that": {}, "be": {}, "as": {},
	"at": {}, "from": {}, "into": {},
}

func contentWords(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if w == "" {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func splitSentencesForEval(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			s := strings.TrimSpace(cur.String())
			if s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// Evaluate computes the five response-quality scores for a (query,
// response, context) triple.
func Evaluate(query, response, context string) Scores {
	relevance := relevanceScore(query, response)
	groundedness := groundednessScore(response, context)
	completeness := completenessScore(query, response)
	return Scores{
		Relevance:     relevance,
		Groundedness:  groundedness,
		Completeness:  completeness,
		Hallucination: clamp01(1 - groundedness),
		Coherence:     coherenceScore(response),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func relevanceScore(query, response string) float64 {
	qWords := wordSet(query)
	rWords := wordSet(response)
	overlap := jaccard(qWords, rWords)
	lengthScore := 1.0
	words := len(strings.Fields(response))
	switch {
	case words < 5:
		lengthScore = float64(words) / 5.0
	case words > 500:
		lengthScore = 0.8
	}
	return clamp01(0.7*overlap*3 + 0.3*lengthScore)
}

func groundednessScore(response, context string) float64 {
	sentences := splitSentencesForEval(response)
	if len(sentences) == 0 {
		return 0
	}
	contextWords := wordSet(context)
	grounded := 0
	for _, s := range sentences {
		words := contentWords(s)
		if len(words) == 0 {
			continue
		}
		found := 0
		for _, w := range words {
			if _, ok := contextWords[w]; ok {
				found++
			}
		}
		if float64(found)/float64(len(words)) >= 0.5 {
			grounded++
		}
	}
	return clamp01(float64(grounded) / float64(len(sentences)))
}

func completenessScore(query, response string) float64 {
	words := len(strings.Fields(response))
	lengthScore := clamp01(float64(words) / 100.0)
	qWords := contentWords(query)
	if len(qWords) == 0 {
		return lengthScore
	}
	rWords := wordSet(response)
	covered := 0
	for _, w := range qWords {
		if _, ok := rWords[w]; ok {
			covered++
		}
	}
	coverage := float64(covered) / float64(len(qWords))
	return clamp01(0.5*lengthScore + 0.5*coverage)
}

func coherenceScore(response string) float64 {
	sentences := splitSentencesForEval(response)
	if len(sentences) == 0 {
		return 0
	}
	var lengths []float64
	properlyFormed := 0
	for _, s := range sentences {
		words := strings.Fields(s)
		lengths = append(lengths, float64(len(words)))
		r := []rune(strings.TrimSpace(s))
		if len(r) == 0 {
			continue
		}
		capitalized := unicode.IsUpper(r[0])
		last := r[len(r)-1]
		terminated := last == '.' || last == '!' || last == '?'
		if capitalized && terminated {
			properlyFormed++
		}
	}
	formRatio := float64(properlyFormed) / float64(len(sentences))

	mean := 0.0
	for _, l := range lengths {
		mean += l
	}
	mean /= float64(len(lengths))
	var variance float64
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))
	regularity := clamp01(1 - variance/100)

	return clamp01(0.5*formRatio + 0.5*regularity)
}
