// Package rag implements the retrieval-augmented-generation pipeline:
// cache probe, pre-retrieval intent/entity extraction, embedding,
// vector search, post-retrieval rerank/filter/dedupe/assembly,
// generation, and response evaluation. The intent classifier is
// grounded on the corpus's keyword-pattern QueryType router.
package rag

import (
	"regexp"
	"strings"
)

// Intent is the pre-retrieval query classification.
type Intent string

const (
	IntentFactual     Intent = "factual"
	IntentAnalytical  Intent = "analytical"
	IntentComparative Intent = "comparative"
	IntentProcedural  Intent = "procedural"
	IntentGeneral     Intent = "general"
)

var intentPatterns = map[Intent][]string{
	IntentFactual: {
		"what is", "what are", "when did", "when was", "who is",
		"how many", "how much", "define", "definition of",
	},
	IntentAnalytical: {
		"why does", "why is", "why did", "analyze", "explain the reason",
		"root cause", "what caused", "impact of", "effect of",
	},
	IntentComparative: {
		"compare", "versus", " vs ", "difference between", "better than",
		"which is", "pros and cons",
	},
	IntentProcedural: {
		"how do i", "how to", "steps to", "process for", "procedure for",
		"guide to", "walk me through",
	},
}

// ClassifyIntent determines intent by keyword containment, trying
// factual/analytical/comparative/procedural in order before falling
// back to IntentGeneral.
func ClassifyIntent(query string) Intent {
	q := strings.ToLower(query)
	for _, intent := range []Intent{IntentFactual, IntentAnalytical, IntentComparative, IntentProcedural} {
		for _, p := range intentPatterns[intent] {
			if strings.Contains(q, p) {
				return intent
			}
		}
	}
	return IntentGeneral
}

// RewritePrefix returns the intent-appropriate prefix prepended to the
// query before embedding, nudging the retrieval toward documents that
// answer that shape of question.
func RewritePrefix(intent Intent) string {
	switch intent {
	case IntentFactual:
		return "Fact: "
	case IntentAnalytical:
		return "Analysis: "
	case IntentComparative:
		return "Comparison: "
	case IntentProcedural:
		return "Procedure: "
	default:
		return ""
	}
}

// domainTagPatterns maps a domain tag to the keywords that imply it.
var domainTagPatterns = map[string][]string{
	"fraud":       {"fraud", "fraudulent", "suspicious transaction"},
	"credit":      {"credit", "loan", "default", "underwriting"},
	"aml":         {"aml", "anti-money laundering", "money laundering", "sanctions"},
	"collections": {"collections", "delinquent", "charge-off", "recovery"},
	"governance":  {"governance", "fairness", "explainability", "bias", "audit"},
}

// DomainTags returns the domain tags whose keywords appear in query.
func DomainTags(query string) []string {
	q := strings.ToLower(query)
	var tags []string
	for tag, patterns := range domainTagPatterns {
		for _, p := range patterns {
			if strings.Contains(q, p) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

var (
	accountNumberRe = regexp.MustCompile(`\b\d{8,17}\b`)
	amountRe        = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{2})?`)
	dateRe          = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
)

// Entities holds the values extracted from a query by regex.
type Entities struct {
	AccountNumbers []string `json:"account_numbers,omitempty"`
	Amounts        []string `json:"amounts,omitempty"`
	Dates          []string `json:"dates,omitempty"`
	DomainTags     []string `json:"domain_tags,omitempty"`
}

// ExtractEntities pulls account numbers, amounts, and dates via regex,
// and domain tags via keyword match.
func ExtractEntities(query string) Entities {
	return Entities{
		AccountNumbers: accountNumberRe.FindAllString(query, -1),
		Amounts:        amountRe.FindAllString(query, -1),
		Dates:          dateRe.FindAllString(query, -1),
		DomainTags:     DomainTags(query),
	}
}

// MetadataFilters builds a vector-search metadata filter map from the
// domain tags found in a query's entities; empty when no tag matched,
// meaning "search unfiltered".
func MetadataFilters(e Entities) map[string]interface{} {
	if len(e.DomainTags) == 0 {
		return nil
	}
	return map[string]interface{}{"domain_tags": e.DomainTags}
}
