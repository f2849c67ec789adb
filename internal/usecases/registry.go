// Package usecases holds the platform's statically registered UseCase
// catalog. UseCases are registered once at program start and never
// destroyed, per the domain model; nothing in this package reads
// configuration or touches disk.
package usecases

import "github.com/antigravity-dev/banking-platform/internal/domain"

// All is the fixed catalog of use cases the scheduler, regulatory, and
// comparison surfaces operate over.
var All = []domain.UseCase{
	{
		Key: "credit_default_risk", Label: "Credit Default Risk Scoring",
		Category: "risk", Domain: "credit_risk", TargetColumn: "defaulted",
		NumericHints: []string{"credit_score", "income", "debt_to_income", "utilization"},
	},
	{
		Key: "credit_line_pricing", Label: "Credit Line Pricing",
		Category: "pricing", Domain: "credit_risk", TargetColumn: "approved_apr",
		NumericHints: []string{"credit_score", "income", "loan_amount"},
	},
	{
		Key: "card_fraud_detection", Label: "Card Transaction Fraud Detection",
		Category: "fraud", Domain: "fraud_detection", TargetColumn: "is_fraud",
		NumericHints: []string{"amount", "velocity_1h", "distance_from_home"},
	},
	{
		Key: "wire_fraud_detection", Label: "Wire Transfer Fraud Detection",
		Category: "fraud", Domain: "fraud_detection", TargetColumn: "is_fraud",
		NumericHints: []string{"amount", "beneficiary_risk_score"},
	},
	{
		Key: "aml_transaction_monitoring", Label: "AML Transaction Monitoring",
		Category: "compliance", Domain: "aml_monitoring", TargetColumn: "flagged_sar",
		NumericHints: []string{"amount", "structuring_score", "country_risk"},
	},
	{
		Key: "aml_entity_screening", Label: "AML Entity Screening",
		Category: "compliance", Domain: "aml_monitoring", TargetColumn: "watchlist_match",
		NumericHints: []string{"name_similarity_score", "dob_match_score"},
	},
}

// Keys returns every registered use case's key.
func Keys() []string {
	keys := make([]string, len(All))
	for i, uc := range All {
		keys[i] = uc.Key
	}
	return keys
}

// Get returns the use case registered under key, if any.
func Get(key string) (domain.UseCase, bool) {
	for _, uc := range All {
		if uc.Key == key {
			return uc, true
		}
	}
	return domain.UseCase{}, false
}

// ByDomain returns every use case tagged with the given domain.
func ByDomain(dom string) []domain.UseCase {
	var out []domain.UseCase
	for _, uc := range All {
		if uc.Domain == dom {
			out = append(out, uc)
		}
	}
	return out
}
