package usecases

import "testing"

func TestKeysMatchesAllEntries(t *testing.T) {
	keys := Keys()
	if len(keys) != len(All) {
		t.Fatalf("Keys() returned %d entries, want %d", len(keys), len(All))
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" {
			t.Fatal("Keys() returned an empty key")
		}
		if seen[k] {
			t.Fatalf("duplicate key %q in registry", k)
		}
		seen[k] = true
	}
}

func TestGetKnownAndUnknown(t *testing.T) {
	uc, ok := Get("card_fraud_detection")
	if !ok {
		t.Fatal("expected card_fraud_detection to be registered")
	}
	if uc.Domain != "fraud_detection" {
		t.Fatalf("unexpected domain %q for card_fraud_detection", uc.Domain)
	}

	if _, ok := Get("not_a_real_use_case"); ok {
		t.Fatal("expected unknown key to report not found")
	}
}

func TestByDomainPartitionsAll(t *testing.T) {
	domains := map[string]bool{}
	for _, uc := range All {
		domains[uc.Domain] = true
	}
	total := 0
	for d := range domains {
		total += len(ByDomain(d))
	}
	if total != len(All) {
		t.Fatalf("ByDomain partitions accounted for %d use cases, want %d", total, len(All))
	}
	if len(ByDomain("not_a_domain")) != 0 {
		t.Fatal("expected ByDomain to return empty slice for unknown domain")
	}
}
