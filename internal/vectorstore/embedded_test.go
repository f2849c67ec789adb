package vectorstore

import (
	"context"
	"path/filepath"
	"testing"
)

func TestEmbeddedStoreAddSearchDelete(t *testing.T) {
	ctx := context.Background()
	s, err := OpenEmbedded(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("OpenEmbedded: %v", err)
	}
	defer s.Close()

	docs := []Document{
		{ID: "a", Content: "loan default risk memo", Embedding: []float32{1, 0, 0}, Metadata: map[string]interface{}{"domain_tags": "credit_risk"}},
		{ID: "b", Content: "quarterly earnings summary", Embedding: []float32{0, 1, 0}, Metadata: map[string]interface{}{"domain_tags": "reporting"}},
		{ID: "c", Content: "credit risk policy update", Embedding: []float32{0.9, 0.1, 0}, Metadata: map[string]interface{}{"domain_tags": "credit_risk"}},
	}
	if err := s.AddDocuments(ctx, "docs", docs); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	matches, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Search returned %d matches, want 2", len(matches))
	}
	if matches[0].ID != "a" {
		t.Errorf("top match = %s, want a", matches[0].ID)
	}

	filtered, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 5, map[string]interface{}{"domain_tags": "credit_risk"})
	if err != nil {
		t.Fatalf("Search with filter: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered search returned %d matches, want 2", len(filtered))
	}
	for _, m := range filtered {
		if m.Metadata["domain_tags"] != "credit_risk" {
			t.Errorf("match %s did not satisfy filter: %+v", m.ID, m.Metadata)
		}
	}

	none, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 5, map[string]interface{}{"domain_tags": "aml_monitoring"})
	if err != nil {
		t.Fatalf("Search with unmatched filter: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unmatched filter value should return zero results, got %d", len(none))
	}

	unknownKey, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 5, map[string]interface{}{"not_a_real_key": "x"})
	if err != nil {
		t.Fatalf("Search with unknown filter key: %v", err)
	}
	if len(unknownKey) != 0 {
		t.Fatalf("unmatched filter key should return zero results, got %d", len(unknownKey))
	}

	stats, err := s.GetStats(ctx, "docs")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.DocumentCount != 3 || stats.Dimensions != 3 {
		t.Errorf("GetStats = %+v, want count=3 dims=3", stats)
	}

	cols, err := s.ListCollections(ctx)
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(cols) != 1 || cols[0] != "docs" {
		t.Errorf("ListCollections = %v, want [docs]", cols)
	}

	if err := s.DeleteCollection(ctx, "docs"); err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	stats, _ = s.GetStats(ctx, "docs")
	if stats.DocumentCount != 0 {
		t.Errorf("after delete, count = %d, want 0", stats.DocumentCount)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("identical vectors cosine = %v, want 1", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors cosine = %v, want 0", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched length should return 0, got %v", got)
	}
}

func TestEncodeDecodeFloat32BlobRoundTrip(t *testing.T) {
	in := []float32{0.1, -0.2, 3.5, 0}
	blob := encodeFloat32Blob(in)
	out := decodeFloat32Blob(blob)
	if len(out) != len(in) {
		t.Fatalf("decoded length = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestOpenUnsupportedBackend(t *testing.T) {
	if _, err := Open(OpenConfig{Backend: "not-a-backend", DataDir: t.TempDir()}); err == nil {
		t.Error("Open with unknown backend name should fail")
	}
}

func TestOpenEmbeddedBackendDefault(t *testing.T) {
	s, err := Open(OpenConfig{Backend: BackendEmbedded, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open(embedded): %v", err)
	}
	defer s.Close()
}
