// Package vectorstore provides a single interface over three backends
// for storing and searching document embeddings: a dense-ANN backend
// backed by sqlite-vec (cgo, opt-in via build tag), an external backend
// that delegates to a NATS-connected vector service, and an
// embedded-SQL backend that stores raw float32 blobs and does brute
// force cosine search. The blob encoding and cosine-similarity math are
// grounded on the corpus's vector_store.go/local_core.go pair.
package vectorstore

import (
	"context"
	"fmt"
)

// Document is one chunk of text with its embedding and metadata, the
// unit stored and retrieved by a Store.
type Document struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Embedding []float32              `json:"embedding,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Match is a search result: a Document plus its similarity score.
type Match struct {
	Document
	Score float64 `json:"score"`
}

// Stats summarizes a collection.
type Stats struct {
	Collection    string `json:"collection"`
	DocumentCount int    `json:"document_count"`
	Dimensions    int    `json:"dimensions"`
}

// Store is the uniform contract all three vector-store backends implement.
type Store interface {
	AddDocuments(ctx context.Context, collection string, docs []Document) error
	Search(ctx context.Context, collection string, queryEmbedding []float32, topK int, filters map[string]interface{}) ([]Match, error)
	DeleteCollection(ctx context.Context, collection string) error
	ListCollections(ctx context.Context) ([]string, error)
	GetStats(ctx context.Context, collection string) (Stats, error)
	Close() error
}

// matchesFilters reports whether meta satisfies every equality
// constraint in filters. A filter key absent from meta fails the
// match, so an unmatched key yields zero results rather than falling
// back to an unfiltered search. A nil or empty filters map always matches.
func matchesFilters(meta map[string]interface{}, filters map[string]interface{}) bool {
	if len(filters) == 0 {
		return true
	}
	if meta == nil {
		return false
	}
	for k, want := range filters {
		got, ok := meta[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

// Backend names accepted by BANKING_VECTOR_BACKEND.
const (
	BackendDense    = "dense"
	BackendExternal = "external"
	BackendEmbedded = "embedded"
)

// errUnsupportedBackend is returned by Open when asked for the dense
// backend in a build without the sqlite_vec tag.
var errUnsupportedBackend = fmt.Errorf("vectorstore: dense backend requires building with -tags sqlite_vec")

// LegacyPickleError is returned whenever a caller attempts to load a
// collection serialized by the legacy Python pickle format. The
// platform refuses to deserialize pickled data; callers must
// re-ingest from source documents instead.
type LegacyPickleError struct {
	Collection string
}

func (e *LegacyPickleError) Error() string {
	return fmt.Sprintf("vectorstore: collection %q is a legacy pickle file and cannot be loaded; re-ingest from source", e.Collection)
}
