package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	nc "github.com/nats-io/nats.go"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

// Subjects used to delegate vector operations to an external,
// NATS-connected vector service, grounded on the corpus's
// request-reply NATS client conventions.
const (
	subjectAdd              = "vector.add"
	subjectSearch           = "vector.search"
	subjectDeleteCollection = "vector.delete_collection"
	subjectListCollections  = "vector.list_collections"
	subjectStats            = "vector.stats"
)

const externalRequestTimeout = 10 * time.Second

// ExternalStore delegates vector operations to whatever service is
// listening on the vector.* NATS subjects, so the embedding/ANN
// workload can run on separate, independently scaled infrastructure.
type ExternalStore struct {
	conn *nc.Conn
}

// OpenExternal connects to the NATS server at url.
func OpenExternal(url string) (*ExternalStore, error) {
	conn, err := nc.Connect(url,
		nc.ReconnectWait(2*time.Second),
		nc.MaxReconnects(-1),
	)
	if err != nil {
		return nil, apierrors.ExternalService(err, "connect to vector service at %s", url)
	}
	return &ExternalStore{conn: conn}, nil
}

type addRequest struct {
	Collection string     `json:"collection"`
	Documents  []Document `json:"documents"`
}

type addResponse struct {
	Error string `json:"error,omitempty"`
}

// AddDocuments sends a vector.add request to the external service.
func (s *ExternalStore) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	var resp addResponse
	if err := s.requestJSON(ctx, subjectAdd, addRequest{Collection: collection, Documents: docs}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return apierrors.ExternalService(fmt.Errorf("%s", resp.Error), "vector service rejected add to %s", collection)
	}
	return nil
}

type searchRequest struct {
	Collection string                 `json:"collection"`
	Embedding  []float32              `json:"embedding"`
	TopK       int                    `json:"top_k"`
	Filters    map[string]interface{} `json:"filters,omitempty"`
}

type searchResponse struct {
	Matches []Match `json:"matches"`
	Error   string  `json:"error,omitempty"`
}

// Search sends a vector.search request to the external service,
// including filters for the service to apply as an equality match over
// document metadata. Results are re-checked against filters on return
// in case the remote service ignores them.
func (s *ExternalStore) Search(ctx context.Context, collection string, queryEmbedding []float32, topK int, filters map[string]interface{}) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	var resp searchResponse
	if err := s.requestJSON(ctx, subjectSearch, searchRequest{Collection: collection, Embedding: queryEmbedding, TopK: topK, Filters: filters}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apierrors.ExternalService(fmt.Errorf("%s", resp.Error), "vector service rejected search on %s", collection)
	}
	if len(filters) == 0 {
		return resp.Matches, nil
	}
	out := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if matchesFilters(m.Metadata, filters) {
			out = append(out, m)
		}
	}
	return out, nil
}

type collectionRequest struct {
	Collection string `json:"collection"`
}

type statusResponse struct {
	Error string `json:"error,omitempty"`
}

// DeleteCollection sends a vector.delete_collection request.
func (s *ExternalStore) DeleteCollection(ctx context.Context, collection string) error {
	var resp statusResponse
	if err := s.requestJSON(ctx, subjectDeleteCollection, collectionRequest{Collection: collection}, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return apierrors.ExternalService(fmt.Errorf("%s", resp.Error), "vector service rejected delete of %s", collection)
	}
	return nil
}

type listResponse struct {
	Collections []string `json:"collections"`
	Error       string   `json:"error,omitempty"`
}

// ListCollections sends a vector.list_collections request.
func (s *ExternalStore) ListCollections(ctx context.Context) ([]string, error) {
	var resp listResponse
	if err := s.requestJSON(ctx, subjectListCollections, struct{}{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, apierrors.ExternalService(fmt.Errorf("%s", resp.Error), "vector service rejected list_collections")
	}
	return resp.Collections, nil
}

type statsResponse struct {
	Stats
	Error string `json:"error,omitempty"`
}

// GetStats sends a vector.stats request.
func (s *ExternalStore) GetStats(ctx context.Context, collection string) (Stats, error) {
	var resp statsResponse
	if err := s.requestJSON(ctx, subjectStats, collectionRequest{Collection: collection}, &resp); err != nil {
		return Stats{}, err
	}
	if resp.Error != "" {
		return Stats{}, apierrors.ExternalService(fmt.Errorf("%s", resp.Error), "vector service rejected stats for %s", collection)
	}
	return resp.Stats, nil
}

// Close drains and closes the NATS connection.
func (s *ExternalStore) Close() error {
	s.conn.Close()
	return nil
}

func (s *ExternalStore) requestJSON(ctx context.Context, subject string, req, resp interface{}) error {
	data, err := json.Marshal(req)
	if err != nil {
		return apierrors.Data(err, "marshal %s request", subject)
	}
	timeout := externalRequestTimeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until < timeout {
			timeout = until
		}
	}
	msg, err := s.conn.Request(subject, data, timeout)
	if err != nil {
		return apierrors.ExternalService(err, "request to %s failed", subject)
	}
	if err := json.Unmarshal(msg.Data, resp); err != nil {
		return apierrors.ExternalService(err, "unmarshal %s response", subject)
	}
	return nil
}
