//go:build sqlite_vec && cgo

package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

func init() {
	vec.Auto()
}

// openDenseBackend opens the sqlite-vec-backed store and returns it as a Store.
func openDenseBackend(path string, dims int) (Store, error) {
	return OpenDense(path, dims)
}

// DenseStore is the ANN vector backend: a sqlite-vec virtual table per
// collection, giving approximate-nearest-neighbor search at the scale a
// brute-force EmbeddedStore would not handle comfortably.
type DenseStore struct {
	db   *sql.DB
	dims int
}

// OpenDense opens (creating if absent) a sqlite-vec-backed database at
// path. dims is the embedding dimensionality every collection's virtual
// table is created with.
func OpenDense(path string, dims int) (*DenseStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open dense vector store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping dense vector store: %w", err)
	}
	return &DenseStore{db: db, dims: dims}, nil
}

func (s *DenseStore) ensureCollection(collection string) error {
	table := "vec_" + sanitizeCollection(collection)
	meta := "vec_meta_" + sanitizeCollection(collection)
	_, err := s.db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d])`, table, s.dims))
	if err != nil {
		return apierrors.Data(err, "create vec table for %s", collection)
	}
	_, err = s.db.Exec(fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (rowid INTEGER PRIMARY KEY, doc_id TEXT NOT NULL, content TEXT NOT NULL, metadata_json TEXT NOT NULL DEFAULT '{}')`, meta))
	if err != nil {
		return apierrors.Data(err, "create metadata table for %s", collection)
	}
	return nil
}

// AddDocuments upserts documents into the collection's virtual table.
func (s *DenseStore) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	if err := s.ensureCollection(collection); err != nil {
		return err
	}
	table := "vec_" + sanitizeCollection(collection)
	meta := "vec_meta_" + sanitizeCollection(collection)

	for _, d := range docs {
		metaJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return apierrors.Data(err, "marshal metadata for document %s", d.ID)
		}
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (doc_id, content, metadata_json) VALUES (?, ?, ?)`, meta),
			d.ID, d.Content, string(metaJSON))
		if err != nil {
			return apierrors.Data(err, "insert metadata for document %s", d.ID)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return apierrors.Data(err, "read rowid for document %s", d.ID)
		}
		blob := encodeFloat32Blob(d.Embedding)
		if _, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (rowid, embedding) VALUES (?, ?)`, table),
			rowID, blob); err != nil {
			return apierrors.Data(err, "insert embedding for document %s", d.ID)
		}
	}
	return nil
}

// denseFilterCandidatePool bounds how many extra ANN candidates Search
// pulls in order to apply a metadata filter in Go after the fact;
// sqlite-vec's MATCH operator has no notion of a metadata predicate.
const denseFilterCandidatePool = 200

// Search performs an ANN query via sqlite-vec's MATCH operator,
// restricted to candidates whose metadata satisfies every equality
// constraint in filters.
func (s *DenseStore) Search(ctx context.Context, collection string, queryEmbedding []float32, topK int, filters map[string]interface{}) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	table := "vec_" + sanitizeCollection(collection)
	meta := "vec_meta_" + sanitizeCollection(collection)
	blob := encodeFloat32Blob(queryEmbedding)

	k := topK
	if len(filters) > 0 && k < denseFilterCandidatePool {
		k = denseFilterCandidatePool
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT m.doc_id, m.content, m.metadata_json, v.distance
		 FROM %s v JOIN %s m ON m.rowid = v.rowid
		 WHERE v.embedding MATCH ? AND k = ?
		 ORDER BY v.distance`, table, meta), blob, k)
	if err != nil {
		return nil, apierrors.Data(err, "search %s", collection)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var id, content, metaJSON string
		var distance float64
		if err := rows.Scan(&id, &content, &metaJSON, &distance); err != nil {
			return nil, apierrors.Data(err, "scan dense match")
		}
		var md map[string]interface{}
		_ = json.Unmarshal([]byte(metaJSON), &md)
		if !matchesFilters(md, filters) {
			continue
		}
		out = append(out, Match{
			Document: Document{ID: id, Content: content, Metadata: md},
			Score:    1.0 / (1.0 + distance),
		})
		if len(out) >= topK {
			break
		}
	}
	return out, rows.Err()
}

// DeleteCollection drops a collection's virtual table and metadata table.
func (s *DenseStore) DeleteCollection(ctx context.Context, collection string) error {
	table := "vec_" + sanitizeCollection(collection)
	meta := "vec_meta_" + sanitizeCollection(collection)
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
		return apierrors.Data(err, "drop vec table for %s", collection)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, meta)); err != nil {
		return apierrors.Data(err, "drop metadata table for %s", collection)
	}
	return nil
}

// ListCollections enumerates vec_* tables registered in sqlite_master.
func (s *DenseStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'vec\_meta\_%' ESCAPE '\'`)
	if err != nil {
		return nil, apierrors.Data(err, "list collections")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apierrors.Data(err, "scan collection table name")
		}
		out = append(out, name[len("vec_meta_"):])
	}
	return out, rows.Err()
}

// GetStats reports document count for a collection.
func (s *DenseStore) GetStats(ctx context.Context, collection string) (Stats, error) {
	meta := "vec_meta_" + sanitizeCollection(collection)
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, meta)).Scan(&count)
	if err != nil {
		return Stats{Collection: collection}, nil
	}
	return Stats{Collection: collection, DocumentCount: count, Dimensions: s.dims}, nil
}

// Close releases the underlying database handle.
func (s *DenseStore) Close() error { return s.db.Close() }

func sanitizeCollection(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return "default"
	}
	return string(out)
}
