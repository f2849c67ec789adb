package vectorstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	_ "modernc.org/sqlite"
)

// EmbeddedStore is the pure-Go vector backend: documents and their
// embeddings live as rows in a SQLite database, with brute-force cosine
// similarity computed in Go at search time. It needs no cgo and no
// external process, trading search latency for operational simplicity.
type EmbeddedStore struct {
	db *sql.DB
}

// OpenEmbedded opens (creating if absent) the embedded vector store at path.
func OpenEmbedded(path string) (*EmbeddedStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open embedded vector store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping embedded vector store: %w", err)
	}
	s := &EmbeddedStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *EmbeddedStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS vector_documents (
		collection TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (collection, doc_id)
	);
	CREATE INDEX IF NOT EXISTS idx_vector_documents_collection ON vector_documents(collection);
	`
	_, err := s.db.Exec(schema)
	return err
}

// AddDocuments upserts a batch of documents into a collection.
func (s *EmbeddedStore) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apierrors.Data(err, "begin add documents to %s", collection)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vector_documents (collection, doc_id, content, embedding, metadata_json)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(collection, doc_id) DO UPDATE SET content = excluded.content, embedding = excluded.embedding, metadata_json = excluded.metadata_json`)
	if err != nil {
		return apierrors.Data(err, "prepare add documents to %s", collection)
	}
	defer stmt.Close()

	for _, d := range docs {
		metaJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return apierrors.Data(err, "marshal metadata for document %s", d.ID)
		}
		if _, err := stmt.ExecContext(ctx, collection, d.ID, d.Content, encodeFloat32Blob(d.Embedding), string(metaJSON)); err != nil {
			return apierrors.Data(err, "insert document %s into %s", d.ID, collection)
		}
	}
	if err := tx.Commit(); err != nil {
		return apierrors.Data(err, "commit add documents to %s", collection)
	}
	return nil
}

// Search performs brute-force cosine similarity search over a
// collection, restricted to documents whose metadata satisfies every
// equality constraint in filters.
func (s *EmbeddedStore) Search(ctx context.Context, collection string, queryEmbedding []float32, topK int, filters map[string]interface{}) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, content, embedding, metadata_json FROM vector_documents WHERE collection = ?`, collection)
	if err != nil {
		return nil, apierrors.Data(err, "search %s", collection)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var id, content, metaJSON string
		var blob []byte
		if err := rows.Scan(&id, &content, &blob, &metaJSON); err != nil {
			return nil, apierrors.Data(err, "scan vector document")
		}
		var meta map[string]interface{}
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		if !matchesFilters(meta, filters) {
			continue
		}
		emb := decodeFloat32Blob(blob)
		score := cosineSimilarity(queryEmbedding, emb)
		matches = append(matches, Match{
			Document: Document{ID: id, Content: content, Embedding: emb, Metadata: meta},
			Score:    score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apierrors.Data(err, "iterate search results for %s", collection)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DeleteCollection removes every document belonging to a collection.
func (s *EmbeddedStore) DeleteCollection(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM vector_documents WHERE collection = ?`, collection)
	if err != nil {
		return apierrors.Data(err, "delete collection %s", collection)
	}
	return nil
}

// ListCollections returns the distinct collection names present.
func (s *EmbeddedStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT collection FROM vector_documents ORDER BY collection`)
	if err != nil {
		return nil, apierrors.Data(err, "list collections")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apierrors.Data(err, "scan collection name")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetStats reports the document count and embedding dimensionality of a collection.
func (s *EmbeddedStore) GetStats(ctx context.Context, collection string) (Stats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vector_documents WHERE collection = ?`, collection).Scan(&count); err != nil {
		return Stats{}, apierrors.Data(err, "count documents in %s", collection)
	}
	dims := 0
	var blob []byte
	row := s.db.QueryRowContext(ctx, `SELECT embedding FROM vector_documents WHERE collection = ? LIMIT 1`, collection)
	if err := row.Scan(&blob); err == nil {
		dims = len(blob) / 4
	}
	return Stats{Collection: collection, DocumentCount: count, Dimensions: dims}, nil
}

// Close releases the underlying database handle.
func (s *EmbeddedStore) Close() error { return s.db.Close() }

// encodeFloat32Blob encodes a float32 slice as a little-endian binary
// blob, the same layout sqlite-vec expects so embedded and dense
// collections remain interchangeable on disk.
func encodeFloat32Blob(vec []float32) []byte {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}

func decodeFloat32Blob(blob []byte) []float32 {
	n := len(blob) / 4
	out := make([]float32, n)
	_ = binary.Read(bytes.NewReader(blob), binary.LittleEndian, &out)
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
