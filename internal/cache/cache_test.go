package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	_ "modernc.org/sqlite"

	"database/sql"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestQueryCacheSetGetHitCount(t *testing.T) {
	db := openTestDB(t)
	c, err := OpenQueryCache(db)
	if err != nil {
		t.Fatalf("OpenQueryCache: %v", err)
	}

	key := Key("what is the default rate", "credit_risk")
	if err := c.Set(key, map[string]string{"answer": "4.2%"}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var out map[string]string
	if err := c.Get(key, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out["answer"] != "4.2%" {
		t.Errorf("Get = %v, want answer=4.2%%", out)
	}
}

func TestQueryCacheMissReturnsNotFound(t *testing.T) {
	db := openTestDB(t)
	c, _ := OpenQueryCache(db)

	var out map[string]string
	err := c.Get(Key("nonexistent"), &out)
	e, ok := apierrors.As(err)
	if !ok || e.Kind != apierrors.KindNotFound {
		t.Errorf("Get on missing key: err=%v, want KindNotFound", err)
	}
}

func TestEmbeddingCacheHasNoTTL(t *testing.T) {
	db := openTestDB(t)
	c, err := OpenEmbeddingCache(db)
	if err != nil {
		t.Fatalf("OpenEmbeddingCache: %v", err)
	}
	n, err := c.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("Sweep on no-TTL cache removed %d entries, want 0", n)
	}
}

func TestKeyIsCaseAndWhitespaceInsensitive(t *testing.T) {
	a := Key("  Hello World  ")
	b := Key("hello world")
	if a != b {
		t.Errorf("Key(%q) != Key(%q)", "  Hello World  ", "hello world")
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	db := openTestDB(t)
	c, _ := OpenQueryCache(db)
	c.ttl = time.Millisecond
	if err := c.Set("expiring", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	n, err := c.Sweep()
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
}
