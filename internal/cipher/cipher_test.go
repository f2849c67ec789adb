package cipher

import (
	"path/filepath"
	"testing"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	dir := t.TempDir()
	c, err := Load("", filepath.Join(dir, ".encryption.key"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c
}

func TestRoundTrip(t *testing.T) {
	c := newTestCipher(t)
	cases := []string{"", "hello", "p@ssw0rd!", "unicode-ünïcödé-日本語"}
	for _, s := range cases {
		enc, err := c.Encrypt(s)
		if err != nil {
			t.Fatalf("Encrypt(%q): %v", s, err)
		}
		if s != "" && !IsEncrypted(enc) {
			t.Errorf("IsEncrypted(%q) = false, want true", enc)
		}
		if s == "" && enc != "" {
			t.Errorf("Encrypt(\"\") = %q, want empty unchanged", enc)
		}
		if got := c.Decrypt(enc); got != s {
			t.Errorf("Decrypt(Encrypt(%q)) = %q", s, got)
		}
	}
}

func TestEncryptIdempotent(t *testing.T) {
	c := newTestCipher(t)
	enc, _ := c.Encrypt("secret")
	enc2, err := c.Encrypt(enc)
	if err != nil {
		t.Fatalf("Encrypt(already-encrypted): %v", err)
	}
	if enc2 != enc {
		t.Errorf("encrypting an encrypted value changed it: %q != %q", enc2, enc)
	}
}

func TestIsEncryptedOnPlaintext(t *testing.T) {
	if IsEncrypted("plain-legacy-value") {
		t.Error("IsEncrypted(plaintext) = true, want false")
	}
}

func TestDecryptWrongKeyReturnsPlaceholder(t *testing.T) {
	dir := t.TempDir()
	c1, _ := Load("", filepath.Join(dir, "a.key"))
	c2, _ := Load("", filepath.Join(dir, "b.key"))

	enc, _ := c1.Encrypt("top secret")
	got := c2.Decrypt(enc)
	if got != Placeholder {
		t.Errorf("Decrypt with wrong key = %q, want placeholder", got)
	}
}

func TestLoadPersistsAndReusesKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, ".encryption.key")

	c1, err := Load("", keyPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	enc, _ := c1.Encrypt("value")

	c2, err := Load("", keyPath)
	if err != nil {
		t.Fatalf("Load (reuse): %v", err)
	}
	if got := c2.Decrypt(enc); got != "value" {
		t.Errorf("Decrypt after key reuse = %q, want %q", got, "value")
	}
}
