package httpadmin

import "testing"

func TestSafeLogPathRejectsTraversal(t *testing.T) {
	if _, err := safeLogPath("/var/log/banking", "../../etc/passwd"); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestSafeLogPathRejectsAbsolutePath(t *testing.T) {
	if _, err := safeLogPath("/var/log/banking", "/etc/passwd"); err == nil {
		t.Fatal("expected absolute path to be rejected")
	}
}

func TestSafeLogPathAllowsPlainFilename(t *testing.T) {
	path, err := safeLogPath("/var/log/banking", "app.log")
	if err != nil {
		t.Fatalf("safeLogPath: %v", err)
	}
	if path != "/var/log/banking/app.log" {
		t.Fatalf("unexpected resolved path: %q", path)
	}
}
