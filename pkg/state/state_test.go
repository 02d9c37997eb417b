package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnsureStateDirs(t *testing.T) {
	root := t.TempDir()
	if err := EnsureStateDirs(root); err != nil {
		t.Fatalf("EnsureStateDirs: %v", err)
	}
	p := PathsFor(root)
	for _, dir := range []string{p.Store, p.Audit, p.Retention, p.Attachments, p.Tmp, p.Crash} {
		fi, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("missing %s: %v", dir, err)
		}
		if !fi.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
	// idempotent
	if err := EnsureStateDirs(root); err != nil {
		t.Fatalf("second EnsureStateDirs: %v", err)
	}
}

func TestEnsureStateDirsRejectsFile(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "state"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "state", "audit"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := EnsureStateDirs(root); err == nil {
		t.Fatal("expected error when a state path is a regular file")
	}
}

func TestPathsFor(t *testing.T) {
	p := PathsFor("/data")
	if p.Store != filepath.Join("/data", "store") {
		t.Errorf("Store = %s", p.Store)
	}
	if AttachmentsPath("/data") != filepath.Join("/data", "state", "attachments") {
		t.Errorf("AttachmentsPath = %s", AttachmentsPath("/data"))
	}
}

func TestResolveArtifactRoot(t *testing.T) {
	env := func(v string) func(string) string {
		return func(k string) string {
			if k == ArtifactRootEnv {
				return v
			}
			return ""
		}
	}
	if got := resolveArtifactRoot(env("  ")); got != "" {
		t.Fatalf("blank root = %q", got)
	}
	abs := filepath.Join(t.TempDir(), "run")
	if got := resolveArtifactRoot(env(abs)); got != abs {
		t.Fatalf("absolute root = %q, want %q", got, abs)
	}
	got := resolveArtifactRoot(env("ci/artifacts"))
	if !filepath.IsAbs(got) || !strings.HasSuffix(got, filepath.Join("ci", "artifacts")) {
		t.Fatalf("relative root = %q", got)
	}
}
