package builder

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// initRepo turns dir into a git repository with one commit and returns the
// commit hash.
func initRepo(t *testing.T, dir string) string {
	t.Helper()

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("git init: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test repo"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("git add: %v", err)
	}
	hash, err := wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@test.com",
		},
	})
	if err != nil {
		t.Fatalf("git commit: %v", err)
	}
	return hash.String()
}

func TestVCSLabels_Repository(t *testing.T) {
	dir := t.TempDir()
	hash := initRepo(t, dir)

	labels := vcsLabels(dir, newTestLogger())

	if labels[v1.AnnotationRevision] != hash {
		t.Errorf("expected revision %s, got %q", hash, labels[v1.AnnotationRevision])
	}
	if _, ok := labels[v1.AnnotationCreated]; ok {
		t.Error("expected no created label")
	}
	if _, ok := labels[v1.AnnotationSource]; ok {
		t.Error("expected no source label without an origin remote")
	}
}

func TestVCSLabels_Origin(t *testing.T) {
	dir := t.TempDir()
	initRepo(t, dir)

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/acme/app.git"},
	}); err != nil {
		t.Fatalf("create remote: %v", err)
	}

	labels := vcsLabels(dir, newTestLogger())

	if labels[v1.AnnotationSource] != "https://github.com/acme/app.git" {
		t.Errorf("expected source label from origin, got %q", labels[v1.AnnotationSource])
	}
}

func TestVCSLabels_Subdirectory(t *testing.T) {
	dir := t.TempDir()
	hash := initRepo(t, dir)

	sub := filepath.Join(dir, "service")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	labels := vcsLabels(sub, newTestLogger())
	if labels[v1.AnnotationRevision] != hash {
		t.Errorf("expected revision found from parent repository, got %q", labels[v1.AnnotationRevision])
	}
}

func TestVCSLabels_NotARepository(t *testing.T) {
	var buf bytes.Buffer
	labels := vcsLabels(t.TempDir(), newBufferLogger(&buf))

	if labels != nil {
		t.Errorf("expected no labels outside a repository, got %v", labels)
	}
	if !strings.Contains(buf.String(), "not in a git repository") {
		t.Errorf("expected debug message, got %q", buf.String())
	}
}
