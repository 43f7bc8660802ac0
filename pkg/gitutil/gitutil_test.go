package gitutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// createTestRepo initializes a repository with one committed dataset.
func createTestRepo(t *testing.T) (string, string) {
	t.Helper()
	repoPath := t.TempDir()

	repo, err := git.PlainInit(repoPath, false)
	if err != nil {
		t.Fatalf("Failed to init repo: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(repoPath, "data"), 0755); err != nil {
		t.Fatalf("Failed to create data dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(repoPath, "data", "wind_file2012.csv"), []byte("uwnd\n1.0\n"), 0644); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}
	if _, err := wt.Add("data/wind_file2012.csv"); err != nil {
		t.Fatalf("Failed to add file: %v", err)
	}
	hash, err := wt.Commit("Add wind dataset\n\nFirst 2012 extract.", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	return repoPath, hash.String()
}

func TestOpenRepository(t *testing.T) {
	repoPath, _ := createTestRepo(t)

	repo, err := OpenRepository(filepath.Join(repoPath, "data"))
	if err != nil {
		t.Fatalf("OpenRepository() from subdirectory error = %v", err)
	}
	if repo == nil {
		t.Fatal("OpenRepository() repo is nil")
	}

	if _, err := OpenRepository(t.TempDir()); !errors.Is(err, ErrNotRepository) {
		t.Errorf("OpenRepository() on plain dir error = %v, want ErrNotRepository", err)
	}
}

func TestDataRevision(t *testing.T) {
	repoPath, sha := createTestRepo(t)

	rev, err := DataRevision(filepath.Join(repoPath, "data"))
	if err != nil {
		t.Fatalf("DataRevision() error = %v", err)
	}
	if rev.SHA != sha {
		t.Errorf("SHA = %s, want %s", rev.SHA, sha)
	}
	if rev.Message != "Add wind dataset" {
		t.Errorf("Message = %q, want first line only", rev.Message)
	}
	if rev.Author != "Test User (test@example.com)" {
		t.Errorf("Author = %q", rev.Author)
	}
	if rev.Branch != "master" {
		t.Errorf("Branch = %q, want master", rev.Branch)
	}
	if !rev.Date.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", rev.Date)
	}
}

func TestDataRevisionEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("Failed to init repo: %v", err)
	}
	if _, err := DataRevision(dir); err == nil {
		t.Error("DataRevision() on repo without commits should fail")
	}
}
