package gitutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/user/datacharts-go/internal/models"
)

// ErrNotRepository is returned when no repository encloses the path.
var ErrNotRepository = errors.New("not a git repository")

// OpenRepository opens the git repository containing path, walking up to
// parent directories to find it.
func OpenRepository(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository at %s: %w", path, err)
	}
	return repo, nil
}

// GetHeadCommit retrieves the commit object for the repository's HEAD.
func GetHeadCommit(repo *git.Repository) (*object.Commit, error) {
	headRef, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	commit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object for HEAD (%s): %w", headRef.Hash(), err)
	}
	return commit, nil
}

// GetRepoBranch returns the current branch name, or the short SHA with a
// "(detached)" suffix when HEAD is not a branch.
func GetRepoBranch(repo *git.Repository, headCommit *object.Commit) (string, error) {
	headRef, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	if headRef.Name().IsBranch() {
		return headRef.Name().Short(), nil
	}
	return headCommit.Hash.String()[:8] + " (detached)", nil
}

// CommitRevision converts a commit into a models.Revision.
func CommitRevision(commit *object.Commit) models.Revision {
	return models.Revision{
		SHA:     commit.Hash.String(),
		Date:    commit.Committer.When,
		Author:  fmt.Sprintf("%s (%s)", commit.Author.Name, commit.Author.Email),
		Message: strings.Split(strings.TrimSpace(commit.Message), "\n")[0],
	}
}

// DataRevision describes the commit the repository enclosing dir is at.
func DataRevision(dir string) (models.Revision, error) {
	repo, err := OpenRepository(dir)
	if err != nil {
		return models.Revision{}, err
	}
	head, err := GetHeadCommit(repo)
	if err != nil {
		return models.Revision{}, err
	}

	rev := CommitRevision(head)
	branch, err := GetRepoBranch(repo, head)
	if err != nil {
		return rev, err
	}
	rev.Branch = branch
	return rev, nil
}
