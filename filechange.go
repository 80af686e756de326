package restyle

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// ChangeStatus is the kind of change a commit makes to one path, relative to
// the commit's first parent.
type ChangeStatus int

const (
	Added ChangeStatus = iota
	Modified
	Deleted
	Renamed
)

func (s ChangeStatus) String() string {
	switch s {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileChange is one path level change of a commit relative to its first
// parent. OldPath is empty for [Added] and NewPath is empty for [Deleted].
type FileChange struct {
	Status  ChangeStatus
	OldPath string
	NewPath string
}

// FileChanges derives the change set of a commit relative to its first
// parent, with rename detection. A root commit reports every path as added.
func FileChanges(ctx context.Context, c *object.Commit) ([]FileChange, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain tree for commit %s: %w", c.Hash, err)
	}

	var parenttree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain first parent of commit %s: %w", c.Hash, err)
		}
		parenttree, err = parent.Tree()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain parent tree for commit %s: %w", c.Hash, err)
		}
	}

	changes, err := object.DiffTreeWithOptions(ctx, parenttree, tree, &object.DiffTreeOptions{
		DetectRenames: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees for commit %s: %w", c.Hash, err)
	}

	result := make([]FileChange, 0, len(changes))

	for _, change := range changes {
		action, err := change.Action()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain change action for commit %s: %w", c.Hash, err)
		}

		switch action {
		case merkletrie.Insert:
			result = append(result, FileChange{Status: Added, NewPath: change.To.Name})
		case merkletrie.Delete:
			result = append(result, FileChange{Status: Deleted, OldPath: change.From.Name})
		case merkletrie.Modify:
			if change.From.Name != change.To.Name {
				result = append(result, FileChange{Status: Renamed, OldPath: change.From.Name, NewPath: change.To.Name})
			} else {
				result = append(result, FileChange{Status: Modified, OldPath: change.From.Name, NewPath: change.To.Name})
			}
		}
	}

	return result, nil
}

// newSidePaths collects the paths a commit adds, modifies, or is the new name
// of. These are the paths whose content must match the commit byte for byte
// after replay.
func newSidePaths(changes []FileChange) []string {
	result := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.NewPath != "" {
			result = append(result, c.NewPath)
		}
	}

	return result
}

// removedPaths collects the paths a commit deletes outright. These are
// removed from the working tree before replay, as the prefer-incoming
// conflict policy cannot resolve modify/delete conflicts on its own. Rename
// old sides stay put: staging their deletion up front turns the replay into a
// rename/delete conflict, while git's own rename detection handles them.
func removedPaths(changes []FileChange) []string {
	result := make([]string, 0, len(changes))
	for _, c := range changes {
		switch c.Status {
		case Deleted:
			result = append(result, c.OldPath)
		}
	}

	return result
}
