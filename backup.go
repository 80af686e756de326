package restyle

import (
	"context"
	"fmt"
	"strings"
)

const templatePlaceholder = "{}"

// expandTemplate substitutes the single {} placeholder in template with name.
// A template without a placeholder is used literally; more than one
// placeholder is an error.
func expandTemplate(template, name string) (string, error) {
	switch strings.Count(template, templatePlaceholder) {
	case 0:
		return template, nil
	case 1:
		return strings.Replace(template, templatePlaceholder, name, 1), nil
	default:
		return "", fmt.Errorf("%q: %w", template, ErrTooManyPlaceholders)
	}
}

// CreateBackup creates a branch named by substituting ref into template,
// pointing at ref's commit, before any history is mutated. ref must classify
// as a branch, tag, or raw commit id, never a symbolic alias such as HEAD.
//
// The call is a no-op if a branch of the computed name already points at the
// same commit, and fails loudly, without touching the existing branch, if it
// points elsewhere.
func (r *Repo) CreateBackup(ctx context.Context, template, ref string) (string, error) {
	kind := r.Classify(ref)
	if !kind.SafeForTemplate() {
		return "", fmt.Errorf("%s classifies as %s: %w", ref, kind, ErrUnsafeTemplateRef)
	}

	name, err := expandTemplate(template, ref)
	if err != nil {
		return "", err
	}

	want, err := r.Resolve(ref)
	if err != nil {
		return "", err
	}

	if existing, found := r.BranchHash(name); found {
		if existing == want {
			logger.Info("backup branch already up to date", "branch", name, "hash", want)
			return name, nil
		}

		return "", &BackupExistsError{Name: name, Existing: existing.String(), Want: want.String()}
	}

	if err := r.CreateBranch(ctx, name, want); err != nil {
		return "", err
	}

	logger.Info("backup branch created", "branch", name, "hash", want)

	return name, nil
}
