package restyle

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

// Target is the resolved base the branch will be rewritten onto. Line is
// empty when the target was given explicitly.
type Target struct {
	Line     string
	Base     string
	BaseHash plumbing.Hash
}

// pickLine is the pure decision table for target selection: an explicit
// target always wins; otherwise the first line whose marker is an ancestor of
// the branch tip is chosen, falling back to line 0, the most general one.
// lineIndex is -1 when the explicit target is used.
func pickLine(explicitGiven bool, ancestorMatch []bool) (useExplicit bool, lineIndex int) {
	if explicitGiven {
		return true, -1
	}

	for i, matched := range ancestorMatch {
		if matched {
			return false, i
		}
	}

	return false, 0
}

// TargetResolver determines the commit a branch is rewritten onto, fetching
// missing reference data on demand from Remote when one is configured.
type TargetResolver struct {
	Repo   *Repo
	Remote string
	Lines  []LineConfig
}

// resolveMaybeFetch resolves ref, attempting a single fetch from the
// configured remote if it is not already resolvable. An existing local
// reference is never refreshed, so answers cannot silently change mid
// session.
func (t *TargetResolver) resolveMaybeFetch(ctx context.Context, ref string) (plumbing.Hash, error) {
	h, err := t.Repo.Resolve(ref)
	if err == nil {
		return h, nil
	}

	if t.Remote == "" {
		return plumbing.ZeroHash, err
	}

	if fetcherr := t.Repo.Fetch(ctx, t.Remote, ref); fetcherr != nil {
		return plumbing.ZeroHash, errors.Join(err, fetcherr)
	}

	return t.Repo.Resolve(ref)
}

// ResolveTarget fixes the new base for a branch whose tip is tip. When
// explicit is nonempty it is used verbatim. Otherwise each configured line's
// marker is ancestry tested against tip in priority order.
func (t *TargetResolver) ResolveTarget(ctx context.Context, tip string, explicit string) (*Target, error) {
	if explicit != "" {
		h, err := t.resolveMaybeFetch(ctx, explicit)
		if err != nil {
			return nil, fmt.Errorf("explicit target %s: %w: %v", explicit, ErrTargetUnresolved, err)
		}

		logger.Info("using explicit target", "target", explicit, "hash", h)

		return &Target{Base: explicit, BaseHash: h}, nil
	}

	if len(t.Lines) == 0 {
		return nil, ErrNoLinesConfigured
	}

	matches := make([]bool, len(t.Lines))
	for i, line := range t.Lines {
		marker, err := t.resolveMaybeFetch(ctx, line.Marker)
		if err != nil {
			return nil, fmt.Errorf("marker for line %s: %w", line.Name, err)
		}

		matched, err := t.Repo.IsAncestor(ctx, marker.String(), tip)
		if err != nil {
			return nil, fmt.Errorf("ancestry test for line %s: %w", line.Name, err)
		}
		matches[i] = matched
	}

	_, idx := pickLine(false, matches)
	line := t.Lines[idx]

	logger.Info("target line selected by ancestry", "line", line.Name, "base", line.Base)

	h, err := t.resolveMaybeFetch(ctx, line.Base)
	if err != nil {
		return nil, fmt.Errorf("base %s of line %s: %w: %v", line.Base, line.Name, ErrTargetUnresolved, err)
	}

	return &Target{Line: line.Name, Base: line.Base, BaseHash: h}, nil
}
