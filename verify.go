package restyle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing"
)

// RangeDiffEntry is one row of a matched comparison between two commit
// ranges. Marker is '=' for a content equivalent pair, '!' for a pair that
// differs, '<' for a commit only in the left range, and '>' for one only in
// the right range. Absent sides have index 0 and an empty hash.
type RangeDiffEntry struct {
	LeftIndex  int
	LeftHash   string
	Marker     byte
	RightIndex int
	RightHash  string
	Subject    string
}

// Equivalent reports whether the pair is content equivalent.
func (e RangeDiffEntry) Equivalent() bool {
	return e.Marker == '='
}

// rows look like " 1:  4e39157b =  1:  0f064f9c Add a.c" with "-" standing
// in for an absent side.
var rangeDiffRowRegexp = regexp.MustCompile(`^\s*(\d+|-):\s+(\S+)\s+([=!<>])\s+(\d+|-):\s+(\S+)\s*(.*)$`)

func parseRangeDiffIndex(s string) int {
	if s == "-" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}

	return n
}

func parseRangeDiffHash(s string) string {
	if s == "-" || allDashes(s) {
		return ""
	}

	return s
}

func allDashes(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			return false
		}
	}

	return len(s) > 0
}

// parseRangeDiff extracts the pairing rows from range-diff output,
// ignoring the per-pair patch detail lines.
func parseRangeDiff(lines []string) []RangeDiffEntry {
	result := make([]RangeDiffEntry, 0, len(lines))

	for _, line := range lines {
		m := rangeDiffRowRegexp.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		result = append(result, RangeDiffEntry{
			LeftIndex:  parseRangeDiffIndex(m[1]),
			LeftHash:   parseRangeDiffHash(m[2]),
			Marker:     m[3][0],
			RightIndex: parseRangeDiffIndex(m[4]),
			RightHash:  parseRangeDiffHash(m[5]),
			Subject:    m[6],
		})
	}

	return result
}

// VerifyOptions are the inputs of one verification run. Expected is the
// trusted, known good reference; Rewritten the history to check; Marker the
// divergence point of the expected line.
type VerifyOptions struct {
	Rewritten string
	Expected  string
	Marker    string
}

// VerifyResult carries the ancestor the comparison was anchored at and every
// pairing row.
type VerifyResult struct {
	Ancestor plumbing.Hash
	Entries  []RangeDiffEntry
}

// Verify checks that a rewritten history is content equivalent to a trusted
// reference. The commit immediately preceding the divergence marker is the
// common ancestor; both ranges above it are paired positionally and every
// pair must be content equivalent. Verification mutates nothing.
func Verify(ctx context.Context, repo *Repo, opts VerifyOptions) (*VerifyResult, error) {
	ancestor, err := repo.Resolve(opts.Marker + "^")
	if err != nil {
		return nil, fmt.Errorf("parent of divergence marker %s: %w", opts.Marker, err)
	}

	expected, err := repo.Resolve(opts.Expected)
	if err != nil {
		return nil, err
	}
	rewritten, err := repo.Resolve(opts.Rewritten)
	if err != nil {
		return nil, err
	}

	// if the ancestor is not part of the expected history, the reference
	// itself is inconsistent and the comparison would be meaningless.
	isancestor, err := repo.IsAncestor(ctx, ancestor.String(), expected.String())
	if err != nil {
		return nil, err
	}
	if !isancestor {
		return nil, fmt.Errorf("%s not reachable from %s: %w", ancestor, opts.Expected, ErrInconsistentRef)
	}

	lines, err := repo.Runner().Lines(ctx, "range-diff", "--no-color",
		fmt.Sprintf("%s..%s", ancestor, expected),
		fmt.Sprintf("%s..%s", ancestor, rewritten))
	if err != nil {
		return nil, fmt.Errorf("range-diff failed: %w", err)
	}

	result := &VerifyResult{
		Ancestor: ancestor,
		Entries:  parseRangeDiff(lines),
	}

	var mismatches []error
	for _, entry := range result.Entries {
		if !entry.Equivalent() {
			mismatches = append(mismatches, &VerifyMismatchError{Entry: entry})
		}
	}

	if len(mismatches) > 0 {
		return result, errors.Join(mismatches...)
	}

	logger.Info("verification passed", "pairs", len(result.Entries), "ancestor", ancestor)

	return result, nil
}
