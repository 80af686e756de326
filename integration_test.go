package restyle

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// fixture is a throwaway repository with a "trunk" line and a "feature"
// branch forked right before trunk's style-switch commit:
//
//	c0 (base.c) -- c1 "switch code style" (trunk)
//	 \
//	  f1 add a.c -- f2 tune a.c -- f3 delete a.c (feature)
type fixture struct {
	repo *Repo
	dir  string
	c0   string
	c1   string
}

func gitIn(t *testing.T, dir string, args ...string) string {
	t.Helper()

	out, err := NewRunner(dir).Run(context.Background(), args...)
	if err != nil {
		t.Fatal(err)
	}

	return out
}

func commitFile(t *testing.T, dir, name, content, message string) string {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	gitIn(t, dir, "add", "--", name)
	gitIn(t, dir, "commit", "--no-verify", "-m", message)

	return gitIn(t, dir, "rev-parse", "HEAD")
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	ctx := context.Background()

	if err := NewRunner(dir).CheckGitVersion(ctx); err != nil {
		t.Skipf("git too old: %v", err)
	}

	gitIn(t, dir, "init", "--quiet")
	gitIn(t, dir, "config", "user.name", "A U Thor")
	gitIn(t, dir, "config", "user.email", "author@example.com")

	c0 := commitFile(t, dir, "base.c", "int base;\n", "base")
	gitIn(t, dir, "branch", "-m", "trunk")
	c1 := commitFile(t, dir, "base.c", "int  base ;\n", "switch code style")

	gitIn(t, dir, "checkout", "--quiet", "-b", "feature", c0)
	commitFile(t, dir, "a.c", "int a;\n", "add a.c")
	commitFile(t, dir, "a.c", "int a = 1;\n", "tune a.c")
	gitIn(t, dir, "rm", "--quiet", "a.c")
	gitIn(t, dir, "commit", "--no-verify", "-m", "delete a.c")

	repo, err := OpenRepo(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{repo: repo, dir: dir, c0: c0, c1: c1}
}

// identityConfig uses true(1) as the transform tool, so the rewrite is a pure
// transplant.
func identityConfig() *Config {
	return &Config{
		Tool:   ToolConfig{Command: "true"},
		Filter: PathFilter{Patterns: []string{"*.c"}},
	}
}

func runRewrite(t *testing.T, f *fixture, opts RewriteOptions, cfg *Config) *RewriteResult {
	t.Helper()

	session, err := NewRewriteSession(f.repo, cfg, nil, opts)
	if err != nil {
		t.Fatal(err)
	}

	result, err := session.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	return result
}

func TestRewrite_TransplantsBranch(t *testing.T) {
	f := newFixture(t)

	result := runRewrite(t, f, RewriteOptions{Branch: "feature", Target: "trunk"}, identityConfig())

	if result.Commits != 3 {
		t.Fatalf("replayed %d commits, want 3", result.Commits)
	}

	head := result.RewrittenHead.String()

	// exactly three new commits on top of trunk
	if count := gitIn(t, f.dir, "rev-list", "--count", "trunk.."+head); count != "3" {
		t.Fatalf("rev-list --count trunk..head = %s, want 3", count)
	}

	// the deleted file must not be resurrected by base content, and
	// trunk's own tree must be carried
	tree := gitIn(t, f.dir, "ls-tree", "--name-only", head)
	if strings.Contains(tree, "a.c") {
		t.Fatalf("a.c resurrected in final tree:\n%s", tree)
	}
	if !strings.Contains(tree, "base.c") {
		t.Fatalf("base.c missing from final tree:\n%s", tree)
	}

	// base.c must carry trunk's content, not the feature fork's
	if got := gitIn(t, f.dir, "show", head+":base.c"); got != "int  base ;" {
		t.Fatalf("base.c content = %q", got)
	}

	// matched comparison against the original branch: three content
	// equivalent pairs
	lines, err := f.repo.Runner().Lines(context.Background(), "range-diff", "--no-color",
		"trunk..feature", "trunk.."+head)
	if err != nil {
		t.Fatal(err)
	}
	entries := parseRangeDiff(lines)
	if len(entries) != 3 {
		t.Fatalf("range-diff pairs = %d, want 3:\n%s", len(entries), strings.Join(lines, "\n"))
	}
	for _, e := range entries {
		if !e.Equivalent() {
			t.Errorf("pair not content-equivalent: %+v", e)
		}
	}

	// messages and author survive verbatim
	if msg := gitIn(t, f.dir, "log", "--format=%s", "-1", head); msg != "delete a.c" {
		t.Fatalf("head message = %q", msg)
	}
	if author := gitIn(t, f.dir, "log", "--format=%an", "-1", head); author != "A U Thor" {
		t.Fatalf("head author = %q", author)
	}
}

func TestRewrite_RenamedFile(t *testing.T) {
	f := newFixture(t)

	// a fourth feature commit moving base.c wholesale
	gitIn(t, f.dir, "mv", "base.c", "renamed.c")
	gitIn(t, f.dir, "commit", "--no-verify", "-m", "rename base.c")

	result := runRewrite(t, f, RewriteOptions{Branch: "feature", Target: "trunk"}, identityConfig())

	if result.Commits != 4 {
		t.Fatalf("replayed %d commits, want 4", result.Commits)
	}

	head := result.RewrittenHead.String()

	// the new name survives and the old one is gone
	tree := gitIn(t, f.dir, "ls-tree", "--name-only", head)
	if !strings.Contains(tree, "renamed.c") {
		t.Fatalf("renamed.c missing from final tree:\n%s", tree)
	}
	if strings.Contains(tree, "base.c") {
		t.Fatalf("base.c still present in final tree:\n%s", tree)
	}

	// the moved file carries the renaming commit's own bytes, not the
	// new base's version of the old path
	if got := gitIn(t, f.dir, "show", head+":renamed.c"); got != "int base;" {
		t.Fatalf("renamed.c content = %q", got)
	}
	if msg := gitIn(t, f.dir, "log", "--format=%s", "-1", head); msg != "rename base.c" {
		t.Fatalf("head message = %q", msg)
	}
}

func TestRewrite_DeterministicAndVerifiable(t *testing.T) {
	f := newFixture(t)

	first := runRewrite(t, f, RewriteOptions{Branch: "feature", Target: "trunk"}, identityConfig())
	second := runRewrite(t, f, RewriteOptions{Branch: "feature", Target: "trunk"}, identityConfig())

	// identical trees on every pair of transplanted commits
	firstTree := gitIn(t, f.dir, "rev-parse", first.RewrittenHead.String()+"^{tree}")
	secondTree := gitIn(t, f.dir, "rev-parse", second.RewrittenHead.String()+"^{tree}")
	if firstTree != secondTree {
		t.Fatalf("rewritten trees differ across runs: %s vs %s", firstTree, secondTree)
	}

	// one rewritten history verifies against the other: the divergence
	// marker is trunk's style switch commit, so both ranges are anchored
	// one commit below it
	result, err := Verify(context.Background(), f.repo, VerifyOptions{
		Rewritten: first.RewrittenHead.String(),
		Expected:  second.RewrittenHead.String(),
		Marker:    "trunk",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Ancestor.String() != f.c0 {
		t.Fatalf("ancestor = %s, want %s", result.Ancestor, f.c0)
	}
	// the style switch commit plus the three transplants
	if len(result.Entries) != 4 {
		t.Fatalf("pairs = %d, want 4", len(result.Entries))
	}
}

func TestRewrite_TargetByAncestry(t *testing.T) {
	f := newFixture(t)

	cfg := identityConfig()
	cfg.Lines = []LineConfig{
		{Name: "mainline", Marker: f.c0, Base: "trunk"},
		{Name: "maintenance", Marker: f.c1, Base: "trunk"},
	}

	result := runRewrite(t, f, RewriteOptions{Branch: "feature"}, cfg)

	if result.Line != "mainline" {
		t.Fatalf("line = %q, want mainline", result.Line)
	}
	if result.Commits != 3 {
		t.Fatalf("replayed %d commits, want 3", result.Commits)
	}
}

func TestRewrite_WorkingBranch(t *testing.T) {
	f := newFixture(t)

	result := runRewrite(t, f, RewriteOptions{
		Branch:                "feature",
		Target:                "trunk",
		WorkingBranchTemplate: "restyled/{}",
	}, identityConfig())

	if result.WorkingBranch != "restyled/feature" {
		t.Fatalf("working branch = %q", result.WorkingBranch)
	}
	if got := gitIn(t, f.dir, "rev-parse", "restyled/feature"); got != result.RewrittenHead.String() {
		t.Fatalf("restyled/feature = %s, want %s", got, result.RewrittenHead)
	}
}

func TestRewrite_DirtyCheckoutAbortsBeforeMutation(t *testing.T) {
	f := newFixture(t)

	before := gitIn(t, f.dir, "rev-parse", "feature")

	// uncommitted local edit on the checked out branch
	if err := os.WriteFile(filepath.Join(f.dir, "base.c"), []byte("dirty\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	session, err := NewRewriteSession(f.repo, identityConfig(), nil, RewriteOptions{
		Branch:         "feature",
		Target:         "trunk",
		UpdateOriginal: true,
		BackupTemplate: "old-code-style/{}",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := session.Run(context.Background()); err == nil {
		t.Fatal("dirty checkout with in-place update should abort")
	}

	// zero mutation: branch pointer unchanged, edit still in place, and
	// not even the backup branch was created
	if after := gitIn(t, f.dir, "rev-parse", "feature"); after != before {
		t.Fatalf("feature moved from %s to %s", before, after)
	}
	if data, _ := os.ReadFile(filepath.Join(f.dir, "base.c")); string(data) != "dirty\n" {
		t.Fatalf("working tree edit lost: %q", data)
	}
	if _, found := f.repo.BranchHash("old-code-style/feature"); found {
		t.Fatal("backup branch created despite abort")
	}
}

func TestRewrite_UpdateOriginal(t *testing.T) {
	f := newFixture(t)

	result := runRewrite(t, f, RewriteOptions{
		Branch:         "feature",
		Target:         "trunk",
		UpdateOriginal: true,
		BackupTemplate: "old-code-style/{}",
	}, identityConfig())

	if !result.UpdatedOriginal {
		t.Fatal("expected the original branch to be updated")
	}
	if got := gitIn(t, f.dir, "rev-parse", "feature"); got != result.RewrittenHead.String() {
		t.Fatalf("feature = %s, want %s", got, result.RewrittenHead)
	}
	if current := gitIn(t, f.dir, "rev-parse", "--abbrev-ref", "HEAD"); current != "feature" {
		t.Fatalf("current branch = %q", current)
	}

	// the backup still points at the tip from before the rewrite
	backup, found := f.repo.BranchHash("old-code-style/feature")
	if !found {
		t.Fatal("backup branch missing")
	}
	if result.BackupBranch != "old-code-style/feature" {
		t.Fatalf("backup branch name = %q", result.BackupBranch)
	}
	if backup.String() == result.RewrittenHead.String() {
		t.Fatal("backup points at the rewritten head instead of the original tip")
	}
}

func TestCreateBackup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	name, err := f.repo.CreateBackup(ctx, "old-code-style/{}", "feature")
	if err != nil {
		t.Fatal(err)
	}
	if name != "old-code-style/feature" {
		t.Fatalf("backup name = %q", name)
	}

	// identical second invocation changes nothing and raises no error
	if _, err := f.repo.CreateBackup(ctx, "old-code-style/{}", "feature"); err != nil {
		t.Fatalf("repeated backup: %v", err)
	}

	// a differently pointing branch of the computed name fails loudly and
	// is left untouched
	gitIn(t, f.dir, "branch", "--force", "old-code-style/trunk", f.c0)
	_, err = f.repo.CreateBackup(ctx, "old-code-style/{}", "trunk")
	var exists *BackupExistsError
	if !errors.As(err, &exists) {
		t.Fatalf("err = %v, want *BackupExistsError", err)
	}
	if got := gitIn(t, f.dir, "rev-parse", "old-code-style/trunk"); got != f.c0 {
		t.Fatalf("existing backup moved to %s", got)
	}

	// symbolic aliases are never templated
	if _, err := f.repo.CreateBackup(ctx, "old-code-style/{}", "HEAD"); err == nil {
		t.Fatal("HEAD should be rejected for template substitution")
	}
}
