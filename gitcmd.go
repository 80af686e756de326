package restyle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Runner executes git commands in a fixed directory.
//
// [Runner.Run] treats any nonzero exit status as fatal, while [Runner.Test]
// is for commands whose 0/1 exit status is a meaningful boolean, such as
// merge-base --is-ancestor.
type Runner struct {
	// Dir is the working directory for every command.
	Dir string
}

// NewRunner creates a runner rooted at dir.
func NewRunner(dir string) *Runner {
	return &Runner{Dir: dir}
}

// WithDir returns a runner with the same configuration rooted at dir.
func (r *Runner) WithDir(dir string) *Runner {
	return &Runner{Dir: dir}
}

func (r *Runner) command(ctx context.Context, args ...string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd, stdout, stderr
}

// Run executes git with the given arguments and returns the trimmed standard
// output. Any nonzero exit status is an error carrying the command and its
// standard error output.
func (r *Runner) Run(ctx context.Context, args ...string) (string, error) {
	cmd, stdout, stderr := r.command(ctx, args...)

	logger.Debug("git", "args", args, "dir", r.Dir)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Test executes git with the given arguments and interprets exit status 0 as
// true and 1 as false. Any other status is an error.
func (r *Runner) Test(ctx context.Context, args ...string) (bool, error) {
	cmd, _, stderr := r.command(ctx, args...)

	logger.Debug("git (test)", "args", args, "dir", r.Dir)

	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exiterr *exec.ExitError
	if errors.As(err, &exiterr) && exiterr.ExitCode() == 1 {
		return false, nil
	}

	return false, fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(stderr.String()), err)
}

// Lines executes git like [Runner.Run] and splits the output into nonempty
// lines.
func (r *Runner) Lines(ctx context.Context, args ...string) ([]string, error) {
	out, err := r.Run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	return strings.Split(out, "\n"), nil
}

// minimum git carrying both worktree and range-diff support.
const (
	minGitMajor = 2
	minGitMinor = 19
)

var gitVersionRegexp = regexp.MustCompile(`(\d+)\.(\d+)`)

// parseGitVersion extracts major and minor from "git version 2.39.2" style
// output.
func parseGitVersion(out string) (major int, minor int, err error) {
	m := gitVersionRegexp.FindStringSubmatch(out)
	if m == nil {
		return 0, 0, fmt.Errorf("cannot parse git version from %q", out)
	}

	major, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, err
	}
	minor, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, err
	}

	return major, minor, nil
}

// CheckGitVersion verifies git is present and at least the minimum supported
// version. Failures are [EnvironmentError].
func (r *Runner) CheckGitVersion(ctx context.Context) error {
	if _, err := exec.LookPath("git"); err != nil {
		return &EnvironmentError{Tool: "git", Reason: "not found in PATH"}
	}

	out, err := r.Run(ctx, "version")
	if err != nil {
		return &EnvironmentError{Tool: "git", Reason: err.Error()}
	}

	major, minor, err := parseGitVersion(out)
	if err != nil {
		return &EnvironmentError{Tool: "git", Reason: err.Error()}
	}

	if major < minGitMajor || (major == minGitMajor && minor < minGitMinor) {
		return &EnvironmentError{
			Tool:   "git",
			Reason: fmt.Sprintf("version %d.%d is below minimum %d.%d", major, minor, minGitMajor, minGitMinor),
		}
	}

	return nil
}
