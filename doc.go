// restyle is a commit transplant engine.
// It relocates a sequence of commits onto a different base commit and
// re-applies a source reformatting tool to every file each commit touches,
// preserving author info, committer info, and commit messages verbatim.
//
// See [RewriteSession] for the transplant state machine, [TargetResolver] for
// how the new base is chosen, and [Verify] for checking a rewritten history
// against a trusted reference.
package restyle
