package projectinput

import (
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/reactorcache/internal/hashkit"
)

// gitTreeDigest returns the committed tree hash for project.BaseDir's git
// working tree, usable in place of walking and hashing every input file
// individually, and whether the fast path applies at all.
//
// It applies only when baseDir sits inside a git working tree, HEAD has at
// least one commit, and the worktree has no uncommitted modifications:
// those are exactly the conditions under which "hash every file" and "use
// the commit's tree object" are guaranteed to agree on what the committed
// content is. A dirty tree, a bare or missing repo, or any open error falls
// back to the per-file walk in Compute; a detached HEAD is used like any
// other commit.
func gitTreeDigest(baseDir string) (hashkit.Fingerprint, bool) {
	repo, err := git.PlainOpenWithOptions(baseDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", false
	}

	status, err := wt.Status()
	if err != nil || !status.IsClean() {
		return "", false
	}

	head, err := repo.Head()
	if err != nil {
		return "", false
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return "", false
	}
	tree, err := commit.Tree()
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(wt.Filesystem.Root(), baseDir)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return hashkit.Fingerprint(tree.Hash.String()), true
	}

	entry, err := tree.FindEntry(filepath.ToSlash(rel))
	if err != nil {
		return "", false // baseDir isn't itself a committed tree entry (e.g. newly added module)
	}
	return hashkit.Fingerprint(entry.Hash.String()), true
}
