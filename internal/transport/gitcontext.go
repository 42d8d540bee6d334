package transport

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/colliery-io/metis/internal/merr"
)

// networkTimeout bounds every Git network call (spec §5 "Cancellation &
// timeouts": "a default 30-second timeout applies to Git network calls").
const networkTimeout = 30 * time.Second

const centralBranch = "main"

// gitContext is a transient clone of the central beacon in a temp
// directory outside the workspace: "ephemeral, no persistent .git under
// .metis/" (spec §4.7). One gitContext is created and torn down per sync
// cycle; the corpus carries no Git-plumbing library, so this drives the
// system git binary directly via os/exec.
type gitContext struct {
	dir      string
	upstream string
}

// newGitContext creates an empty repository in a temp directory and wires
// upstream as its only remote. No network call is made until fetch.
func newGitContext(ctx context.Context, upstream string) (*gitContext, error) {
	dir, err := os.MkdirTemp("", "metis-sync-*")
	if err != nil {
		return nil, fmt.Errorf("transport: create ephemeral git context: %w", err)
	}
	gc := &gitContext{dir: dir, upstream: upstream}
	if err := gc.run(ctx, "init", "--quiet", "--initial-branch="+centralBranch); err != nil {
		gc.cleanup()
		return nil, err
	}
	if err := gc.run(ctx, "remote", "add", "origin", upstream); err != nil {
		gc.cleanup()
		return nil, err
	}
	return gc, nil
}

func (g *gitContext) cleanup() {
	os.RemoveAll(g.dir)
}

func (g *gitContext) run(ctx context.Context, args ...string) error {
	_, err := g.exec(ctx, args...)
	return err
}

func (g *gitContext) exec(ctx context.Context, args ...string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, networkTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, "git", args...)
	cmd.Dir = g.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("transport: git %v timed out: %w", args, merr.ErrNetworkTimeout)
		}
		return "", fmt.Errorf("transport: git %v: %s: %w", args, strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// fetch retrieves centralBranch from the remote and checks it out into the
// worktree. A remote with no such branch yet (a brand-new central beacon)
// is reported as empty rather than an error.
func (g *gitContext) fetch(ctx context.Context) (head string, empty bool, err error) {
	if _, err := g.exec(ctx, "ls-remote", "--exit-code", "--heads", g.upstream, centralBranch); err != nil {
		return "", true, nil
	}
	if err := g.run(ctx, "fetch", "--quiet", "origin", centralBranch); err != nil {
		return "", false, err
	}
	if err := g.run(ctx, "checkout", "--quiet", "-B", centralBranch, "FETCH_HEAD"); err != nil {
		return "", false, err
	}
	head, err = g.exec(ctx, "rev-parse", "HEAD")
	return head, false, err
}

// commit stages every path under dir and commits, returning false (and no
// error) when nothing changed — the composite commit for this cycle's
// hydration + dehydration.
func (g *gitContext) commit(ctx context.Context, message string) (changed bool, err error) {
	if err := g.run(ctx, "add", "-A"); err != nil {
		return false, err
	}
	status, err := g.exec(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if status == "" {
		return false, nil
	}
	if err := g.run(ctx, "-c", "user.name=metis", "-c", "user.email=metis@localhost", "commit", "--quiet", "-m", message); err != nil {
		return false, err
	}
	return true, nil
}

// push sends centralBranch to origin, reporting rejection distinctly from
// other failures so the caller can drive the push-retry loop.
func (g *gitContext) push(ctx context.Context) (rejected bool, err error) {
	_, err = g.exec(ctx, "push", "origin", centralBranch+":"+centralBranch)
	if err == nil {
		return false, nil
	}
	msg := err.Error()
	if strings.Contains(msg, "rejected") || strings.Contains(msg, "non-fast-forward") || strings.Contains(msg, "fetch first") {
		return true, nil
	}
	return false, err
}

// head returns the worktree's current commit hash.
func (g *gitContext) head(ctx context.Context) (string, error) {
	return g.exec(ctx, "rev-parse", "HEAD")
}
