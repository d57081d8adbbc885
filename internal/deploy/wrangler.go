// Package deploy uploads the built site to Cloudflare Pages.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/starford/quire/internal/apperr"
)

// Defaults for the Cloudflare Pages uploader.
const (
	DefaultCommand = "wrangler"
	DefaultProject = "electricvisions"
)

// Deployer publishes an output directory.
type Deployer interface {
	Deploy(ctx context.Context) error
}

// Wrangler runs `<Command> pages deploy <Dir> --project-name=<Project>`.
type Wrangler struct {
	Command string
	Dir     string
	Project string

	// Stdout and Stderr receive the uploader output. Nil means os.Stdout
	// and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// NewWrangler returns a Wrangler for dir with defaults filled in.
func NewWrangler(command, dir, project string) *Wrangler {
	if command == "" {
		command = DefaultCommand
	}
	if project == "" {
		project = DefaultProject
	}
	return &Wrangler{Command: command, Dir: dir, Project: project}
}

// Args returns the uploader arguments.
func (w *Wrangler) Args() []string {
	return []string{"pages", "deploy", w.Dir, "--project-name=" + w.Project}
}

// Deploy runs the uploader and blocks until it exits. A non-zero exit
// returns an error wrapping apperr.ErrDeployFailed with the exit status.
func (w *Wrangler) Deploy(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, w.Command, w.Args()...)
	cmd.Stdout = orDefault(w.Stdout, os.Stdout)
	cmd.Stderr = orDefault(w.Stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("deploy: %s exited with status %d: %w", w.Command, exitErr.ExitCode(), apperr.ErrDeployFailed)
		}
		return fmt.Errorf("deploy: %s: %w: %w", w.Command, apperr.ErrDeployFailed, err)
	}
	return nil
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}
