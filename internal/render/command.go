package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommand is the external Markdown processor.
const DefaultCommand = "multimarkdown"

// Command renders by running `<Bin> parse -r <input>` and capturing stdout.
// The call blocks until the process exits.
type Command struct {
	Bin string
}

// NewCommand returns a Command renderer for bin.
func NewCommand(bin string) *Command {
	if bin == "" {
		bin = DefaultCommand
	}
	return &Command{Bin: bin}
}

// Render runs the external processor on input.
func (c *Command) Render(ctx context.Context, input string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Bin, "parse", "-r", input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("render: %s %s: %w", c.Bin, input, err)
		}
		return nil, fmt.Errorf("render: %s %s: %w: %s", c.Bin, input, err, msg)
	}
	return stdout.Bytes(), nil
}
