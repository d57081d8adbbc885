// Package render converts markup artifacts to HTML pages.
package render

import (
	"context"
	"fmt"
)

// Engines selectable from configuration.
const (
	EngineCommand  = "command"
	EngineGoldmark = "goldmark"
)

// Renderer turns the Markdown file at input into a complete HTML page.
type Renderer interface {
	Render(ctx context.Context, input string) ([]byte, error)
}

// New returns the renderer for engine. command is the executable used by
// the command engine.
func New(engine, command string) (Renderer, error) {
	switch engine {
	case EngineCommand, "":
		return NewCommand(command), nil
	case EngineGoldmark:
		return NewGoldmark(), nil
	default:
		return nil, fmt.Errorf("render: unknown engine %q", engine)
	}
}
