package build

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/templates"
)

const (
	headClose      = "</head>"
	publishedLabel = "Published: "
	updatedLabel   = "Updated: "

	// The injected fragment is wrapped in these markers so a copy made from
	// an older template can still be found and replaced.
	fragmentBegin = "<!-- quire:head -->"
	fragmentEnd   = "<!-- /quire:head -->"
)

// PostProcess injects the shared head fragment into each rendered post and
// fills its {tags}, {created} and {updated} placeholders. A page is only
// written back when its content changes. It returns the names written.
func (p *Pipeline) PostProcess(ctx context.Context, posts []models.Post) ([]string, error) {
	fragment, err := p.templates.Load(templates.Highlightjs)
	if err != nil {
		return nil, err
	}

	var processed []string
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		path := paths.RenderedPath(p.paths.PublicPosts, post.Name)
		original, err := readFile(path)
		if err != nil {
			return processed, err
		}

		html := ProcessPage(string(original), fragment, post)
		if html == string(original) {
			continue
		}
		if err := writeFile(path, []byte(html)); err != nil {
			return processed, err
		}
		p.logger.Info("processed", slog.String("name", post.Name))
		processed = append(processed, post.Name)
	}
	return processed, nil
}

// ProcessPage applies the post-processing transforms to one page. Any
// previously injected fragment is removed before fragment is inserted ahead
// of the first </head>, so applying ProcessPage repeatedly yields the same
// page.
func ProcessPage(html, fragment string, post models.Post) string {
	html = stripMarked(html)
	if fragment != "" {
		html = strings.ReplaceAll(html, fragment, "")
		html = strings.Replace(html, headClose, fragmentBegin+fragment+fragmentEnd+headClose, 1)
	}
	return templates.Fill(html,
		"tags", post.Tags,
		"created", templates.Labeled(publishedLabel, post.Created),
		"updated", templates.Labeled(updatedLabel, post.Updated),
	)
}

// stripMarked removes every fragmentBegin...fragmentEnd block. An unterminated
// begin marker is left in place.
func stripMarked(html string) string {
	for {
		start := strings.Index(html, fragmentBegin)
		if start < 0 {
			return html
		}
		end := strings.Index(html[start:], fragmentEnd)
		if end < 0 {
			return html
		}
		html = html[:start] + html[start+end+len(fragmentEnd):]
	}
}
