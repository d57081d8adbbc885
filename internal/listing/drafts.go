package listing

import (
	"fmt"
	"strings"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/storage"
)

// Markers delimiting a draft card in the listing page.
const (
	DraftOpen  = `<article class="card draft">`
	DraftClose = `</article>`
)

// StripDrafts removes every draft card from html. Lines from one containing
// DraftOpen through the next containing DraftClose are dropped; each kept
// line is terminated with a newline.
func StripDrafts(html string) string {
	if html == "" {
		return ""
	}
	var out strings.Builder
	inDraft := false

	for _, line := range strings.Split(strings.TrimSuffix(html, "\n"), "\n") {
		if strings.Contains(line, DraftOpen) {
			inDraft = true
		}
		if !inDraft {
			out.WriteString(line)
			out.WriteByte('\n')
		}
		if strings.Contains(line, DraftClose) {
			inDraft = false
		}
	}
	return out.String()
}

// RemoveDraftsFromIndex strips draft cards from the listing page on disk.
func RemoveDraftsFromIndex(cfg paths.PathConfig) error {
	out, err := storage.NewFS(cfg.Public)
	if err != nil {
		return fmt.Errorf("listing: %w", err)
	}
	html, err := out.Read(IndexFile)
	if err != nil {
		return fmt.Errorf("listing: %w", err)
	}
	return out.Write(IndexFile, []byte(StripDrafts(string(html))))
}

// RemoveDraftArtifacts deletes draft markup artifacts and rendered draft
// posts. Rebuilding regenerates them from the sources. It returns the
// deleted paths relative to their roots.
func RemoveDraftArtifacts(cfg paths.PathConfig) ([]string, error) {
	var removed []string
	for _, dir := range []string{cfg.Artifacts, cfg.PublicPosts} {
		root, err := storage.Open(dir)
		if err != nil {
			return removed, fmt.Errorf("listing: %w", err)
		}
		files, err := root.List(paths.MarkupExt, paths.RenderedExt)
		if err != nil {
			return removed, err
		}
		for _, f := range files {
			if !strings.HasPrefix(f.Path, models.DraftPrefix) {
				continue
			}
			if err := root.Delete(f.Path); err != nil {
				return removed, err
			}
			removed = append(removed, f.Path)
		}
	}
	return removed, nil
}
