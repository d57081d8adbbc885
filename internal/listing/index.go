// Package listing assembles the home page that lists every post and strips
// the draft channel from a published build.
package listing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/templates"
)

const (
	// IndexFile is the listing page written to the output root.
	IndexFile = "index.html"
	// AboutPage is the page whose intro heads the listing.
	AboutPage = "about"

	draftClass = " draft"
	moreLink   = ` <div><a href="/about.html">more...</a></div>`
)

// Generate writes the listing page for posts into the output root.
func Generate(posts []models.Post, cfg paths.PathConfig, loader *templates.Loader) error {
	html, err := Render(posts, cfg, loader)
	if err != nil {
		return err
	}
	out, err := storage.Open(cfg.Public)
	if err != nil {
		return fmt.Errorf("listing: %w", err)
	}
	return out.Write(IndexFile, []byte(html))
}

// Render returns the listing page without writing it.
func Render(posts []models.Post, cfg paths.PathConfig, loader *templates.Loader) (string, error) {
	nav, err := loader.Load(templates.Nav)
	if err != nil {
		return "", err
	}
	card, err := loader.Load(templates.Card)
	if err != nil {
		return "", err
	}
	home, err := loader.Load(templates.Home)
	if err != nil {
		return "", err
	}

	intro, err := aboutIntro(cfg)
	if err != nil {
		return "", err
	}

	cards := make([]string, 0, len(posts))
	for _, p := range posts {
		classes := ""
		if p.IsDraft() {
			classes = draftClass
		}
		cards = append(cards, templates.Fill(card,
			"additional_classes", classes,
			"name", p.Name,
			"tags", p.Tags,
			"created", templates.Labeled("Published: ", p.Created),
			"updated", templates.Labeled("Updated: ", p.Updated),
			"title", p.Title,
			"intro", p.Intro,
		))
	}

	return templates.Fill(home,
		"nav", nav,
		"intro", intro,
		"posts", strings.Join(cards, "\n"),
	), nil
}

// aboutIntro returns the about page intro followed by a link to the page.
// A site without an about page gets no intro.
func aboutIntro(cfg paths.PathConfig) (string, error) {
	about, err := parser.ParseFile(filepath.Join(cfg.Pages, AboutPage+paths.MarkupExt))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return about.Intro + moreLink, nil
}
