package listing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/templates"
	"github.com/starford/quire/internal/testutil"
)

var (
	post = models.Post{
		Name:    testutil.PostName,
		Title:   "A Title",
		Created: "2020-01-01",
		Tags:    "game",
		Intro:   "Some intro text\n",
	}
	draft = models.Post{
		Name:    testutil.DraftName,
		Title:   "Draft Title",
		Created: "draft",
		Intro:   "Lorem ipsum dolor sit amet\n",
	}
)

const indexWithDraft = `<html>
<body>
<section class="posts">
<article class="card draft">
  <h3 class="title">Draft</h3>
  <p class="intro">Lorem ipsum dolor sit amet</p>
</article>
<article class="card">
  <h3 class="title">Kept</h3>
  <p class="intro">consectetur adipiscing elit sed do
  Duis aute irure dolor in reprehenderit</p>
</article>
</section>
</body>
</html>
`

func TestGenerate(t *testing.T) {
	cfg := testutil.Site(t)
	testutil.WriteFile(t, cfg.Pages, "about.md", testutil.About)

	if err := Generate([]models.Post{post, draft}, cfg, templates.NewLoader(cfg.Templates)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	html := testutil.ReadFile(t, filepath.Join(cfg.Public, IndexFile))

	for _, want := range []string{
		"<nav>",
		`<article class="card">`,
		`<a href="/posts/2020-01-01-test.html">`,
		`<h3 class="title">A Title</h3>`,
		`<p class="created">Published: 2020-01-01</p>`,
		"<p class=\"intro\">Some intro text\n</p>",
		"<p>\n      Some stuff about me",
		`<a href="/about.html">more...</a>`,
		`<article class="card draft">`,
		`<a href="/posts/draft-test.html">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("index missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "{posts}") || strings.Contains(html, "{nav}") {
		t.Errorf("unfilled placeholders:\n%s", html)
	}
}

func TestGenerate_WithoutAboutPage(t *testing.T) {
	cfg := testutil.Site(t)
	if err := Generate([]models.Post{post}, cfg, templates.NewLoader(cfg.Templates)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	html := testutil.ReadFile(t, filepath.Join(cfg.Public, IndexFile))
	if strings.Contains(html, "more...") {
		t.Errorf("no about page, no more link:\n%s", html)
	}
}

func TestGenerate_MissingTemplate(t *testing.T) {
	cfg := testutil.Site(t)
	if err := os.Remove(filepath.Join(cfg.Templates, "card.html")); err != nil {
		t.Fatal(err)
	}
	err := Generate([]models.Post{post}, cfg, templates.NewLoader(cfg.Templates))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestStripDrafts(t *testing.T) {
	html := StripDrafts(indexWithDraft)

	if strings.Contains(html, `<article class="card draft">`) {
		t.Error("draft card should be removed")
	}
	if strings.Contains(html, "Lorem ipsum dolor sit amet") {
		t.Error("draft card content should be removed")
	}
	for _, want := range []string{
		`<article class="card">`,
		"consectetur adipiscing elit sed do",
		"Duis aute irure dolor in reprehenderit",
		"</section>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("kept content missing %q", want)
		}
	}
	if got := strings.Count(html, "</article>"); got != 1 {
		t.Errorf("</article> count = %d, want 1", got)
	}
}

func TestStripDrafts_NoDraftsUnchanged(t *testing.T) {
	in := "<p>a</p>\n<p>b</p>\n"
	if got := StripDrafts(in); got != in {
		t.Errorf("StripDrafts = %q, want %q", got, in)
	}
	if got := StripDrafts(""); got != "" {
		t.Errorf("StripDrafts(\"\") = %q", got)
	}
}

func TestRemoveDraftsFromIndex(t *testing.T) {
	cfg := testutil.Site(t)
	index := testutil.WriteFile(t, cfg.Public, IndexFile, indexWithDraft)

	if err := RemoveDraftsFromIndex(cfg); err != nil {
		t.Fatalf("RemoveDraftsFromIndex: %v", err)
	}
	html := testutil.ReadFile(t, index)
	if strings.Contains(html, "card draft") || !strings.Contains(html, `<article class="card">`) {
		t.Errorf("unexpected index:\n%s", html)
	}
}

func TestRemoveDraftArtifacts(t *testing.T) {
	cfg := testutil.Site(t)
	testutil.WriteFile(t, cfg.Artifacts, "draft-test.md", testutil.Draft)
	testutil.WriteFile(t, cfg.Artifacts, testutil.PostFile, testutil.Post)
	testutil.WriteFile(t, cfg.PublicPosts, "draft-test.html", "<html></html>")
	testutil.WriteFile(t, cfg.PublicPosts, testutil.PostName+".html", "<html></html>")

	removed, err := RemoveDraftArtifacts(cfg)
	if err != nil {
		t.Fatalf("RemoveDraftArtifacts: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %v", removed)
	}
	if paths.Exists(filepath.Join(cfg.Artifacts, "draft-test.md")) || paths.Exists(filepath.Join(cfg.PublicPosts, "draft-test.html")) {
		t.Error("draft files should be removed")
	}
	if !paths.Exists(filepath.Join(cfg.Artifacts, testutil.PostFile)) || !paths.Exists(filepath.Join(cfg.PublicPosts, testutil.PostName+".html")) {
		t.Error("published files should be kept")
	}
}
