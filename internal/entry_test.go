package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/listing"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/testutil"
)

type pageRenderer struct{}

func (pageRenderer) Render(context.Context, string) ([]byte, error) {
	return []byte(testutil.Page), nil
}

// recordingDeployer checks the output at deploy time.
type recordingDeployer struct {
	site  paths.PathConfig
	err   error
	calls int
	index string
	draft bool
}

func (d *recordingDeployer) Deploy(context.Context) error {
	d.calls++
	data, err := os.ReadFile(filepath.Join(d.site.Public, listing.IndexFile))
	if err != nil {
		return err
	}
	d.index = string(data)
	d.draft = paths.Exists(paths.RenderedPath(d.site.PublicPosts, testutil.DraftName)) ||
		paths.Exists(paths.MarkupPath(d.site.Artifacts, testutil.DraftName))
	return d.err
}

func testConfig(t *testing.T) (*Config, paths.PathConfig) {
	t.Helper()
	site := testutil.Site(t)
	testutil.WriteFile(t, site.Posts, testutil.PostFile, testutil.Post)
	testutil.WriteFile(t, site.Posts, testutil.DraftFile, testutil.Draft)
	testutil.WriteFile(t, site.Pages, "about.md", testutil.About)

	cfg := NewDefaultConfig()
	cfg.Paths = PathsConfig{
		Posts:       site.Posts,
		Pages:       site.Pages,
		Artifacts:   site.Artifacts,
		Public:      site.Public,
		PublicPosts: site.PublicPosts,
		Templates:   site.Templates,
	}
	cfg.Content.Pages = []string{"about"}
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "quire.db")
	return cfg, site
}

func testOptions(cfg *Config, extra ...Option) []Option {
	return append([]Option{
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRenderer(pageRenderer{}),
	}, extra...)
}

func TestBuild(t *testing.T) {
	cfg, site := testConfig(t)

	if err := Build(context.Background(), testOptions(cfg)...); err != nil {
		t.Fatalf("Build: %v", err)
	}

	index := testutil.ReadFile(t, filepath.Join(site.Public, listing.IndexFile))
	if !strings.Contains(index, `<h3 class="title">A Title</h3>`) || !strings.Contains(index, `<article class="card draft">`) {
		t.Errorf("index missing cards:\n%s", index)
	}
	post := testutil.ReadFile(t, paths.RenderedPath(site.PublicPosts, testutil.PostName))
	if !strings.Contains(post, "Published: 2020-01-01") || !strings.Contains(post, "hljs.highlightAll") {
		t.Errorf("post not post-processed:\n%s", post)
	}
	if !paths.Exists(paths.RenderedPath(site.Public, "about")) {
		t.Error("about page not rendered")
	}

	db, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, total, _ := db.ListPosts(10, 0, ""); total != 2 {
		t.Errorf("catalog holds %d posts, want 2", total)
	}
}

func TestBuild_MalformedHeader(t *testing.T) {
	cfg, site := testConfig(t)
	testutil.WriteFile(t, site.Posts, "2021-01-01-bad.md", "not a header\n\n# Bad\n")

	err := Build(context.Background(), testOptions(cfg)...)
	if !errors.Is(err, apperr.ErrMalformedHeader) {
		t.Errorf("error = %v, want ErrMalformedHeader", err)
	}
}

func TestBuild_RequiresConfig(t *testing.T) {
	if err := Build(context.Background()); err == nil {
		t.Error("Build without config should fail")
	}
}

func TestPublish(t *testing.T) {
	cfg, site := testConfig(t)
	d := &recordingDeployer{site: site}

	if err := Publish(context.Background(), testOptions(cfg, WithDeployer(d))...); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if d.calls != 1 {
		t.Fatalf("deploy calls = %d, want 1", d.calls)
	}
	if strings.Contains(d.index, "card draft") || !strings.Contains(d.index, "A Title") {
		t.Errorf("deployed index should list only published posts:\n%s", d.index)
	}
	if d.draft {
		t.Error("draft files present at deploy time")
	}

	// The rebuild after deploying restores the drafts locally.
	index := testutil.ReadFile(t, filepath.Join(site.Public, listing.IndexFile))
	if !strings.Contains(index, "card draft") {
		t.Error("draft card not restored after publish")
	}
	if !paths.Exists(paths.RenderedPath(site.PublicPosts, testutil.DraftName)) {
		t.Error("draft render not restored after publish")
	}
}

func TestPublish_DeployFailureStillRebuilds(t *testing.T) {
	cfg, site := testConfig(t)
	d := &recordingDeployer{site: site, err: fmt.Errorf("deploy: wrangler exited with status 1: %w", apperr.ErrDeployFailed)}

	err := Publish(context.Background(), testOptions(cfg, WithDeployer(d))...)
	if !errors.Is(err, apperr.ErrDeployFailed) {
		t.Fatalf("error = %v, want ErrDeployFailed", err)
	}
	if !paths.Exists(paths.MarkupPath(site.Artifacts, testutil.DraftName)) {
		t.Error("drafts should be restored even when the deploy fails")
	}
}
