// Package build runs the site build: source files become Markdown
// artifacts, artifacts are rendered to HTML when stale, and rendered pages
// are post-processed in place.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/listing"
	"github.com/starford/quire/internal/literate"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/templates"
)

// Options tune which files take part in the build.
type Options struct {
	// LiterateExts lists source extensions (with dot) converted by the
	// literate converter. Other sources are copied unchanged.
	LiterateExts []string
	// Exclude holds glob patterns matched against source file names.
	Exclude []string
	// Pages names the standalone pages rendered from the pages directory.
	Pages []string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		LiterateExts: []string{".rs"},
		Exclude:      []string{".*", "*~"},
		Pages:        []string{"about", "404"},
	}
}

// Result summarises one build.
type Result struct {
	// ID identifies the build in logs and preview events.
	ID           string
	Posts        []models.Post
	Materialized int
	Rendered     []string
	Pruned       []string
	Processed    []string
}

// Pipeline builds one site.
type Pipeline struct {
	paths     paths.PathConfig
	renderer  render.Renderer
	templates *templates.Loader
	opts      Options
	logger    *slog.Logger
}

// New creates a Pipeline. A nil logger uses slog.Default().
func New(cfg paths.PathConfig, r render.Renderer, tpl *templates.Loader, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{paths: cfg, renderer: r, templates: tpl, opts: opts, logger: logger}
}

// Paths returns the path configuration of the pipeline.
func (p *Pipeline) Paths() paths.PathConfig {
	return p.paths
}

// Run performs a full build. Fatal problems (malformed headers, duplicate
// names, missing templates or rendered pages) stop the build and return a
// nil Result. Renderer failures are isolated per document: the build
// completes and the joined failures are returned with the Result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res := &Result{ID: uuid.NewString()}
	p.logger.Info("build started", slog.String("build_id", res.ID))

	p.stage("Converting sources to markdown")
	n, err := p.MaterializeMarkup(ctx)
	if err != nil {
		return nil, err
	}
	res.Materialized = n

	p.stage("Populating post metadata")
	posts, err := p.CollectMetadata(ctx)
	if err != nil {
		return nil, err
	}
	res.Posts = posts

	p.stage("Generating HTML posts")
	rendered, failed, renderErr := p.RenderPosts(ctx, posts)
	res.Rendered = rendered

	p.stage("Generating HTML pages")
	if pageErr := p.RenderPages(ctx); pageErr != nil {
		renderErr = errors.Join(renderErr, pageErr)
	}

	p.stage("Removing stale HTML posts")
	if res.Pruned, err = p.PruneOrphanedRenders(ctx); err != nil {
		return nil, err
	}

	p.stage("Post-processing posts")
	ok := slices.DeleteFunc(slices.Clone(posts), func(post models.Post) bool {
		_, bad := failed[post.Name]
		return bad
	})
	if res.Processed, err = p.PostProcess(ctx, ok); err != nil {
		return nil, err
	}

	p.stage("Generating index.html")
	if err := listing.Generate(posts, p.paths, p.templates); err != nil {
		return nil, err
	}

	return res, renderErr
}

func (p *Pipeline) stage(name string) {
	p.logger.Info(name, slog.String("stage", name))
}

// MaterializeMarkup writes one Markdown artifact per source file. Literate
// sources are converted, everything else is copied. Artifacts whose source
// disappeared are removed. An artifact is only rewritten when its content
// changes so that its modification time keeps tracking the source.
func (p *Pipeline) MaterializeMarkup(ctx context.Context) (int, error) {
	src, err := storage.NewFS(p.paths.Posts)
	if err != nil {
		return 0, fmt.Errorf("build: posts: %w", err)
	}
	dst, err := storage.Open(p.paths.Artifacts)
	if err != nil {
		return 0, fmt.Errorf("build: artifacts: %w", err)
	}

	files, err := src.List()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]string, len(files))
	written := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if p.excluded(f.Path) {
			continue
		}
		name := paths.Stem(f.Path)
		if prev, dup := seen[name]; dup {
			return written, fmt.Errorf("build: %s and %s: %w", prev, f.Path, apperr.ErrDuplicateName)
		}
		seen[name] = f.Path

		data, err := src.Read(f.Path)
		if err != nil {
			return written, err
		}
		if ext := filepath.Ext(f.Path); slices.Contains(p.opts.LiterateExts, ext) {
			data = []byte(literate.ForExtension(ext).Convert(string(data)))
		}

		target := name + paths.MarkupExt
		if old, err := dst.Read(target); err == nil && bytes.Equal(old, data) {
			continue
		}
		if err := dst.Write(target, data); err != nil {
			return written, err
		}
		written++
		p.logger.Debug("artifact written", slog.String("name", name), slog.String("source", f.Path))
	}

	artifacts, err := dst.List(paths.MarkupExt)
	if err != nil {
		return written, err
	}
	for _, a := range artifacts {
		if _, ok := seen[paths.Stem(a.Path)]; ok {
			continue
		}
		if err := dst.Delete(a.Path); err != nil {
			return written, err
		}
		p.logger.Info("removed artifact without source", slog.String("path", a.Path))
	}

	return written, nil
}

func (p *Pipeline) excluded(name string) bool {
	for _, pattern := range p.opts.Exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// CollectMetadata parses every artifact. The result is ordered newest
// first by created date, then by name.
func (p *Pipeline) CollectMetadata(ctx context.Context) ([]models.Post, error) {
	dst, err := storage.Open(p.paths.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("build: artifacts: %w", err)
	}
	files, err := dst.List(paths.MarkupExt)
	if err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := dst.Read(f.Path)
		if err != nil {
			return nil, err
		}
		post, err := parser.Parse(f.Path, data)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Created != posts[j].Created {
			return posts[i].Created > posts[j].Created
		}
		return posts[i].Name > posts[j].Name
	})
	return posts, nil
}

// RenderIfStale renders markup into rendered when the markup is newer.
// On failure the rendered file is left untouched.
func (p *Pipeline) RenderIfStale(ctx context.Context, markup, rendered string) (bool, error) {
	if !paths.IsStale(markup, rendered) {
		return false, nil
	}
	out, err := p.renderer.Render(ctx, markup)
	if err != nil {
		return false, fmt.Errorf("build: %s: %w: %w", markup, apperr.ErrRenderFailed, err)
	}
	if err := writeFile(rendered, out); err != nil {
		return false, err
	}
	return true, nil
}

// RenderPosts renders each post whose page is stale. A failing post does
// not stop the others; the names that failed are returned with the joined
// errors.
func (p *Pipeline) RenderPosts(ctx context.Context, posts []models.Post) ([]string, map[string]struct{}, error) {
	var (
		rendered []string
		errs     []error
	)
	failed := make(map[string]struct{})

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return rendered, failed, err
		}
		unit := p.paths.Unit(post.Name)
		ok, err := p.RenderIfStale(ctx, unit.Markup, unit.Rendered)
		if err != nil {
			p.logger.Error("render failed", slog.String("name", post.Name), slog.String("error", err.Error()))
			failed[post.Name] = struct{}{}
			errs = append(errs, err)
			continue
		}
		if ok {
			p.logger.Info("rendered", slog.String("name", post.Name))
			rendered = append(rendered, post.Name)
		}
	}
	return rendered, failed, errors.Join(errs...)
}

// RenderPages renders the configured standalone pages into the output
// root. Pages without a source are skipped.
func (p *Pipeline) RenderPages(ctx context.Context) error {
	var errs []error
	for _, name := range p.opts.Pages {
		markup := paths.MarkupPath(p.paths.Pages, name)
		rendered := paths.RenderedPath(p.paths.Public, name)
		ok, err := p.RenderIfStale(ctx, markup, rendered)
		if err != nil {
			p.logger.Error("render page failed", slog.String("name", name), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		if ok {
			p.logger.Info("rendered page", slog.String("name", name))
		}
	}
	return errors.Join(errs...)
}

// PruneOrphanedRenders deletes rendered posts that no longer have a
// markup artifact and returns their file names.
func (p *Pipeline) PruneOrphanedRenders(ctx context.Context) ([]string, error) {
	out, err := storage.Open(p.paths.PublicPosts)
	if err != nil {
		return nil, fmt.Errorf("build: public posts: %w", err)
	}
	files, err := out.List(paths.RenderedExt)
	if err != nil {
		return nil, err
	}
	slices.Reverse(files)

	var pruned []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		if paths.Exists(paths.MarkupPath(p.paths.Artifacts, paths.Stem(f.Path))) {
			continue
		}
		if err := out.Delete(f.Path); err != nil {
			return pruned, err
		}
		p.logger.Info("removed stale post", slog.String("path", f.Path))
		pruned = append(pruned, f.Path)
	}
	return pruned, nil
}

func writeFile(path string, data []byte) error {
	dir, err := storage.Open(filepath.Dir(path))
	if err != nil {
		return err
	}
	return dir.Write(filepath.Base(path), data)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("build: %s: %w: %w", path, apperr.ErrNotFound, err)
		}
		return nil, fmt.Errorf("build: read %s: %w", path, err)
	}
	return data, nil
}
