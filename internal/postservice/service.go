// Package postservice exposes the built site's posts to the preview API and
// the MCP server.
package postservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/build"
	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/storage"
)

// PostDetail is the full representation of a post.
type PostDetail struct {
	PostListItem
	Markup   string `json:"markup"`
	Checksum string `json:"checksum"`
}

// PostListItem is a lightweight item in a list response.
type PostListItem struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Created   string    `json:"created"`
	Updated   string    `json:"updated,omitempty"`
	Tags      []string  `json:"tags"`
	Intro     string    `json:"intro"`
	Draft     bool      `json:"draft"`
	URL       string    `json:"url"`
	IndexedAt time.Time `json:"indexed_at"`
}

// BuildReport summarises one rebuild.
type BuildReport struct {
	BuildID   string   `json:"build_id"`
	Posts     int      `json:"posts"`
	Rendered  []string `json:"rendered"`
	Pruned    []string `json:"pruned"`
	Processed []string `json:"processed"`
	Errors    string   `json:"errors,omitempty"`
}

// RebuildFunc runs one full site build.
type RebuildFunc func(ctx context.Context) (*build.Result, error)

// Service coordinates the catalog and the markup artifacts.
type Service struct {
	db        catalog.PostCatalog
	artifacts storage.Provider
	rebuild   RebuildFunc
}

// NewService creates a new post service. rebuild may be nil, in which case
// Rebuild reports an error.
func NewService(db catalog.PostCatalog, artifacts storage.Provider, rebuild RebuildFunc) *Service {
	return &Service{db: db, artifacts: artifacts, rebuild: rebuild}
}

// ListPosts returns paginated posts in listing order with optional tag filter.
func (s *Service) ListPosts(_ context.Context, limit, offset int, tag string) ([]PostListItem, int, error) {
	rows, total, err := s.db.ListPosts(limit, offset, tag)
	if err != nil {
		return nil, 0, err
	}
	items := make([]PostListItem, len(rows))
	for i, r := range rows {
		items[i] = listItem(r)
	}
	return items, total, nil
}

// GetPost returns the catalogued metadata of a post with its markup.
func (s *Service) GetPost(_ context.Context, name string) (*PostDetail, error) {
	row, err := s.db.GetPost(name)
	if err != nil {
		return nil, err
	}
	data, err := s.artifacts.Read(name + paths.MarkupExt)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("postservice: markup of %s: %w", name, apperr.ErrNotFound)
		}
		return nil, err
	}
	return &PostDetail{
		PostListItem: listItem(*row),
		Markup:       string(data),
		Checksum:     row.Checksum,
	}, nil
}

// Search delegates full-text search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Rebuild runs a full build. Renderer failures do not fail the rebuild:
// they are reported in BuildReport.Errors.
func (s *Service) Rebuild(ctx context.Context) (*BuildReport, error) {
	if s.rebuild == nil {
		return nil, errors.New("postservice: rebuild not configured")
	}
	res, err := s.rebuild(ctx)
	if res == nil {
		return nil, err
	}
	report := &BuildReport{
		BuildID:   res.ID,
		Posts:     len(res.Posts),
		Rendered:  nonNilSlice(res.Rendered),
		Pruned:    nonNilSlice(res.Pruned),
		Processed: nonNilSlice(res.Processed),
	}
	if err != nil {
		report.Errors = err.Error()
	}
	return report, nil
}

func listItem(r catalog.PostRow) PostListItem {
	return PostListItem{
		Name:      r.Name,
		Title:     r.Title,
		Created:   r.Created,
		Updated:   r.Updated,
		Tags:      SplitTags(r.Tags),
		Intro:     r.Intro,
		Draft:     r.IsDraft(),
		URL:       "/posts/" + r.Name + paths.RenderedExt,
		IndexedAt: r.IndexedAt,
	}
}

// SplitTags splits a tags header value on whitespace and commas.
func SplitTags(raw string) []string {
	out := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if out == nil {
		return []string{}
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
