// Package paths derives artifact locations and decides when a derived file
// needs to be regenerated.
package paths

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	MarkupExt   = ".md"
	RenderedExt = ".html"
)

// epoch is reported for files that do not exist so they always sort as stale.
var epoch = time.Unix(0, 0)

// PathConfig holds the directory roots of a site. It is built once per run
// and never mutated afterwards.
type PathConfig struct {
	Posts       string
	Pages       string
	Artifacts   string
	Public      string
	PublicPosts string
	Templates   string
}

// Unit is the set of files derived from one post.
type Unit struct {
	Name     string
	Markup   string
	Rendered string
}

// Unit returns the markup artifact and rendered page locations for name.
func (c PathConfig) Unit(name string) Unit {
	return Unit{
		Name:     name,
		Markup:   MarkupPath(c.Artifacts, name),
		Rendered: RenderedPath(c.PublicPosts, name),
	}
}

// MarkupPath joins root and name and forces the markup extension.
func MarkupPath(root, name string) string {
	return withExt(filepath.Join(root, name), MarkupExt)
}

// RenderedPath joins root and name and forces the rendered extension.
func RenderedPath(root, name string) string {
	return withExt(filepath.Join(root, name), RenderedExt)
}

func withExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}

// Stem returns the file name of p without its final extension.
func Stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LastModified returns the modification time of path, or the Unix epoch
// when it cannot be stat'ed.
func LastModified(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return epoch
	}
	return info.ModTime()
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsStale reports whether target must be regenerated from source.
// Equal timestamps count as up to date.
func IsStale(source, target string) bool {
	return LastModified(source).After(LastModified(target))
}
