// Package testutil provides shared test helpers for setting up sites and catalogs.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/paths"
)

// Fixture file names.
const (
	PostFile     = "2020-01-01-test.md"
	PostName     = "2020-01-01-test"
	LiterateFile = "2020-01-02-rust.rs"
	LiterateName = "2020-01-02-rust"
	DraftFile    = "draft-test.md"
	DraftName    = "draft-test"
)

// Post is a plain Markdown post.
const Post = `mmd header: {{../templates/header.html}}
mmd footer: {{../templates/footer.html}}
css: /css/main.css
tags: game

# A Title

Some intro text
`

// Draft is a draft post.
const Draft = `tags: wip

# Draft Title

Lorem ipsum dolor sit amet
`

// Literate is a literate Rust source.
const Literate = `/**
mmd header: {{../templates/header.html}}
mmd footer: {{../templates/footer.html}}
css: /css/main.css
tags: rust

# Rust Example

Brief intro

*/
pub fn hello_world() {
  println!("Hello World");
}
/*
The end.
*/
`

// About is the about page.
const About = `title: About
updated: 2020-01-02

# About

Some stuff about me
`

// Page is a rendered post page with placeholders.
const Page = `<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" lang="en">
<head>
	<meta charset="utf-8"/>
	<title>About</title>
</head>
<body>
  <article class="post">
    <header>
      <div class="tags">{tags}</div>
      <div class="dates">
        <span class="created">{created}</span>
        <span class="updated">{updated}</span>
      </div>
    </header>
    <h1>About</h1>
    <p>Some intro text</p>
  </article>
</body>
</html>
`

// Templates used by the listing and post-processing steps.
var Templates = map[string]string{
	"home": `<html>
<body>
{nav}
<section class="intro">
  <p>
      {intro}
  </p>
</section>
<section class="posts">
{posts}
</section>
</body>
</html>
`,
	"nav": `<nav><a href="/">Home</a> <a href="/about.html">About</a></nav>`,
	"card": `<article class="card{additional_classes}">
  <a href="/posts/{name}.html">
    <h3 class="title">{title}</h3>
  </a>
  <p class="tags">{tags}</p>
  <p class="created">{created}</p>
  <p class="updated">{updated}</p>
  <p class="intro">{intro}</p>
</article>`,
	"highlightjs": `<link rel="stylesheet" href="/css/highlight.css"/><script src="/js/highlight.min.js"></script><script>hljs.highlightAll();</script>
`,
}

// Site creates a temporary site layout with templates installed.
func Site(t *testing.T) paths.PathConfig {
	t.Helper()
	root := t.TempDir()
	cfg := paths.PathConfig{
		Posts:       filepath.Join(root, "posts"),
		Pages:       filepath.Join(root, "pages"),
		Artifacts:   filepath.Join(root, "artifacts"),
		Public:      filepath.Join(root, "public"),
		PublicPosts: filepath.Join(root, "public", "posts"),
		Templates:   filepath.Join(root, "templates"),
	}
	for _, dir := range []string{cfg.Posts, cfg.Pages, cfg.Artifacts, cfg.PublicPosts, cfg.Templates} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for name, body := range Templates {
		WriteFile(t, cfg.Templates, name+".html", body)
	}
	return cfg
}

// WriteFile writes content to dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// TestCatalog creates a temporary SQLite catalog that is automatically closed.
func TestCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Open(filepath.Join(t.TempDir(), "quire-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
