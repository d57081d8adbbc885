package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	directiveLineRe = regexp.MustCompile(`(?m)^\{\{.*\}\}[ \t]*\n?`)
	cssRe           = regexp.MustCompile(`(?m)^css: (.+)$`)
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8"/>
%s	<title>%s</title>
</head>
<body>
%s</body>
</html>
`

// Goldmark renders in process. It is used where the external processor is
// not installed. The header block is consumed rather than rendered and
// {{...}} include directives are dropped.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark returns a Goldmark renderer with GFM enabled.
func NewGoldmark() *Goldmark {
	return &Goldmark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// Render converts the file at input to a standalone HTML page.
func (g *Goldmark) Render(_ context.Context, input string) ([]byte, error) {
	src, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("render: read %s: %w", input, err)
	}
	header, body := splitHeader(string(src))
	body = directiveLineRe.ReplaceAllString(body, "")

	var buf bytes.Buffer
	if err := g.md.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("render: convert %s: %w", input, err)
	}

	var head strings.Builder
	if m := cssRe.FindStringSubmatch(header); m != nil {
		fmt.Fprintf(&head, "\t<link type=\"text/css\" rel=\"stylesheet\" href=\"%s\"/>\n", html.EscapeString(m[1]))
	}
	title := firstHeading(body)
	if title == "" {
		title = headerValue(header, "title")
	}

	return []byte(fmt.Sprintf(pageTemplate, head.String(), html.EscapeString(title), buf.String())), nil
}

// splitHeader separates a leading "key: value" block from the body. A
// document whose first line is not a header line has no header.
func splitHeader(src string) (string, string) {
	first, _, _ := strings.Cut(src, "\n")
	if !strings.Contains(first, ": ") || strings.HasPrefix(first, "# ") {
		return "", src
	}
	if i := strings.Index(src, "\n\n"); i >= 0 {
		return src[:i], src[i+2:]
	}
	return src, ""
}

func headerValue(header, key string) string {
	for _, line := range strings.Split(header, "\n") {
		if k, v, ok := strings.Cut(line, ": "); ok && k == key {
			return strings.ReplaceAll(strings.TrimSpace(v), `\#`, "#")
		}
	}
	return ""
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.ReplaceAll(strings.TrimSpace(line[2:]), `\#`, "#")
		}
	}
	return ""
}
