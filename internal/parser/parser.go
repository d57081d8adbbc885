// Package parser extracts post metadata and an excerpt from Markdown content.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/paths"
)

var (
	headingRe   = regexp.MustCompile(`^# `)
	directiveRe = regexp.MustCompile(`\{\{.*\}\}`)
)

const (
	headerSep   = ": "
	draftDate   = "draft"
	datedPrefix = "20"
	dateLen     = len("2006-01-02")
)

// ParseFile reads path and parses it with Parse.
func ParseFile(path string) (*models.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parser: read %s: %w", path, err)
	}
	return Parse(filepath.Base(path), data)
}

// Parse builds the post metadata for a document named filename.
//
// The document starts with a header block of "key: value" lines terminated
// by a blank line. A "# " heading in the body overrides the header title and
// the first paragraph of the body becomes the intro.
func Parse(filename string, data []byte) (*models.Post, error) {
	post := &models.Post{Name: paths.Stem(filename)}

	inHeader := true
	var intro strings.Builder

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)

		if inHeader {
			if line == "" {
				inHeader = false
				continue
			}
			// Soft-wrapped header values are not parsed.
			if line[0] == ' ' || line[0] == '\t' {
				continue
			}
			key, value, ok := strings.Cut(line, headerSep)
			if !ok {
				return nil, fmt.Errorf("parser: %s line %d: %q: %w", filename, i+1, line, apperr.ErrMalformedHeader)
			}
			switch key {
			case "title":
				post.Title = unescape(value)
			case "created":
				post.Created = value
			case "updated":
				post.Updated = value
			case "tags":
				post.Tags = value
			}
			continue
		}

		switch {
		case headingRe.MatchString(line):
			post.Title = unescape(line[2:])
		case line != "" && !directiveRe.MatchString(line):
			intro.WriteString(line)
			intro.WriteByte('\n')
		case line == "" && intro.Len() > 0:
			post.Intro = intro.String()
			return finish(post, filename), nil
		}
	}

	post.Intro = intro.String()
	return finish(post, filename), nil
}

func finish(post *models.Post, filename string) *models.Post {
	if post.Created == "" {
		post.Created = createdFromFilename(filename)
	}
	if post.Title == "" {
		post.Title = filename
	}
	return post
}

// createdFromFilename derives a created date from a dated or draft filename.
func createdFromFilename(filename string) string {
	switch {
	case strings.HasPrefix(filename, models.DraftPrefix):
		return draftDate
	case strings.HasPrefix(filename, datedPrefix) && len(filename) >= dateLen:
		return filename[:dateLen]
	default:
		return filename
	}
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\#`, "#")
}
