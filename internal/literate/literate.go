// Package literate turns literate source files, where prose lives in block
// comments between runs of code, into Markdown.
package literate

import (
	"slices"
	"strings"
	"unicode"
)

// Default block comment markers. Both the plain and the doc-comment opener
// are accepted.
var (
	DefaultOpen  = []string{"/*", "/**"}
	DefaultClose = "*/"
)

const fence = "```"

type state int

const (
	stateFirstLine state = iota
	stateComment
	stateCode
	stateStartCode
	stateEndCode
)

type effect int

const (
	effectNone effect = iota
	effectBuffer
	effectFlushProse
	effectFlushCode
)

// Converter converts literate sources. Lang is used as the info string of
// emitted code fences.
type Converter struct {
	Open  []string
	Close string
	Lang  string
}

// New returns a Converter with the default markers.
func New(lang string) *Converter {
	return &Converter{Open: DefaultOpen, Close: DefaultClose, Lang: lang}
}

// ForExtension returns a Converter whose fence language matches the file
// extension ext (with or without the leading dot).
func ForExtension(ext string) *Converter {
	ext = strings.TrimPrefix(ext, ".")
	switch ext {
	case "rs":
		return New("rust")
	case "py":
		return New("python")
	case "js":
		return New("javascript")
	default:
		return New(ext)
	}
}

// Convert returns the Markdown form of src. Comment blocks are emitted
// verbatim and code between them is wrapped in fenced blocks. Code after
// the last comment block is dropped.
func (c *Converter) Convert(src string) string {
	var (
		out strings.Builder
		buf []string
		st  = stateFirstLine
	)

	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)

		var eff effect
		st, eff = c.transition(st, line)

		switch eff {
		case effectBuffer:
			buf = append(buf, line)
		case effectFlushProse:
			writeLines(&out, buf)
			buf = buf[:0]
		case effectFlushCode:
			c.writeCode(&out, buf)
			buf = buf[:0]
		}

		st = settle(st)
	}

	return out.String()
}

// transition maps the current state and input line to the next state and
// the effect to apply to the buffer.
func (c *Converter) transition(st state, line string) (state, effect) {
	switch {
	case c.isOpen(line) && st == stateFirstLine:
		return stateComment, effectNone
	case c.isOpen(line):
		return stateEndCode, effectFlushCode
	case line == c.Close:
		return stateStartCode, effectFlushProse
	case st == stateComment, st == stateCode:
		return st, effectBuffer
	default:
		return st, effectNone
	}
}

// settle resolves the transient block-boundary states.
func settle(st state) state {
	switch st {
	case stateStartCode:
		return stateCode
	case stateEndCode:
		return stateComment
	default:
		return st
	}
}

func (c *Converter) isOpen(line string) bool {
	return slices.Contains(c.Open, line)
}

// writeCode fences lines. A single blank line at either end is moved
// outside the fence.
func (c *Converter) writeCode(out *strings.Builder, lines []string) {
	if len(lines) == 0 {
		return
	}
	leading := lines[0] == ""
	if leading {
		lines = lines[1:]
	}
	trailing := len(lines) > 0 && lines[len(lines)-1] == ""
	if trailing {
		lines = lines[:len(lines)-1]
	}

	if leading {
		writeLine(out, "")
	}
	writeLine(out, fence+c.Lang)
	writeLines(out, lines)
	writeLine(out, fence)
	if trailing {
		writeLine(out, "")
	}
}

func writeLines(out *strings.Builder, lines []string) {
	for _, l := range lines {
		writeLine(out, l)
	}
}

func writeLine(out *strings.Builder, line string) {
	out.WriteString(line)
	out.WriteByte('\n')
}
