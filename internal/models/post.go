// Package models defines the domain types for quire.
package models

import (
	"strings"
	"time"
)

// DraftPrefix marks a source file (and therefore its post name) as a draft.
const DraftPrefix = "draft-"

// Post is the metadata extracted from one source document.
type Post struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Created string `json:"created"`
	Updated string `json:"updated,omitempty"`
	Tags    string `json:"tags,omitempty"`
	Intro   string `json:"intro"`
}

// IsDraft reports whether the post belongs to the draft channel.
func (p Post) IsDraft() bool {
	return strings.HasPrefix(p.Name, DraftPrefix)
}

// FileMeta is a lightweight description of a file returned by list operations.
type FileMeta struct {
	Path       string    `json:"path"`
	ModifiedAt time.Time `json:"modified_at"`
}
