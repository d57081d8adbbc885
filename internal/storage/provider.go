// Package storage defines the whole-file storage abstraction for one site
// directory (sources, artifacts or rendered output).
package storage

import "github.com/starford/quire/internal/models"

// Provider is the interface for file operations under one root directory.
// All paths are relative to the root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns the regular files directly under the root whose extension
	// is one of exts (all files when exts is empty), sorted by path.
	List(exts ...string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether path exists.
	Exists(path string) bool
}
