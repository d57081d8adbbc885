// Package templates loads HTML fragments and fills their {placeholder}
// tokens. Substitution is plain text replacement.
package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/quire/internal/apperr"
)

// Template names used by the build.
const (
	Home        = "home"
	Nav         = "nav"
	Card        = "card"
	Highlightjs = "highlightjs"
)

// Loader reads templates from a directory.
type Loader struct {
	Dir string
}

// NewLoader returns a Loader for dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Load returns the contents of <Dir>/<name>.html.
func (l *Loader) Load(name string) (string, error) {
	path := filepath.Join(l.Dir, name+".html")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("templates: %s: %w", path, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("templates: read %s: %w", path, err)
	}
	return string(data), nil
}

// Fill replaces each {key} in tpl with its value. kv holds key/value pairs
// applied in order, so a value may contain tokens filled by later pairs.
func Fill(tpl string, kv ...string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		tpl = strings.ReplaceAll(tpl, "{"+kv[i]+"}", kv[i+1])
	}
	return tpl
}

// Labeled returns label+value, or "" when value is empty.
func Labeled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + value
}
