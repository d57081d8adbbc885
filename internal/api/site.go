package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NotFoundPage is served with status 404 when it exists in the site root.
const NotFoundPage = "404.html"

// SiteHandler serves the rendered site under root. Directory requests get
// their index.html; unknown paths get NotFoundPage.
type SiteHandler struct {
	root string
}

// NewSiteHandler creates a handler for the output directory root.
func NewSiteHandler(root string) *SiteHandler {
	return &SiteHandler{root: root}
}

// resolve maps a URL path onto a file under root, rejecting traversal.
func (h *SiteHandler) resolve(urlPath string) (string, bool) {
	cleaned := path.Clean("/" + urlPath)
	if strings.HasSuffix(cleaned, "/") {
		cleaned += "index.html"
	}
	abs := filepath.Join(h.root, filepath.FromSlash(cleaned))
	rootAbs := filepath.Clean(h.root)
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(os.PathSeparator)) {
		return "", false
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false
	}
	if info.IsDir() {
		abs = filepath.Join(abs, "index.html")
		if _, err := os.Stat(abs); err != nil {
			return "", false
		}
	}
	return abs, true
}

func (h *SiteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if abs, ok := h.resolve(r.URL.Path); ok {
		if h.serveFile(w, r, abs) {
			return
		}
	}
	data, err := os.ReadFile(filepath.Join(h.root, NotFoundPage))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(data)
}

// serveFile writes the file at abs. http.ServeFile is avoided because it
// redirects requests ending in /index.html.
func (h *SiteHandler) serveFile(w http.ResponseWriter, r *http.Request, abs string) bool {
	f, err := os.Open(abs)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return false
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
