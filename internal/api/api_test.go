package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/quire/internal/build"
	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/postservice"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/testutil"
)

// testEnv sets up a temp artifacts dir, catalog, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler, rebuild postservice.RebuildFunc) http.Handler {
	t.Helper()

	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db := testutil.TestCatalog(t)

	_ = store.Write(testutil.PostFile, []byte(testutil.Post))
	if err := db.UpsertPost(catalog.PostRow{
		Post:     models.Post{Name: testutil.PostName, Title: "A Title", Created: "2020-01-01", Tags: "game", Intro: "Some intro text\n"},
		Checksum: "c1",
	}, "uniqueword "+testutil.Post); err != nil {
		t.Fatal(err)
	}

	svc := postservice.NewService(db, store, rebuild)
	return NewRouter(svc, authEnabled, authToken, sseHandler)
}

func do(router http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListPosts(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, http.MethodGet, "/posts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp PostListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Posts) != 1 || resp.Posts[0].Name != testutil.PostName {
		t.Errorf("list = %+v", resp)
	}
}

func TestListPosts_TagFilter(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, http.MethodGet, "/posts?tag=nothing", "")
	var resp PostListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 || resp.Posts == nil {
		t.Errorf("tag filtered list = %s", w.Body.String())
	}
}

func TestGetPost(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, http.MethodGet, "/posts/"+testutil.PostName, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var post PostDetail
	_ = json.Unmarshal(w.Body.Bytes(), &post)
	if post.Title != "A Title" || post.Markup != testutil.Post || post.URL != "/posts/2020-01-01-test.html" {
		t.Errorf("post = %+v", post)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	router := testEnv(t, "")
	if w := do(router, http.MethodGet, "/posts/nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing post = %d, want 404", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")

	w := do(router, http.MethodGet, "/search?q=uniqueword", "")
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Name != testutil.PostName {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	if w := do(router, http.MethodGet, "/search", ""); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestBuildEndpoint(t *testing.T) {
	calls := 0
	router := testEnvFull(t, false, "", nil, func(context.Context) (*build.Result, error) {
		calls++
		return &build.Result{Posts: []models.Post{{Name: "a"}}, Rendered: []string{"a"}}, nil
	})

	w := do(router, http.MethodPost, "/build", "")
	if w.Code != http.StatusOK {
		t.Fatalf("build status = %d, body = %s", w.Code, w.Body.String())
	}
	var report BuildReport
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if calls != 1 || report.Posts != 1 || len(report.Rendered) != 1 {
		t.Errorf("report = %+v, calls = %d", report, calls)
	}
}

func TestBuildEndpoint_Fatal(t *testing.T) {
	router := testEnvFull(t, false, "", nil, func(context.Context) (*build.Result, error) {
		return nil, errors.New("parser: bad header")
	})
	w := do(router, http.MethodPost, "/build", "")
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "bad header") {
		t.Errorf("fatal build = %d %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := do(router, http.MethodGet, "/posts", "secret123"); w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := do(router, http.MethodGet, "/posts", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := do(router, http.MethodGet, "/posts", "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

// blockingSSE writes headers and blocks until the request context is done.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvFull(t, true, "secret", blockingSSE, nil)
	if w := do(router, http.MethodGet, "/events", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvFull(t, true, "tok", blockingSSE, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

// Site handler tests.

func siteRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFile(t, root, "index.html", "<html>home</html>")
	testutil.WriteFile(t, root, "posts/2020-01-01-test.html", "<html>post</html>")
	return root
}

func TestSiteHandler_ServesFiles(t *testing.T) {
	h := NewSiteHandler(siteRoot(t))

	for target, want := range map[string]string{
		"/":                           "home",
		"/index.html":                 "home",
		"/posts/2020-01-01-test.html": "post",
	} {
		w := do(h, http.MethodGet, target, "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), want) {
			t.Errorf("GET %s = %d %q", target, w.Code, w.Body.String())
		}
	}
}

func TestSiteHandler_NotFoundPage(t *testing.T) {
	root := siteRoot(t)
	h := NewSiteHandler(root)

	if w := do(h, http.MethodGet, "/missing.html", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing without 404 page = %d", w.Code)
	}

	testutil.WriteFile(t, root, NotFoundPage, "<html>lost</html>")
	w := do(h, http.MethodGet, "/missing.html", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "lost") {
		t.Errorf("missing with 404 page = %d %q", w.Code, w.Body.String())
	}
}

func TestSiteHandler_TraversalBlocked(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "public")
	testutil.WriteFile(t, root, "index.html", "home")
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewSiteHandler(root)

	if _, ok := h.resolve("/../secret.txt"); ok {
		t.Error("traversal should not resolve")
	}
	w := do(h, http.MethodGet, "/../secret.txt", "")
	if bytes.Contains(w.Body.Bytes(), []byte("secret")) {
		t.Error("traversal leaked file content")
	}
}

func TestSiteHandler_MethodNotAllowed(t *testing.T) {
	h := NewSiteHandler(siteRoot(t))
	if w := do(h, http.MethodPost, "/", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST = %d, want 405", w.Code)
	}
}
