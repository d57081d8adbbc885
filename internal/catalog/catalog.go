package catalog

// PostCatalog defines the queryable post catalog.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PostCatalog interface {
	UpsertPost(p PostRow, body string) error
	DeletePost(name string) error
	GetChecksum(name string) (string, error)
	GetPost(name string) (*PostRow, error)
	ListPosts(limit, offset int, tag string) ([]PostRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies PostCatalog at compile time.
var _ PostCatalog = (*DB)(nil)
