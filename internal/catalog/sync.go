package catalog

import (
	"log/slog"

	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/paths"
	"github.com/starford/quire/internal/storage"
)

// Sync brings the catalog up to date with the markup artifacts in store:
//   - new/changed artifacts are parsed and upserted
//   - posts whose artifact is gone are deleted
//
// It returns the number of upserted and deleted posts.
func Sync(db PostCatalog, store storage.Provider, logger *slog.Logger) (int, int, error) {
	metas, err := store.List(paths.MarkupExt)
	if err != nil {
		return 0, 0, err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return 0, 0, err
	}

	upserted, deleted := 0, 0
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		name := paths.Stem(m.Path)
		disk[name] = struct{}{}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		cs := checksum.Sum(data)
		if checksums[name] == cs {
			continue
		}
		if err := catalogPost(db, m.Path, data, cs); err != nil {
			logger.Warn("sync: catalog failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		upserted++
		logger.Debug("sync: catalogued", slog.String("post", name))
	}

	for name := range checksums {
		if _, ok := disk[name]; ok {
			continue
		}
		if err := db.DeletePost(name); err != nil {
			logger.Warn("sync: delete failed", slog.String("post", name), slog.String("error", err.Error()))
			continue
		}
		deleted++
		logger.Debug("sync: removed stale", slog.String("post", name))
	}
	return upserted, deleted, nil
}

func catalogPost(db PostCatalog, file string, data []byte, cs string) error {
	post, err := parser.Parse(file, data)
	if err != nil {
		return err
	}
	return db.UpsertPost(PostRow{Post: *post, Checksum: cs}, string(data))
}
