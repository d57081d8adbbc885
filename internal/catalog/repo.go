package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PostRow is one row of the posts table.
type PostRow struct {
	models.Post
	Checksum  string
	IndexedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Name    string
	Title   string
	Snippet string
}

const postColumns = `name, title, created, updated, tags, intro, checksum, indexed_at`

// UpsertPost inserts or replaces a post and its FTS entry within a transaction.
func (db *DB) UpsertPost(p PostRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if p.IndexedAt.IsZero() {
		p.IndexedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO posts (name, title, created, updated, tags, intro, checksum, body, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			title      = excluded.title,
			created    = excluded.created,
			updated    = excluded.updated,
			tags       = excluded.tags,
			intro      = excluded.intro,
			checksum   = excluded.checksum,
			body       = excluded.body,
			indexed_at = excluded.indexed_at
	`, p.Name, p.Title, p.Created, p.Updated, p.Tags, p.Intro, p.Checksum, body, p.IndexedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert post: %w", err)
	}

	// No-op when the FTS5 tag is absent.
	if err := ftsUpsert(tx, p.Name, p.Title, body, p.Tags); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePost removes a post and its FTS entry.
func (db *DB) DeletePost(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, name)
	if _, err := tx.Exec(`DELETE FROM posts WHERE name = ?`, name); err != nil {
		return fmt.Errorf("catalog: delete post: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(name string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE name = ?`, name).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns name -> checksum for every catalogued post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT name, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var name, cs string
		if err := rows.Scan(&name, &cs); err != nil {
			return nil, err
		}
		out[name] = cs
	}
	return out, rows.Err()
}

// GetPost returns the catalogued post by name.
func (db *DB) GetPost(name string) (*PostRow, error) {
	row := db.conn.QueryRow(`SELECT `+postColumns+` FROM posts WHERE name = ?`, name)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: post %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get post: %w", err)
	}
	return p, nil
}

// ListPosts returns a page of posts in listing order (newest first) and the
// total count. When tag is non-empty only posts carrying it are returned.
func (db *DB) ListPosts(limit, offset int, tag string) ([]PostRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	var args []any
	if tag = strings.TrimSpace(tag); tag != "" {
		// Tags are stored as the raw header value; tokens are separated by
		// whitespace or commas.
		where = ` WHERE (' ' || replace(replace(replace(replace(tags, ',', ' '), char(9), ' '), char(10), ' '), char(13), ' ') || ' ') LIKE ? ESCAPE '\'`
		args = append(args, "% "+likeEscaper.Replace(tag)+" %")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count posts: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+postColumns+` FROM posts`+where+
		` ORDER BY created DESC, name DESC LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list posts: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*PostRow, error) {
	var p PostRow
	err := s.Scan(&p.Name, &p.Title, &p.Created, &p.Updated, &p.Tags, &p.Intro, &p.Checksum, &p.IndexedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
