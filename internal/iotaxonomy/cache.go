package iotaxonomy

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/gnames/gnfmt"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGo)

	"github.com/taxsieve/taxsieve/pkg/taxtree"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS taxa (
	id INTEGER PRIMARY KEY,
	parent_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	rank TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SaveCache writes taxonomy nodes to the SQLite cache, replacing any
// previous content.
func SaveCache(
	ctx context.Context,
	path string,
	nodes []taxtree.Node,
) error {
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return CacheWriteError(path, err)
	}

	db, err := openCache(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err = db.ExecContext(ctx, cacheSchema); err != nil {
		return CacheWriteError(path, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return CacheWriteError(path, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, "DELETE FROM taxa"); err != nil {
		return CacheWriteError(path, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO taxa (id, parent_id, name, rank) VALUES (?, ?, ?, ?)")
	if err != nil {
		return CacheWriteError(path, err)
	}
	defer stmt.Close()

	bar := pb.Full.Start(len(nodes))
	bar.Set("prefix", "Caching taxa: ")
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	for i, n := range nodes {
		if i%50_000 == 0 {
			if err = ctx.Err(); err != nil {
				return err
			}
		}
		if _, err = stmt.ExecContext(ctx,
			n.ID, n.ParentID, n.Name, n.Rank); err != nil {
			return CacheWriteError(path, err)
		}
		bar.Increment()
	}

	builtAt := time.Now().UTC().Format(time.RFC3339)
	if _, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES ('built_at', ?)",
		builtAt); err != nil {
		return CacheWriteError(path, err)
	}

	if err = tx.Commit(); err != nil {
		return CacheWriteError(path, err)
	}

	slog.Info("Taxonomy cache written",
		"path", path,
		"taxa", len(nodes),
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return nil
}

// LoadCache reads taxonomy nodes back from the SQLite cache.
func LoadCache(ctx context.Context, path string) ([]taxtree.Node, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, CacheMissingError(path)
	}

	db, err := openCache(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM taxa").Scan(&count)
	if err != nil {
		return nil, CacheReadError(path, err)
	}
	if count == 0 {
		return nil, CacheMissingError(path)
	}

	rows, err := db.QueryContext(ctx,
		"SELECT id, parent_id, name, rank FROM taxa")
	if err != nil {
		return nil, CacheReadError(path, err)
	}
	defer rows.Close()

	nodes := make([]taxtree.Node, 0, count)
	for rows.Next() {
		var n taxtree.Node
		if err = rows.Scan(&n.ID, &n.ParentID, &n.Name, &n.Rank); err != nil {
			return nil, CacheReadError(path, err)
		}
		nodes = append(nodes, n)
	}
	if err = rows.Err(); err != nil {
		return nil, CacheReadError(path, err)
	}

	return nodes, nil
}

// openCache opens the SQLite file with the PRAGMAs used for bulk work.
func openCache(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, CacheOpenError(path, err)
	}

	// Only one writer at a time for SQLite.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err = db.Exec(p); err != nil {
			db.Close()
			return nil, CacheOpenError(path, err)
		}
	}
	return db, nil
}
