// Package migrations applies the embedded schema files in version order.
package migrations

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/jmoiron/sqlx"

	"ytmanager-backend-go/internal/db"
	"ytmanager-backend-go/internal/logging"
)

//go:embed sql/*.sql
var embedded embed.FS

var fileName = regexp.MustCompile(`^V(\d+)__[A-Za-z0-9_]+\.sql$`)

type migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

type appliedRow struct {
	Version  int    `db:"version"`
	Checksum string `db:"checksum"`
}

func Apply(ctx context.Context, conn *sqlx.DB) error {
	return ApplyFS(ctx, conn, embedded, "sql")
}

// ApplyFS runs every migration under dir not yet recorded in
// schema_migrations. An applied file whose contents changed aborts the run.
func ApplyFS(ctx context.Context, conn *sqlx.DB, fsys fs.FS, dir string) error {
	if _, err := conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  checksum TEXT NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return fmt.Errorf("schema_migrations: %w", err)
	}
	migs, err := loadMigrations(fsys, dir)
	if err != nil {
		return err
	}
	rows := []appliedRow{}
	if err := conn.SelectContext(ctx, &rows, `SELECT version, checksum FROM schema_migrations`); err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	pending, err := pendingMigrations(migs, rows)
	if err != nil {
		return err
	}
	for _, mig := range pending {
		err := db.WithTx(ctx, conn, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
				mig.Version, mig.Name, mig.Checksum)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", mig.Name, err)
		}
		logging.Logger.Info().Int("version", mig.Version).Str("migration", mig.Name).Msg("migration applied")
	}
	return nil
}

func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	migs := []migration{}
	seen := map[int]string{}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		match := fileName.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration %s: name must look like V<n>__name.sql", entry.Name())
		}
		version, _ := strconv.Atoi(match[1])
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, entry.Name(), version)
		}
		seen[version] = entry.Name()
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(content)
		migs = append(migs, migration{
			Version:  version,
			Name:     entry.Name(),
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	return migs, nil
}

func pendingMigrations(migs []migration, applied []appliedRow) ([]migration, error) {
	done := map[int]string{}
	for _, row := range applied {
		done[row.Version] = row.Checksum
	}
	pending := []migration{}
	for _, mig := range migs {
		sum, ok := done[mig.Version]
		if !ok {
			pending = append(pending, mig)
			continue
		}
		if sum != mig.Checksum {
			return nil, fmt.Errorf("migration %s was modified after it was applied", mig.Name)
		}
	}
	return pending, nil
}
