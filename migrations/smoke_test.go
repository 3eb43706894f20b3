package migrations

import (
	"database/sql"
	"io/fs"
	"path"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func TestRegisteredFilesystems(t *testing.T) {
	registered := Filesystems()
	require.NotEmpty(t, registered)

	// the embedded core migrations carry both dialects
	entries, err := fs.Glob(registered[0], "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	sqliteEntries, err := fs.Glob(registered[0], "sqlite/*.up.sql")
	require.NoError(t, err)
	require.Len(t, sqliteEntries, len(entries))
}

func TestRegisterIgnoresNil(t *testing.T) {
	before := len(Filesystems())
	Register(nil)
	require.Len(t, Filesystems(), before)
}

func TestSqliteMigrationsApply(t *testing.T) {
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})

	for _, fsys := range Filesystems() {
		applyFilesystem(t, db, fsys)
	}

	for _, table := range []string{"companies", "users", "activities"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, table)
		require.Equal(t, table, name)
	}
}

func applyFilesystem(t *testing.T, db *bun.DB, fsys fs.FS) {
	t.Helper()
	names, err := fs.Glob(fsys, "sqlite/*.up.sql")
	require.NoError(t, err)
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		require.NoError(t, err)
		for _, stmt := range splitStatements(string(content)) {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err, path.Base(name))
		}
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}
