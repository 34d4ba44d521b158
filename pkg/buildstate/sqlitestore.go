package buildstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// schema creates the three tables backing the build state: the per-artifact
// dependency rows (spec.md §3 BuildStateEntry), the dirty-source set, and
// the source-info secondary index (component H). Each table is created on
// open only if it is absent; an existing table is left as it is, so a
// table whose columns differ from these is not re-created.
const schema = `
create table if not exists artifacts (
	artifact text not null,
	source text not null,
	mtime integer not null,
	size integer not null,
	checksum text not null,
	is_primary integer not null,
	primary key (artifact, source)
);
create table if not exists dirty_sources (
	source text primary key
);
create table if not exists source_infos (
	source_path text not null,
	alt text not null default '',
	filename text not null,
	type text not null,
	title_i18n text not null default '{}',
	primary key (source_path, alt)
);
`

// SQLiteStore is the built-in Store implementation, a single-file
// database at .lektor/buildstate as recommended by spec.md §6.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite-backed build state store
// at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("open build state database: %w", err)
	}
	// SQLite serializes writers; the engine itself is single-threaded per
	// build (spec.md §5), so one connection is sufficient and keeps
	// "which connection is the artifact's transaction on" unambiguous.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create build state schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) IterArtifactDependencies(ctx context.Context, artifact string) ([]DependencyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		select source, mtime, size, checksum, is_primary
		from artifacts where artifact = ?`, artifact)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DependencyRow
	for rows.Next() {
		var r DependencyRow
		var isPrimary int
		if err := rows.Scan(&r.Source, &r.Mtime, &r.Size, &r.Checksum, &isPrimary); err != nil {
			return nil, err
		}
		r.IsPrimary = isPrimary != 0
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) PrimarySources(ctx context.Context, artifact string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select source from artifacts where artifact = ? and is_primary = 1`, artifact)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		result = append(result, source)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) RemoveArtifact(ctx context.Context, artifact string) error {
	_, err := s.db.ExecContext(ctx, `delete from artifacts where artifact = ?`, artifact)
	return err
}

func (s *SQLiteStore) AnySourcesAreDirty(ctx context.Context, sources []string) (bool, error) {
	if len(sources) == 0 {
		return false, nil
	}
	placeholders := strings.Repeat("?,", len(sources))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(sources))
	for i, s := range sources {
		args[i] = s
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(
		`select count(*) from dirty_sources where source in (%s)`, placeholders), args...)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) MarkSourcesDirty(ctx context.Context, sources []string) error {
	if len(sources) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `insert or replace into dirty_sources (source) values (?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, src := range sources {
		if _, err := stmt.ExecContext(ctx, src); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetSourceInfo(ctx context.Context, sourcePath string) (SourceInfo, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		select source_path, alt, filename, type, title_i18n
		from source_infos where source_path = ? limit 1`, sourcePath)
	var info SourceInfo
	var titleI18n string
	if err := row.Scan(&info.SourcePath, &info.Alt, &info.Filename, &info.Type, &titleI18n); err != nil {
		if err == sql.ErrNoRows {
			return SourceInfo{}, false, nil
		}
		return SourceInfo{}, false, err
	}
	if titleI18n != "" && titleI18n != "{}" {
		if err := json.Unmarshal([]byte(titleI18n), &info.TitleI18n); err != nil {
			return SourceInfo{}, false, fmt.Errorf("decode title_i18n for %q: %w", sourcePath, err)
		}
	}
	return info, true, nil
}

func (s *SQLiteStore) SaveSourceInfo(ctx context.Context, info SourceInfo) error {
	titleI18n := "{}"
	if len(info.TitleI18n) > 0 {
		b, err := json.Marshal(info.TitleI18n)
		if err != nil {
			return fmt.Errorf("encode title_i18n for %q: %w", info.SourcePath, err)
		}
		titleI18n = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
		insert or replace into source_infos (source_path, alt, filename, type, title_i18n)
		values (?, ?, ?, ?, ?)`, info.SourcePath, info.Alt, info.Filename, info.Type, titleI18n)
	return err
}

func (s *SQLiteStore) IterSourceInfoPaths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select distinct source_path from source_infos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func (s *SQLiteStore) DeleteSourceInfo(ctx context.Context, sourcePath string) error {
	_, err := s.db.ExecContext(ctx, `delete from source_infos where source_path = ?`, sourcePath)
	return err
}

func (s *SQLiteStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, ctx: ctx}, nil
}

type sqliteTx struct {
	tx  *sql.Tx
	ctx context.Context
}

func (t *sqliteTx) ReplaceArtifactRows(artifact string, rows []DependencyRow) error {
	if _, err := t.tx.ExecContext(t.ctx, `delete from artifacts where artifact = ?`, artifact); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(t.ctx, `
		insert into artifacts (artifact, source, mtime, size, checksum, is_primary)
		values (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		isPrimary := 0
		if r.IsPrimary {
			isPrimary = 1
		}
		if _, err := stmt.ExecContext(t.ctx, artifact, r.Source, r.Mtime, r.Size, r.Checksum, isPrimary); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqliteTx) ClearDirty(sources []string) error {
	if len(sources) == 0 {
		return nil
	}
	placeholders := strings.Repeat("?,", len(sources))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]interface{}, len(sources))
	for i, s := range sources {
		args[i] = s
	}
	_, err := t.tx.ExecContext(t.ctx, fmt.Sprintf(
		`delete from dirty_sources where source in (%s)`, placeholders), args...)
	return err
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

var _ Store = (*SQLiteStore)(nil)
