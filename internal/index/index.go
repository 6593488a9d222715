// Package index persists the glossary in SQLite so lookups do not need to
// re-read the vault.
package index

import (
	"database/sql"
	"embed"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/morozRed/deflink/internal/definition"
)

const FileName = "glossary.db"

type DB struct {
	Conn *sqlx.DB
}

// aliasRow is one alias of one stored definition.
type aliasRow struct {
	ID       int64  `db:"id"`
	SourceID string `db:"source_id"`
	Heading  string `db:"heading"`
	Alias    string `db:"alias"`
}

// Open opens or creates the index database at dbPath.
func Open(dbPath string) (*DB, error) {
	conn, err := sqlx.Connect("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open glossary index")
	}

	db := &DB{Conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to set up glossary index")
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.Conn.Close()
}

//go:embed migrations/*.sql
var embedMigrations embed.FS

var migrateMu sync.Mutex

// migrate brings the schema up to date. goose keeps its settings in
// package globals, so runs are serialized.
func (db *DB) migrate() error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "failed to set migration dialect")
	}
	return errors.Wrap(goose.Up(db.Conn.DB, "migrations"), "failed to run migrations")
}

// WithTx runs fn in a transaction, committing when it returns nil.
func (db *DB) WithTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Conn.Beginx()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Replace swaps the stored glossary for definitions in one transaction.
func (db *DB) Replace(definitions []definition.Definition) error {
	return db.WithTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`DELETE FROM aliases`); err != nil {
			return errors.Wrap(err, "failed to clear aliases")
		}
		if _, err := tx.Exec(`DELETE FROM definitions`); err != nil {
			return errors.Wrap(err, "failed to clear definitions")
		}

		insertDef, err := tx.Prepare(`INSERT INTO definitions (source_id, heading, position) VALUES (?, ?, ?)`)
		if err != nil {
			return errors.Wrap(err, "failed to prepare definition insert")
		}
		defer insertDef.Close()
		insertAlias, err := tx.Prepare(`INSERT INTO aliases (definition_id, alias, position) VALUES (?, ?, ?)`)
		if err != nil {
			return errors.Wrap(err, "failed to prepare alias insert")
		}
		defer insertAlias.Close()

		for i, def := range definitions {
			res, err := insertDef.Exec(def.SourceID, def.Heading, i)
			if err != nil {
				return errors.Wrapf(err, "failed to insert definition %s", def.Anchor())
			}
			id, err := res.LastInsertId()
			if err != nil {
				return errors.Wrap(err, "failed to read definition id")
			}
			for j, alias := range def.Aliases {
				if _, err := insertAlias.Exec(id, alias, j); err != nil {
					return errors.Wrapf(err, "failed to insert alias %q", alias)
				}
			}
		}

		_, err = tx.Exec(`INSERT INTO meta (key, value) VALUES ('refreshed_at', ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, time.Now().UTC().Format(time.RFC3339))
		return errors.Wrap(err, "failed to record refresh time")
	})
}

// Definitions returns the stored glossary in its original order.
func (db *DB) Definitions() ([]definition.Definition, error) {
	return db.queryDefinitions(`
		SELECT d.id, d.source_id, d.heading, a.alias
		FROM definitions d
		JOIN aliases a ON a.definition_id = d.id
		ORDER BY d.position, a.position`)
}

// Lookup returns every definition declaring alias, ignoring case.
func (db *DB) Lookup(alias string) ([]definition.Definition, error) {
	return db.queryDefinitions(`
		SELECT d.id, d.source_id, d.heading, a.alias
		FROM definitions d
		JOIN aliases a ON a.definition_id = d.id
		WHERE d.id IN (SELECT definition_id FROM aliases WHERE alias = ? COLLATE NOCASE)
		ORDER BY d.position, a.position`, alias)
}

// Sources returns the distinct source ids holding definitions.
func (db *DB) Sources() ([]string, error) {
	var sources []string
	if err := db.Conn.Select(&sources, `SELECT source_id FROM definitions GROUP BY source_id ORDER BY MIN(position)`); err != nil {
		return nil, errors.Wrap(err, "failed to query sources")
	}
	return sources, nil
}

// Count returns the number of stored definitions.
func (db *DB) Count() (int, error) {
	var n int
	if err := db.Conn.Get(&n, `SELECT COUNT(*) FROM definitions`); err != nil {
		return 0, errors.Wrap(err, "failed to count definitions")
	}
	return n, nil
}

// RefreshedAt returns when Replace last ran, or the zero time.
func (db *DB) RefreshedAt() (time.Time, error) {
	var value string
	err := db.Conn.Get(&value, `SELECT value FROM meta WHERE key = 'refreshed_at'`)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, errors.Wrap(err, "failed to read refresh time")
	}
	t, err := time.Parse(time.RFC3339, value)
	return t, errors.Wrap(err, "failed to parse refresh time")
}

func (db *DB) queryDefinitions(query string, args ...interface{}) ([]definition.Definition, error) {
	var rows []aliasRow
	if err := db.Conn.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query definitions")
	}

	var (
		out    []definition.Definition
		lastID int64 = -1
	)
	for _, row := range rows {
		if row.ID != lastID {
			out = append(out, definition.Definition{SourceID: row.SourceID, Heading: row.Heading})
			lastID = row.ID
		}
		last := &out[len(out)-1]
		last.Aliases = append(last.Aliases, row.Alias)
	}
	return out, nil
}
