// Package catalog reads deployed constraint definitions from a PostgreSQL
// system catalog.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres" // github.com/lib/pq
	DriverPgx      = "pgx"      // github.com/jackc/pgx/v5/stdlib
)

// ErrUnsupportedDriver is returned by Open for driver names other than
// DriverPostgres and DriverPgx.
var ErrUnsupportedDriver = errors.New("catalog: unsupported database driver")

// Querier is the minimal interface needed for catalog lookups.
// Implemented by *sql.DB, *sql.Tx, and *sql.Conn.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// constraintDefQuery returns the text PostgreSQL reports for a constraint,
// which is the normalized form a schema diff compares against.
const constraintDefQuery = `
	SELECT pg_get_constraintdef(c.oid)
	FROM pg_constraint c
	JOIN pg_namespace n ON n.oid = c.connamespace
	WHERE n.nspname = $1 AND c.conname = $2
	LIMIT 1
`

// Postgres looks up constraints through a Querier.
type Postgres struct {
	db Querier
}

// NewPostgres creates a catalog over db. The caller owns db and closes it.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// Ping runs a trivial query to confirm the connection works. sql.Open does
// not dial, so this is the first point a bad DSN surfaces.
func (p *Postgres) Ping(ctx context.Context) error {
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}

// ConstraintDef returns the definition of the constraint named name in
// schema. found is false if there is no such constraint.
func (p *Postgres) ConstraintDef(ctx context.Context, schema, name string) (string, bool, error) {
	var def sql.NullString
	err := p.db.QueryRowContext(ctx, constraintDefQuery, schema, name).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying constraint %s.%s: %w", schema, name, err)
	}
	if !def.Valid {
		return "", false, nil
	}
	return def.String, true, nil
}

// Open returns a database handle for dsn using the named driver. The handle
// is limited to a single connection since lookups run one at a time.
// An empty driver selects DriverPostgres.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "":
		driver = DriverPostgres
	case DriverPostgres, DriverPgx:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}
