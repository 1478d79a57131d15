package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/jackc/pgx/v4/stdlib"  // postgres driver
	_ "modernc.org/sqlite"              // sqlite driver
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Open opens a SQLStore against the backend named by cfg.Backend, applying
// any pending schema migrations before returning. Mirrors the
// migrate-on-open pattern the teacher applies to its own sqldb-backed
// stores: a fresh node and an upgrading node take the same code path.
func Open(cfg Config) (*SQLStore, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return openSQLite(cfg)
	case BackendPostgres:
		return openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func openSQLite(cfg Config) (*SQLStore, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite serializes writers at the file level; a larger pool only
	// produces SQLITE_BUSY contention under our own feet.
	db.SetMaxOpenConns(1)

	// htlcs rows go with their invoice through ON DELETE CASCADE, which
	// sqlite only enforces once foreign keys are switched on.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}

	if err := migrateDB(db, sqliteMigrations, "migrations/sqlite", func(i *sql.DB) (migrate.Driver, error) {
		return sqlite3.WithInstance(i, &sqlite3.Config{})
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStore{backend: BackendSQLite, db: db}, nil
}

func openPostgres(cfg Config) (*SQLStore, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := migrateDB(db, postgresMigrations, "migrations/postgres", func(i *sql.DB) (migrate.Driver, error) {
		return postgres.WithInstance(i, &postgres.Config{})
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStore{backend: BackendPostgres, db: db}, nil
}

func migrateDB(db *sql.DB, fsys embed.FS, root string,
	newDriver func(*sql.DB) (migrate.Driver, error)) error {

	source, err := iofs.New(fsys, root)
	if err != nil {
		return fmt.Errorf("load migration source: %w", err)
	}

	driver, err := newDriver(db)
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "hold", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
