package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	dialect = "postgres"
	// NoLimit applies every pending migration in the chosen direction.
	NoLimit = 0
)

// MigrationStatus reports whether one embedded migration has been applied.
type MigrationStatus struct {
	ID      string
	Applied bool
}

func migrationSource() *migrate.EmbedFileSystemMigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

func openDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, dbError("open", err)
	}
	return db, nil
}

// MigrateUp applies pending migrations and returns how many ran.
func MigrateUp(dsn string) (int, error) {
	return runMigrations(dsn, migrate.Up, NoLimit)
}

// MigrateDown reverts the last max migrations, or all of them when max is NoLimit.
func MigrateDown(dsn string, max int) (int, error) {
	return runMigrations(dsn, migrate.Down, max)
}

func runMigrations(dsn string, dir migrate.MigrationDirection, max int) (int, error) {
	db, err := openDB(dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	n, err := migrate.ExecMax(db, dialect, migrationSource(), dir, max)
	if err != nil {
		return n, fmt.Errorf("execute migrations (max %d): %w", max, err)
	}
	return n, nil
}

// Status lists embedded migrations in order with their applied state.
func Status(dsn string) ([]MigrationStatus, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	migrations, err := migrationSource().FindMigrations()
	if err != nil {
		return nil, fmt.Errorf("find migrations: %w", err)
	}
	records, err := migrate.GetMigrationRecords(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("read migration records: %w", err)
	}

	applied := make(map[string]struct{}, len(records))
	for _, record := range records {
		applied[record.Id] = struct{}{}
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		_, ok := applied[m.Id]
		out = append(out, MigrationStatus{ID: m.Id, Applied: ok})
	}
	return out, nil
}
