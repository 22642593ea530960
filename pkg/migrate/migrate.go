package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chainvault/chainvault/pkg/config"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// Migrator handles database migrations
type Migrator struct {
	db            *sql.DB
	migrationsFS  fs.FS
	migrationsDir string
}

// NewMigrator creates a new migration runner
func NewMigrator(cfg *config.DatabaseConfig, migrationsFS fs.FS, migrationsDir string) (*Migrator, error) {
	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Migrator{
		db:            db,
		migrationsFS:  migrationsFS,
		migrationsDir: migrationsDir,
	}, nil
}

// Close closes the database connection
func (m *Migrator) Close() error {
	return m.db.Close()
}

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

// EnsureMigrationsTable creates the migrations tracking table if it doesn't exist
func (m *Migrator) EnsureMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`

	if _, err := m.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns the applied migration versions in order
func (m *Migrator) GetAppliedMigrations() ([]int, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// LoadMigrations loads all migration files from the filesystem
func (m *Migrator) LoadMigrations() ([]*Migration, error) {
	entries, err := fs.ReadDir(m.migrationsFS, m.migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []*Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		migration, err := m.parseMigrationFile(entry.Name())
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping invalid migration file")
			continue
		}
		migrations = append(migrations, migration)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// parseMigrationFile extracts version, name, and up/down SQL from a file
// named like "001_initial_schema.sql"
func (m *Migrator) parseMigrationFile(filename string) (*Migration, error) {
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid migration filename format: %s", filename)
	}

	var version int
	if _, err := fmt.Sscanf(parts[0], "%d", &version); err != nil {
		return nil, fmt.Errorf("failed to parse version from filename %s: %w", filename, err)
	}

	name := strings.TrimSuffix(strings.Join(parts[1:], "_"), ".sql")

	content, err := fs.ReadFile(m.migrationsFS, filepath.Join(m.migrationsDir, filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file %s: %w", filename, err)
	}

	upSQL, downSQL := splitMigration(string(content))

	return &Migration{
		Version: version,
		Name:    name,
		UpSQL:   upSQL,
		DownSQL: downSQL,
	}, nil
}

// splitMigration separates content on "-- +migrate Up" / "-- +migrate Down" markers
func splitMigration(content string) (string, string) {
	lines := strings.Split(content, "\n")
	var upLines, downLines []string
	var inDown bool

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "-- +migrate Up" {
			inDown = false
			continue
		}
		if trimmed == "-- +migrate Down" {
			inDown = true
			continue
		}

		if inDown {
			downLines = append(downLines, line)
		} else {
			upLines = append(upLines, line)
		}
	}

	return strings.Join(upLines, "\n"), strings.Join(downLines, "\n")
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	if err := m.EnsureMigrationsTable(); err != nil {
		return err
	}

	appliedVersions, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}

	applied := make(map[int]bool)
	for _, version := range appliedVersions {
		applied[version] = true
	}

	var pending []*Migration
	for _, migration := range migrations {
		if !applied[migration.Version] {
			pending = append(pending, migration)
		}
	}

	if len(pending) == 0 {
		log.Info().Msg("no pending migrations")
		return nil
	}

	for _, migration := range pending {
		if err := m.apply(migration.UpSQL,
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)",
			migration.Version, migration.Name); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("applied migration")
	}

	return nil
}

// Down rolls back the most recently applied migration
func (m *Migrator) Down() error {
	if err := m.EnsureMigrationsTable(); err != nil {
		return err
	}

	appliedVersions, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}
	if len(appliedVersions) == 0 {
		log.Info().Msg("no migrations to roll back")
		return nil
	}
	last := appliedVersions[len(appliedVersions)-1]

	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version != last {
			continue
		}
		if err := m.apply(migration.DownSQL,
			"DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
			return fmt.Errorf("failed to roll back migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("rolled back migration")
		return nil
	}

	return fmt.Errorf("migration %d not found in migrations directory", last)
}

// apply runs migration SQL and its bookkeeping statement in one transaction
func (m *Migrator) apply(migrationSQL, bookkeepingSQL string, args ...interface{}) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if strings.TrimSpace(migrationSQL) != "" {
		if _, err := tx.Exec(migrationSQL); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	if _, err := tx.Exec(bookkeepingSQL, args...); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
