package statute

import (
	"embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationStatus reports the schema version after a migration command
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate applies a migration command to the database at databaseURL.
// Commands: up, down, version, force:<n>.
func Migrate(databaseURL, command string) (MigrationStatus, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	status := MigrationStatus{Changed: true}
	switch {
	case command == "up":
		err = m.Up()
	case command == "down":
		err = m.Down()
	case command == "version":
		status.Changed = false
	case len(command) > len("force:") && command[:len("force:")] == "force:":
		var v int
		v, err = strconv.Atoi(command[len("force:"):])
		if err != nil {
			return MigrationStatus{}, fmt.Errorf("invalid force version %q: %w", command, err)
		}
		err = m.Force(v)
	default:
		return MigrationStatus{}, fmt.Errorf("unknown migration command: %s (use up, down, version or force:<n>)", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		status.Changed = false
		err = nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("migration %s failed: %w", command, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, fmt.Errorf("failed to read version: %w", err)
	}
	status.Version = version
	status.Dirty = dirty
	return status, nil
}
