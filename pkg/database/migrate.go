package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

type MigrationResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

func newMigrator(databaseURL string, migrationsFS fs.FS) (*migrate.Migrate, error) {
	d, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending up migrations, or rolls back one step when down is set.
func RunMigrations(databaseURL string, migrationsFS fs.FS, down bool) (*MigrationResult, error) {
	m, err := newMigrator(databaseURL, migrationsFS)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	if down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}

	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
	} else if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("read migration version: %w", verr)
	}

	return &MigrationResult{Version: version, Dirty: dirty, Changed: changed}, nil
}
