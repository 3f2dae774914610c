package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var sqlFS embed.FS

func newMigrate(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migrations: init migrate instance: %w", err)
	}
	return m, nil
}

// Up applies all pending migrations. Calling it on an up-to-date schema is a no-op.
func Up(databaseURL string, log *zerolog.Logger) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	var current uint
	if v, dirty, verr := m.Version(); verr == nil {
		current = v
		if dirty {
			return fmt.Errorf("migrations: schema version %d is dirty", v)
		}
	} else if !errors.Is(verr, migrate.ErrNilVersion) {
		return fmt.Errorf("migrations: read version: %w", verr)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Uint("version", current).Msg("database schema up to date")
			return nil
		}
		return fmt.Errorf("migrations: apply: %w", err)
	}
	if v, _, err := m.Version(); err == nil {
		log.Info().Uint("from", current).Uint("to", v).Msg("database migrations applied")
	}
	return nil
}

// Down rolls every migration back. Used by integration tests and local resets.
func Down(databaseURL string) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: down: %w", err)
	}
	return nil
}
