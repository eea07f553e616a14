package db

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migration applies all pending migrations from migratePath to the database
// at dbStr. An already up-to-date schema is not an error.
func Migration(dbStr, migratePath string) error {
	if dbStr == "" {
		return errors.New("empty database connection string")
	}
	if migratePath == "" {
		return errors.New("empty migrations path")
	}

	m, err := migrate.New("file://"+migratePath, dbStr)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
