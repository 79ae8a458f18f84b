package database

import (
    "database/sql"
    "embed"
    "fmt"

    "github.com/golang-migrate/migrate/v4"
    migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
    "github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations on the given connection.
// Migrations are embedded in the binary, so a deployed server never needs
// the source tree to bring its schema up to date.  Already being at the
// latest version is not an error.
func Migrate(db *sql.DB) error {
    source, err := iofs.New(migrationsFS, "migrations")
    if err != nil {
        return fmt.Errorf("open migration source: %w", err)
    }
    driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
    if err != nil {
        return fmt.Errorf("init migration driver: %w", err)
    }
    m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
    if err != nil {
        return fmt.Errorf("create migrator: %w", err)
    }
    if err := m.Up(); err != nil && err != migrate.ErrNoChange {
        return fmt.Errorf("apply migrations: %w", err)
    }
    return nil
}
