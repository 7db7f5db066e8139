package postgres

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"

	"github.com/petroflow/petroflow/internal/errs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending schema migrations embedded in the binary.
// Running against an up-to-date schema is a no-op.
func Migrate(databaseURL string) error {
	const op = "postgres.migrate"

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errs.Wrap(errs.KindStorage, op, err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return errs.Wrap(errs.KindStorage, op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug().Msg("schema already up to date")
			return nil
		}
		return errs.Wrap(errs.KindStorage, op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return errs.Wrap(errs.KindStorage, op, err)
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	return nil
}
