// Package store opens the configured database and exposes its repositories.
package store

import (
	"database/sql"
	"fmt"

	"marketchat/internal/config"
	"marketchat/internal/domain"
	"marketchat/internal/store/postgres"
	"marketchat/internal/store/sqlite"
)

// Repositories bundles the repositories backed by one database handle.
type Repositories struct {
	DB            *sql.DB
	Users         domain.UserRepository
	Products      domain.ProductRepository
	Conversations domain.ConversationRepository
	Messages      domain.MessageRepository
}

// Close releases the underlying database handle.
func (r *Repositories) Close() error {
	return r.DB.Close()
}

// Open connects to the database selected by cfg.DBDriver and, when
// migrate is true, applies the schema.
func Open(cfg *config.Config, migrate bool) (*Repositories, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := sqlite.Migrate(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &Repositories{
			DB:            db,
			Users:         sqlite.NewUserRepo(db),
			Products:      sqlite.NewProductRepo(db),
			Conversations: sqlite.NewConversationRepo(db),
			Messages:      sqlite.NewMessageRepo(db),
		}, nil

	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := postgres.Migrate(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &Repositories{
			DB:            db,
			Users:         postgres.NewUserRepo(db),
			Products:      postgres.NewProductRepo(db),
			Conversations: postgres.NewConversationRepo(db),
			Messages:      postgres.NewMessageRepo(db),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}
