// Package storage opens the configured backend and exposes its
// repositories behind the domain interfaces.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/ledger"
	"bankapi/internal/domain/sequence"
	"bankapi/internal/domain/transaction"
	"bankapi/internal/infrastructure/badgerstore"
	"bankapi/internal/infrastructure/postgres"
	"bankapi/internal/shared/config"
)

// Stores bundles the repositories of one backend. Close releases the
// underlying handle.
type Stores struct {
	Driver       string
	Accounts     account.Repository
	Transactions transaction.Repository
	Ledger       ledger.Store
	Sequences    sequence.Generator
	Close        func() error
}

// Open connects to the backend selected by cfg.Store.Driver and makes sure
// its schema exists.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.ConnectionString(), postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.Info("connected to database",
			zap.String("driver", cfg.Store.Driver),
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.DBName),
		)
		return &Stores{
			Driver:       cfg.Store.Driver,
			Accounts:     postgres.NewAccountRepository(db),
			Transactions: postgres.NewTransactionRepository(db),
			Ledger:       postgres.NewLedgerStore(db),
			Sequences:    postgres.NewSequenceRepository(db),
			Close:        db.Close,
		}, nil

	case config.DriverBadger:
		db, err := badgerstore.Open(cfg.Store.BadgerPath)
		if err != nil {
			return nil, err
		}
		log.Info("opened embedded store",
			zap.String("driver", cfg.Store.Driver),
			zap.String("path", cfg.Store.BadgerPath),
		)
		return badgerStores(db), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenInMemory returns an ephemeral Badger backend.
func OpenInMemory() (*Stores, error) {
	db, err := badgerstore.OpenInMemory()
	if err != nil {
		return nil, err
	}
	return badgerStores(db), nil
}

func badgerStores(db *badgerstore.DB) *Stores {
	return &Stores{
		Driver:       config.DriverBadger,
		Accounts:     badgerstore.NewAccountRepository(db),
		Transactions: badgerstore.NewTransactionRepository(db),
		Ledger:       badgerstore.NewLedgerStore(db),
		Sequences:    badgerstore.NewSequenceRepository(db),
		Close:        db.Close,
	}
}
