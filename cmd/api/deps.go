package main

import (
	"context"

	"go.uber.org/zap"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/interest"
	"bankapi/internal/domain/ledger"
	"bankapi/internal/domain/reconcile"
	"bankapi/internal/domain/statement"
	"bankapi/internal/infrastructure/pdf"
	"bankapi/internal/infrastructure/storage"
	httphandlers "bankapi/internal/interfaces/http"
	"bankapi/internal/interfaces/scheduler"
	"bankapi/internal/shared/config"
	"bankapi/internal/shared/validation"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	Stores *storage.Stores

	// Services
	AccountService *account.Service

	// Handlers
	AccountHandler     *httphandlers.AccountHandler
	TransactionHandler *httphandlers.TransactionHandler
	ReportHandler      *httphandlers.ReportHandler
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Dependencies, error) {
	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return wire(stores, cfg, log), nil
}

// wire builds services and handlers over an opened backend.
func wire(stores *storage.Stores, cfg *config.Config, log *zap.Logger) *Dependencies {
	accountService := account.NewService(stores.Accounts, stores.Sequences, validation.New())
	ledgerService := ledger.NewService(stores.Ledger, stores.Accounts, stores.Transactions)
	statementService := statement.NewService(stores.Accounts, stores.Transactions)
	interestService := interest.NewService(stores.Accounts)

	return &Dependencies{
		Stores:             stores,
		AccountService:     accountService,
		AccountHandler:     httphandlers.NewAccountHandler(accountService, log),
		TransactionHandler: httphandlers.NewTransactionHandler(ledgerService, log),
		ReportHandler:      httphandlers.NewReportHandler(statementService, interestService, pdf.NewRenderer(cfg.Bank.Name), log),
	}
}

// SeedDemoAccounts creates the demo accounts when the store is empty.
func (d *Dependencies) SeedDemoAccounts(ctx context.Context, log *zap.Logger) error {
	n, err := d.AccountService.SeedIfEmpty(ctx, account.DemoAccounts())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("seeded demo accounts", zap.Int("count", n))
	}
	return nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Stores != nil {
		d.Stores.Close()
	}
}

// StartReconcileScheduler runs the reconcile check at the configured times
// of day. It returns nil when no schedule is configured.
func (d *Dependencies) StartReconcileScheduler(cfg *config.Config, log *zap.Logger) (*scheduler.Scheduler, error) {
	if len(cfg.Reconcile.Schedule) == 0 {
		return nil, nil
	}

	svc := reconcile.NewService(d.Stores.Accounts, d.Stores.Transactions)
	jobs := scheduler.ReconcileJobProvider(svc, log, func(report *reconcile.Report) {
		log.Info("scheduled reconcile finished",
			zap.Int("checked", report.Checked()),
			zap.Int("drifted", len(report.Drifted())),
			zap.Int("errors", len(report.Errors())),
		)
	})
	pool := scheduler.NewWorkerPool(cfg.Reconcile.Workers, 0, cfg.Reconcile.QueueSize, log)

	sched, err := scheduler.NewScheduler(cfg.Reconcile.Schedule, pool, jobs, cfg.Reconcile.RunOnStartup, log)
	if err != nil {
		return nil, err
	}
	sched.Start()
	return sched, nil
}
