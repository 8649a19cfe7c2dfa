package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/reconcile"
	"bankapi/internal/infrastructure/storage"
	"bankapi/internal/interfaces/scheduler"
	"bankapi/internal/shared/config"
	"bankapi/internal/shared/logger"
	"bankapi/internal/shared/validation"
)

const usage = `Bank Admin CLI - Management commands for the bank API

Usage:
  admin <command> [options]

Commands:
  migrate     Create the tables and indexes the API needs
  seed        Create the demo accounts when the store is empty
  reconcile   Verify balance == opening balance + logged movements

Examples:
  # Prepare a fresh database
  admin migrate

  # Check a single account
  admin reconcile --account-id=1

  # Check several accounts
  admin reconcile --account-id=1,2,3

  # Check every account with more workers and a timeout
  admin reconcile --all --workers=8 --timeout=5m
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)
	defer log.Sync()

	command := os.Args[1]

	switch command {
	case "migrate":
		err = runMigrate(cfg, log)
	case "seed":
		err = runSeed(cfg, log)
	case "reconcile":
		var drift bool
		drift, err = runReconcile(os.Args[2:], cfg, log, os.Stdout)
		if err == nil && drift {
			log.Sync()
			os.Exit(2)
		}
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		log.Error("command failed", zap.String("command", command), zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func runMigrate(cfg *config.Config, log *zap.Logger) error {
	// Opening the store ensures the schema.
	stores, err := storage.Open(context.Background(), cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	log.Info("schema is up to date", zap.String("driver", stores.Driver))
	return nil
}

func runSeed(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()
	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	svc := account.NewService(stores.Accounts, stores.Sequences, validation.New())
	n, err := svc.SeedIfEmpty(ctx, account.DemoAccounts())
	if err != nil {
		return err
	}
	log.Info("seed finished", zap.Int("created", n))
	return nil
}

// runReconcile reports whether any account drifted.
func runReconcile(args []string, cfg *config.Config, log *zap.Logger, out io.Writer) (bool, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(out)

	accountIDStr := fs.String("account-id", "", "Account ID(s) to check (comma-separated for multiple)")
	allAccounts := fs.Bool("all", false, "Check all accounts")
	workers := fs.Int("workers", cfg.Reconcile.Workers, "Number of concurrent workers")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: admin reconcile [options]")
		fmt.Fprintln(out, "\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return false, err
	}
	if *accountIDStr == "" && !*allAccounts {
		fs.Usage()
		return false, fmt.Errorf("must specify --account-id or --all")
	}
	if *workers < 1 {
		return false, fmt.Errorf("--workers must be at least 1")
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		return false, fmt.Errorf("invalid timeout format: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return false, err
	}
	defer stores.Close()

	return reconcileAccounts(ctx, stores, *accountIDStr, *allAccounts, *workers, cfg.Reconcile.QueueSize, log, out)
}

func reconcileAccounts(ctx context.Context, stores *storage.Stores, idList string, all bool, workers, queueSize int, log *zap.Logger, out io.Writer) (bool, error) {
	svc := reconcile.NewService(stores.Accounts, stores.Transactions)

	var ids []int64
	if all {
		var err error
		ids, err = svc.AccountIDs(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to list accounts: %w", err)
		}
	} else {
		parsed, err := parseIDs(idList)
		if err != nil {
			return false, err
		}
		ids = parsed
	}

	if len(ids) == 0 {
		log.Info("no accounts to reconcile")
		return false, nil
	}

	log.Info("starting reconcile", zap.Int("accounts", len(ids)), zap.Int("workers", workers))
	start := time.Now()

	report := scheduler.RunReconcile(ctx, svc, ids, workers, queueSize, log)
	printReport(out, report)

	log.Info("reconcile completed", zap.Duration("elapsed", time.Since(start)))
	return len(report.Drifted()) > 0, nil
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid account ID '%s': %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printReport(out io.Writer, report *reconcile.Report) {
	drifted := report.Drifted()
	errs := report.Errors()

	fmt.Fprintf(out, "\n=== Reconcile ===\n")
	fmt.Fprintf(out, "  Accounts checked:  %d\n", report.Checked())
	fmt.Fprintf(out, "  Accounts drifted:  %d\n", len(drifted))

	for _, r := range drifted {
		fmt.Fprintf(out, "    - account %d (%s): balance %s, expected %s, drift %s over %d transactions\n",
			r.AccountID, r.Status, r.Balance.StringFixed(2), r.Expected.StringFixed(2), r.Drift.StringFixed(2), r.Transactions)
	}

	if len(errs) > 0 {
		fmt.Fprintf(out, "  Errors:            %d\n", len(errs))
		i := 0
		for id, e := range errs {
			if i >= 5 {
				fmt.Fprintf(out, "    ... and %d more errors\n", len(errs)-5)
				break
			}
			fmt.Fprintf(out, "    - account %d: %s\n", id, e)
			i++
		}
	}
}
