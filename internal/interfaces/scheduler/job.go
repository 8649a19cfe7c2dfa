package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"bankapi/internal/domain/reconcile"
)

// Job is a unit of work executed by the worker pool.
type Job interface {
	// Execute runs the job. It must respect ctx cancellation.
	Execute(ctx context.Context) error

	// Key identifies the record the job works on, for logs and traces.
	Key() string

	Description() string
}

// ReconcileJob checks one account and records the outcome in a report.
type ReconcileJob struct {
	accountID int64
	service   *reconcile.Service
	report    *reconcile.Report
	log       *zap.Logger
}

// NewReconcileJob creates a reconcile job for an account
func NewReconcileJob(accountID int64, service *reconcile.Service, report *reconcile.Report, log *zap.Logger) *ReconcileJob {
	return &ReconcileJob{
		accountID: accountID,
		service:   service,
		report:    report,
		log:       log,
	}
}

// Execute runs the check. Drift is a finding, not a job failure.
func (j *ReconcileJob) Execute(ctx context.Context) error {
	res, err := j.service.CheckAccount(ctx, j.accountID)
	if err != nil {
		j.report.Fail(j.accountID, err)
		return fmt.Errorf("reconcile failed: %w", err)
	}
	j.report.Add(res)

	if !res.Consistent() {
		j.log.Warn("balance drift detected",
			zap.Int64("account_id", res.AccountID),
			zap.String("balance", res.Balance.String()),
			zap.String("expected", res.Expected.String()),
			zap.String("drift", res.Drift.String()),
		)
	}
	return nil
}

func (j *ReconcileJob) Key() string {
	return strconv.FormatInt(j.accountID, 10)
}

func (j *ReconcileJob) Description() string {
	return fmt.Sprintf("Reconcile account %d", j.accountID)
}

// RunReconcile checks every account in ids on a pool of workers and
// returns the collected report once all checks have finished.
func RunReconcile(ctx context.Context, service *reconcile.Service, ids []int64, workers, queueSize int, log *zap.Logger) *reconcile.Report {
	report := reconcile.NewReport()

	pool := NewWorkerPool(workers, 0, queueSize, log)
	pool.Start()

	jobs := make([]Job, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, NewReconcileJob(id, service, report, log))
	}
	pool.SubmitBatch(ctx, jobs)
	pool.Shutdown()

	return report
}

// ReconcileJobProvider returns a job provider that checks every account
// into a fresh report per run. onDone, if set, receives that report once
// the last job of the run has finished.
func ReconcileJobProvider(service *reconcile.Service, log *zap.Logger, onDone func(*reconcile.Report)) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		ids, err := service.AccountIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}

		report := reconcile.NewReport()
		remaining := int64(len(ids))
		var finished func()
		if onDone != nil {
			var mu sync.Mutex
			finished = func() {
				mu.Lock()
				defer mu.Unlock()
				remaining--
				if remaining == 0 {
					onDone(report)
				}
			}
		}

		jobs := make([]Job, 0, len(ids))
		for _, id := range ids {
			jobs = append(jobs, &trackedJob{Job: NewReconcileJob(id, service, report, log), done: finished})
		}
		return jobs, nil
	}
}

type trackedJob struct {
	Job
	done func()
}

func (j *trackedJob) Execute(ctx context.Context) error {
	if j.done != nil {
		defer j.done()
	}
	return j.Job.Execute(ctx)
}
