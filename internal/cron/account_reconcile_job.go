package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
)

const (
	defaultReconcileBatch      = 250
	defaultReconcileStaleAfter = 24 * time.Hour
)

type accountRefresher interface {
	ListStale(ctx context.Context, syncedBefore time.Time, limit int) ([]models.AccountRecord, error)
	Refresh(ctx context.Context, record models.AccountRecord) (*models.AccountRecord, error)
}

type reconcileRecorder interface {
	IncAccount(result string)
}

// AccountReconcileJobParams configures the account reconciliation job.
type AccountReconcileJobParams struct {
	Logger     *logger.Logger
	Accounts   accountRefresher
	Metrics    reconcileRecorder
	BatchSize  int
	StaleAfter time.Duration
	Now        func() time.Time
}

// NewAccountReconcileJob builds the job that re-reads stale account records from the gateway.
func NewAccountReconcileJob(params AccountReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultReconcileStaleAfter
	}
	return &accountReconcileJob{
		logg:       params.Logger,
		accounts:   params.Accounts,
		metrics:    params.Metrics,
		batch:      batch,
		staleAfter: staleAfter,
		now:        now,
	}, nil
}

type accountReconcileJob struct {
	logg       *logger.Logger
	accounts   accountRefresher
	metrics    reconcileRecorder
	batch      int
	staleAfter time.Duration
	now        func() time.Time
}

func (j *accountReconcileJob) Name() string { return "account-reconcile" }

func (j *accountReconcileJob) Run(ctx context.Context) error {
	records, err := j.accounts.ListStale(ctx, j.now().Add(-j.staleAfter), j.batch)
	if err != nil {
		return err
	}

	var errs error
	counts := map[string]int{}
	for _, record := range records {
		result, err := j.reconcile(ctx, record)
		counts[result]++
		j.record(result)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("account %s: %w", record.AccountCode, err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"candidates": len(records),
		"unchanged":  counts["unchanged"],
		"closed":     counts["closed"],
		"failed":     counts["failed"],
	}), "cron.account_reconcile.complete")
	return errs
}

func (j *accountReconcileJob) reconcile(ctx context.Context, record models.AccountRecord) (string, error) {
	refreshed, err := j.accounts.Refresh(ctx, record)
	if err != nil {
		return "failed", err
	}
	if refreshed.IsClosed() && !record.IsClosed() {
		return "closed", nil
	}
	return "unchanged", nil
}

func (j *accountReconcileJob) record(result string) {
	if j.metrics != nil {
		j.metrics.IncAccount(result)
	}
}
