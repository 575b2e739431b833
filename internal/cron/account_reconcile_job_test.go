package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
)

type stubRefresher struct {
	stale        []models.AccountRecord
	syncedBefore time.Time
	limit        int
	remote       map[string]enums.AccountStatus
	failing      map[string]bool
	refreshed    []string
}

func (s *stubRefresher) ListStale(_ context.Context, syncedBefore time.Time, limit int) ([]models.AccountRecord, error) {
	s.syncedBefore, s.limit = syncedBefore, limit
	return s.stale, nil
}

func (s *stubRefresher) Refresh(_ context.Context, record models.AccountRecord) (*models.AccountRecord, error) {
	s.refreshed = append(s.refreshed, record.AccountCode)
	if s.failing[record.AccountCode] {
		return nil, errors.New("gateway down")
	}
	record.Status = s.remote[record.AccountCode]
	return &record, nil
}

type resultCounter map[string]int

func (c resultCounter) IncAccount(result string) { c[result]++ }

func TestAccountReconcileJobRefreshesStaleRecords(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accounts := &stubRefresher{
		stale: []models.AccountRecord{
			{AccountCode: "user-1", Status: enums.AccountStatusActive},
			{AccountCode: "user-2", Status: enums.AccountStatusActive},
			{AccountCode: "user-3", Status: enums.AccountStatusActive},
		},
		remote: map[string]enums.AccountStatus{
			"user-1": enums.AccountStatusActive,
			"user-2": enums.AccountStatusClosed,
		},
		failing: map[string]bool{"user-3": true},
	}
	counts := resultCounter{}
	job, err := NewAccountReconcileJob(AccountReconcileJobParams{
		Logger:     quietLogger(),
		Accounts:   accounts,
		Metrics:    counts,
		BatchSize:  50,
		StaleAfter: 12 * time.Hour,
		Now:        func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	err = job.Run(context.Background())
	if err == nil {
		t.Fatal("expected the failed refresh to surface")
	}
	if len(accounts.refreshed) != 3 {
		t.Fatalf("a failure must not stop the batch, refreshed %v", accounts.refreshed)
	}
	if !accounts.syncedBefore.Equal(now.Add(-12*time.Hour)) || accounts.limit != 50 {
		t.Fatalf("unexpected window %s limit %d", accounts.syncedBefore, accounts.limit)
	}
	if counts["unchanged"] != 1 || counts["closed"] != 1 || counts["failed"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestAccountReconcileJobDefaults(t *testing.T) {
	accounts := &stubRefresher{}
	job, err := NewAccountReconcileJob(AccountReconcileJobParams{Logger: quietLogger(), Accounts: accounts})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("empty batch should succeed: %v", err)
	}
	if accounts.limit != defaultReconcileBatch {
		t.Fatalf("expected default batch, got %d", accounts.limit)
	}
	if job.Name() != "account-reconcile" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}
