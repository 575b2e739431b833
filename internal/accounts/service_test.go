package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
	"gorm.io/gorm"
)

type stubRepo struct {
	records map[Owner]*models.AccountRecord
	upserts int
	deletes int
	findErr error
}

func newStubRepo(records ...*models.AccountRecord) *stubRepo {
	repo := &stubRepo{records: map[Owner]*models.AccountRecord{}}
	for _, record := range records {
		repo.records[Owner{Type: record.OwnerType, ID: record.OwnerID}] = record
	}
	return repo
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindByOwner(ctx context.Context, owner Owner) (*models.AccountRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.records[owner], nil
}

func (s *stubRepo) FindByAccountCode(ctx context.Context, code string) (*models.AccountRecord, error) {
	for _, record := range s.records {
		if record.AccountCode == code {
			return record, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) Upsert(ctx context.Context, record *models.AccountRecord) error {
	s.upserts++
	for key, existing := range s.records {
		if existing.AccountCode == record.AccountCode {
			delete(s.records, key)
		}
	}
	s.records[Owner{Type: record.OwnerType, ID: record.OwnerID}] = record
	return nil
}

func (s *stubRepo) ListStale(ctx context.Context, syncedBefore time.Time, limit int) ([]models.AccountRecord, error) {
	var out []models.AccountRecord
	for _, record := range s.records {
		if !record.IsClosed() && record.UpdatedAt.Before(syncedBefore) {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (s *stubRepo) DeleteByOwner(ctx context.Context, owner Owner) error {
	s.deletes++
	delete(s.records, owner)
	return nil
}

type stubDirectory struct {
	owners map[string]bool
	emails map[string]int64
}

func (s stubDirectory) OwnerExists(ctx context.Context, ownerType, ownerID string) (bool, error) {
	return s.owners[ownerType+"-"+ownerID], nil
}

func (s stubDirectory) FindUserIDByEmail(ctx context.Context, email string) (int64, bool, error) {
	id, ok := s.emails[email]
	return id, ok, nil
}

type stubGateway struct {
	remote      *recurly.Account
	getErr      error
	updated     []string
	deactivated []string
	updateErr   error
	closeErr    error
}

func (s *stubGateway) GetAccount(ctx context.Context, code string) (*recurly.Account, error) {
	return s.remote, s.getErr
}

func (s *stubGateway) UpdateAccount(ctx context.Context, code string, input recurly.AccountInput) (*recurly.Account, error) {
	s.updated = append(s.updated, code)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &recurly.Account{Code: code, Email: input.Email}, nil
}

func (s *stubGateway) DeactivateAccount(ctx context.Context, code string) error {
	s.deactivated = append(s.deactivated, code)
	return s.closeErr
}

func newTestService(t *testing.T, repo *stubRepo, dir stubDirectory, gw *stubGateway, entityType string) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, Directory: dir, Gateway: gw, EntityType: entityType})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error without repo")
	}
	if _, err := NewService(ServiceParams{Repo: newStubRepo(), Directory: stubDirectory{}, Gateway: &stubGateway{}}); err == nil {
		t.Fatal("expected error without entity type")
	}
}

func TestResolveExistingCodeResaves(t *testing.T) {
	repo := newStubRepo(&models.AccountRecord{OwnerType: "user", OwnerID: "7", AccountCode: "custom-code"})
	svc := newTestService(t, repo, stubDirectory{}, &stubGateway{}, "user")

	record, err := svc.Resolve(context.Background(), recurly.Account{Code: "custom-code", State: "closed"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if record == nil || record.OwnerID != "7" || record.Status != enums.AccountStatusClosed {
		t.Fatalf("unexpected record %+v", record)
	}
	if repo.upserts != 1 {
		t.Fatalf("expected the record to be re-saved, got %d upserts", repo.upserts)
	}
}

func TestResolveParsesOwnerFromCode(t *testing.T) {
	repo := newStubRepo()
	dir := stubDirectory{owners: map[string]bool{"user-42": true}}
	svc := newTestService(t, repo, dir, &stubGateway{}, "user")

	record, err := svc.Resolve(context.Background(), recurly.Account{Code: "user-42"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if record == nil || record.OwnerType != "user" || record.OwnerID != "42" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestResolveRejectsForeignTypeAndNonNumericIDs(t *testing.T) {
	dir := stubDirectory{owners: map[string]bool{"org-42": true, "user-abc": true}}
	svc := newTestService(t, newStubRepo(), dir, &stubGateway{}, "user")

	for _, code := range []string{"org-42", "user-abc", "user-99"} {
		record, err := svc.Resolve(context.Background(), recurly.Account{Code: code})
		if err != nil {
			t.Fatalf("resolve %s: %v", code, err)
		}
		if record != nil {
			t.Fatalf("code %s should not resolve, got %+v", code, record)
		}
	}
}

func TestResolveFallsBackToEmailForUsers(t *testing.T) {
	dir := stubDirectory{emails: map[string]int64{"ada@example.com": 5}}
	svc := newTestService(t, newStubRepo(), dir, &stubGateway{}, "user")

	record, err := svc.Resolve(context.Background(), recurly.Account{Code: "legacy-account", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if record == nil || record.OwnerID != "5" || record.AccountCode != "legacy-account" {
		t.Fatalf("unexpected record %+v", record)
	}

	orgSvc := newTestService(t, newStubRepo(), dir, &stubGateway{}, "org")
	record, err = orgSvc.Resolve(context.Background(), recurly.Account{Code: "legacy-account", Email: "ada@example.com"})
	if err != nil || record != nil {
		t.Fatalf("e-mail matching only applies to user entities, got %+v err=%v", record, err)
	}
}

func TestSyncOwnerSwallowsGatewayErrors(t *testing.T) {
	owner := Owner{Type: "user", ID: "3"}
	repo := newStubRepo(&models.AccountRecord{OwnerType: "user", OwnerID: "3", AccountCode: "user-3"})
	gw := &stubGateway{updateErr: errors.New("boom")}
	svc := newTestService(t, repo, stubDirectory{}, gw, "user")

	if err := svc.SyncOwner(context.Background(), owner, Profile{Email: "new@example.com"}); err != nil {
		t.Fatalf("sync should not surface gateway errors: %v", err)
	}
	if len(gw.updated) != 1 || gw.updated[0] != "user-3" {
		t.Fatalf("expected remote update, got %v", gw.updated)
	}

	if err := svc.SyncOwner(context.Background(), Owner{Type: "user", ID: "4"}, Profile{}); err != nil {
		t.Fatalf("owners without accounts are a no-op: %v", err)
	}
	if len(gw.updated) != 1 {
		t.Fatalf("no remote call expected for owners without accounts")
	}
}

func TestCloseOwnerToleratesRemoteNotFound(t *testing.T) {
	owner := Owner{Type: "user", ID: "3"}
	repo := newStubRepo(&models.AccountRecord{OwnerType: "user", OwnerID: "3", AccountCode: "user-3"})
	gw := &stubGateway{closeErr: pkgerrors.New(pkgerrors.CodeNotFound, "Couldn't find Account")}
	svc := newTestService(t, repo, stubDirectory{}, gw, "user")

	if err := svc.CloseOwner(context.Background(), owner); err != nil {
		t.Fatalf("close owner: %v", err)
	}
	if repo.deletes != 1 {
		t.Fatalf("expected record delete")
	}
}

func TestCloseOwnerKeepsRecordOnGatewayFailure(t *testing.T) {
	owner := Owner{Type: "user", ID: "3"}
	repo := newStubRepo(&models.AccountRecord{OwnerType: "user", OwnerID: "3", AccountCode: "user-3"})
	gw := &stubGateway{closeErr: pkgerrors.New(pkgerrors.CodeDependency, "gateway down")}
	svc := newTestService(t, repo, stubDirectory{}, gw, "user")

	if err := svc.CloseOwner(context.Background(), owner); err == nil {
		t.Fatal("expected gateway failure to surface")
	}
	if repo.deletes != 0 {
		t.Fatalf("record must survive a failed remote close")
	}
}

func TestParseAccountCode(t *testing.T) {
	owner, ok := ParseAccountCode("team-member-12")
	if !ok || owner.Type != "team-member" || owner.ID != "12" {
		t.Fatalf("unexpected parse %+v ok=%v", owner, ok)
	}
	for _, code := range []string{"", "nohyphen", "-12", "user-"} {
		if _, ok := ParseAccountCode(code); ok {
			t.Fatalf("code %q should not parse", code)
		}
	}
}

func TestRefreshStoresRemoteState(t *testing.T) {
	record := &models.AccountRecord{OwnerType: "user", OwnerID: "3", AccountCode: "user-3", Status: enums.AccountStatusActive}
	repo := newStubRepo(record)
	gw := &stubGateway{remote: &recurly.Account{Code: "user-3", State: "closed"}}
	svc := newTestService(t, repo, stubDirectory{}, gw, "user")

	refreshed, err := svc.Refresh(context.Background(), *record)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !refreshed.IsClosed() || refreshed.OwnerID != "3" {
		t.Fatalf("unexpected record %+v", refreshed)
	}
}

func TestRefreshClosesRecordOnRemoteNotFound(t *testing.T) {
	record := &models.AccountRecord{OwnerType: "user", OwnerID: "3", AccountCode: "user-3", Status: enums.AccountStatusActive}
	gw := &stubGateway{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "Couldn't find Account")}
	svc := newTestService(t, newStubRepo(record), stubDirectory{}, gw, "user")

	refreshed, err := svc.Refresh(context.Background(), *record)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.Status != enums.AccountStatusClosed {
		t.Fatalf("expected closed record, got %s", refreshed.Status)
	}
}

func TestRefreshSurfacesGatewayFailures(t *testing.T) {
	record := &models.AccountRecord{OwnerType: "user", OwnerID: "3", AccountCode: "user-3"}
	repo := newStubRepo(record)
	gw := &stubGateway{getErr: pkgerrors.New(pkgerrors.CodeDependency, "gateway down")}
	svc := newTestService(t, repo, stubDirectory{}, gw, "user")

	if _, err := svc.Refresh(context.Background(), *record); !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if repo.upserts != 0 {
		t.Fatalf("record must not change when the gateway is down")
	}
}
