package invoices

import (
	"context"
	"fmt"
	"testing"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
	"github.com/shopspring/decimal"
)

type stubGateway struct {
	invoices map[string]recurly.Invoice
	list     []recurly.Invoice
	pdfCalls int
}

func (g *stubGateway) GetInvoice(_ context.Context, number string) (*recurly.Invoice, error) {
	invoice, ok := g.invoices[number]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return &invoice, nil
}

func (g *stubGateway) ListAccountInvoices(string) pager.Iterator[recurly.Invoice] {
	return pager.NewSliceIterator(g.list)
}

func (g *stubGateway) GetInvoicePDF(context.Context, string) ([]byte, error) {
	g.pdfCalls++
	return []byte("%PDF-1.4"), nil
}

type stubAccounts struct {
	record *models.AccountRecord
}

func (s stubAccounts) Lookup(context.Context, accounts.Owner) (*models.AccountRecord, error) {
	return s.record, nil
}

var (
	owner  = accounts.Owner{Type: "user", ID: "7"}
	member = entitlements.Actor{ID: "7", Role: enums.ActorRoleMember}
	policy = entitlements.Config{Mode: enums.SubscriptionModeSingle, CancelPolicy: enums.CancelPolicyCancel, EntityType: "user"}
)

func newTestService(t *testing.T, gateway *stubGateway, record *models.AccountRecord) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Gateway: gateway, Accounts: stubAccounts{record: record}, Policy: policy})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func ownRecord() *models.AccountRecord {
	return &models.AccountRecord{OwnerType: "user", OwnerID: "7", AccountCode: "user-7"}
}

func TestListPagesByTwenty(t *testing.T) {
	gateway := &stubGateway{}
	for i := 0; i < 45; i++ {
		gateway.list = append(gateway.list, recurly.Invoice{Number: fmt.Sprintf("%d", 1000+i), Currency: "USD", Total: decimal.NewFromInt(10)})
	}
	svc := newTestService(t, gateway, ownRecord())

	index := 2
	page, err := svc.List(context.Background(), owner, member, &index)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 5 || page.Items[0].Number != "1040" || page.HasMore {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Items[0].Total != "$10.00" {
		t.Fatalf("unexpected total %q", page.Items[0].Total)
	}
}

func TestGetHidesForeignInvoices(t *testing.T) {
	gateway := &stubGateway{invoices: map[string]recurly.Invoice{
		"1001": {Number: "1001", State: "paid", Account: recurly.AccountRef{Code: "user-8"}},
	}}
	svc := newTestService(t, gateway, ownRecord())

	if _, err := svc.Get(context.Background(), owner, member, "1001"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.PDF(context.Background(), owner, member, "1001"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if gateway.pdfCalls != 0 {
		t.Fatalf("pdf must not be fetched for a foreign invoice")
	}
}

func TestGetFlagsPastDue(t *testing.T) {
	gateway := &stubGateway{invoices: map[string]recurly.Invoice{
		"1002": {Number: "1002", State: "past_due", Currency: "USD", Account: recurly.AccountRef{Code: "user-7"}},
		"1003": {Number: "1003", State: "paid", Currency: "USD", Account: recurly.AccountRef{Code: "user-7"}},
	}}
	svc := newTestService(t, gateway, ownRecord())

	detail, err := svc.Get(context.Background(), owner, member, "1002")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Notice != pastDueNotice {
		t.Fatalf("expected past-due notice, got %q", detail.Notice)
	}
	detail, err = svc.Get(context.Background(), owner, member, "1003")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Notice != "" {
		t.Fatalf("paid invoice has no notice")
	}
}

func TestPDFDocument(t *testing.T) {
	gateway := &stubGateway{invoices: map[string]recurly.Invoice{
		"1004": {Number: "1004", State: "paid", Account: recurly.AccountRef{Code: "user-7"}},
	}}
	svc := newTestService(t, gateway, ownRecord())

	doc, err := svc.PDF(context.Background(), owner, member, "1004")
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if doc.Filename != "1004.pdf" || doc.ContentType != "application/pdf" || string(doc.Body) != "%PDF-1.4" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestInvoicesRequireAccount(t *testing.T) {
	svc := newTestService(t, &stubGateway{}, nil)

	if _, err := svc.List(context.Background(), owner, member, nil); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden without an account, got %v", err)
	}
	stranger := entitlements.Actor{ID: "9", Role: enums.ActorRoleMember}
	svc = newTestService(t, &stubGateway{}, ownRecord())
	if _, err := svc.List(context.Background(), owner, stranger, nil); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for another actor, got %v", err)
	}
}
