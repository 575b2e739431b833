package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/recurly-gateway/internal/accounts"
	"github.com/angelmondragon/recurly-gateway/internal/entitlements"
	"github.com/angelmondragon/recurly-gateway/pkg/config"
	"github.com/angelmondragon/recurly-gateway/pkg/db/models"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

// Gateway reads invoices from the billing gateway.
type Gateway interface {
	GetInvoice(ctx context.Context, number string) (*recurly.Invoice, error)
	ListAccountInvoices(accountCode string) pager.Iterator[recurly.Invoice]
	GetInvoicePDF(ctx context.Context, number string) ([]byte, error)
}

type accountLookup interface {
	Lookup(ctx context.Context, owner accounts.Owner) (*models.AccountRecord, error)
}

// Service exposes an owner's invoices.
type Service interface {
	List(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, page *int) (*InvoicePage, error)
	Get(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, number string) (*InvoiceDetail, error)
	PDF(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, number string) (*Document, error)
}

// ServiceParams groups dependencies for the invoices service.
type ServiceParams struct {
	Gateway  Gateway
	Accounts accountLookup
	Policy   entitlements.Config
	Plans    config.EnabledPlanSet
	PageSize int
}

type service struct {
	gateway  Gateway
	accounts accountLookup
	policy   entitlements.Config
	plans    config.EnabledPlanSet
	pageSize int
}

func NewService(params ServiceParams) (Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("billing gateway required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account index required")
	}
	size := params.PageSize
	if size <= 0 {
		size = config.DefaultInvoicePageSize
	}
	size = pager.NormalizeSize(size)
	return &service{
		gateway:  params.Gateway,
		accounts: params.Accounts,
		policy:   params.Policy,
		plans:    params.Plans,
		pageSize: size,
	}, nil
}

// LineItem is one invoice line.
type LineItem struct {
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	Quantity    int        `json:"quantity"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// InvoiceSummary is one row of the invoice list.
type InvoiceSummary struct {
	Number    string     `json:"number"`
	State     string     `json:"state"`
	Total     string     `json:"total"`
	Currency  string     `json:"currency"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	PDFURL    string     `json:"pdf_url"`
}

// InvoicePage is one page of invoices.
type InvoicePage struct {
	Items   []InvoiceSummary `json:"items"`
	Page    int              `json:"page"`
	Size    int              `json:"size"`
	HasMore bool             `json:"has_more"`
}

// InvoiceDetail is a full invoice with its past-due notice.
type InvoiceDetail struct {
	InvoiceSummary
	Subtotal  string     `json:"subtotal"`
	Tax       string     `json:"tax"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	LineItems []LineItem `json:"line_items"`
	Notice    string     `json:"notice,omitempty"`
}

// Document is a rendered invoice file.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

const pastDueNotice = "This invoice is past due! Please update your billing information."

func (s *service) List(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, page *int) (*InvoicePage, error) {
	record, err := s.authorize(ctx, owner, actor)
	if err != nil {
		return nil, err
	}
	result, err := pager.Fetch(ctx, s.gateway.ListAccountInvoices(record.AccountCode), s.pageSize, page)
	if err != nil {
		return nil, err
	}
	out := &InvoicePage{
		Items:   make([]InvoiceSummary, 0, len(result.Items)),
		Page:    result.Index,
		Size:    result.Size,
		HasMore: result.HasMore,
	}
	for _, invoice := range result.Items {
		out.Items = append(out.Items, summarize(owner, invoice))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, number string) (*InvoiceDetail, error) {
	invoice, err := s.load(ctx, owner, actor, number)
	if err != nil {
		return nil, err
	}
	detail := &InvoiceDetail{
		InvoiceSummary: summarize(owner, *invoice),
		Subtotal:       recurly.FormatMoney(invoice.Subtotal, invoice.Currency),
		Tax:            recurly.FormatMoney(invoice.Tax, invoice.Currency),
		ClosedAt:       invoice.ClosedAt,
		LineItems:      make([]LineItem, 0, len(invoice.LineItems.Data)),
	}
	for _, line := range invoice.LineItems.Data {
		detail.LineItems = append(detail.LineItems, LineItem{
			Description: line.Description,
			Amount:      recurly.FormatMoney(line.Amount, invoice.Currency),
			Quantity:    line.Quantity,
			StartDate:   line.StartDate,
			EndDate:     line.EndDate,
		})
	}
	if !invoice.Settled() {
		detail.Notice = pastDueNotice
	}
	return detail, nil
}

func (s *service) PDF(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, number string) (*Document, error) {
	invoice, err := s.load(ctx, owner, actor, number)
	if err != nil {
		return nil, err
	}
	body, err := s.gateway.GetInvoicePDF(ctx, invoice.Number)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    invoice.Number + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

// load fetches an invoice and hides invoices of other accounts.
func (s *service) load(ctx context.Context, owner accounts.Owner, actor entitlements.Actor, number string) (*recurly.Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number is required")
	}
	record, err := s.authorize(ctx, owner, actor)
	if err != nil {
		return nil, err
	}
	invoice, err := s.gateway.GetInvoice(ctx, number)
	if err != nil {
		return nil, err
	}
	if invoice == nil || invoice.Account.Code != record.AccountCode {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (s *service) authorize(ctx context.Context, owner accounts.Owner, actor entitlements.Actor) (*models.AccountRecord, error) {
	if owner.Type != s.policy.EntityType {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "owner type not billable")
	}
	record, err := s.accounts.Lookup(ctx, owner)
	if err != nil {
		return nil, err
	}
	dc := entitlements.Context{HasAccount: record != nil, EnabledPlans: s.plans.Len()}
	if err := entitlements.Authorize(enums.OperationInvoices, owner, actor, s.policy, dc).Err(); err != nil {
		return nil, err
	}
	return record, nil
}

func summarize(owner accounts.Owner, invoice recurly.Invoice) InvoiceSummary {
	return InvoiceSummary{
		Number:    invoice.Number,
		State:     invoice.State,
		Total:     recurly.FormatMoney(invoice.Total, invoice.Currency),
		Currency:  invoice.Currency,
		CreatedAt: invoice.CreatedAt,
		PDFURL:    fmt.Sprintf("/api/v1/owners/%s/%s/invoices/%s/pdf", owner.Type, owner.ID, invoice.Number),
	}
}
