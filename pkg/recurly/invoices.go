package recurly

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
)

// GetInvoice loads an invoice by its number.
func (c *Client) GetInvoice(ctx context.Context, number string) (*Invoice, error) {
	if strings.TrimSpace(number) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number is required")
	}
	var invoice Invoice
	if err := c.do(ctx, request{operation: "get_invoice", method: http.MethodGet, path: invoicePath(number)}, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListAccountInvoices walks an account's invoices, newest first.
func (c *Client) ListAccountInvoices(accountCode string) pager.Iterator[Invoice] {
	query := url.Values{}
	query.Set("sort", "created_at")
	query.Set("order", "desc")
	return newList[Invoice](c, "list_account_invoices", accountPath(accountCode)+"/invoices", query)
}

// GetInvoicePDF downloads the rendered invoice document.
func (c *Client) GetInvoicePDF(ctx context.Context, number string) ([]byte, error) {
	if strings.TrimSpace(number) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number is required")
	}
	if c == nil {
		return nil, ErrAPIKeyMissing
	}
	return c.doRaw(ctx, request{
		operation: "get_invoice_pdf",
		method:    http.MethodGet,
		path:      invoicePath(number) + ".pdf",
		accept:    "application/pdf",
	})
}

func invoicePath(number string) string {
	return "invoices/number-" + url.PathEscape(strings.TrimSpace(number))
}
