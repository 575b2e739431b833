package recurly

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/config"
	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(config.RecurlyConfig{
		PrivateAPIKey: "key-123",
		Subdomain:     "acme",
		APIVersion:    "v2021-02-25",
	}, WithBaseURL("http://recurly.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.RecurlyConfig{Subdomain: "acme"}); err != ErrAPIKeyMissing {
		t.Fatalf("expected api key error, got %v", err)
	}
	if _, err := NewClient(config.RecurlyConfig{PrivateAPIKey: "k"}); err != ErrSubdomainMissing {
		t.Fatalf("expected subdomain error, got %v", err)
	}
	if !pkgerrors.Is(ErrAPIKeyMissing, pkgerrors.CodeConfiguration) {
		t.Fatalf("missing key should be a configuration error")
	}
}

func TestGetSubscriptionRequest(t *testing.T) {
	var captured *http.Request
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"uuid":"abc","state":"active","plan":{"code":"gold"},"unit_amount":"10.00","quantity":1}`), nil
	})

	sub, err := client.GetSubscription(context.Background(), "abc")
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if captured.URL.String() != "http://recurly.test/subscriptions/uuid-abc" {
		t.Fatalf("unexpected url %s", captured.URL.String())
	}
	if got := captured.Header.Get("Accept"); got != "application/vnd.recurly.v2021-02-25+json" {
		t.Fatalf("unexpected accept header %q", got)
	}
	user, pass, ok := captured.BasicAuth()
	if !ok || user != "key-123" || pass != "" {
		t.Fatalf("expected basic auth with api key, got %q/%q", user, pass)
	}
	if sub.Plan.Code != "gold" || sub.UnitAmount.String() != "10" {
		t.Fatalf("unexpected subscription %+v", sub)
	}
}

func TestTerminateSubscriptionMapsRefundMode(t *testing.T) {
	cases := map[enums.RefundMode]string{
		enums.RefundModeNone:     "none",
		enums.RefundModeProrated: "partial",
		enums.RefundModeFull:     "full",
	}
	for mode, want := range cases {
		var captured *http.Request
		client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
			captured = req
			return jsonResponse(http.StatusOK, `{"uuid":"abc","state":"expired"}`), nil
		})
		if _, err := client.TerminateSubscription(context.Background(), "abc", mode); err != nil {
			t.Fatalf("terminate %s: %v", mode, err)
		}
		if captured.Method != http.MethodDelete {
			t.Fatalf("expected DELETE, got %s", captured.Method)
		}
		if got := captured.URL.Query().Get("refund"); got != want {
			t.Fatalf("mode %s: expected refund=%s, got %s", mode, want, got)
		}
	}
}

func TestValidationErrorKeepsGatewayMessage(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"error":{"type":"validation","message":"Coupon has expired","params":[{"param":"coupon_code","message":"is expired"}]}}`), nil
	})

	_, err := client.RedeemCoupon(context.Background(), "user-1", "SPRING", "USD")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "Coupon has expired" {
		t.Fatalf("expected verbatim gateway message, got %q", typed.Message())
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["coupon_code"] != "is expired" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeConfiguration},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusBadGateway, pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(tc.status, `{}`), nil
		})
		_, err := client.GetAccount(context.Background(), "user-1")
		if !pkgerrors.Is(err, tc.code) {
			t.Fatalf("status %d: expected %s, got %v", tc.status, tc.code, err)
		}
	}
}

func TestGetActiveRedemptionNotFoundIsNil(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/accounts/code-user-1/coupon_redemptions/active") {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusNotFound, `{"error":{"type":"not_found","message":"Couldn't find redemption"}}`), nil
	})

	redemption, err := client.GetActiveRedemption(context.Background(), "user-1")
	if err != nil || redemption != nil {
		t.Fatalf("expected nil redemption, got %+v err=%v", redemption, err)
	}
}

func TestListFollowsNextLink(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if req.URL.Query().Get("cursor") == "" {
			if req.URL.Query().Get("state") != "active" {
				t.Fatalf("expected state filter, got %s", req.URL.RawQuery)
			}
			return jsonResponse(http.StatusOK, `{"has_more":true,"next":"/accounts/code-user-1/subscriptions?cursor=c2&limit=200","data":[{"uuid":"a"},{"uuid":"b"}]}`), nil
		}
		return jsonResponse(http.StatusOK, `{"has_more":false,"data":[{"uuid":"c"}]}`), nil
	})

	subs, err := Collect(context.Background(), client.ListAccountSubscriptions("user-1", "active"))
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(subs) != 3 || subs[2].UUID != "c" {
		t.Fatalf("unexpected subscriptions %+v", subs)
	}
	if calls != 2 {
		t.Fatalf("expected 2 gateway calls, got %d", calls)
	}
}

func TestGetInvoicePDFRequestsPDF(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/invoices/number-1001.pdf" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if req.Header.Get("Accept") != "application/pdf" {
			t.Fatalf("unexpected accept %q", req.Header.Get("Accept"))
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("%PDF-1.4")), Header: http.Header{}}, nil
	})

	pdf, err := client.GetInvoicePDF(context.Background(), "1001")
	if err != nil {
		t.Fatalf("get pdf: %v", err)
	}
	if string(pdf) != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", pdf)
	}
}

type recordingObserver struct {
	operations []string
	outcomes   []string
}

func (r *recordingObserver) ObserveRequest(operation, outcome string, _ time.Duration) {
	r.operations = append(r.operations, operation)
	r.outcomes = append(r.outcomes, outcome)
}

func TestObserverSeesOutcome(t *testing.T) {
	observer := &recordingObserver{}
	client, err := NewClient(config.RecurlyConfig{PrivateAPIKey: "k", Subdomain: "acme"},
		WithBaseURL("http://recurly.test"),
		WithObserver(observer),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusNotFound, `{}`), nil
		})}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, _ = client.GetPlan(context.Background(), "gold")
	if len(observer.outcomes) != 1 || observer.operations[0] != "get_plan" || observer.outcomes[0] != "not_found" {
		t.Fatalf("unexpected observations %+v", observer)
	}
}
