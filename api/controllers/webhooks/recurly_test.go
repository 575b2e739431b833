package webhooks

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/recurly-gateway/pkg/enums"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/recurly"
)

const accountXML = `<new_account_notification><account><account_code>user-7</account_code></account></new_account_notification>`

type stubPushService struct {
	verifyErr error
	handleErr error
	handled   int
	key       string
	subdomain string
}

func (s *stubPushService) Verify(_ context.Context, key, subdomain string) error {
	s.key, s.subdomain = key, subdomain
	return s.verifyErr
}

func (s *stubPushService) Parse(_ context.Context, body []byte) (*recurly.Notification, error) {
	if len(body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Empty or invalid notification.")
	}
	return &recurly.Notification{Type: enums.NotificationNewAccount, Account: recurly.NotificationAccount{Code: "user-7"}}, nil
}

func (s *stubPushService) Handle(context.Context, *recurly.Notification) error {
	s.handled++
	return s.handleErr
}

type stubGuard struct {
	seen    map[string]bool
	deleted int
}

func (g *stubGuard) CheckAndMark(_ context.Context, id string) (bool, error) {
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[id] {
		return true, nil
	}
	g.seen[id] = true
	return false, nil
}

func (g *stubGuard) Delete(_ context.Context, id string) error {
	g.deleted++
	delete(g.seen, id)
	return nil
}

func pushRouter(svc RecurlyPushService, guard RecurlyPushGuard) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/webhooks/recurly/{key}", RecurlyPush(svc, guard, nil))
	r.Post("/api/v1/webhooks/recurly/{key}/{subdomain}", RecurlyPush(svc, guard, nil))
	return r
}

func post(h http.Handler, target, body string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return resp
}

func TestRecurlyPushProcessesOnce(t *testing.T) {
	svc := &stubPushService{}
	h := pushRouter(svc, &stubGuard{})

	resp := post(h, "/api/v1/webhooks/recurly/s3cret/acme", accountXML)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.key != "s3cret" || svc.subdomain != "acme" {
		t.Fatalf("unexpected url params %q/%q", svc.key, svc.subdomain)
	}

	resp = post(h, "/api/v1/webhooks/recurly/s3cret/acme", accountXML)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"duplicate":true`) {
		t.Fatalf("expected duplicate ack, got %d %s", resp.Code, resp.Body.String())
	}
	if svc.handled != 1 {
		t.Fatalf("expected one handle call, got %d", svc.handled)
	}
}

func TestRecurlyPushRejectsWrongKey(t *testing.T) {
	svc := &stubPushService{verifyErr: pkgerrors.New(pkgerrors.CodeForbidden, "Incoming push notification did not contain the proper URL key.")}
	resp := post(pushRouter(svc, &stubGuard{}), "/api/v1/webhooks/recurly/wrong", accountXML)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
	if svc.handled != 0 {
		t.Fatalf("rejected push must not be handled")
	}
}

func TestRecurlyPushRejectsEmptyBody(t *testing.T) {
	resp := post(pushRouter(&stubPushService{}, &stubGuard{}), "/api/v1/webhooks/recurly/s3cret", "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRecurlyPushReleasesClaimOnFailure(t *testing.T) {
	svc := &stubPushService{handleErr: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "resync account record")}
	guard := &stubGuard{}
	h := pushRouter(svc, guard)

	resp := post(h, "/api/v1/webhooks/recurly/s3cret", accountXML)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if guard.deleted != 1 {
		t.Fatalf("expected claim released")
	}

	svc.handleErr = nil
	resp = post(h, "/api/v1/webhooks/recurly/s3cret", accountXML)
	if resp.Code != http.StatusOK || svc.handled != 2 {
		t.Fatalf("retry should be processed, got %d handled=%d", resp.Code, svc.handled)
	}
}
