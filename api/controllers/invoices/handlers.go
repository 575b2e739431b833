package invoices

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/recurly-gateway/api/controllers/ownercontext"
	"github.com/angelmondragon/recurly-gateway/api/responses"
	invoicesvc "github.com/angelmondragon/recurly-gateway/internal/invoices"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
)

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "invoice service unavailable")
}

func List(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), owner, actor, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Detail(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), owner, actor, chi.URLParam(r, "number"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func PDF(svc invoicesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		owner, actor, err := ownercontext.Resolve(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		doc, err := svc.PDF(r.Context(), owner, actor, chi.URLParam(r, "number"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFile(w, doc.ContentType, doc.Filename, doc.Body)
	}
}
