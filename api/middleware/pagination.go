package middleware

import (
	"math"
	"net/http"

	"github.com/angelmondragon/recurly-gateway/api/responses"
	"github.com/angelmondragon/recurly-gateway/api/validators"
	"github.com/angelmondragon/recurly-gateway/pkg/logger"
	"github.com/angelmondragon/recurly-gateway/pkg/pager"
)

// PageIndex seeds the zero-based ?page= index for list handlers.
func PageIndex(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			index, err := validators.ParseQueryInt(r, "page", 0, 0, math.MaxInt32)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(pager.WithIndex(r.Context(), index)))
		})
	}
}
