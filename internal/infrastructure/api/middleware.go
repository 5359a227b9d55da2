package api

import (
	"net/http"
	"strings"

	"gaint-shopify-connector/internal/domain"

	"github.com/rs/zerolog"
)

// Headers the embedding admin app sends with every request
const (
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderSessionID  = "X-Session-ID"
)

// AdminSessionMiddleware puts the admin session of the request into its context. The
// session id is empty until the page has loaded the settings view and received one.
func AdminSessionMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := strings.TrimSpace(r.Header.Get(HeaderShopDomain))
			token, hasBearer := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			token = strings.TrimSpace(token)

			if shop == "" || !hasBearer || token == "" {
				logger.Debug().
					Str("path", r.URL.Path).
					Bool("hasShop", shop != "").
					Msg("Rejected request without admin session")
				writeError(w, http.StatusUnauthorized, "admin session required")
				return
			}

			ctx := domain.WithAdminSession(r.Context(), domain.AdminSession{
				ID:          strings.TrimSpace(r.Header.Get(HeaderSessionID)),
				Shop:        shop,
				AccessToken: token,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
