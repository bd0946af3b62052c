package middleware

import (
	"net/http"
	"strings"

	"github.com/josh-kwaku/rice-ledger/internal/auth"
	"github.com/josh-kwaku/rice-ledger/internal/handler"
)

// Auth resolves the owner from a bearer token. Browsers cannot set headers on
// a websocket upgrade, so GET requests may pass the token as ?token= instead.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, appErr := bearerToken(r)
			if appErr != nil {
				handler.RespondAppError(w, appErr, nil)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidToken, nil)
				return
			}

			ctx := auth.ContextWithOwnerID(r.Context(), claims.OwnerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, *handler.AppError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if q := r.URL.Query().Get("token"); q != "" && r.Method == http.MethodGet {
			return q, nil
		}
		return "", handler.ErrMissingToken
	}

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", handler.ErrInvalidToken
	}
	return token, nil
}
