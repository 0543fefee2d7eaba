package httpadapter

import (
	"context"
	"net/http"
	"strings"

	"github.com/kirillkom/listing-analyzer/internal/core/domain"
)

const (
	refreshTokenHeader = "X-Refresh-Token"
	accessTokenHeader  = "X-Access-Token"
)

// TokenVerifier turns an inbound bearer token into a session.
type TokenVerifier interface {
	Verify(token string) (domain.Session, error)
}

type sessionContextKey struct{}

func sessionFromContext(ctx context.Context) (domain.Session, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(domain.Session)
	return session, ok
}

func authMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := verifier.Verify(bearerToken(r.Header.Get("Authorization")))
			if err != nil {
				writeError(w, r, err)
				return
			}
			session.RefreshToken = strings.TrimSpace(r.Header.Get(refreshTokenHeader))
			ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(headerValue string) string {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if len(headerValue) < len(bearerPrefix) || !strings.EqualFold(headerValue[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(headerValue[len(bearerPrefix):])
}

// exposeRefreshed hands a session refreshed during the request back to the
// caller. It must run before the response status is written.
func exposeRefreshed(w http.ResponseWriter, before, after domain.Session) {
	if after.AccessToken == "" || after.AccessToken == before.AccessToken {
		return
	}
	w.Header().Set(accessTokenHeader, after.AccessToken)
	if after.RefreshToken != "" {
		w.Header().Set(refreshTokenHeader, after.RefreshToken)
	}
}
