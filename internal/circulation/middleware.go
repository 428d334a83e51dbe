// internal/circulation/middleware.go
package circulation

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"biblios/internal/patrons"
)

type contextKey struct{}

var principalKey contextKey

// PrincipalFromContext returns the authenticated principal stored by
// Authenticator, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	pr, ok := ctx.Value(principalKey).(Principal)
	return pr, ok
}

// WithPrincipal returns a context carrying the principal. Exported for
// tests that call handlers without the middleware.
func WithPrincipal(ctx context.Context, pr Principal) context.Context {
	return context.WithValue(ctx, principalKey, pr)
}

// Authenticator verifies the Authorization bearer token and stores the
// resulting principal in the request context. Token issuance belongs to the
// external auth collaborator; only HS256 verification happens here.
func Authenticator(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(t *jwt.Token) (any, error) {
				if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				respondError(w, http.StatusUnauthorized, "invalid claims")
				return
			}
			sub, _ := claims["sub"].(string)
			id, err := uuid.Parse(sub)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid subject")
				return
			}
			roleStr, _ := claims["role"].(string)
			role := patrons.Role(roleStr)
			if !patrons.ValidRole(role) {
				respondError(w, http.StatusUnauthorized, "invalid role")
				return
			}

			pr := Principal{ID: id, Role: role}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), pr)))
		})
	}
}
