package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"ledgercore/internal/tenant"
)

// actorClaims is the JWT payload this server expects an upstream auth
// service to have issued. Issuing tokens (login/logout/session) is out of
// scope here — spec.md §1 excludes the HTTP/auth framework — so RequireAuth
// only verifies and extracts, the way the teacher's RequireAuth verifies a
// cookie it never mints on this code path either.
type actorClaims struct {
	ActorID   string `json:"actor_id"`
	CompanyID int    `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth validates the Bearer token on Authorization, then injects a
// tenant.Actor built from its claims into the request context so every
// command handler downstream can call tenant.FromContext.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(raw, prefix) {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		claims := &actorClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(raw, prefix), claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := tenant.WithActor(r.Context(), tenant.Actor{CompanyID: claims.CompanyID, ActorID: claims.ActorID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
