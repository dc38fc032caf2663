package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ledgercore/internal/tenant"
)

func signTestToken(t *testing.T, secret string, claims actorClaims) string {
	t.Helper()
	claims.RegisteredClaims = jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestRequireAuth_RejectsMissingAuthorizationHeader(t *testing.T) {
	h := &Handler{jwtSecret: "test-secret"}
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/1/trial-balance", nil)
	h.RequireAuth(next).ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected next handler not to run without an Authorization header")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_RejectsTokenSignedWithWrongSecret(t *testing.T) {
	h := &Handler{jwtSecret: "right-secret"}
	token := signTestToken(t, "wrong-secret", actorClaims{CompanyID: 1, ActorID: "alice"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/1/trial-balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	called := false
	h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })).ServeHTTP(rec, req)

	if called {
		t.Fatalf("expected next handler not to run for a token signed with the wrong secret")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_ValidTokenInjectsActorOnContext(t *testing.T) {
	h := &Handler{jwtSecret: "test-secret"}
	token := signTestToken(t, "test-secret", actorClaims{CompanyID: 7, ActorID: "bob"})

	var gotActor tenant.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := tenant.FromContext(r.Context())
		if err != nil {
			t.Fatalf("expected an actor on context: %v", err)
		}
		gotActor = a
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/7/trial-balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.RequireAuth(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected the request to reach the next handler, got status %d", rec.Code)
	}
	if gotActor.CompanyID != 7 || gotActor.ActorID != "bob" {
		t.Fatalf("expected actor {7 bob}, got %+v", gotActor)
	}
}
