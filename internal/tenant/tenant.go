// Package tenant carries the company-scoped identity of a request through
// the call chain. Every operation in this repository takes a companyId;
// Design Note 9 ("Global state") says to pass shared context through the
// call chain rather than module-level singletons, so this is a small value
// carried on context.Context rather than a package-level variable.
package tenant

import (
	"context"
	"fmt"

	"ledgercore/internal/apperr"
)

type ctxKey struct{}

// Actor identifies who is acting, on behalf of which company, for a single
// request. CompanyID scopes every row read or written during the request.
type Actor struct {
	CompanyID int
	ActorID   string
}

// WithActor returns a context carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the Actor carried on ctx, or an error if none is set.
// Every command-surface entry point must call this before touching the
// database — a missing actor is a programming error, not a request error,
// so it is reported as apperr.Internal.
func FromContext(ctx context.Context) (Actor, error) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	if !ok {
		return Actor{}, apperr.New(apperr.Internal, "no tenant actor on context")
	}
	return a, nil
}

// RequireCompany returns an error unless the actor's CompanyID matches
// companyID exactly — used to reject cross-tenant id leaks (spec.md §7
// tenant-scope-violation) when a resource's owning company is already known
// from a prior row read.
func RequireCompany(ctx context.Context, companyID int) error {
	a, err := FromContext(ctx)
	if err != nil {
		return err
	}
	if a.CompanyID != companyID {
		return apperr.New(apperr.TenantScopeViolation,
			"actor scoped to company %d cannot access company %d", a.CompanyID, companyID)
	}
	return nil
}

func (a Actor) String() string {
	return fmt.Sprintf("company=%d actor=%s", a.CompanyID, a.ActorID)
}
