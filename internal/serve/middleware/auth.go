package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/innovategy/innosystem/internal/data"
	"github.com/innovategy/innosystem/internal/serve/httperror"
	"github.com/stellar/go/support/log"
)

const apiKeyCacheTTL = 3 * time.Minute

// keyAuthenticator resolves a raw api_key row value to its owning customer
// or reseller, caching hits the way the teacher's apiKeyAuthenticator
// caches API key rows: a compromised or rotated key still needs a
// `ristretto.Cache` backed by TTL eviction so a revoked key stops working
// within apiKeyCacheTTL even without an explicit invalidation call.
type keyAuthenticator struct {
	customers *data.CustomerModel
	resellers *data.ResellerModel
	cache     *ristretto.Cache
}

func newKeyAuthenticator(customers *data.CustomerModel, resellers *data.ResellerModel) *keyAuthenticator {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		log.Errorf("failed to create api key cache: %v", err)
		return &keyAuthenticator{customers: customers, resellers: resellers}
	}
	cache.Wait()

	return &keyAuthenticator{customers: customers, resellers: resellers, cache: cache}
}

func (a *keyAuthenticator) resolve(ctx context.Context, rawKey string) (Principal, error) {
	if a.cache != nil {
		if cached, found := a.cache.Get(rawKey); found {
			if p, ok := cached.(Principal); ok {
				return p, nil
			}
		}
	}

	if reseller, err := a.resellers.GetByAPIKey(ctx, rawKey); err == nil {
		p := Principal{Role: RoleReseller, Reseller: reseller}
		a.store(rawKey, p)
		return p, nil
	} else if !errors.Is(err, data.ErrRecordNotFound) {
		return Principal{}, err
	}

	if customer, err := a.customers.GetByAPIKey(ctx, rawKey); err == nil {
		p := Principal{Role: RoleCustomer, Customer: customer}
		a.store(rawKey, p)
		return p, nil
	} else if !errors.Is(err, data.ErrRecordNotFound) {
		return Principal{}, err
	}

	return Principal{}, data.ErrRecordNotFound
}

func (a *keyAuthenticator) store(rawKey string, p Principal) {
	if a.cache != nil {
		a.cache.SetWithTTL(rawKey, p, 1, apiKeyCacheTTL)
	}
}

// Authenticate resolves the caller's principal from the request's key and
// attaches it to the request context. The admin shared secret is checked
// first (constant-time, no database round trip); everything else falls
// through to the reseller/customer api_key lookup.
func Authenticate(adminAPIKey string, customers *data.CustomerModel, resellers *data.ResellerModel) func(http.Handler) http.Handler {
	auth := newKeyAuthenticator(customers, resellers)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := extractKey(r)
			if key == "" {
				httperror.Unauthorized("", nil).Render(w)
				return
			}

			if adminAPIKey != "" && constantTimeEqual(key, adminAPIKey) {
				ctx := context.WithValue(r.Context(), principalContextKey{}, Principal{Role: RoleAdmin})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			p, err := auth.resolve(r.Context(), key)
			if err != nil {
				if errors.Is(err, data.ErrRecordNotFound) {
					httperror.Unauthorized("Invalid API key.", nil).Render(w)
					return
				}
				httperror.Internal(r.Context(), "resolving API key", err).Render(w)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects the request unless the authenticated principal holds
// one of the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalFromContext(r.Context())
			if !ok || !allowed[p.Role] {
				httperror.Forbidden("", nil).Render(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentPrincipal exposes the authenticated caller to handlers.
func CurrentPrincipal(ctx context.Context) (Principal, bool) {
	return principalFromContext(ctx)
}
