package middleware

import (
	"context"
	"net/http"

	"github.com/lumenworks/briefbase/internal/api"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

// Tenant extracts the tenant identifier from the X-Tenant-ID header and
// stores it in the request context. Tenant resolution happens upstream;
// this service trusts the header.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			api.Error(w, http.StatusBadRequest, "missing X-Tenant-ID header")
			return
		}

		ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTenantID returns the tenant ID from context.
func GetTenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}
