package tenant

import (
	"context"

	tenantpkg "github.com/openclaw/gateway-core/pkg/tenant"
)

// Verifier performs the remote token-verification call
// (POST /auth/verify-token) used on a cache miss in AuthenticateToken.
// svc/sync's CloudClient is the production implementation; tests supply
// a fake.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (tenantpkg.CloudTenantRecord, error)
}
