package authn

import (
	"context"
	"net/http"
	"strings"
)

// TokenSource authenticates a gateway token against the tenant
// directory. svc/tenant.Manager.AuthenticateToken satisfies this.
type TokenSource interface {
	AuthenticateToken(ctx context.Context, token string) (userID string, err error)
}

// Fallback authenticates a connection that offered no gateway token at
// all, deferring to the pre-existing single-user collaborator. The core
// has no compile-time dependency on any specific implementation.
type Fallback func(ctx context.Context) (userID string, err error)

// Input carries the three channels a gateway token may arrive through,
// already extracted from whatever transport is in use (WS connect
// payload, HTTP headers). Precedence is ConnectPayloadToken, then
// GatewayTokenHeader, then AuthorizationHeader.
type Input struct {
	ConnectPayloadToken string
	GatewayTokenHeader  string
	AuthorizationHeader string
}

// gatewayToken picks the first non-empty channel in precedence order,
// unwrapping "Bearer <token>" from AuthorizationHeader.
func (in Input) gatewayToken() (string, bool) {
	if in.ConnectPayloadToken != "" {
		return in.ConnectPayloadToken, true
	}
	if in.GatewayTokenHeader != "" {
		return in.GatewayTokenHeader, true
	}
	if in.AuthorizationHeader != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(in.AuthorizationHeader, prefix) {
			token := strings.TrimSpace(strings.TrimPrefix(in.AuthorizationHeader, prefix))
			if token != "" {
				return token, true
			}
		}
	}
	return "", false
}

// ExtractFromRequest reads the three channels off an HTTP request:
// the "X-Gateway-Token" header and the "Authorization" header. The
// connect-payload channel is WS-specific and left zero; callers on a
// WS transport should populate Input.ConnectPayloadToken themselves
// before calling Authenticate.
func ExtractFromRequest(r *http.Request) Input {
	return Input{
		GatewayTokenHeader:  r.Header.Get("X-Gateway-Token"),
		AuthorizationHeader: r.Header.Get("Authorization"),
	}
}

// Authenticator resolves request identity per component 4.6.
type Authenticator struct {
	tenants  TokenSource
	fallback Fallback
}

// New builds an Authenticator. fallback may be nil, in which case a
// request with no gateway token is rejected with ErrGatewayTokenInvalid
// rather than silently succeeding.
func New(tenants TokenSource, fallback Fallback) *Authenticator {
	return &Authenticator{tenants: tenants, fallback: fallback}
}

// Authenticate resolves the caller's user id. When in carries a gateway
// token through any channel, the tenant manager is the sole authority:
// failure there returns ErrGatewayTokenInvalid and never consults
// fallback. When no gateway token was offered at all, fallback is
// invoked instead.
func (a *Authenticator) Authenticate(ctx context.Context, in Input) (string, error) {
	token, ok := in.gatewayToken()
	if !ok {
		if a.fallback == nil {
			return "", ErrGatewayTokenInvalid
		}
		return a.fallback(ctx)
	}

	userID, err := a.tenants.AuthenticateToken(ctx, token)
	if err != nil {
		return "", ErrGatewayTokenInvalid
	}
	return userID, nil
}
