package authn_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/gateway-core/svc/authn"
)

type fakeTokenSource struct {
	userID string
	err    error
	seen   string
}

func (f *fakeTokenSource) AuthenticateToken(_ context.Context, token string) (string, error) {
	f.seen = token
	return f.userID, f.err
}

func TestAuthenticate_ConnectPayloadTakesPrecedence(t *testing.T) {
	src := &fakeTokenSource{userID: "u-1"}
	a := authn.New(src, nil)

	userID, err := a.Authenticate(context.Background(), authn.Input{
		ConnectPayloadToken: "gt_connect",
		GatewayTokenHeader:  "gt_header",
		AuthorizationHeader: "Bearer gt_bearer",
	})

	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "gt_connect", src.seen)
}

func TestAuthenticate_HeaderBeatsBearer(t *testing.T) {
	src := &fakeTokenSource{userID: "u-1"}
	a := authn.New(src, nil)

	_, err := a.Authenticate(context.Background(), authn.Input{
		GatewayTokenHeader:  "gt_header",
		AuthorizationHeader: "Bearer gt_bearer",
	})

	require.NoError(t, err)
	assert.Equal(t, "gt_header", src.seen)
}

func TestAuthenticate_FallsBackToBearer(t *testing.T) {
	src := &fakeTokenSource{userID: "u-1"}
	a := authn.New(src, nil)

	_, err := a.Authenticate(context.Background(), authn.Input{
		AuthorizationHeader: "Bearer gt_bearer",
	})

	require.NoError(t, err)
	assert.Equal(t, "gt_bearer", src.seen)
}

func TestAuthenticate_GatewayTokenInvalid_NoFallback(t *testing.T) {
	src := &fakeTokenSource{err: errors.New("unauthenticated")}
	fallbackCalled := false
	fallback := func(ctx context.Context) (string, error) {
		fallbackCalled = true
		return "single-user", nil
	}
	a := authn.New(src, fallback)

	_, err := a.Authenticate(context.Background(), authn.Input{GatewayTokenHeader: "bad"})

	assert.ErrorIs(t, err, authn.ErrGatewayTokenInvalid)
	assert.False(t, fallbackCalled, "fallback must never run once a gateway token was offered")
}

func TestAuthenticate_NoGatewayToken_UsesFallback(t *testing.T) {
	src := &fakeTokenSource{}
	fallback := func(ctx context.Context) (string, error) {
		return "single-user", nil
	}
	a := authn.New(src, fallback)

	userID, err := a.Authenticate(context.Background(), authn.Input{})

	require.NoError(t, err)
	assert.Equal(t, "single-user", userID)
}

func TestAuthenticate_NoGatewayToken_NoFallback_Rejected(t *testing.T) {
	src := &fakeTokenSource{}
	a := authn.New(src, nil)

	_, err := a.Authenticate(context.Background(), authn.Input{})

	assert.ErrorIs(t, err, authn.ErrGatewayTokenInvalid)
}

func TestExtractFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Gateway-Token", "gt_header")
	req.Header.Set("Authorization", "Bearer gt_bearer")

	in := authn.ExtractFromRequest(req)
	assert.Equal(t, "gt_header", in.GatewayTokenHeader)
	assert.Equal(t, "Bearer gt_bearer", in.AuthorizationHeader)
	assert.Equal(t, "", in.ConnectPayloadToken)
}

func TestAuthenticate_MalformedBearerIgnored(t *testing.T) {
	src := &fakeTokenSource{}
	a := authn.New(src, nil)

	_, err := a.Authenticate(context.Background(), authn.Input{AuthorizationHeader: "Basic xyz"})
	assert.ErrorIs(t, err, authn.ErrGatewayTokenInvalid)
}
