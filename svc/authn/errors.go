package authn

import "errors"

// ErrGatewayTokenInvalid is returned when a gateway token was offered
// through any channel but the tenant manager rejected it. Per the
// no-fallback rule this is always the final outcome for the request;
// the caller must not retry through Fallback.
var ErrGatewayTokenInvalid = errors.New("authn: gateway_token_invalid")
