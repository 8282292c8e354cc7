// Package authn resolves a request's identity by trying, in order, an
// explicit connect-payload token, an X-Gateway-Token header, and an
// Authorization: Bearer header. Presence of a gateway token makes
// multi-tenant authentication the sole path: failure there is never
// retried against the injected single-user Fallback.
package authn
