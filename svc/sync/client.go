package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tenantpkg "github.com/openclaw/gateway-core/pkg/tenant"
)

const (
	verifyTimeout = 5 * time.Second
	syncTimeout   = 30 * time.Second
)

// CloudClient is a thin wrapper around net/http.Client with explicit
// per-call timeouts, centralizing the cloud backend's wire contract in
// one constructible value rather than scattering context.WithTimeout
// calls through the synchronizer and the authenticator.
type CloudClient struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

// NewCloudClient builds a CloudClient bound to baseURL, authenticating
// sync calls with serviceToken.
func NewCloudClient(baseURL, serviceToken string) *CloudClient {
	return &CloudClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   &http.Client{},
	}
}

type verifyResponse struct {
	Data struct {
		UserID         string           `json:"user_id"`
		Status         tenantpkg.Status `json:"status"`
		OpenclawConfig map[string]any   `json:"openclaw_config"`
	} `json:"data"`
}

// VerifyToken implements svc/tenant.Verifier: POST /auth/verify-token.
func (c *CloudClient) VerifyToken(ctx context.Context, token string) (tenantpkg.CloudTenantRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	u := c.baseURL + "/auth/verify-token?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return tenantpkg.CloudTenantRecord{}, fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tenantpkg.CloudTenantRecord{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return tenantpkg.CloudTenantRecord{}, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return tenantpkg.CloudTenantRecord{}, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return tenantpkg.CloudTenantRecord{}, fmt.Errorf("%w: decoding response: %v", ErrTransport, err)
	}

	return tenantpkg.CloudTenantRecord{
		UserID:         body.Data.UserID,
		GatewayToken:   token,
		Status:         body.Data.Status,
		OpenclawConfig: body.Data.OpenclawConfig,
	}, nil
}

// ConfigsPage is the decoded response of GET /gateway/configs.
type ConfigsPage struct {
	Users         []tenantpkg.CloudTenantRecord `json:"users"`
	SyncTimestamp time.Time                     `json:"syncTimestamp"`
	HasMore       bool                          `json:"hasMore"`
	NextCursor    string                        `json:"nextCursor,omitempty"`
}

// FetchConfigs calls GET /gateway/configs, bearer-authenticated with
// serviceToken. When cursor is non-empty it takes precedence over since,
// continuing the page boundary the backend handed back in a prior
// response's nextCursor rather than re-deriving a position from the
// timestamp alone.
func (c *CloudClient) FetchConfigs(ctx context.Context, since, cursor string) (ConfigsPage, error) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	u := c.baseURL + "/gateway/configs"
	switch {
	case cursor != "":
		u += "?cursor=" + url.QueryEscape(cursor)
	case since != "":
		u += "?since=" + url.QueryEscape(since)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ConfigsPage{}, fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.serviceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ConfigsPage{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ConfigsPage{}, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	var page ConfigsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return ConfigsPage{}, fmt.Errorf("%w: decoding response: %v", ErrTransport, err)
	}
	return page, nil
}
