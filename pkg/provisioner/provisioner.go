package provisioner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openclaw/gateway-core/pkg/tenant"
)

const (
	dirMode  = 0o700
	fileMode = 0o600

	authProfilesVersion = 1
)

// AuthProfile is one entry of agent/auth-profiles.json.
type AuthProfile struct {
	Type     string `json:"type"`
	Provider string `json:"provider"`
	Key      string `json:"key"`
	BaseURL  string `json:"baseURL,omitempty"`
}

// AuthProfiles is the versioned document written to
// agent/auth-profiles.json, refreshed on every provisioning call.
type AuthProfiles struct {
	Version  int           `json:"version"`
	Profiles []AuthProfile `json:"profiles"`
}

// ModelRoute is one entry of agent/models.json: a provider's base URL.
type ModelRoute struct {
	BaseURL string `json:"baseUrl"`
}

const (
	defaultOpenclawJSON = `{}` + "\n"
	defaultHeartbeat    = "# Heartbeat\n\nNo heartbeat notes recorded yet.\n"
	defaultUserProfile  = "# User Profile\n\nNo profile information has been recorded for this user yet.\n"
)

// Provisioner materializes tenant workspace trees and upstream credential
// files. ProxyBaseURL is the gateway's own LLM proxy endpoint, used as
// the baseURL every provider route points agents at.
type Provisioner struct {
	ProxyBaseURL string
}

// New builds a Provisioner that routes provisioned agents through
// proxyBaseURL.
func New(proxyBaseURL string) *Provisioner {
	return &Provisioner{ProxyBaseURL: proxyBaseURL}
}

// Provision idempotently creates paths' directory tree, then refreshes
// credential files if llmAPIKey is non-empty, and writes user-owned
// defaults only if absent.
func (p *Provisioner) Provision(paths tenant.Paths, llmAPIKey string) error {
	dirs := []string{
		paths.WorkspacePath,
		paths.AgentDir,
		paths.SessionsPath,
		paths.MemoryPath,
		filepath.Join(paths.WorkspacePath, "custom"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, dirMode); err != nil {
			return fmt.Errorf("%w: creating %s: %v", ErrStorage, d, err)
		}
	}

	if llmAPIKey != "" {
		if err := p.writeAuthProfiles(paths, llmAPIKey); err != nil {
			return err
		}
		if err := p.writeModelRoutes(paths); err != nil {
			return err
		}
	}

	if err := writeIfAbsent(filepath.Join(paths.AgentDir, "openclaw.json"), defaultOpenclawJSON); err != nil {
		return err
	}
	if err := writeIfAbsent(filepath.Join(paths.WorkspacePath, "HEARTBEAT.md"), defaultHeartbeat); err != nil {
		return err
	}
	if err := writeIfAbsent(filepath.Join(paths.WorkspacePath, "USER.md"), defaultUserProfile); err != nil {
		return err
	}

	return nil
}

func (p *Provisioner) writeAuthProfiles(paths tenant.Paths, llmAPIKey string) error {
	doc := AuthProfiles{
		Version: authProfilesVersion,
		Profiles: []AuthProfile{
			{Type: "api_key", Provider: "anthropic:default", Key: llmAPIKey, BaseURL: p.ProxyBaseURL},
			{Type: "api_key", Provider: "openai:default", Key: llmAPIKey, BaseURL: p.ProxyBaseURL},
		},
	}
	return writeJSON(filepath.Join(paths.AgentDir, "auth-profiles.json"), doc)
}

func (p *Provisioner) writeModelRoutes(paths tenant.Paths) error {
	doc := map[string]ModelRoute{
		"anthropic": {BaseURL: p.ProxyBaseURL},
		"openai":    {BaseURL: p.ProxyBaseURL},
	}
	return writeJSON(filepath.Join(paths.AgentDir, "models.json"), doc)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrStorage, path, err)
	}
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, path, err)
	}
	return nil
}

func writeIfAbsent(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("%w: statting %s: %v", ErrStorage, path, err)
	}
	if err := os.WriteFile(path, []byte(content), fileMode); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, path, err)
	}
	return nil
}
