package provisioner_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/gateway-core/pkg/provisioner"
	"github.com/openclaw/gateway-core/pkg/tenant"
)

func testPaths(t *testing.T) tenant.Paths {
	t.Helper()
	root := t.TempDir()
	paths, err := tenant.DerivePaths(filepath.Join(root, "config"), filepath.Join(root, "workspace"), "alice")
	require.NoError(t, err)
	return paths
}

func TestProvision_CreatesDirectoryTree(t *testing.T) {
	paths := testPaths(t)
	p := provisioner.New("https://proxy.example.com")

	require.NoError(t, p.Provision(paths, ""))

	for _, dir := range []string{paths.WorkspacePath, paths.AgentDir, paths.SessionsPath, paths.MemoryPath, filepath.Join(paths.WorkspacePath, "custom")} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	}
}

func TestProvision_IdempotentDirectories(t *testing.T) {
	paths := testPaths(t)
	p := provisioner.New("https://proxy.example.com")

	require.NoError(t, p.Provision(paths, ""))
	require.NoError(t, p.Provision(paths, "")) // second call must not error
}

func TestProvision_WritesDefaultsOnlyIfAbsent(t *testing.T) {
	paths := testPaths(t)
	p := provisioner.New("https://proxy.example.com")

	require.NoError(t, p.Provision(paths, ""))

	heartbeatPath := filepath.Join(paths.WorkspacePath, "HEARTBEAT.md")
	require.NoError(t, os.WriteFile(heartbeatPath, []byte("custom heartbeat"), 0o600))

	require.NoError(t, p.Provision(paths, ""))

	data, err := os.ReadFile(heartbeatPath)
	require.NoError(t, err)
	assert.Equal(t, "custom heartbeat", string(data))
}

func TestProvision_CredentialsOnlyWrittenWithKey(t *testing.T) {
	paths := testPaths(t)
	p := provisioner.New("https://proxy.example.com")

	require.NoError(t, p.Provision(paths, ""))

	_, err := os.Stat(filepath.Join(paths.AgentDir, "auth-profiles.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestProvision_CredentialsRefreshedEveryCall(t *testing.T) {
	paths := testPaths(t)
	p := provisioner.New("https://proxy.example.com")

	require.NoError(t, p.Provision(paths, "sk-key-1"))

	authPath := filepath.Join(paths.AgentDir, "auth-profiles.json")
	var doc provisioner.AuthProfiles
	data, err := os.ReadFile(authPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))

	require.Len(t, doc.Profiles, 2)
	assert.Equal(t, "sk-key-1", doc.Profiles[0].Key)
	providers := map[string]bool{}
	for _, prof := range doc.Profiles {
		providers[prof.Provider] = true
		assert.Equal(t, "api_key", prof.Type)
		assert.Equal(t, "https://proxy.example.com", prof.BaseURL)
	}
	assert.True(t, providers["anthropic:default"])
	assert.True(t, providers["openai:default"])

	// Rotate the key and re-provision; the file must reflect the new key.
	require.NoError(t, p.Provision(paths, "sk-key-2"))
	data, err = os.ReadFile(authPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "sk-key-2", doc.Profiles[0].Key)
}

func TestProvision_ModelsJSON(t *testing.T) {
	paths := testPaths(t)
	p := provisioner.New("https://proxy.example.com")

	require.NoError(t, p.Provision(paths, "sk-key"))

	data, err := os.ReadFile(filepath.Join(paths.AgentDir, "models.json"))
	require.NoError(t, err)

	var routes map[string]provisioner.ModelRoute
	require.NoError(t, json.Unmarshal(data, &routes))
	assert.Equal(t, "https://proxy.example.com", routes["anthropic"].BaseURL)
	assert.Equal(t, "https://proxy.example.com", routes["openai"].BaseURL)
}

func TestProvision_OpenclawJSONNeverOverwritten(t *testing.T) {
	paths := testPaths(t)
	p := provisioner.New("https://proxy.example.com")

	require.NoError(t, p.Provision(paths, "sk-key"))

	openclawPath := filepath.Join(paths.AgentDir, "openclaw.json")
	require.NoError(t, os.WriteFile(openclawPath, []byte(`{"custom":true}`), 0o600))

	require.NoError(t, p.Provision(paths, "sk-key-rotated"))

	data, err := os.ReadFile(openclawPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"custom":true}`, string(data))
}
