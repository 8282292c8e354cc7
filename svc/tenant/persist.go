package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tenantpkg "github.com/openclaw/gateway-core/pkg/tenant"
)

const configFileMode = 0o600

// persistConfig writes rec to paths.ConfigPath as indented JSON, creating
// the parent directory if absent.
func persistConfig(paths tenantpkg.Paths, rec tenantpkg.CloudTenantRecord) error {
	if err := os.MkdirAll(filepath.Dir(paths.ConfigPath), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(paths.ConfigPath, data, configFileMode); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// readConfig reads and decodes paths.ConfigPath, returning ErrNotFound
// when the file does not exist.
func readConfig(paths tenantpkg.Paths) (tenantpkg.CloudTenantRecord, error) {
	data, err := os.ReadFile(paths.ConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tenantpkg.CloudTenantRecord{}, ErrNotFound
		}
		return tenantpkg.CloudTenantRecord{}, fmt.Errorf("reading config: %w", err)
	}
	var rec tenantpkg.CloudTenantRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return tenantpkg.CloudTenantRecord{}, fmt.Errorf("decoding config: %w", err)
	}
	return rec, nil
}
