package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MultiTenant is the multi-tenant block of the global gateway configuration.
// When Enabled is false (the default, zero value), the multi-tenant core is
// inert and callers must not enter the multi-tenant branch.
type MultiTenant struct {
	Enabled           bool   `json:"enabled"`
	CloudBackendURL   string `json:"cloudBackendUrl"`
	ServiceToken      string `json:"serviceToken"`
	ConfigRoot        string `json:"configRoot"`
	WorkspaceRoot     string `json:"workspaceRoot"`
	TemplatePath      string `json:"templatePath"`
	MaxCachedUsers    int    `json:"maxCachedUsers"`
	UserIdleTimeoutMs int64  `json:"userIdleTimeoutMs"`
	SyncIntervalMs    int64  `json:"syncIntervalMs"`
}

// Global is the root shape of the gateway's global configuration file.
// Unknown fields are ignored; only the multi-tenant block is interpreted by
// this package.
type Global struct {
	MultiTenant MultiTenant `json:"multiTenant"`
}

// applyDefaults fills in the documented defaults for any zero-valued field.
func (mt *MultiTenant) applyDefaults() {
	if mt.MaxCachedUsers == 0 {
		mt.MaxCachedUsers = 100
	}
	if mt.UserIdleTimeoutMs == 0 {
		mt.UserIdleTimeoutMs = int64(time.Hour / time.Millisecond)
	}
	if mt.SyncIntervalMs == 0 {
		mt.SyncIntervalMs = int64(5 * time.Minute / time.Millisecond)
	}
	if mt.ServiceToken == "" {
		mt.ServiceToken = os.Getenv("OPENCLAW_SERVICE_TOKEN")
	}
}

// globalConfigTTL is how long a loaded global config is trusted before the
// next call re-reads it from disk.
const globalConfigTTL = 60 * time.Second

type globalCacheEntry struct {
	value     Global
	loadedAt  time.Time
	sourceErr error
}

var (
	globalMu    sync.Mutex
	globalEntry *globalCacheEntry
)

// searchPaths returns the global config search order, first existing wins:
// env OPENCLAW_GLOBAL_CONFIG, /etc/openclaw/config.json,
// ~/.clawdbot/openclaw.json, ~/.openclaw/openclaw.json.
func searchPaths() []string {
	var paths []string
	if p := os.Getenv("OPENCLAW_GLOBAL_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, "/etc/openclaw/config.json")

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".clawdbot", "openclaw.json"),
			filepath.Join(home, ".openclaw", "openclaw.json"),
		)
	}
	return paths
}

// LoadGlobal locates and parses the global gateway configuration using the
// documented search order, permissively (JSON with comments and trailing
// commas allowed). Results are cached for globalConfigTTL; use
// ResetGlobalCache to force a re-read, which tests should do whenever they
// change OPENCLAW_GLOBAL_CONFIG or the files it points to.
//
// Returns ErrConfigUnavailable when no candidate path exists.
func LoadGlobal() (Global, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalEntry != nil && time.Since(globalEntry.loadedAt) < globalConfigTTL {
		return globalEntry.value, globalEntry.sourceErr
	}

	g, err := readGlobal()
	globalEntry = &globalCacheEntry{value: g, loadedAt: time.Now(), sourceErr: err}
	return g, err
}

func readGlobal() (Global, error) {
	for _, path := range searchPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var g Global
		if err := json.Unmarshal(stripJSONC(data), &g); err != nil {
			return Global{}, err
		}
		g.MultiTenant.applyDefaults()
		return g, nil
	}
	return Global{}, ErrConfigUnavailable
}

// ResetGlobalCache clears the cached global configuration so the next call
// to LoadGlobal re-reads from disk. Tests must call this after mutating
// OPENCLAW_GLOBAL_CONFIG or the files on the search path.
func ResetGlobalCache() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalEntry = nil
}

// stripJSONC removes "//" line comments, "/* */" block comments, and
// trailing commas before an object/array close, so permissive JSONC source
// files parse with the standard library decoder. It is a single linear pass
// over the bytes, tracking whether the cursor is inside a string literal so
// comment-like sequences inside string values are left untouched.
func stripJSONC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false
	escaped := false

	for i := 0; i < len(data); i++ {
		c := data[i]

		if inString {
			out = append(out, c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
			i-- // compensate for loop increment
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i+1 < len(data) && !(data[i] == '*' && data[i+1] == '/') {
				i++
			}
			i++ // land on the closing '/'
		case c == ',':
			if j := nextNonSpace(data, i+1); j < len(data) && (data[j] == '}' || data[j] == ']') {
				continue // drop trailing comma
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func nextNonSpace(data []byte, from int) int {
	for from < len(data) {
		switch data[from] {
		case ' ', '\t', '\r', '\n':
			from++
			continue
		}
		return from
	}
	return from
}
