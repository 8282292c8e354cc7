package tenant

import (
	"path/filepath"
	"regexp"
)

// MaxUserIDLength is the maximum accepted length of a raw user id, applied
// after sanitization.
const MaxUserIDLength = 128

// validUserIDChars keeps only alphanumerics, hyphen, and underscore.
var validUserIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Paths are the deterministic, sanitized filesystem locations derived from
// a root pair and a user id. Every field is an absolute path rooted under
// configRoot/workspaceRoot; none can escape those roots because SanitizeID
// strips every character that could traverse a directory.
type Paths struct {
	UserID        string
	ConfigPath    string
	WorkspacePath string
	AgentDir      string
	SessionsPath  string
	MemoryPath    string
}

// SanitizeID cleans a raw user id into one safe for filesystem paths: path
// separators and ".." collapse to "_", then only [A-Za-z0-9_-] survive.
// Returns ErrInvalidUserID if the result is empty or exceeds MaxUserIDLength.
func SanitizeID(raw string) (string, error) {
	// Neutralize path traversal and separators before stripping, so
	// "../../etc" becomes "____etc" instead of silently collapsing to
	// "etc" (which would let two different hostile inputs collide).
	id := filepath.ToSlash(raw)
	id = regexp.MustCompile(`\.\.`).ReplaceAllString(id, "_")
	id = regexp.MustCompile(`[/\\]`).ReplaceAllString(id, "_")
	id = validUserIDChars.ReplaceAllString(id, "")

	if id == "" || len(id) > MaxUserIDLength {
		return "", ErrInvalidUserID
	}
	return id, nil
}

// DerivePaths sanitizes rawUserID and derives every path the gateway needs
// for that tenant, rooted under configRoot and workspaceRoot.
func DerivePaths(configRoot, workspaceRoot, rawUserID string) (Paths, error) {
	id, err := SanitizeID(rawUserID)
	if err != nil {
		return Paths{}, err
	}

	workspacePath := filepath.Join(workspaceRoot, "users", id)
	return Paths{
		UserID:        id,
		ConfigPath:    filepath.Join(configRoot, "users", id, "config.json"),
		WorkspacePath: workspacePath,
		AgentDir:      filepath.Join(workspacePath, "agent"),
		SessionsPath:  filepath.Join(workspacePath, "sessions"),
		MemoryPath:    filepath.Join(workspacePath, "memory"),
	}, nil
}
