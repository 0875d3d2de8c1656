// Package migration handles the on-disk history: one directory per
// migration, named with a UTC timestamp prefix, each holding a single
// migration.sql script. A lockfile at the directory root pins the provider
// and lists the recorded migrations.
package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ScriptName is the script file inside every migration directory.
const ScriptName = "migration.sql"

// Migration is a single migration loaded from disk.
type Migration struct {
	Name      string // directory name, "20240101120000_create_users"
	Directory string // path to the migration directory
	Script    string // contents of migration.sql, trimmed
	Checksum  string // SHA-256 hex digest of Script
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}

// timestampFormat is the 14-digit UTC prefix of migration directory names.
// Lexicographic order on it is history order.
const timestampFormat = "20060102150405"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Format names a new migration directory. The label is reduced to letters,
// digits, and underscores; an empty label leaves just the timestamp prefix.
func Format(t time.Time, name string) string {
	label := strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "_")

	return t.UTC().Format(timestampFormat) + "_" + label
}

// Write creates the named migration directory under dir and writes its
// script, creating dir itself if needed. The returned Migration matches what
// a later LoadFromDir will read back.
func Write(dir, name, script string) (Migration, error) {
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return Migration{}, fmt.Errorf("creating migration directory %s: %w", path, err)
	}

	if err := os.WriteFile(filepath.Join(path, ScriptName), []byte(script), 0o644); err != nil {
		return Migration{}, fmt.Errorf("writing migration script: %w", err)
	}

	trimmed := strings.TrimSpace(script)

	return Migration{
		Name:      name,
		Directory: path,
		Script:    trimmed,
		Checksum:  ComputeChecksum(trimmed),
	}, nil
}
