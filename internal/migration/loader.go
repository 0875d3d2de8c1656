package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// dirPattern matches migration directory names: a 14-digit timestamp, an
// underscore, and a free-form label (possibly empty).
var dirPattern = regexp.MustCompile(`^\d{14}_.*$`)

// LoadFromDir scans a migrations directory and returns its migrations in
// history order. Entries that are not migration directories are ignored; a
// migration directory without a migration.sql is an error, since a deleted
// script silently changes history.
func LoadFromDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var migrations []Migration

	// ReadDir yields entries sorted by name, and the timestamp prefix makes
	// name order history order.
	for _, entry := range entries {
		if !entry.IsDir() || !dirPattern.MatchString(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name(), ScriptName)

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading migration script %s: %w", path, err)
		}

		script := strings.TrimSpace(string(data))

		migrations = append(migrations, Migration{
			Name:      entry.Name(),
			Directory: filepath.Join(dir, entry.Name()),
			Script:    script,
			Checksum:  ComputeChecksum(script),
		})
	}

	return migrations, nil
}
