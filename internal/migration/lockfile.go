package migration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LockfileName is the lockfile at the root of a migrations directory.
const LockfileName = "migration_lock.yaml"

// Lockfile pins a migrations directory to one provider and lists the
// migrations recorded in it, in history order. Generated scripts are only
// valid for the provider they were rendered for, so mixing providers in one
// directory corrupts the history.
type Lockfile struct {
	Provider   string          `yaml:"provider"`
	Migrations []LockfileEntry `yaml:"migrations,omitempty"`
}

// LockfileEntry is one recorded migration.
type LockfileEntry struct {
	Name     string `yaml:"name"`
	Checksum string `yaml:"checksum"`
}

// ReadLockfile loads the lockfile from a migrations directory. A missing
// file is a zero Lockfile, not an error, so fresh directories work.
func ReadLockfile(dir string) (Lockfile, error) {
	data, err := os.ReadFile(filepath.Join(dir, LockfileName))
	if errors.Is(err, os.ErrNotExist) {
		return Lockfile{}, nil
	}

	if err != nil {
		return Lockfile{}, fmt.Errorf("reading lockfile: %w", err)
	}

	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return Lockfile{}, fmt.Errorf("parsing lockfile: %w", err)
	}

	return lf, nil
}

// WriteLockfile persists the lockfile at the root of a migrations directory.
func WriteLockfile(dir string, lf Lockfile) error {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("encoding lockfile: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, LockfileName), data, 0o644); err != nil {
		return fmt.Errorf("writing lockfile: %w", err)
	}

	return nil
}

// CheckProvider verifies the directory belongs to the given provider. An
// unpinned lockfile passes; the next Record pins it.
func (lf Lockfile) CheckProvider(provider string) error {
	if lf.Provider == "" || strings.EqualFold(lf.Provider, provider) {
		return nil
	}

	return fmt.Errorf("%w: lockfile pins %q, configuration says %q", ErrProviderMismatch, lf.Provider, provider)
}

// Record pins the provider and appends the migration unless an entry with
// the same name is already present.
func (lf *Lockfile) Record(provider string, m Migration) {
	lf.Provider = provider

	for _, entry := range lf.Migrations {
		if entry.Name == m.Name {
			return
		}
	}

	lf.Migrations = append(lf.Migrations, LockfileEntry{Name: m.Name, Checksum: m.Checksum})
}
