package migration

import "errors"

// ErrProviderMismatch means the migrations directory was generated for a
// different database provider than the one configured.
var ErrProviderMismatch = errors.New("migrations directory belongs to a different provider")
