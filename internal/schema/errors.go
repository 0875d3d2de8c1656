package schema

import "errors"

// ErrStructuralIntegrity indicates a malformed snapshot: dangling ids,
// unsorted side-tables, or constraint violations that make the model
// unusable. It is fatal; a snapshot that fails validation must be rebuilt.
var ErrStructuralIntegrity = errors.New("schema failed structural integrity check")
