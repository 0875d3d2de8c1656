package rules

import "github.com/aqasim81/database-schema-engine/internal/analyzer"

// NewDefaultRegistry returns a Registry with all built-in detection rules.
func NewDefaultRegistry() *analyzer.Registry {
	r := analyzer.NewRegistry()
	r.Register(NewCreateIndexRule())
	r.Register(NewVolatileDefaultRule())
	r.Register(NewAddConstraintRule())
	r.Register(NewAlterColumnTypeRule())
	r.Register(NewNotNullRule())
	r.Register(NewDropTableRule())
	r.Register(NewDropColumnRule())
	r.Register(NewDestructiveDMLRule())
	r.Register(NewVacuumFullRule())
	r.Register(NewLockTableRule())
	r.Register(NewRenameRule())

	return r
}
