package safeops

// Command represents a discrete application operation with its
// specific configuration. Commands are produced by Parse and executed
// by the matching method on [App], keeping argument handling separate
// from execution.
type Command interface {
	// Name returns the command identifier used for routing. It matches
	// the CLI subcommand name.
	Name() string
}

// MigrateCommand prepares the database schema for the configured
// backend: GORM AutoMigrate for PostgreSQL, index definitions for
// SurrealDB, a no-op for the in-memory store. Safe to run repeatedly;
// it only creates what is missing.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string { return "migrate" }

// RunCommand starts the HTTP server and, when the store exposes a
// change feed, the realtime reconcilers that keep view state current.
type RunCommand struct{}

func (c *RunCommand) Name() string { return "run" }
