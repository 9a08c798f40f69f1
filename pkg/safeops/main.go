package safeops

import (
	"context"
	"fmt"
)

// Main is the entry point for the safeops application. It parses
// arguments, builds the App, and dispatches to the selected command.
// Tests call it directly instead of building the binary; ctx cancels
// the server for graceful shutdown.
//
// # Environment Variables
//
//	SAFEOPS_ADDR       - HTTP listen address (default: :8080)
//	SAFEOPS_STORE      - Store backend: surrealdb, postgres, memory
//	SAFEOPS_LOG_LEVEL  - Log level (default: info)
//	POSTGRES_DSN       - PostgreSQL connection string
//	SURREALDB_URL      - SurrealDB WebSocket URL (default: ws://localhost:8000/rpc)
//	SURREALDB_NS       - SurrealDB namespace (default: safeops)
//	SURREALDB_DB       - SurrealDB database (default: safeops)
//	SURREALDB_USER     - SurrealDB username (default: root)
//	SURREALDB_PASS     - SurrealDB password (default: root)
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := New(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch c := cmd.(type) {
	case *MigrateCommand:
		if err := app.Migrate(ctx, c); err != nil {
			return err
		}
	case *RunCommand:
		if err := app.Run(ctx, c); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}
