// Package pkg contains the sub-packages of the SafeOps application.
//
// # Application Layer
//
// [github.com/safeops/safeops/pkg/safeops] - Application logic,
// command parsing, HTTP handlers, and the RAW workflow state machine.
// Start here when extending the API or adding commands.
//
// # Domain Layer
//
// [github.com/safeops/safeops/pkg/models] - Domain entities, typed
// IDs, and the risk scoring matrix.
//
// # Infrastructure Layer
//
// [github.com/safeops/safeops/pkg/store] - Persistence abstraction:
// the Store interface, the change feed contract, and the read-only
// wrapper.
//
// [github.com/safeops/safeops/pkg/store/surrealdb] - SurrealDB
// implementation using native SurrealQL and CBOR, with live queries
// backing the change feed.
//
// [github.com/safeops/safeops/pkg/store/postgres] - PostgreSQL
// implementation using the GORM ORM.
//
// [github.com/safeops/safeops/pkg/store/memory] - In-memory
// implementation with a local change feed, for tests and demo runs.
//
// [github.com/safeops/safeops/pkg/state] - Mutex-guarded entity
// collections holding view state, constructed per server instance.
//
// [github.com/safeops/safeops/pkg/realtime] - Reconcilers that apply
// change feed events onto state collections incrementally.
//
// # Integration Layer
//
// [github.com/safeops/safeops/pkg/client] - Typed HTTP client for the
// SafeOps API.
//
// [github.com/safeops/safeops/pkg/safeopstesting] - Virtual user
// simulation for load and end-to-end testing.
//
// # Package Dependencies
//
//	safeops → store, models, state, realtime, client
//	store → models
//	store/surrealdb, store/postgres, store/memory → store, models
//	realtime → state, store
//	client → models
//	safeopstesting → client, models
package pkg
