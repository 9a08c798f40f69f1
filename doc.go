// Package safeops is the root of the SafeOps venue safety platform, a
// service for tracking venues, the hazards reported at them, and the
// risk assessment workflows (RAWs) that gate events held at those
// venues.
//
// The service exposes a REST API backed by a pluggable store:
// SurrealDB (the primary backend, with live queries feeding realtime
// view state), PostgreSQL (via GORM), or an in-memory store for tests
// and demos. All three implement the same
// [github.com/safeops/safeops/pkg/store.Store] interface, so the
// application layer is identical across backends.
//
// # Features
//
//   - Venue registry with aggregated safety status rolled up from
//     reported hazards
//   - Hazard reporting graded by severity and likelihood, scored with
//     a configurable risk matrix
//   - Risk assessment workflows with an explicit draft, submitted,
//     approved, rejected, and changes-requested state machine
//   - Role-aware notifications delivered on workflow transitions
//   - Realtime reconciliation of view state from the store's change
//     feed, applied record by record rather than by full reload
//
// # Package Organization
//
// See [github.com/safeops/safeops/pkg] for the layout of the
// sub-packages: application layer, domain models, store
// implementations, realtime reconciliation, and the API client.
//
// # Getting Started
//
// For command-line usage and configuration, see
// [github.com/safeops/safeops/pkg/safeops]. The
// [github.com/safeops/safeops/pkg/client] package provides a Go HTTP
// client; [github.com/safeops/safeops/pkg/safeopstesting] adds virtual
// user simulation for load and end-to-end testing.
package safeops
