// Package models defines the domain entities for the SafeOps venue
// safety platform.
//
// SafeOps tracks the physical venues an organization operates, the
// hazards reported at them, and the risk assessment workflows (RAWs)
// that must be approved before events run at those venues. The models
// work consistently across the SurrealDB and PostgreSQL backends
// through careful design of relationships and serialization.
//
// # Domain Model
//
//   - [Venue]: A physical location with an address, an aggregated
//     safety status, and a count of unresolved critical issues rolled
//     up from its hazards
//   - [VenueHazard]: A standing hazard reported at a venue, graded by
//     severity and likelihood and scored with a risk priority number
//   - [RAW]: A risk assessment workflow for a planned event at a
//     venue; moves from draft through submission to an approval
//     decision
//   - [RAWHazard]: A hazard entry inside a RAW, pairing the graded
//     hazard with its control measures
//   - [User]: An account with a role (safety officer, facility
//     manager, approver, admin) that determines which workflow actions
//     are expected of it
//   - [Notification]: A message delivered to a user when a workflow
//     event concerns them, such as a RAW awaiting their review
//
// # Risk Scoring
//
// [RiskMatrix] converts a severity and likelihood grade pair into a
// risk priority number (RPN). The matrix is explicit configuration:
// the weights are set at construction and validated, never inferred
// from stored data. [DefaultRiskMatrix] provides the standard 4x4
// ordinal matrix.
//
// # Typed IDs
//
// Each entity has a strongly-typed identifier ([VenueID],
// [VenueHazardID], [RAWID], [RAWHazardID], [UserID], and
// [NotificationID]) wrapping a UUID that knows its database table.
// In PostgreSQL they store as plain UUIDs; in SurrealDB they marshal
// to and from RecordID through custom CBOR encoding. The compiler
// rejects passing a venue ID where a RAW ID is expected.
//
// # Workflow States
//
// A RAW starts as a draft, is submitted for review, and ends approved
// or rejected, possibly looping through changes_requested back to
// submission. Transition rules are enforced by the application layer;
// the model only defines the [RAWStatus] vocabulary.
//
// Usage example:
//
//	venue := &models.Venue{
//		Name:      "Riverside Stadium",
//		Address:   "1 Stadium Way",
//		CreatedBy: officerID,
//	}
//
//	hazard := &models.VenueHazard{
//		VenueID:     venue.ID,
//		Description: "Loose railing on the east stand",
//		Severity:    models.SeverityHigh,
//		Likelihood:  models.LikelihoodMedium,
//		ReportedBy:  officerID,
//	}
package models
