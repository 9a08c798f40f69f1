// Package store defines the persistence layer abstraction for SafeOps.
//
// The [Store] interface lets the application run against different
// backends with one API: SurrealDB (native SurrealQL, CBOR codec, live
// change feeds), PostgreSQL (GORM), or an in-memory store used by
// tests and demo runs. Implementations live in the subpackages
// surreal, postgres, and memory.
//
// Conventions shared by all implementations:
//
//   - Create methods accept entities with zero IDs and generate them.
//   - Single-item Get methods return nil without error when the record
//     does not exist; callers use the nil result to detect not-found.
//   - Update methods replace the full entity; Merge methods apply only
//     the named fields and leave everything else untouched.
//   - List methods return empty slices for no results, never nil, and
//     order most-recent-first unless documented otherwise.
//   - All methods accept context.Context and respect cancellation.
//
// Stores that also implement [ChangeFeed] can push backend-originated
// changes to the realtime reconciliation layer.
package store

import (
	"context"

	"github.com/safeops/safeops/pkg/models"
)

// VenueFilter narrows ListVenues. Zero-valued fields are ignored.
type VenueFilter struct {
	// Search matches case-insensitively against name and address.
	Search string
	// Status restricts to venues with the given safety status.
	Status models.VenueStatus
	// CreatedBy restricts to venues created by the given user.
	CreatedBy models.UserID
}

// RAWFilter narrows ListRAWs. Zero-valued fields are ignored.
type RAWFilter struct {
	// AuthorID restricts to worksheets authored by the given user.
	AuthorID models.UserID
	// Status restricts to worksheets in the given lifecycle state.
	Status models.RAWStatus
	// Search matches case-insensitively against the event title.
	Search string
}

// Store is the complete persistence interface for the SafeOps domain.
//
// Derived fields are the caller's responsibility: RPN on hazards and
// the venue status rollup are computed by the application layer before
// writes reach the store.
type Store interface {
	// Venue operations

	// CreateVenue persists a new venue, generating an ID if unset.
	CreateVenue(ctx context.Context, venue *models.Venue) error

	// GetVenue returns the venue or nil when no venue has the ID.
	GetVenue(ctx context.Context, id models.VenueID) (*models.Venue, error)

	// UpdateVenue replaces an existing venue in full.
	UpdateVenue(ctx context.Context, venue *models.Venue) error

	// MergeVenue applies a partial update of the named fields only and
	// returns the post-update venue.
	MergeVenue(ctx context.Context, id models.VenueID, fields map[string]any) (*models.Venue, error)

	// DeleteVenue hard-deletes a venue. Fails with an error wrapping
	// ErrConflict when hazards or worksheets still reference it.
	DeleteVenue(ctx context.Context, id models.VenueID) error

	// ListVenues returns venues matching the filter, most recently
	// updated first.
	ListVenues(ctx context.Context, filter VenueFilter) ([]*models.Venue, error)

	// Venue hazard operations

	// CreateVenueHazard persists a hazard. The parent venue must exist.
	CreateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error

	// GetVenueHazard returns the hazard or nil when not found.
	GetVenueHazard(ctx context.Context, id models.VenueHazardID) (*models.VenueHazard, error)

	// UpdateVenueHazard replaces an existing hazard in full.
	UpdateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error

	// MergeVenueHazard applies a partial update and returns the
	// post-update hazard.
	MergeVenueHazard(ctx context.Context, id models.VenueHazardID, fields map[string]any) (*models.VenueHazard, error)

	// DeleteVenueHazard hard-deletes a hazard.
	DeleteVenueHazard(ctx context.Context, id models.VenueHazardID) error

	// ListVenueHazards returns a venue's hazards ordered by RPN
	// descending.
	ListVenueHazards(ctx context.Context, venueID models.VenueID) ([]*models.VenueHazard, error)

	// RAW operations

	// CreateRAW persists a worksheet. The parent venue must exist.
	CreateRAW(ctx context.Context, raw *models.RAW) error

	// GetRAW returns the worksheet with its hazards (RPN descending)
	// and the joined venue name, or nil when not found.
	GetRAW(ctx context.Context, id models.RAWID) (*models.RAW, error)

	// UpdateRAW replaces an existing worksheet in full. The Hazards
	// and VenueName view fields are ignored on write.
	UpdateRAW(ctx context.Context, raw *models.RAW) error

	// MergeRAW applies a partial update and returns the post-update
	// worksheet.
	MergeRAW(ctx context.Context, id models.RAWID, fields map[string]any) (*models.RAW, error)

	// DeleteRAW hard-deletes a worksheet. Fails with an error wrapping
	// ErrConflict when hazard entries still reference it.
	DeleteRAW(ctx context.Context, id models.RAWID) error

	// ListRAWs returns worksheets matching the filter, most recently
	// updated first, each with the joined venue name.
	ListRAWs(ctx context.Context, filter RAWFilter) ([]*models.RAW, error)

	// RAW hazard operations

	// CreateRAWHazard persists a hazard entry. The parent worksheet
	// must exist.
	CreateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error

	// GetRAWHazard returns the hazard entry or nil when not found.
	GetRAWHazard(ctx context.Context, id models.RAWHazardID) (*models.RAWHazard, error)

	// UpdateRAWHazard replaces an existing hazard entry in full.
	UpdateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error

	// MergeRAWHazard applies a partial update and returns the
	// post-update hazard entry.
	MergeRAWHazard(ctx context.Context, id models.RAWHazardID, fields map[string]any) (*models.RAWHazard, error)

	// DeleteRAWHazard hard-deletes a hazard entry.
	DeleteRAWHazard(ctx context.Context, id models.RAWHazardID) error

	// ListRAWHazards returns a worksheet's hazard entries ordered by
	// RPN descending.
	ListRAWHazards(ctx context.Context, rawID models.RAWID) ([]*models.RAWHazard, error)

	// User operations

	// CreateUser persists a new account. A duplicate email fails with
	// an error wrapping ErrConflict where the store checks it.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUser returns the user or nil when not found.
	GetUser(ctx context.Context, id models.UserID) (*models.User, error)

	// GetUserByEmail returns the user with the email (case-insensitive)
	// or nil when not found. Used by authentication.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpdateUser replaces an existing account in full.
	UpdateUser(ctx context.Context, user *models.User) error

	// ListUsersByRole returns every user holding the role. Used to fan
	// out notifications to approvers.
	ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)

	// Notification operations

	// CreateNotification persists an in-app notification.
	CreateNotification(ctx context.Context, n *models.Notification) error

	// ListNotifications returns a user's notifications, newest first.
	ListNotifications(ctx context.Context, userID models.UserID) ([]*models.Notification, error)

	// MarkNotificationRead flags a notification as read.
	MarkNotificationRead(ctx context.Context, id models.NotificationID) error

	// Migrate initializes or updates backend schema. Idempotent.
	Migrate(ctx context.Context) error

	// Close releases connections. Safe to call more than once.
	Close() error
}

// ChangeAction identifies the kind of backend-side mutation a change
// feed event reports.
type ChangeAction string

const (
	ChangeCreate ChangeAction = "create"
	ChangeUpdate ChangeAction = "update"
	ChangeDelete ChangeAction = "delete"
)

// Change is one backend-originated mutation observed on a table.
// Delete events carry the ID only; Data is nil.
type Change struct {
	Action ChangeAction
	Table  string
	// ID is the record's UUID in string form.
	ID string
	// Data is the record body after the mutation, as loosely typed
	// key/value pairs in the backend's own representation.
	Data map[string]any
}

// ChangeFeed is implemented by stores that can push backend-originated
// changes to subscribers. Reconnection after a dropped connection is
// the underlying client library's responsibility, not the feed's.
type ChangeFeed interface {
	// Subscribe opens a change feed on the table. The returned channel
	// delivers every insert, update and delete until ctx is done or
	// the feed ends, then closes.
	Subscribe(ctx context.Context, table string) (<-chan Change, error)
}
