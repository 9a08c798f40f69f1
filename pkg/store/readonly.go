package store

import (
	"context"
	"fmt"

	"github.com/safeops/safeops/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects write operations whenever
// the isReadOnly function reports true.
//
// The read-only state is decided dynamically so the application can
// flip between read-write and read-only without rebuilding the store,
// for example while a maintenance window or a backend migration is in
// progress. Read operations always pass through.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a read-only wrapper around a store.
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store.
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return fmt.Errorf("operation denied: %w", ErrReadOnly)
	}
	return nil
}

// Write operations check read-only mode first.

func (r *ReadOnlyStore) CreateVenue(ctx context.Context, venue *models.Venue) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateVenue(ctx, venue)
}

func (r *ReadOnlyStore) UpdateVenue(ctx context.Context, venue *models.Venue) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateVenue(ctx, venue)
}

func (r *ReadOnlyStore) MergeVenue(ctx context.Context, id models.VenueID, fields map[string]any) (*models.Venue, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.MergeVenue(ctx, id, fields)
}

func (r *ReadOnlyStore) DeleteVenue(ctx context.Context, id models.VenueID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteVenue(ctx, id)
}

func (r *ReadOnlyStore) CreateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateVenueHazard(ctx, hazard)
}

func (r *ReadOnlyStore) UpdateVenueHazard(ctx context.Context, hazard *models.VenueHazard) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateVenueHazard(ctx, hazard)
}

func (r *ReadOnlyStore) MergeVenueHazard(ctx context.Context, id models.VenueHazardID, fields map[string]any) (*models.VenueHazard, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.MergeVenueHazard(ctx, id, fields)
}

func (r *ReadOnlyStore) DeleteVenueHazard(ctx context.Context, id models.VenueHazardID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteVenueHazard(ctx, id)
}

func (r *ReadOnlyStore) CreateRAW(ctx context.Context, raw *models.RAW) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateRAW(ctx, raw)
}

func (r *ReadOnlyStore) UpdateRAW(ctx context.Context, raw *models.RAW) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateRAW(ctx, raw)
}

func (r *ReadOnlyStore) MergeRAW(ctx context.Context, id models.RAWID, fields map[string]any) (*models.RAW, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.MergeRAW(ctx, id, fields)
}

func (r *ReadOnlyStore) DeleteRAW(ctx context.Context, id models.RAWID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteRAW(ctx, id)
}

func (r *ReadOnlyStore) CreateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateRAWHazard(ctx, hazard)
}

func (r *ReadOnlyStore) UpdateRAWHazard(ctx context.Context, hazard *models.RAWHazard) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateRAWHazard(ctx, hazard)
}

func (r *ReadOnlyStore) MergeRAWHazard(ctx context.Context, id models.RAWHazardID, fields map[string]any) (*models.RAWHazard, error) {
	if err := r.checkReadOnly(); err != nil {
		return nil, err
	}
	return r.Store.MergeRAWHazard(ctx, id, fields)
}

func (r *ReadOnlyStore) DeleteRAWHazard(ctx context.Context, id models.RAWHazardID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.DeleteRAWHazard(ctx, id)
}

func (r *ReadOnlyStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateUser(ctx, user)
}

func (r *ReadOnlyStore) UpdateUser(ctx context.Context, user *models.User) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.UpdateUser(ctx, user)
}

func (r *ReadOnlyStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.CreateNotification(ctx, n)
}

func (r *ReadOnlyStore) MarkNotificationRead(ctx context.Context, id models.NotificationID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.MarkNotificationRead(ctx, id)
}

func (r *ReadOnlyStore) Migrate(ctx context.Context) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.Migrate(ctx)
}

// Read operations pass through via the embedded Store.
