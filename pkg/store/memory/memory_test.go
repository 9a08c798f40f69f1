package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/store"
)

func TestCreateVenueAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St"}
	require.NoError(t, s.CreateVenue(ctx, venue))

	assert.False(t, venue.ID.IsZero())
	assert.Equal(t, models.VenueStatusSafe, venue.Status)
	assert.False(t, venue.CreatedAt.IsZero())
	assert.False(t, venue.UpdatedAt.IsZero())
}

func TestGetMissingReturnsNilWithoutError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	venue, err := s.GetVenue(ctx, models.NewVenueID())
	require.NoError(t, err)
	assert.Nil(t, venue)

	raw, err := s.GetRAW(ctx, models.NewRAWID())
	require.NoError(t, err)
	assert.Nil(t, raw)

	user, err := s.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestMergeVenueIsPartial(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St", PostalCode: "049090"}
	require.NoError(t, s.CreateVenue(ctx, venue))

	merged, err := s.MergeVenue(ctx, venue.ID, map[string]any{"status": "warning"})
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, models.VenueStatusWarning, merged.Status)
	assert.Equal(t, "Harbour Hall", merged.Name, "untouched fields survive the merge")
	assert.Equal(t, "049090", merged.PostalCode)

	stored, err := s.GetVenue(ctx, venue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VenueStatusWarning, stored.Status)
}

func TestVenueHazardRequiresExistingVenue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.CreateVenueHazard(ctx, &models.VenueHazard{
		VenueID:     models.NewVenueID(),
		Description: "exposed wiring",
		Severity:    models.SeverityHigh,
		Likelihood:  models.LikelihoodMedium,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestDeleteVenueBlockedByDependents(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St"}
	require.NoError(t, s.CreateVenue(ctx, venue))
	hazard := &models.VenueHazard{
		VenueID:     venue.ID,
		Description: "wet floor",
		Severity:    models.SeverityLow,
		Likelihood:  models.LikelihoodLow,
		RPN:         1,
	}
	require.NoError(t, s.CreateVenueHazard(ctx, hazard))

	err := s.DeleteVenue(ctx, venue.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Contains(t, err.Error(), "dependent records")

	require.NoError(t, s.DeleteVenueHazard(ctx, hazard.ID))
	require.NoError(t, s.DeleteVenue(ctx, venue.ID))
}

func TestDeleteRAWBlockedByHazardEntries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St"}
	require.NoError(t, s.CreateVenue(ctx, venue))
	raw := &models.RAW{VenueID: venue.ID, AuthorID: models.NewUserID(), EventTitle: "Night market"}
	require.NoError(t, s.CreateRAW(ctx, raw))
	entry := &models.RAWHazard{
		RAWID:             raw.ID,
		HazardDescription: "crowd crush at entry",
		Severity:          models.SeverityCritical,
		Likelihood:        models.LikelihoodMedium,
		RPN:               8,
	}
	require.NoError(t, s.CreateRAWHazard(ctx, entry))

	err := s.DeleteRAW(ctx, raw.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Contains(t, err.Error(), "hazard entries")

	require.NoError(t, s.DeleteRAWHazard(ctx, entry.ID))
	require.NoError(t, s.DeleteRAW(ctx, raw.ID))
}

func TestGetRAWComposesViewFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St"}
	require.NoError(t, s.CreateVenue(ctx, venue))
	raw := &models.RAW{VenueID: venue.ID, AuthorID: models.NewUserID(), EventTitle: "Night market"}
	require.NoError(t, s.CreateRAW(ctx, raw))

	low := &models.RAWHazard{RAWID: raw.ID, HazardDescription: "tripping", Severity: models.SeverityLow, Likelihood: models.LikelihoodLow, RPN: 1}
	high := &models.RAWHazard{RAWID: raw.ID, HazardDescription: "fire", Severity: models.SeverityCritical, Likelihood: models.LikelihoodHigh, RPN: 12}
	require.NoError(t, s.CreateRAWHazard(ctx, low))
	require.NoError(t, s.CreateRAWHazard(ctx, high))

	got, err := s.GetRAW(ctx, raw.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Harbour Hall", got.VenueName)
	require.Len(t, got.Hazards, 2)
	assert.Equal(t, "fire", got.Hazards[0].HazardDescription, "entries ordered by RPN descending")
}

func TestListVenuesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	stamp := time.Now().Truncate(time.Second)
	first := &models.Venue{Name: "Alpha Arena", Address: "1 A St", CreatedAt: stamp, UpdatedAt: stamp}
	second := &models.Venue{Name: "Beta Bowl", Address: "2 B St", CreatedAt: stamp, UpdatedAt: stamp}
	require.NoError(t, s.CreateVenue(ctx, first))
	require.NoError(t, s.CreateVenue(ctx, second))

	venues, err := s.ListVenues(ctx, store.VenueFilter{})
	require.NoError(t, err)
	require.Len(t, venues, 2)
	// Same timestamp, so insertion sequence breaks the tie.
	assert.Equal(t, "Beta Bowl", venues[0].Name)
	assert.Equal(t, "Alpha Arena", venues[1].Name)

	// Updating the older record moves it to the front.
	_, err = s.MergeVenue(ctx, first.ID, map[string]any{"status": "warning"})
	require.NoError(t, err)
	venues, err = s.ListVenues(ctx, store.VenueFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Arena", venues[0].Name)
}

func TestListVenuesFilters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	officer := models.NewUserID()
	require.NoError(t, s.CreateVenue(ctx, &models.Venue{Name: "Harbour Hall", Address: "1 Quay St", CreatedBy: officer}))
	require.NoError(t, s.CreateVenue(ctx, &models.Venue{Name: "Summit Stadium", Address: "9 Peak Rd", Status: models.VenueStatusWarning}))

	byStatus, err := s.ListVenues(ctx, store.VenueFilter{Status: models.VenueStatusWarning})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Summit Stadium", byStatus[0].Name)

	bySearch, err := s.ListVenues(ctx, store.VenueFilter{Search: "quay"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "Harbour Hall", bySearch[0].Name)

	byCreator, err := s.ListVenues(ctx, store.VenueFilter{CreatedBy: officer})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	assert.Equal(t, "Harbour Hall", byCreator[0].Name)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "officer@example.com", Name: "First Officer"}))
	err := s.CreateUser(ctx, &models.User{Email: "OFFICER@example.com", Name: "Impostor"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Contains(t, err.Error(), "already registered")
}

func TestSubscribeDeliversChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewMemoryStore()

	changes, err := s.Subscribe(ctx, models.TableVenues)
	require.NoError(t, err)

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St"}
	require.NoError(t, s.CreateVenue(ctx, venue))
	_, err = s.MergeVenue(ctx, venue.ID, map[string]any{"status": "warning"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteVenue(ctx, venue.ID))

	created := waitChange(t, changes)
	assert.Equal(t, store.ChangeCreate, created.Action)
	assert.Equal(t, models.TableVenues, created.Table)
	assert.Equal(t, venue.ID.String(), created.ID)
	require.NotNil(t, created.Data)
	assert.Equal(t, "Harbour Hall", created.Data["name"])

	updated := waitChange(t, changes)
	assert.Equal(t, store.ChangeUpdate, updated.Action)
	assert.Equal(t, "warning", updated.Data["status"])

	deleted := waitChange(t, changes)
	assert.Equal(t, store.ChangeDelete, deleted.Action)
	assert.Equal(t, venue.ID.String(), deleted.ID)
	assert.Nil(t, deleted.Data, "delete events carry the ID only")
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()

	changes, err := s.Subscribe(ctx, models.TableVenues)
	require.NoError(t, err)

	cancel()
	select {
	case _, open := <-changes:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func waitChange(t *testing.T, ch <-chan store.Change) store.Change {
	t.Helper()
	select {
	case change := <-ch:
		return change
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
		return store.Change{}
	}
}
