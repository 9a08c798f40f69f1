package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/state"
	"github.com/safeops/safeops/pkg/store"
	"github.com/safeops/safeops/pkg/store/memory"
)

func newVenueReconciler(s *memory.MemoryStore) (*Reconciler[*models.Venue], *state.Collection[*models.Venue]) {
	coll := state.NewCollection(func(v *models.Venue) string { return v.ID.String() })
	rec := NewReconciler(
		s,
		models.TableVenues,
		coll,
		func(ctx context.Context) ([]*models.Venue, error) {
			return s.ListVenues(ctx, store.VenueFilter{})
		},
		JSONDecoder[*models.Venue](),
		zerolog.Nop(),
	)
	return rec, coll
}

// eventually polls until the condition holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestReconcilerSeedsFromStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := memory.NewMemoryStore()

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St"}
	require.NoError(t, s.CreateVenue(ctx, venue))

	rec, coll := newVenueReconciler(s)
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	eventually(t, func() bool { return coll.Len() == 1 }, "collection never seeded")
	got, ok := coll.Get(venue.ID.String())
	require.True(t, ok)
	assert.Equal(t, "Harbour Hall", got.Name)

	cancel()
	require.NoError(t, <-done)
}

func TestReconcilerAppliesFeedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := memory.NewMemoryStore()

	rec, coll := newVenueReconciler(s)
	go rec.Run(ctx)
	eventually(t, func() bool { return !coll.Loading() && coll.Version() > 0 }, "initial load never finished")

	venue := &models.Venue{Name: "Harbour Hall", Address: "1 Quay St"}
	require.NoError(t, s.CreateVenue(ctx, venue))
	eventually(t, func() bool { return coll.Len() == 1 }, "create event not applied")

	_, err := s.MergeVenue(ctx, venue.ID, map[string]any{"status": "warning"})
	require.NoError(t, err)
	eventually(t, func() bool {
		got, ok := coll.Get(venue.ID.String())
		return ok && got.Status == models.VenueStatusWarning
	}, "update event not applied")

	require.NoError(t, s.DeleteVenue(ctx, venue.ID))
	eventually(t, func() bool { return coll.Len() == 0 }, "delete event not applied")
}

func TestReconcilerStopsWhenFeedCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := memory.NewMemoryStore()

	rec, _ := newVenueReconciler(s)
	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	// Give the subscription time to register, then close every feed.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after feed close")
	}
}

func TestJSONDecoderRejectsNilData(t *testing.T) {
	decode := JSONDecoder[*models.Venue]()
	_, err := decode(nil)
	assert.Error(t, err)
}
