package state

import "github.com/safeops/safeops/pkg/models"

// Set bundles one collection per entity type. A Set is constructed
// per server (or per test) and passed to whatever needs it; holders
// share the same underlying collections.
type Set struct {
	Venues        *Collection[*models.Venue]
	VenueHazards  *Collection[*models.VenueHazard]
	RAWs          *Collection[*models.RAW]
	Notifications *Collection[*models.Notification]
}

// NewSet creates collections for every entity type tracked in view
// state.
func NewSet() *Set {
	return &Set{
		Venues:        NewCollection(func(v *models.Venue) string { return v.ID.String() }),
		VenueHazards:  NewCollection(func(h *models.VenueHazard) string { return h.ID.String() }),
		RAWs:          NewCollection(func(r *models.RAW) string { return r.ID.String() }),
		Notifications: NewCollection(func(n *models.Notification) string { return n.ID.String() }),
	}
}
