package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueIDRoundTrip(t *testing.T) {
	id := NewVenueID()
	assert.False(t, id.IsZero())

	parsed, err := ParseVenueID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	b, err := json.Marshal(id)
	require.NoError(t, err)
	var back VenueID
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, id, back)
}

func TestParseVenueIDRejectsGarbage(t *testing.T) {
	_, err := ParseVenueID("not-a-uuid")
	assert.Error(t, err)
}

func TestTypedIDsAreDistinctTypes(t *testing.T) {
	// Same underlying UUID, different record tables.
	venueID := NewVenueID()
	rawID := NewRAWIDFromUUID(venueID.UUID())

	assert.Equal(t, venueID.UUID(), rawID.UUID())
	assert.Equal(t, TableVenues, venueID.RecordID().Table)
	assert.Equal(t, TableRAWSubmissions, rawID.RecordID().Table)
}

func TestZeroIDSerialization(t *testing.T) {
	var id UserID
	assert.True(t, id.IsZero())

	b, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"00000000-0000-0000-0000-000000000000"`, string(b))
}
