package safeops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeops/safeops/pkg/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := New(context.Background(), &Config{
		StoreKind: StoreMemory,
		LogLevel:  "error",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

// doJSON runs one request through the router and returns the recorder.
func doJSON(t *testing.T, app *App, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func createTestVenue(t *testing.T, app *App, name string) models.Venue {
	t.Helper()
	rec := doJSON(t, app, http.MethodPost, "/api/venues", map[string]any{
		"name":    name,
		"address": "1 Quay St",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var venue models.Venue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &venue))
	return venue
}

func TestInvalidJSONReturnsEnvelope(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/venues", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeEnvelope(t, rec)
	assert.Equal(t, codeValidation, detail.Code)
	assert.NotEmpty(t, detail.Message)
}

func TestCreateVenueRequiresName(t *testing.T) {
	app := newTestApp(t)

	rec := doJSON(t, app, http.MethodPost, "/api/venues", map[string]any{"address": "1 Quay St"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeEnvelope(t, rec)
	assert.Equal(t, codeValidation, detail.Code)
	assert.Contains(t, detail.Message, "name")
}

func TestGetVenueNotFound(t *testing.T) {
	app := newTestApp(t)

	rec := doJSON(t, app, http.MethodGet, "/api/venues/"+models.NewVenueID().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, decodeEnvelope(t, rec).Code)

	rec = doJSON(t, app, http.MethodGet, "/api/venues/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeBadRequest, decodeEnvelope(t, rec).Code)
}

func TestReadOnlyModeRejectsWrites(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")

	app.SetReadOnly(true)

	rec := doJSON(t, app, http.MethodPost, "/api/venues", map[string]any{
		"name": "Summit Stadium", "address": "9 Peak Rd",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeReadOnly, decodeEnvelope(t, rec).Code)

	// Reads keep working.
	rec = doJSON(t, app, http.MethodGet, "/api/venues/"+venue.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	app.SetReadOnly(false)
	rec = doJSON(t, app, http.MethodPost, "/api/venues", map[string]any{
		"name": "Summit Stadium", "address": "9 Peak Rd",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPatchVenueStripsServerOwnedFields(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")

	// A patch carrying only server-owned keys has nothing to apply.
	rec := doJSON(t, app, http.MethodPatch, "/api/venues/"+venue.ID.String(), map[string]any{
		"critical_issues_count": 99,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, decodeEnvelope(t, rec).Code)

	rec = doJSON(t, app, http.MethodPatch, "/api/venues/"+venue.ID.String(), map[string]any{
		"status":                "warning",
		"critical_issues_count": 99,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Venue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.VenueStatusWarning, updated.Status)
	assert.Equal(t, 0, updated.CriticalIssuesCount, "derived count cannot be patched")
}

func TestVenueHazardScoredServerSide(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")

	rec := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/venues/%s/hazards", venue.ID), map[string]any{
		"description": "exposed wiring",
		"severity":    "high",
		"likelihood":  "medium",
		"rpn":         999,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var hazard models.VenueHazard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hazard))
	assert.Equal(t, 6, hazard.RPN, "client-sent score is ignored")

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/venues/%s/hazards", venue.ID), map[string]any{
		"description": "bad grade",
		"severity":    "catastrophic",
		"likelihood":  "medium",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, decodeEnvelope(t, rec).Code)
}

func TestRollupPreservesRestrictedStatus(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")

	rec := doJSON(t, app, http.MethodPatch, "/api/venues/"+venue.ID.String(), map[string]any{
		"status": "restricted",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/venues/%s/hazards", venue.ID), map[string]any{
		"description": "structural crack",
		"severity":    "critical",
		"likelihood":  "high",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, app, http.MethodGet, "/api/venues/"+venue.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Venue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.VenueStatusRestricted, got.Status, "manual restriction outranks the rollup")
	assert.Equal(t, 1, got.CriticalIssuesCount, "the count still tracks open critical hazards")
}

func TestListNotificationsRequiresUserID(t *testing.T) {
	app := newTestApp(t)

	rec := doJSON(t, app, http.MethodGet, "/api/notifications", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeBadRequest, decodeEnvelope(t, rec).Code)
}

func TestAuthTokenLifecycle(t *testing.T) {
	app := newTestApp(t)

	rec := doJSON(t, app, http.MethodPost, "/api/auth/signup", map[string]any{
		"email":     "officer@example.com",
		"full_name": "Test Officer",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var auth struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.Token)
	assert.Equal(t, models.RoleSafetyOfficer, auth.User.Role, "role defaults when unset")

	withToken := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		app.Router().ServeHTTP(rec, req)
		return rec
	}

	me := withToken(http.MethodGet, "/api/auth/me", auth.Token)
	require.Equal(t, http.StatusOK, me.Code)
	var current models.User
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &current))
	assert.Equal(t, "officer@example.com", current.Email)

	// Refresh rotates the token and invalidates the old one.
	refreshed := withToken(http.MethodPost, "/api/auth/refresh", auth.Token)
	require.Equal(t, http.StatusOK, refreshed.Code)
	var next struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(refreshed.Body.Bytes(), &next))
	require.NotEqual(t, auth.Token, next.Token)

	old := withToken(http.MethodGet, "/api/auth/me", auth.Token)
	assert.Equal(t, http.StatusUnauthorized, old.Code)
	assert.Equal(t, codeUnauthorized, decodeEnvelope(t, old).Code)

	// Signing out drops the current session.
	out := withToken(http.MethodPost, "/api/auth/signout", next.Token)
	require.Equal(t, http.StatusOK, out.Code)
	gone := withToken(http.MethodGet, "/api/auth/me", next.Token)
	assert.Equal(t, http.StatusUnauthorized, gone.Code)
}

func TestDuplicateEmailIsConflict(t *testing.T) {
	app := newTestApp(t)

	rec := doJSON(t, app, http.MethodPost, "/api/users", map[string]any{
		"email":     "officer@example.com",
		"full_name": "First Officer",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, app, http.MethodPost, "/api/users", map[string]any{
		"email":     "officer@example.com",
		"full_name": "Impostor",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeConflict, decodeEnvelope(t, rec).Code)
}

func TestSignInUnknownEmailIsUnauthorized(t *testing.T) {
	app := newTestApp(t)

	rec := doJSON(t, app, http.MethodPost, "/api/auth/signin", map[string]any{
		"email": "nobody@example.com",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthorized, decodeEnvelope(t, rec).Code)
}
