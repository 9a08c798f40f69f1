package safeops

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeops/safeops/pkg/models"
)

func createTestRAW(t *testing.T, app *App, venueID models.VenueID, title string) models.RAW {
	t.Helper()
	rec := doJSON(t, app, http.MethodPost, "/api/raws", map[string]any{
		"event_title": title,
		"venue_id":    venueID.String(),
		"author_id":   models.NewUserID().String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var raw models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	return raw
}

func TestCreateRAWAlwaysStartsAsDraft(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")

	rec := doJSON(t, app, http.MethodPost, "/api/raws", map[string]any{
		"event_title":       "Night market",
		"venue_id":          venue.ID.String(),
		"author_id":         models.NewUserID().String(),
		"status":            "approved",
		"approver_comments": "smuggled in",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var raw models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, models.RAWStatusDraft, raw.Status)
	assert.Nil(t, raw.SubmittedAt)
	assert.Nil(t, raw.ApprovedAt)
	assert.Empty(t, raw.ApproverComments)
}

func TestCreateRAWValidatesRequiredFields(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")

	rec := doJSON(t, app, http.MethodPost, "/api/raws", map[string]any{
		"venue_id": venue.ID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "event_title")

	rec = doJSON(t, app, http.MethodPost, "/api/raws", map[string]any{
		"event_title": "Night market",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "venue_id")
}

func TestPatchRAWCannotMoveWorkflow(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")
	raw := createTestRAW(t, app, venue.ID, "Night market")

	rec := doJSON(t, app, http.MethodPatch, "/api/raws/"+raw.ID.String(), map[string]any{
		"event_title": "Night market (rev 2)",
		"status":      "approved",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var patched models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patched))
	assert.Equal(t, "Night market (rev 2)", patched.EventTitle)
	assert.Equal(t, models.RAWStatusDraft, patched.Status, "status moves only through transition endpoints")
}

func TestDeleteRAWOnlyWhileDraft(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")
	raw := createTestRAW(t, app, venue.ID, "Night market")

	rec := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/hazards", raw.ID), map[string]any{
		"hazard_description": "crowd crush at entry",
		"severity":           "high",
		"likelihood":         "medium",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/submit", raw.ID), map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, app, http.MethodDelete, "/api/raws/"+raw.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeInvalidTransition, decodeEnvelope(t, rec).Code)

	// A draft deletes cleanly, hazard entries included.
	draft := createTestRAW(t, app, venue.ID, "Food fair")
	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/hazards", draft.ID), map[string]any{
		"hazard_description": "hot oil spill",
		"severity":           "medium",
		"likelihood":         "medium",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, app, http.MethodDelete, "/api/raws/"+draft.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, app, http.MethodGet, "/api/raws/"+draft.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRejectSetsStatusAndNotifiesAuthor(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")

	authorRec := doJSON(t, app, http.MethodPost, "/api/users", map[string]any{
		"email":     "author@example.com",
		"full_name": "Author One",
	})
	require.Equal(t, http.StatusCreated, authorRec.Code)
	var author models.User
	require.NoError(t, json.Unmarshal(authorRec.Body.Bytes(), &author))

	rec := doJSON(t, app, http.MethodPost, "/api/raws", map[string]any{
		"event_title": "Night market",
		"venue_id":    venue.ID.String(),
		"author_id":   author.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var raw models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/submit", raw.ID), map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/reject", raw.ID), map[string]any{
		"approver_id": models.NewUserID().String(),
		"comments":    "insufficient crowd controls",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rejected models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejected))
	assert.Equal(t, models.RAWStatusRejected, rejected.Status)
	assert.Equal(t, "insufficient crowd controls", rejected.ApproverComments)

	rec = doJSON(t, app, http.MethodGet, "/api/notifications?user_id="+author.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifications []models.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notifications))
	require.NotEmpty(t, notifications)
	assert.Equal(t, models.NotificationRAWRejected, notifications[0].Type)
	assert.Equal(t, raw.ID.String(), notifications[0].RelatedID)
}

func TestDecisionRequiresApprover(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")
	raw := createTestRAW(t, app, venue.ID, "Night market")

	rec := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/submit", raw.ID), map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	// Approving without an approver is a validation failure, not a
	// silent approval with a null approver_id.
	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/approve", raw.ID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeEnvelope(t, rec)
	assert.Equal(t, codeValidation, detail.Code)
	assert.Contains(t, detail.Message, "approver_id")

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/reject", raw.ID), map[string]any{
		"comments": "no approver given",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, decodeEnvelope(t, rec).Code)

	rec = doJSON(t, app, http.MethodGet, "/api/raws/"+raw.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.RAWStatusSubmitted, got.Status)
	assert.Nil(t, got.ApproverID)

	// With an approver the decision goes through and is recorded.
	approverID := models.NewUserID()
	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/approve", raw.ID), map[string]any{
		"approver_id": approverID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, approverID, *approved.ApproverID)
}

func TestRejectRequiresComments(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")
	raw := createTestRAW(t, app, venue.ID, "Night market")

	rec := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/submit", raw.ID), map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/reject", raw.ID), map[string]any{
		"approver_id": models.NewUserID().String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, decodeEnvelope(t, rec).Code)

	// The RAW stays submitted and can still be decided.
	rec = doJSON(t, app, http.MethodGet, "/api/raws/"+raw.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.RAW
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.RAWStatusSubmitted, got.Status)
}

func TestSubmitTwiceIsConflict(t *testing.T) {
	app := newTestApp(t)
	venue := createTestVenue(t, app, "Harbour Hall")
	raw := createTestRAW(t, app, venue.ID, "Night market")

	rec := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/submit", raw.ID), map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/raws/%s/submit", raw.ID), map[string]any{})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeInvalidTransition, decodeEnvelope(t, rec).Code)
}
