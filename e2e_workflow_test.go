package safeops_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safeops/safeops/pkg/client"
	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/safeops"
)

// newTestServer builds an App on the in-memory store and serves its
// router from httptest, returning a client pointed at it.
func newTestServer(t *testing.T) (*safeops.App, *client.Client) {
	t.Helper()

	app, err := safeops.New(context.Background(), &safeops.Config{
		StoreKind: safeops.StoreMemory,
		LogLevel:  "error",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	server := httptest.NewServer(app.Router())
	t.Cleanup(server.Close)

	return app, client.NewClient(server.URL)
}

// TestWorkflowEndToEnd walks a RAW through the full lifecycle over
// HTTP: officer drafts and submits, approver is notified and
// approves, and the author is notified of the outcome.
func TestWorkflowEndToEnd(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	officer, err := c.SignUp(ctx, client.SignUpRequest{
		Email: "officer@example.com",
		Name:  "Field Officer",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleSafetyOfficer, officer.User.Role)

	approver, err := c.SignUp(ctx, client.SignUpRequest{
		Email: "approver@example.com",
		Name:  "Chief Approver",
		Role:  models.RoleApprover,
	})
	require.NoError(t, err)

	venue, err := c.CreateVenue(ctx, &models.Venue{
		Name:      "Riverside Stadium",
		Address:   "1 Stadium Way",
		CreatedBy: officer.User.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.VenueStatusSafe, venue.Status)

	raw, err := c.CreateRAW(ctx, &models.RAW{
		VenueID:    venue.ID,
		AuthorID:   officer.User.ID,
		EventTitle: "Summer Concert",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RAWStatusDraft, raw.Status)
	assert.Equal(t, models.RiskLevelMedium, raw.RiskLevel)
	assert.Nil(t, raw.SubmittedAt)

	entry, err := c.CreateRAWHazard(ctx, raw.ID, &models.RAWHazard{
		HazardDescription: "Crowd crush at main gate",
		ControlMeasures:   "Staggered entry, extra stewards",
		Severity:          models.SeverityHigh,
		Likelihood:        models.LikelihoodMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, entry.RPN) // high(3) x medium(2)

	// Approving before submission is a precondition failure.
	_, err = c.ApproveRAW(ctx, raw.ID, client.DecisionRequest{ApproverID: approver.User.ID})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.Status)
	assert.Equal(t, "invalid_transition", apiErr.Code)

	submitted, err := c.SubmitRAW(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RAWStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	// Submission notifies the approver.
	notifications, err := c.ListNotifications(ctx, approver.User.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationRAWSubmitted, notifications[0].Type)
	assert.Equal(t, raw.ID.String(), notifications[0].RelatedID)

	// Hazard entries are frozen while under review.
	_, err = c.CreateRAWHazard(ctx, raw.ID, &models.RAWHazard{
		HazardDescription: "Late addition",
		Severity:          models.SeverityLow,
		Likelihood:        models.LikelihoodLow,
	})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_transition", apiErr.Code)

	approved, err := c.ApproveRAW(ctx, raw.ID, client.DecisionRequest{
		ApproverID: approver.User.ID,
		Comments:   "Controls are adequate",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RAWStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, approver.User.ID, *approved.ApproverID)

	// The author hears about the decision.
	notifications, err = c.ListNotifications(ctx, officer.User.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationRAWApproved, notifications[0].Type)

	err = c.MarkNotificationRead(ctx, notifications[0].ID)
	require.NoError(t, err)
	notifications, err = c.ListNotifications(ctx, officer.User.ID)
	require.NoError(t, err)
	assert.True(t, notifications[0].Read)
}

// TestWorkflowChangesRequested exercises the revision loop: a
// submitted RAW is sent back, edited, and resubmitted without losing
// its original submission time.
func TestWorkflowChangesRequested(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	officer, err := c.SignUp(ctx, client.SignUpRequest{Email: "officer2@example.com", Name: "Officer Two"})
	require.NoError(t, err)

	venue, err := c.CreateVenue(ctx, &models.Venue{Name: "Town Hall", CreatedBy: officer.User.ID})
	require.NoError(t, err)

	raw, err := c.CreateRAW(ctx, &models.RAW{
		VenueID:    venue.ID,
		AuthorID:   officer.User.ID,
		EventTitle: "Winter Fair",
	})
	require.NoError(t, err)

	submitted, err := c.SubmitRAW(ctx, raw.ID)
	require.NoError(t, err)
	firstSubmission := submitted.SubmittedAt
	require.NotNil(t, firstSubmission)

	returned, err := c.RequestChanges(ctx, raw.ID, client.DecisionRequest{Comments: "Add an evacuation plan"})
	require.NoError(t, err)
	assert.Equal(t, models.RAWStatusChangesRequested, returned.Status)
	assert.Equal(t, "Add an evacuation plan", returned.ApproverComments)

	// The author can edit hazards again.
	_, err = c.CreateRAWHazard(ctx, raw.ID, &models.RAWHazard{
		HazardDescription: "Blocked fire exit",
		ControlMeasures:   "Dedicated exit marshal",
		Severity:          models.SeverityCritical,
		Likelihood:        models.LikelihoodLow,
	})
	require.NoError(t, err)

	resubmitted, err := c.SubmitRAW(ctx, raw.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RAWStatusSubmitted, resubmitted.Status)
	require.NotNil(t, resubmitted.SubmittedAt)
	assert.True(t, resubmitted.SubmittedAt.Equal(*firstSubmission), "resubmission keeps the original submitted_at")
}

// TestVenueStatusRollup verifies hazard writes update the venue's
// aggregated status and critical issue count.
func TestVenueStatusRollup(t *testing.T) {
	_, c := newTestServer(t)
	ctx := context.Background()

	officer, err := c.SignUp(ctx, client.SignUpRequest{Email: "officer3@example.com", Name: "Officer Three"})
	require.NoError(t, err)

	venue, err := c.CreateVenue(ctx, &models.Venue{Name: "Depot", CreatedBy: officer.User.ID})
	require.NoError(t, err)

	hazard, err := c.CreateVenueHazard(ctx, venue.ID, &models.VenueHazard{
		Description: "Exposed wiring in storeroom",
		Severity:    models.SeverityCritical,
		Likelihood:  models.LikelihoodHigh,
		ReportedBy:  officer.User.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, hazard.RPN) // critical(4) x high(3)

	got, err := c.GetVenue(ctx, venue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VenueStatusCritical, got.Status)
	assert.Equal(t, 1, got.CriticalIssuesCount)

	// Resolving the hazard clears the rollup.
	_, err = c.PatchVenueHazard(ctx, hazard.ID, map[string]any{"status": models.HazardStatusResolved})
	require.NoError(t, err)

	got, err = c.GetVenue(ctx, venue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VenueStatusSafe, got.Status)
	assert.Equal(t, 0, got.CriticalIssuesCount)

	// A venue with dependents cannot be deleted.
	err = c.DeleteVenue(ctx, venue.ID)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 409, apiErr.Status)
	assert.Equal(t, "conflict", apiErr.Code)
}
