package safeops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/store"
)

// errorBody is the unified error envelope returned by every endpoint:
//
//	{"error":{"code":"invalid_transition","message":"..."}}
//
// The code is stable for programmatic handling; the message is for
// humans.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// respondDomainError maps domain errors (transition, validation,
// read-only) onto statuses and codes, logging only genuine server
// faults.
func (a *App) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	if status >= 500 {
		a.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	respondError(w, status, code, err.Error())
}

// Health and connectivity

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"store":  a.config.StoreKind,
		"time":   time.Now().Unix(),
	})
}

func (a *App) handleHello(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Hello from SafeOps API"})
}

// decodeBody decodes a JSON request body, returning a ValidationError
// suitable for the unified error envelope.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &ValidationError{Message: "invalid request payload"}
	}
	return nil
}

// decodeFields decodes a PATCH body into a field map and strips keys
// the server owns.
func decodeFields(r *http.Request, owned ...string) (map[string]any, error) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		return nil, &ValidationError{Message: "invalid request payload"}
	}
	for _, key := range owned {
		delete(fields, key)
	}
	if len(fields) == 0 {
		return nil, &ValidationError{Message: "no updatable fields in request"}
	}
	return fields, nil
}

// Venue handlers

func (a *App) handleCreateVenue(w http.ResponseWriter, r *http.Request) {
	var venue models.Venue
	if err := decodeBody(r, &venue); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if venue.Name == "" {
		a.respondDomainError(w, r, validationErrorf("name", "is required"))
		return
	}
	// Derived fields are server-owned.
	venue.CriticalIssuesCount = 0

	if err := a.store.CreateVenue(r.Context(), &venue); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, venue)
}

func (a *App) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid venue ID")
		return
	}

	venue, err := a.store.GetVenue(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if venue == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "venue not found")
		return
	}
	respondJSON(w, http.StatusOK, venue)
}

func (a *App) handleListVenues(w http.ResponseWriter, r *http.Request) {
	filter := store.VenueFilter{
		Search: r.URL.Query().Get("search"),
		Status: models.VenueStatus(r.URL.Query().Get("status")),
	}
	if createdBy := r.URL.Query().Get("created_by"); createdBy != "" {
		id, err := models.ParseUserID(createdBy)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "invalid created_by ID")
			return
		}
		filter.CreatedBy = id
	}

	venues, err := a.store.ListVenues(r.Context(), filter)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, venues)
}

func (a *App) handleUpdateVenue(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid venue ID")
		return
	}

	existing, err := a.store.GetVenue(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "venue not found")
		return
	}

	var venue models.Venue
	if err := decodeBody(r, &venue); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	venue.ID = id
	venue.CreatedAt = existing.CreatedAt
	venue.CriticalIssuesCount = existing.CriticalIssuesCount

	if err := a.store.UpdateVenue(r.Context(), &venue); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, venue)
}

func (a *App) handlePatchVenue(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid venue ID")
		return
	}

	existing, err := a.store.GetVenue(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "venue not found")
		return
	}

	fields, err := decodeFields(r, "id", "created_at", "updated_at", "critical_issues_count")
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	venue, err := a.store.MergeVenue(r.Context(), id, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, venue)
}

func (a *App) handleDeleteVenue(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid venue ID")
		return
	}

	existing, err := a.store.GetVenue(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "venue not found")
		return
	}

	if err := a.store.DeleteVenue(r.Context(), id); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Venue hazard handlers

func (a *App) handleCreateVenueHazard(w http.ResponseWriter, r *http.Request) {
	venueID, err := models.ParseVenueID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid venue ID")
		return
	}

	var hazard models.VenueHazard
	if err := decodeBody(r, &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	hazard.VenueID = venueID
	if hazard.Description == "" {
		a.respondDomainError(w, r, validationErrorf("description", "is required"))
		return
	}

	// Score server side; any client-sent value is ignored.
	rpn, err := a.riskMatrix.RPN(hazard.Severity, hazard.Likelihood)
	if err != nil {
		a.respondDomainError(w, r, &ValidationError{Message: err.Error()})
		return
	}
	hazard.RPN = rpn

	if err := a.store.CreateVenueHazard(r.Context(), &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if err := a.rollupVenue(r.Context(), venueID); err != nil {
		a.log.Warn().Err(err).Str("venue_id", venueID.String()).Msg("venue rollup failed")
	}
	respondJSON(w, http.StatusCreated, hazard)
}

func (a *App) handleGetVenueHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid hazard ID")
		return
	}

	hazard, err := a.store.GetVenueHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if hazard == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "hazard not found")
		return
	}
	respondJSON(w, http.StatusOK, hazard)
}

func (a *App) handleListVenueHazards(w http.ResponseWriter, r *http.Request) {
	venueID, err := models.ParseVenueID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid venue ID")
		return
	}

	hazards, err := a.store.ListVenueHazards(r.Context(), venueID)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hazards)
}

func (a *App) handleUpdateVenueHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid hazard ID")
		return
	}

	existing, err := a.store.GetVenueHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "hazard not found")
		return
	}

	var hazard models.VenueHazard
	if err := decodeBody(r, &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	hazard.ID = id
	hazard.VenueID = existing.VenueID
	hazard.CreatedAt = existing.CreatedAt

	rpn, err := a.riskMatrix.RPN(hazard.Severity, hazard.Likelihood)
	if err != nil {
		a.respondDomainError(w, r, &ValidationError{Message: err.Error()})
		return
	}
	hazard.RPN = rpn

	if err := a.store.UpdateVenueHazard(r.Context(), &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if err := a.rollupVenue(r.Context(), hazard.VenueID); err != nil {
		a.log.Warn().Err(err).Str("venue_id", hazard.VenueID.String()).Msg("venue rollup failed")
	}
	respondJSON(w, http.StatusOK, hazard)
}

func (a *App) handlePatchVenueHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid hazard ID")
		return
	}

	existing, err := a.store.GetVenueHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "hazard not found")
		return
	}

	fields, err := decodeFields(r, "id", "venue_id", "rpn", "created_at", "updated_at")
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	// Rescore when either grade changes.
	severity := existing.Severity
	likelihood := existing.Likelihood
	if v, ok := fields["severity"].(string); ok {
		severity = models.Severity(v)
	}
	if v, ok := fields["likelihood"].(string); ok {
		likelihood = models.Likelihood(v)
	}
	rpn, err := a.riskMatrix.RPN(severity, likelihood)
	if err != nil {
		a.respondDomainError(w, r, &ValidationError{Message: err.Error()})
		return
	}
	fields["rpn"] = rpn

	hazard, err := a.store.MergeVenueHazard(r.Context(), id, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if err := a.rollupVenue(r.Context(), hazard.VenueID); err != nil {
		a.log.Warn().Err(err).Str("venue_id", hazard.VenueID.String()).Msg("venue rollup failed")
	}
	respondJSON(w, http.StatusOK, hazard)
}

func (a *App) handleDeleteVenueHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseVenueHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid hazard ID")
		return
	}

	existing, err := a.store.GetVenueHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "hazard not found")
		return
	}

	if err := a.store.DeleteVenueHazard(r.Context(), id); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if err := a.rollupVenue(r.Context(), existing.VenueID); err != nil {
		a.log.Warn().Err(err).Str("venue_id", existing.VenueID.String()).Msg("venue rollup failed")
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// rollupVenue recomputes a venue's status and critical issue count
// from its hazards. A manually set restricted status is preserved; the
// rollup only moves between safe, warning, and critical.
func (a *App) rollupVenue(ctx context.Context, venueID models.VenueID) error {
	venue, err := a.store.GetVenue(ctx, venueID)
	if err != nil {
		return err
	}
	if venue == nil {
		return nil
	}

	hazards, err := a.store.ListVenueHazards(ctx, venueID)
	if err != nil {
		return err
	}

	criticalCount := 0
	openCount := 0
	for _, hazard := range hazards {
		if hazard.Status == models.HazardStatusResolved {
			continue
		}
		openCount++
		if hazard.Severity == models.SeverityCritical {
			criticalCount++
		}
	}

	status := venue.Status
	if status != models.VenueStatusRestricted {
		switch {
		case criticalCount > 0:
			status = models.VenueStatusCritical
		case openCount > 0:
			status = models.VenueStatusWarning
		default:
			status = models.VenueStatusSafe
		}
	}

	if status == venue.Status && criticalCount == venue.CriticalIssuesCount {
		return nil
	}
	_, err = a.store.MergeVenue(ctx, venueID, map[string]any{
		"status":                status,
		"critical_issues_count": criticalCount,
	})
	return err
}

// User handlers

func (a *App) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var user models.User
	if err := decodeBody(r, &user); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if user.Email == "" {
		a.respondDomainError(w, r, validationErrorf("email", "is required"))
		return
	}

	if err := a.store.CreateUser(r.Context(), &user); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

func (a *App) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid user ID")
		return
	}

	user, err := a.store.GetUser(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (a *App) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseUserID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid user ID")
		return
	}

	var user models.User
	if err := decodeBody(r, &user); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	user.ID = id

	if err := a.store.UpdateUser(r.Context(), &user); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Notification handlers

func (a *App) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		respondError(w, http.StatusBadRequest, codeBadRequest, "user_id query parameter is required")
		return
	}
	userID, err := models.ParseUserID(userIDStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid user_id")
		return
	}

	notifications, err := a.store.ListNotifications(r.Context(), userID)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

func (a *App) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseNotificationID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid notification ID")
		return
	}

	if err := a.store.MarkNotificationRead(r.Context(), id); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
