package safeops

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/safeops/safeops/pkg/models"
	"github.com/safeops/safeops/pkg/store"
)

// RAW handlers manage risk assessment workflows. Creation always
// yields a draft; the workflow transitions live in lifecycle.go.

func (a *App) handleCreateRAW(w http.ResponseWriter, r *http.Request) {
	var raw models.RAW
	if err := decodeBody(r, &raw); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if raw.EventTitle == "" {
		a.respondDomainError(w, r, validationErrorf("event_title", "is required"))
		return
	}
	if raw.VenueID.IsZero() {
		a.respondDomainError(w, r, validationErrorf("venue_id", "is required"))
		return
	}

	// Workflow fields are server-owned; a new RAW is always a draft.
	raw.Status = models.RAWStatusDraft
	raw.SubmittedAt = nil
	raw.ApproverID = nil
	raw.ApproverComments = ""
	raw.ApprovedAt = nil

	if err := a.store.CreateRAW(r.Context(), &raw); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, raw)
}

func (a *App) handleGetRAW(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW ID")
		return
	}

	raw, err := a.store.GetRAW(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if raw == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW not found")
		return
	}
	respondJSON(w, http.StatusOK, raw)
}

func (a *App) handleListRAWs(w http.ResponseWriter, r *http.Request) {
	filter := store.RAWFilter{
		Status: models.RAWStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	}
	if authorID := r.URL.Query().Get("author_id"); authorID != "" {
		id, err := models.ParseUserID(authorID)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeBadRequest, "invalid author_id")
			return
		}
		filter.AuthorID = id
	}

	raws, err := a.store.ListRAWs(r.Context(), filter)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, raws)
}

func (a *App) handleUpdateRAW(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW ID")
		return
	}

	existing, err := a.store.GetRAW(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW not found")
		return
	}

	var raw models.RAW
	if err := decodeBody(r, &raw); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	// Content edits never move the workflow; those fields carry over.
	raw.ID = id
	raw.CreatedAt = existing.CreatedAt
	raw.Status = existing.Status
	raw.SubmittedAt = existing.SubmittedAt
	raw.ApproverID = existing.ApproverID
	raw.ApproverComments = existing.ApproverComments
	raw.ApprovedAt = existing.ApprovedAt

	if err := a.store.UpdateRAW(r.Context(), &raw); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, raw)
}

func (a *App) handlePatchRAW(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW ID")
		return
	}

	existing, err := a.store.GetRAW(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW not found")
		return
	}

	fields, err := decodeFields(r,
		"id", "status", "submitted_at", "approver_id", "approver_comments",
		"approved_at", "created_at", "updated_at", "venue_name", "hazards")
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	raw, err := a.store.MergeRAW(r.Context(), id, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, raw)
}

func (a *App) handleDeleteRAW(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW ID")
		return
	}

	existing, err := a.store.GetRAW(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW not found")
		return
	}
	if existing.Status != models.RAWStatusDraft {
		a.respondDomainError(w, r, &TransitionError{RAWID: id, From: existing.Status, Attempt: "delete"})
		return
	}

	// Hazard entries go first so the store's dependency check passes.
	for i := range existing.Hazards {
		if err := a.store.DeleteRAWHazard(r.Context(), existing.Hazards[i].ID); err != nil {
			a.respondDomainError(w, r, err)
			return
		}
	}
	if err := a.store.DeleteRAW(r.Context(), id); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// RAW hazard entry handlers. Entries are editable only while the RAW
// itself is editable (draft or changes requested).

func (a *App) editableRAW(w http.ResponseWriter, r *http.Request, id models.RAWID, attempt string) *models.RAW {
	raw, err := a.store.GetRAW(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return nil
	}
	if raw == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW not found")
		return nil
	}
	if raw.Status != models.RAWStatusDraft && raw.Status != models.RAWStatusChangesRequested {
		a.respondDomainError(w, r, &TransitionError{RAWID: id, From: raw.Status, Attempt: attempt})
		return nil
	}
	return raw
}

func (a *App) handleCreateRAWHazard(w http.ResponseWriter, r *http.Request) {
	rawID, err := models.ParseRAWID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW ID")
		return
	}
	if a.editableRAW(w, r, rawID, "add hazards to") == nil {
		return
	}

	var hazard models.RAWHazard
	if err := decodeBody(r, &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	hazard.RAWID = rawID
	if hazard.HazardDescription == "" {
		a.respondDomainError(w, r, validationErrorf("hazard_description", "is required"))
		return
	}

	rpn, err := a.riskMatrix.RPN(hazard.Severity, hazard.Likelihood)
	if err != nil {
		a.respondDomainError(w, r, &ValidationError{Message: err.Error()})
		return
	}
	hazard.RPN = rpn

	if err := a.store.CreateRAWHazard(r.Context(), &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, hazard)
}

func (a *App) handleGetRAWHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW hazard ID")
		return
	}

	hazard, err := a.store.GetRAWHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if hazard == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW hazard not found")
		return
	}
	respondJSON(w, http.StatusOK, hazard)
}

func (a *App) handleListRAWHazards(w http.ResponseWriter, r *http.Request) {
	rawID, err := models.ParseRAWID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW ID")
		return
	}

	hazards, err := a.store.ListRAWHazards(r.Context(), rawID)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hazards)
}

func (a *App) handleUpdateRAWHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW hazard ID")
		return
	}

	existing, err := a.store.GetRAWHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW hazard not found")
		return
	}
	if a.editableRAW(w, r, existing.RAWID, "edit hazards of") == nil {
		return
	}

	var hazard models.RAWHazard
	if err := decodeBody(r, &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	hazard.ID = id
	hazard.RAWID = existing.RAWID
	hazard.CreatedAt = existing.CreatedAt

	rpn, err := a.riskMatrix.RPN(hazard.Severity, hazard.Likelihood)
	if err != nil {
		a.respondDomainError(w, r, &ValidationError{Message: err.Error()})
		return
	}
	hazard.RPN = rpn

	if err := a.store.UpdateRAWHazard(r.Context(), &hazard); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hazard)
}

func (a *App) handlePatchRAWHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW hazard ID")
		return
	}

	existing, err := a.store.GetRAWHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW hazard not found")
		return
	}
	if a.editableRAW(w, r, existing.RAWID, "edit hazards of") == nil {
		return
	}

	fields, err := decodeFields(r, "id", "raw_id", "rpn", "created_at")
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

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

	hazard, err := a.store.MergeRAWHazard(r.Context(), id, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hazard)
}

func (a *App) handleDeleteRAWHazard(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseRAWHazardID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW hazard ID")
		return
	}

	existing, err := a.store.GetRAWHazard(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW hazard not found")
		return
	}
	if a.editableRAW(w, r, existing.RAWID, "edit hazards of") == nil {
		return
	}

	if err := a.store.DeleteRAWHazard(r.Context(), id); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
