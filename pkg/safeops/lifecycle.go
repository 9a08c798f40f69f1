package safeops

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/safeops/safeops/pkg/client"
	"github.com/safeops/safeops/pkg/models"
)

// Workflow transitions for risk assessment workflows:
//
//	draft ──submit──> submitted ──approve──────> approved
//	  ^                  │ │
//	  │                  │ └──reject───────────> rejected
//	  └──(resubmit)── changes_requested <──request-changes
//
// Every transition checks the current status explicitly and fails
// with a TransitionError (HTTP 409) when the RAW is not in the
// required state. Submitting an already submitted RAW, or approving
// one that was never submitted, is an error rather than a silent
// overwrite.

// loadRAW fetches the RAW for a workflow transition, writing the 400
// or 404 itself. Returns nil when the response is already sent.
func (a *App) loadRAW(w http.ResponseWriter, r *http.Request) *models.RAW {
	id, err := models.ParseRAWID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, codeBadRequest, "invalid RAW ID")
		return nil
	}
	raw, err := a.store.GetRAW(r.Context(), id)
	if err != nil {
		a.respondDomainError(w, r, err)
		return nil
	}
	if raw == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "RAW not found")
		return nil
	}
	return raw
}

// handleSubmitRAW moves a draft (or a RAW sent back for changes) into
// the submitted state and notifies approvers. submitted_at is set on
// the first submission and kept on resubmissions.
func (a *App) handleSubmitRAW(w http.ResponseWriter, r *http.Request) {
	raw := a.loadRAW(w, r)
	if raw == nil {
		return
	}
	if raw.Status != models.RAWStatusDraft && raw.Status != models.RAWStatusChangesRequested {
		a.respondDomainError(w, r, &TransitionError{RAWID: raw.ID, From: raw.Status, Attempt: "submit"})
		return
	}

	fields := map[string]any{"status": models.RAWStatusSubmitted}
	if raw.SubmittedAt == nil {
		fields["submitted_at"] = time.Now()
	}

	updated, err := a.store.MergeRAW(r.Context(), raw.ID, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	a.notifyApprovers(r.Context(), updated)
	respondJSON(w, http.StatusOK, updated)
}

// handleApproveRAW approves a submitted RAW. Approving anything else,
// including a draft that skipped submission, is a precondition
// failure.
func (a *App) handleApproveRAW(w http.ResponseWriter, r *http.Request) {
	raw := a.loadRAW(w, r)
	if raw == nil {
		return
	}
	var req client.DecisionRequest
	if err := decodeBody(r, &req); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if req.ApproverID.IsZero() {
		a.respondDomainError(w, r, validationErrorf("approver_id", "is required"))
		return
	}
	if raw.Status != models.RAWStatusSubmitted {
		a.respondDomainError(w, r, &TransitionError{RAWID: raw.ID, From: raw.Status, Attempt: "approve"})
		return
	}

	fields := map[string]any{
		"status":            models.RAWStatusApproved,
		"approver_id":       req.ApproverID,
		"approver_comments": req.Comments,
		"approved_at":       time.Now(),
	}

	updated, err := a.store.MergeRAW(r.Context(), raw.ID, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	a.notifyAuthor(r.Context(), updated, models.NotificationRAWApproved,
		"Assessment approved",
		fmt.Sprintf("Your risk assessment %q was approved.", updated.EventTitle))
	respondJSON(w, http.StatusOK, updated)
}

// handleRejectRAW rejects a submitted RAW with the approver's
// comments.
func (a *App) handleRejectRAW(w http.ResponseWriter, r *http.Request) {
	raw := a.loadRAW(w, r)
	if raw == nil {
		return
	}
	var req client.DecisionRequest
	if err := decodeBody(r, &req); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if req.ApproverID.IsZero() {
		a.respondDomainError(w, r, validationErrorf("approver_id", "is required"))
		return
	}
	if req.Comments == "" {
		a.respondDomainError(w, r, validationErrorf("comments", "are required when rejecting"))
		return
	}
	if raw.Status != models.RAWStatusSubmitted {
		a.respondDomainError(w, r, &TransitionError{RAWID: raw.ID, From: raw.Status, Attempt: "reject"})
		return
	}

	fields := map[string]any{
		"status":            models.RAWStatusRejected,
		"approver_id":       req.ApproverID,
		"approver_comments": req.Comments,
	}

	updated, err := a.store.MergeRAW(r.Context(), raw.ID, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	a.notifyAuthor(r.Context(), updated, models.NotificationRAWRejected,
		"Assessment rejected",
		fmt.Sprintf("Your risk assessment %q was rejected.", updated.EventTitle))
	respondJSON(w, http.StatusOK, updated)
}

// handleRequestChangesRAW sends a submitted RAW back to its author for
// revision. The author can edit hazards again and resubmit.
func (a *App) handleRequestChangesRAW(w http.ResponseWriter, r *http.Request) {
	raw := a.loadRAW(w, r)
	if raw == nil {
		return
	}
	var req client.DecisionRequest
	if err := decodeBody(r, &req); err != nil {
		a.respondDomainError(w, r, err)
		return
	}
	if raw.Status != models.RAWStatusSubmitted {
		a.respondDomainError(w, r, &TransitionError{RAWID: raw.ID, From: raw.Status, Attempt: "request changes on"})
		return
	}

	fields := map[string]any{
		"status":            models.RAWStatusChangesRequested,
		"approver_comments": req.Comments,
	}
	if !req.ApproverID.IsZero() {
		fields["approver_id"] = req.ApproverID
	}

	updated, err := a.store.MergeRAW(r.Context(), raw.ID, fields)
	if err != nil {
		a.respondDomainError(w, r, err)
		return
	}

	a.notifyAuthor(r.Context(), updated, models.NotificationRAWChangesRequested,
		"Changes requested",
		fmt.Sprintf("Changes were requested on your risk assessment %q.", updated.EventTitle))
	respondJSON(w, http.StatusOK, updated)
}

// notifyApprovers creates a notification for every approver-role user.
// Notification delivery is best effort: failures are logged and never
// fail the transition that triggered them.
func (a *App) notifyApprovers(ctx context.Context, raw *models.RAW) {
	approvers, err := a.store.ListUsersByRole(ctx, models.RoleApprover)
	if err != nil {
		a.log.Warn().Err(err).Msg("failed to list approvers for notification")
		return
	}
	for _, approver := range approvers {
		n := &models.Notification{
			UserID:    approver.ID,
			Title:     "Assessment submitted",
			Message:   fmt.Sprintf("Risk assessment %q is awaiting review.", raw.EventTitle),
			Type:      models.NotificationRAWSubmitted,
			RelatedID: raw.ID.String(),
		}
		if err := a.store.CreateNotification(ctx, n); err != nil {
			a.log.Warn().Err(err).Str("user_id", approver.ID.String()).Msg("failed to create notification")
		}
	}
}

// notifyAuthor creates a best-effort notification for the RAW author.
func (a *App) notifyAuthor(ctx context.Context, raw *models.RAW, typ models.NotificationType, title, message string) {
	if raw.AuthorID.IsZero() {
		return
	}
	n := &models.Notification{
		UserID:    raw.AuthorID,
		Title:     title,
		Message:   message,
		Type:      typ,
		RelatedID: raw.ID.String(),
	}
	if err := a.store.CreateNotification(ctx, n); err != nil {
		a.log.Warn().Err(err).Str("user_id", raw.AuthorID.String()).Msg("failed to create notification")
	}
}
