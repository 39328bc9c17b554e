package service

import (
	"time"

	"github.com/noah-isme/research-admin-api/internal/models"
	appErrors "github.com/noah-isme/research-admin-api/pkg/errors"
)

// authorizeEdit enforces the shared ownership rule: admins may mutate any
// record, everyone else only records they own or participate in. Callers
// must resolve the record first so a missing id surfaces as not-found
// before any permission check.
func authorizeEdit(rec models.Editable, actor models.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if rec.CanEdit(actor.ID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "you do not have permission to modify this record")
}

// reviewStamp resolves the target status and decision timestamps for an
// approve or reject call. Approving clears any prior rejection timestamp
// and vice versa, so a record carries at most one decision mark.
func reviewStamp(w models.Workflow, approve bool) (status string, approvedAt, rejectedAt *time.Time) {
	now := time.Now().UTC()
	if approve {
		return w.Approved, &now, nil
	}
	return w.Rejected, nil, &now
}

// statusStamp resolves reviewer attribution for a direct status change.
// Prior stamps carry over; a decision status refreshes its own timestamp
// and the acting admin replaces the recorded reviewer.
func statusStamp(w models.Workflow, req StatusUpdateRequest, actor models.Actor,
	prevReviewer *string, prevComments string, prevApprovedAt, prevRejectedAt *time.Time,
) (reviewer, comments string, approvedAt, rejectedAt *time.Time) {
	comments = prevComments
	if req.Comments != "" {
		comments = req.Comments
	}
	if prevReviewer != nil {
		reviewer = *prevReviewer
	}
	if actor.ID != "" {
		reviewer = actor.ID
	}
	approvedAt, rejectedAt = prevApprovedAt, prevRejectedAt
	now := time.Now().UTC()
	switch req.Status {
	case w.Approved:
		approvedAt = &now
	case w.Rejected:
		rejectedAt = &now
	}
	return reviewer, comments, approvedAt, rejectedAt
}
