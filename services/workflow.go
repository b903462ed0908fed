package services

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/notify"
)

// Workflow is the admin side of an issue: status transitions and assignment
type Workflow struct {
	Deps
}

// SetStatus moves an issue to any status. A note becomes an official comment by the
// admin; failing to store it is logged and does not undo the status change.
func (s Workflow) SetStatus(ctx context.Context, actor models.Identity, issueID string, input models.StatusInput) (*models.StatusUpdate, error) {
	if !actor.IsAdmin {
		return nil, forbidden("only admins can change issue status")
	}
	input.Note = strings.TrimSpace(input.Note)
	id, err := parseWithInput("id", issueID, input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	issue, err := s.IDB.SetStatus(ctx, id, models.PlanStatusChange(input.Status, now), now)
	if err != nil {
		return nil, storeErr("issue", err)
	}

	var note *models.Comment
	if input.Note != "" {
		c := models.NewComment(input.Note, id, actor.UserID, true, nil, now)
		if _, err := s.CDB.InsertOne(ctx, c); err != nil {
			zap.S().Errorw("failed to store status note",
				"issue", id.Hex(),
				"status", input.Status,
				"error", err)
		} else {
			note = &c
		}
	}

	s.publish(notify.Event{Type: notify.IssueStatusChanged, Recipient: issue.ReportedBy, Issue: *issue, ActorName: actor.Name, Note: input.Note})

	details, err := s.issueDetails(ctx, *issue)
	if err != nil {
		return nil, err
	}
	out := &models.StatusUpdate{Issue: details[0]}
	if note != nil {
		out.Comment = Comments{s.Deps}.detailsOrBare(ctx, *note)
	}
	return out, nil
}

// Assign hands an issue to an admin user. The status is left alone.
func (s Workflow) Assign(ctx context.Context, actor models.Identity, issueID string, input models.AssignInput) (*models.IssueDetails, error) {
	if !actor.IsAdmin {
		return nil, forbidden("only admins can assign issues")
	}
	input.AssignedTo = strings.TrimSpace(input.AssignedTo)
	id, err := parseWithInput("id", issueID, input)
	if err != nil {
		return nil, err
	}
	assignee, err := ParseID("assignedTo", input.AssignedTo)
	if err != nil {
		return nil, err
	}

	target, err := s.UDB.FindOne(ctx, bson.M{"_id": assignee})
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && !target.IsAdmin) {
		return nil, invalid("assignedTo", "Issues can only be assigned to an admin user")
	}
	if err != nil {
		return nil, storeErr("user", err)
	}

	issue, err := s.IDB.Assign(ctx, id, assignee, s.now())
	if err != nil {
		return nil, storeErr("issue", err)
	}
	details, err := s.issueDetails(ctx, *issue)
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}
