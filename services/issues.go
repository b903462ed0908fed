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

// Issues owns issue documents
type Issues struct {
	Deps
}

// Create validates input and stores a new pending issue reported by actor
func (s Issues) Create(ctx context.Context, actor models.Identity, input models.IssueInput) (*models.IssueDetails, error) {
	input = normalizeIssue(input)
	if err := validate(input); err != nil {
		return nil, err
	}

	issue := models.NewIssue(input, actor.UserID, s.now())
	if _, err := s.IDB.InsertOne(ctx, issue); err != nil {
		return nil, storeErr("issue", err)
	}

	s.publish(notify.Event{Type: notify.IssueCreated, Recipient: actor.UserID, Issue: issue, ActorName: actor.Name})

	details, err := s.issueDetails(ctx, issue)
	if err != nil {
		// the issue is stored, an unresolved reporter only degrades the response
		zap.S().Warnw("failed to resolve reporter", "issue", issue.ID.Hex(), "error", err)
		d := models.NewIssueDetails(issue, nil)
		return &d, nil
	}
	return &details[0], nil
}

// Check validates input the way Create does, without storing anything. Callers use it
// before side effects such as image uploads.
func (s Issues) Check(input models.IssueInput) error {
	return validate(normalizeIssue(input))
}

func normalizeIssue(input models.IssueInput) models.IssueInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Location.Address = strings.TrimSpace(input.Location.Address)
	tags := make([]string, 0, len(input.Tags))
	for _, t := range input.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	input.Tags = tags
	return input
}

// Get returns the issue with its live comments, oldest first
func (s Issues) Get(ctx context.Context, issueID string) (*models.IssueWithComments, error) {
	id, err := ParseID("id", issueID)
	if err != nil {
		return nil, err
	}
	issue, err := s.IDB.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, storeErr("issue", err)
	}
	details, err := s.issueDetails(ctx, *issue)
	if err != nil {
		return nil, err
	}
	comments, err := Comments{s.Deps}.listForIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.IssueWithComments{Issue: details[0], Comments: comments}, nil
}

// Delete removes the issue after hard deleting all of its comments. Admin only.
func (s Issues) Delete(ctx context.Context, actor models.Identity, issueID string) error {
	if !actor.IsAdmin {
		return forbidden("only admins can delete issues")
	}
	id, err := ParseID("id", issueID)
	if err != nil {
		return err
	}
	if _, err := s.IDB.FindOne(ctx, bson.M{"_id": id}); err != nil {
		return storeErr("issue", err)
	}

	removed, err := Comments{s.Deps}.DeleteAllForIssue(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.IDB.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storeErr("issue", err)
	}
	if n == 0 {
		return notFound("issue")
	}
	zap.S().Infow("issue deleted", "issue", id.Hex(), "comments", removed, "by", actor.UserID.Hex())
	return nil
}

// Vote records actor's vote. Resubmitting the current direction removes the vote.
// A guard mismatch means the same user voted concurrently; the vote is re-planned
// against fresh state a bounded number of times.
func (s Issues) Vote(ctx context.Context, actor models.Identity, issueID string, input models.VoteInput) (*models.VoteResult, error) {
	id, err := parseWithInput("id", issueID, input)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		issue, err := s.IDB.FindOne(ctx, bson.M{"_id": id})
		if err != nil {
			return nil, storeErr("issue", err)
		}
		_, plan := models.PlanVote(*issue, actor.UserID, input.VoteType)
		updated, err := s.IDB.ApplyVote(ctx, id, plan, s.now())
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, storeErr("issue", err)
		}
		result := models.NewVoteResult(*updated, actor.UserID)
		return &result, nil
	}
	return nil, ErrConflict
}
