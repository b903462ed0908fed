package services

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/notify"
)

// Comments owns comment documents. Soft deleted comments are invisible to every
// operation here except the issue cascade.
type Comments struct {
	Deps
}

// Create adds a comment to an existing issue, optionally as a reply to a comment on
// the same issue. Admin comments are official.
func (s Comments) Create(ctx context.Context, actor models.Identity, input models.CommentInput) (*models.CommentDetails, error) {
	input.Content = strings.TrimSpace(input.Content)
	input.IssueID = strings.TrimSpace(input.IssueID)
	input.ParentCommentID = strings.TrimSpace(input.ParentCommentID)
	if err := validate(input); err != nil {
		return nil, err
	}
	issueID, err := ParseID("issueId", input.IssueID)
	if err != nil {
		return nil, err
	}

	issue, err := s.IDB.FindOne(ctx, bson.M{"_id": issueID})
	if err != nil {
		return nil, storeErr("issue", err)
	}

	var parent *primitive.ObjectID
	if input.ParentCommentID != "" {
		parentID, err := ParseID("parentCommentId", input.ParentCommentID)
		if err != nil {
			return nil, err
		}
		p, err := s.CDB.FindOne(ctx, bson.M{"_id": parentID})
		if err != nil {
			return nil, storeErr("parent comment", err)
		}
		if p.Issue != issueID {
			return nil, invalid("parentCommentId", "Parent comment belongs to a different issue")
		}
		parent = &parentID
	}

	comment := models.NewComment(input.Content, issueID, actor.UserID, actor.IsAdmin, parent, s.now())
	if _, err := s.CDB.InsertOne(ctx, comment); err != nil {
		return nil, storeErr("comment", err)
	}

	if issue.ReportedBy != actor.UserID {
		s.publish(notify.Event{Type: notify.CommentAdded, Recipient: issue.ReportedBy, Issue: *issue, Comment: &comment, ActorName: actor.Name})
	}

	return s.detailsOrBare(ctx, comment), nil
}

// ListForIssue returns the live comments of an issue in creation order
func (s Comments) ListForIssue(ctx context.Context, issueID string) ([]models.CommentDetails, error) {
	id, err := ParseID("issueId", issueID)
	if err != nil {
		return nil, err
	}
	return s.listForIssue(ctx, id)
}

func (s Comments) listForIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.CommentDetails, error) {
	comments, err := s.CDB.Find(ctx, bson.M{"issue": issueID, "isDeleted": false},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, storeErr("comment", err)
	}
	return s.commentDetails(ctx, comments...)
}

// Edit replaces the content of a comment. Only its author or an admin may edit.
func (s Comments) Edit(ctx context.Context, actor models.Identity, commentID string, input models.CommentEditInput) (*models.CommentDetails, error) {
	input.Content = strings.TrimSpace(input.Content)
	id, err := parseWithInput("id", commentID, input)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, id, "edit"); err != nil {
		return nil, err
	}

	now := s.now()
	updated, err := s.CDB.FindOneAndUpdate(ctx, bson.M{"_id": id, "isDeleted": false}, bson.M{
		"$set": bson.M{"content": input.Content, "isEdited": true, "editedAt": now, "updatedAt": now},
	})
	if err != nil {
		return nil, storeErr("comment", err)
	}
	return s.detailsOrBare(ctx, *updated), nil
}

// SoftDelete hides a comment from listings. Replies to it stay visible.
func (s Comments) SoftDelete(ctx context.Context, actor models.Identity, commentID string) error {
	id, err := ParseID("id", commentID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, id, "delete"); err != nil {
		return err
	}
	_, err = s.CDB.FindOneAndUpdate(ctx, bson.M{"_id": id, "isDeleted": false}, bson.M{
		"$set": bson.M{"isDeleted": true, "updatedAt": s.now()},
	})
	if err != nil {
		return storeErr("comment", err)
	}
	return nil
}

// ToggleLike adds actor to the likers of a comment, or removes them if present
func (s Comments) ToggleLike(ctx context.Context, actor models.Identity, commentID string) (*models.LikeResult, error) {
	id, err := ParseID("id", commentID)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		c, err := s.CDB.FindOne(ctx, bson.M{"_id": id, "isDeleted": false})
		if err != nil {
			return nil, storeErr("comment", err)
		}
		_, plan := models.PlanLike(*c, actor.UserID)
		updated, err := s.CDB.ApplyLike(ctx, id, plan, s.now())
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, storeErr("comment", err)
		}
		return &models.LikeResult{Likes: updated.Likes, HasUserLiked: plan.Like}, nil
	}
	return nil, ErrConflict
}

// DeleteAllForIssue hard deletes every comment of an issue, deleted or not
func (s Comments) DeleteAllForIssue(ctx context.Context, issueID primitive.ObjectID) (int64, error) {
	n, err := s.CDB.DeleteMany(ctx, bson.M{"issue": issueID})
	if err != nil {
		return 0, storeErr("comment", err)
	}
	return n, nil
}

// authorize loads a live comment and checks actor may modify it
func (s Comments) authorize(ctx context.Context, actor models.Identity, id primitive.ObjectID, action string) error {
	c, err := s.CDB.FindOne(ctx, bson.M{"_id": id, "isDeleted": false})
	if err != nil {
		return storeErr("comment", err)
	}
	if !c.CanModify(actor) {
		return forbidden("not authorized to " + action + " this comment")
	}
	return nil
}

func (s Comments) detailsOrBare(ctx context.Context, c models.Comment) *models.CommentDetails {
	details, err := s.commentDetails(ctx, c)
	if err != nil {
		d := models.NewCommentDetails(c, nil)
		return &d
	}
	return &details[0]
}
