package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/urban-issue-api/databases"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/notify"
)

// maxAttempts bounds the re-plan loop of guarded vote and like updates
const maxAttempts = 3

// Deps are the stores and collaborators the services share
type Deps struct {
	IDB    databases.IssueDatabase
	CDB    databases.CommentDatabase
	UDB    databases.UserDatabase
	Events notify.Publisher
	Now    func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d Deps) publish(e notify.Event) {
	if d.Events == nil {
		return
	}
	e.At = d.now()
	d.Events.Publish(e)
}

// userProjection never reads password hashes
var userProjection = bson.M{"password": 0}

// summaries resolves user display fields with one query
func (d Deps) summaries(ctx context.Context, ids ...primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	unique := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return out, nil
	}
	users, err := d.UDB.Find(ctx, bson.M{"_id": bson.M{"$in": unique}}, options.Find().SetProjection(userProjection))
	if err != nil {
		return nil, storeErr("user", err)
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

func (d Deps) issueDetails(ctx context.Context, issues ...models.Issue) ([]models.IssueDetails, error) {
	ids := make([]primitive.ObjectID, 0, len(issues)*2)
	for _, i := range issues {
		ids = append(ids, i.ReportedBy)
		if i.AssignedTo != nil {
			ids = append(ids, *i.AssignedTo)
		}
	}
	users, err := d.summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]models.IssueDetails, 0, len(issues))
	for _, i := range issues {
		out = append(out, models.NewIssueDetails(i, users))
	}
	return out, nil
}

func (d Deps) commentDetails(ctx context.Context, comments ...models.Comment) ([]models.CommentDetails, error) {
	ids := make([]primitive.ObjectID, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.Author)
	}
	users, err := d.summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]models.CommentDetails, 0, len(comments))
	for _, c := range comments {
		out = append(out, models.NewCommentDetails(c, users))
	}
	return out, nil
}

// ParseID turns a hex id from a path into an ObjectID
func ParseID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, invalid(field, "Invalid "+field)
	}
	return id, nil
}

// parseWithInput checks a path id and a request body together, so a request that is
// wrong in both places reports every violation at once
func parseWithInput(field, hex string, input interface{}) (primitive.ObjectID, error) {
	var fields []models.FieldError
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		fields = append(fields, models.FieldError{Field: field, Message: "Invalid " + field})
	}
	fields = append(fields, models.Validate(input)...)
	if len(fields) > 0 {
		return primitive.NilObjectID, &ValidationError{Fields: fields}
	}
	return id, nil
}
