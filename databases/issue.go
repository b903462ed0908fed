package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/urban-issue-api/models"
)

const issueName = "issues"

// IssueDatabase contains the methods to use with the issue database
type IssueDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Issue, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Issue, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (int64, error)
	CountDocuments(context.Context, interface{}, ...*options.CountOptions) (int64, error)
	Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error
	ApplyVote(ctx context.Context, id primitive.ObjectID, plan models.VotePlan, now time.Time) (*models.Issue, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange, now time.Time) (*models.Issue, error)
	Assign(ctx context.Context, id, assignee primitive.ObjectID, now time.Time) (*models.Issue, error)
	EnsureIndexes(ctx context.Context) error
}

type issueDatabase struct {
	db DatabaseHelper
}

// NewIssueDatabase initializes a new instance of issue database with the provided db connection
func NewIssueDatabase(db DatabaseHelper) IssueDatabase {
	return &issueDatabase{
		db: db,
	}
}

func (c *issueDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Issue, error) {
	issue := &models.Issue{}
	err := c.db.Collection(issueName).FindOne(ctx, filter, opts...).Decode(issue)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (c *issueDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Issue, error) {
	var issues []models.Issue
	curr, err := c.db.Collection(issueName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &issues)
	if err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *issueDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(issueName).InsertOne(ctx, document, opts...)
}

func (c *issueDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.db.Collection(issueName).DeleteOne(ctx, filter, opts...)
}

func (c *issueDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(issueName).CountDocuments(ctx, filter, opts...)
}

func (c *issueDatabase) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	return aggregate(ctx, c.db.Collection(issueName), pipeline, results)
}

// ApplyVote runs the conditional update for plan. mongo.ErrNoDocuments means either the
// issue is gone or the caller's vote changed since the plan was made.
func (c *issueDatabase) ApplyVote(ctx context.Context, id primitive.ObjectID, plan models.VotePlan, now time.Time) (*models.Issue, error) {
	filter, update := VoteUpdate(id, plan, now)
	return c.findOneAndUpdate(ctx, filter, update)
}

func (c *issueDatabase) SetStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange, now time.Time) (*models.Issue, error) {
	set := bson.M{"status": change.Status, "updatedAt": now}
	if change.ResolvedAt != nil {
		set["resolvedAt"] = *change.ResolvedAt
	}
	return c.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (c *issueDatabase) Assign(ctx context.Context, id, assignee primitive.ObjectID, now time.Time) (*models.Issue, error) {
	return c.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"assignedTo": assignee, "updatedAt": now}})
}

func (c *issueDatabase) findOneAndUpdate(ctx context.Context, filter, update interface{}) (*models.Issue, error) {
	issue := &models.Issue{}
	err := c.db.Collection(issueName).FindOneAndUpdate(ctx, filter, update, postImage()).Decode(issue)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// EnsureIndexes creates the indexes listings and stats rely on
func (c *issueDatabase) EnsureIndexes(ctx context.Context) error {
	_, err := c.db.Collection(issueName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "location.coordinates.latitude", Value: 1}, {Key: "location.coordinates.longitude", Value: 1}}},
		{Keys: bson.D{{Key: "reportedBy", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return err
}

// VoteUpdate builds the guarded filter and update that apply plan atomically. The
// filter only matches while the voter entry is still in the state the plan was made from.
func VoteUpdate(id primitive.ObjectID, plan models.VotePlan, now time.Time) (bson.M, bson.M) {
	switch plan.Action {
	case models.VoteRemoved:
		filter := bson.M{
			"_id":    id,
			"voters": bson.M{"$elemMatch": bson.M{"user": plan.User, "voteType": plan.Previous}},
		}
		update := bson.M{
			"$pull": bson.M{"voters": bson.M{"user": plan.User}},
			"$inc":  bson.M{models.CounterField(plan.Previous): -1},
			"$set":  bson.M{"updatedAt": now},
		}
		return filter, update
	case models.VoteChanged:
		filter := bson.M{
			"_id":    id,
			"voters": bson.M{"$elemMatch": bson.M{"user": plan.User, "voteType": plan.Previous}},
		}
		update := bson.M{
			"$set": bson.M{"voters.$.voteType": plan.Next, "updatedAt": now},
			"$inc": bson.M{models.CounterField(plan.Previous): -1, models.CounterField(plan.Next): 1},
		}
		return filter, update
	default:
		filter := bson.M{
			"_id":         id,
			"voters.user": bson.M{"$ne": plan.User},
		}
		update := bson.M{
			"$push": bson.M{"voters": models.Voter{User: plan.User, VoteType: plan.Next}},
			"$inc":  bson.M{models.CounterField(plan.Next): 1},
			"$set":  bson.M{"updatedAt": now},
		}
		return filter, update
	}
}

func aggregate(ctx context.Context, coll CollectionHelper, pipeline interface{}, results interface{}) error {
	curr, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer curr.Close(ctx)
	return curr.All(ctx, results)
}
