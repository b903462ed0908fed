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

const commentName = "comments"

// CommentDatabase contains the methods to use with the comment database
type CommentDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Comment, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Comment, error)
	InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Comment, error)
	DeleteMany(context.Context, interface{}, ...*options.DeleteOptions) (int64, error)
	ApplyLike(ctx context.Context, id primitive.ObjectID, plan models.LikePlan, now time.Time) (*models.Comment, error)
	EnsureIndexes(ctx context.Context) error
}

type commentDatabase struct {
	db DatabaseHelper
}

// NewCommentDatabase initializes a new instance of comment database with the provided db connection
func NewCommentDatabase(db DatabaseHelper) CommentDatabase {
	return &commentDatabase{
		db: db,
	}
}

func (c *commentDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Comment, error) {
	comment := &models.Comment{}
	err := c.db.Collection(commentName).FindOne(ctx, filter, opts...).Decode(comment)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (c *commentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Comment, error) {
	var comments []models.Comment
	curr, err := c.db.Collection(commentName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer curr.Close(ctx)
	err = curr.All(ctx, &comments)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *commentDatabase) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return c.db.Collection(commentName).InsertOne(ctx, document, opts...)
}

// FindOneAndUpdate applies update and returns the updated comment
func (c *commentDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Comment, error) {
	comment := &models.Comment{}
	err := c.db.Collection(commentName).FindOneAndUpdate(ctx, filter, update, postImage()).Decode(comment)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (c *commentDatabase) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	return c.db.Collection(commentName).DeleteMany(ctx, filter, opts...)
}

// ApplyLike runs the conditional update for plan. mongo.ErrNoDocuments means the
// comment is gone, soft deleted, or the caller's like changed since the plan was made.
func (c *commentDatabase) ApplyLike(ctx context.Context, id primitive.ObjectID, plan models.LikePlan, now time.Time) (*models.Comment, error) {
	filter, update := LikeUpdate(id, plan, now)
	return c.FindOneAndUpdate(ctx, filter, update)
}

// EnsureIndexes creates the indexes comment listings rely on
func (c *commentDatabase) EnsureIndexes(ctx context.Context) error {
	_, err := c.db.Collection(commentName).CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "issue", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "parentComment", Value: 1}}},
	})
	return err
}

// LikeUpdate builds the guarded filter and update that apply plan atomically
func LikeUpdate(id primitive.ObjectID, plan models.LikePlan, now time.Time) (bson.M, bson.M) {
	if plan.Like {
		return bson.M{"_id": id, "isDeleted": false, "likedBy": bson.M{"$ne": plan.User}},
			bson.M{
				"$addToSet": bson.M{"likedBy": plan.User},
				"$inc":      bson.M{"likes": 1},
				"$set":      bson.M{"updatedAt": now},
			}
	}
	return bson.M{"_id": id, "isDeleted": false, "likedBy": plan.User},
		bson.M{
			"$pull": bson.M{"likedBy": plan.User},
			"$inc":  bson.M{"likes": -1},
			"$set":  bson.M{"updatedAt": now},
		}
}
