package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Comment holds the structure for the comments collection in mongo
type Comment struct {
	ID            primitive.ObjectID   `json:"_id" bson:"_id"`
	Content       string               `json:"content" bson:"content"`
	Issue         primitive.ObjectID   `json:"issue" bson:"issue"`
	Author        primitive.ObjectID   `json:"author" bson:"author"`
	IsOfficial    bool                 `json:"isOfficial" bson:"isOfficial"`
	ParentComment *primitive.ObjectID  `json:"parentComment" bson:"parentComment"`
	Likes         int                  `json:"likes" bson:"likes"`
	LikedBy       []primitive.ObjectID `json:"likedBy" bson:"likedBy"`
	IsEdited      bool                 `json:"isEdited" bson:"isEdited"`
	EditedAt      *time.Time           `json:"editedAt" bson:"editedAt"`
	IsDeleted     bool                 `json:"isDeleted" bson:"isDeleted"`
	CreatedAt     time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// CommentDetails is a comment with its author resolved for display
type CommentDetails struct {
	Comment
	Author *UserSummary `json:"author"`
}

// NewCommentDetails resolves the author of c from users
func NewCommentDetails(c Comment, users map[primitive.ObjectID]UserSummary) CommentDetails {
	d := CommentDetails{Comment: c}
	if u, ok := users[c.Author]; ok {
		d.Author = &u
	} else {
		d.Author = &UserSummary{ID: c.Author}
	}
	if d.LikedBy == nil {
		d.LikedBy = []primitive.ObjectID{}
	}
	return d
}

// CommentInput is the body of a new comment
type CommentInput struct {
	Content         string `json:"content" validate:"required,max=1000"`
	IssueID         string `json:"issueId" validate:"required,objectid"`
	ParentCommentID string `json:"parentCommentId" validate:"omitempty,objectid"`
}

// CommentEditInput is the body of a comment edit
type CommentEditInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

// NewComment builds the document stored for a new comment
func NewComment(content string, issue, author primitive.ObjectID, official bool, parent *primitive.ObjectID, now time.Time) Comment {
	return Comment{
		ID:            primitive.NewObjectID(),
		Content:       content,
		Issue:         issue,
		Author:        author,
		IsOfficial:    official,
		ParentComment: parent,
		LikedBy:       []primitive.ObjectID{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// LikePlan is the atomic mutation a like toggle needs. Like is the state after the
// toggle: true adds user to likedBy, false removes them.
type LikePlan struct {
	User primitive.ObjectID
	Like bool
}

// PlanLike toggles user's like on c and returns the next state with the plan
func PlanLike(c Comment, user primitive.ObjectID) (Comment, LikePlan) {
	plan := LikePlan{User: user, Like: !c.LikedByUser(user)}
	return plan.Apply(c), plan
}

// Apply returns c with the plan applied. The likedBy slice is copied.
func (p LikePlan) Apply(c Comment) Comment {
	likedBy := make([]primitive.ObjectID, 0, len(c.LikedBy)+1)
	for _, id := range c.LikedBy {
		if id != p.User {
			likedBy = append(likedBy, id)
		}
	}
	if p.Like {
		likedBy = append(likedBy, p.User)
	}
	c.LikedBy = likedBy
	c.Likes = len(likedBy)
	return c
}

// LikedByUser reports whether user has liked c
func (c Comment) LikedByUser(user primitive.ObjectID) bool {
	for _, id := range c.LikedBy {
		if id == user {
			return true
		}
	}
	return false
}

// LikeResult is returned to the user who toggled a like
type LikeResult struct {
	Likes        int  `json:"likes"`
	HasUserLiked bool `json:"hasUserLiked"`
}

// CanModify reports whether identity may edit or delete c
func (c Comment) CanModify(id Identity) bool {
	return id.IsAdmin || c.Author == id.UserID
}
