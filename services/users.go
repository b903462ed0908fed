package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/linesmerrill/urban-issue-api/databases"
	"github.com/linesmerrill/urban-issue-api/models"
)

// Users is the admin view of user accounts
type Users struct {
	Deps
}

// List pages through all users, newest first
func (s Users) List(ctx context.Context, actor models.Identity, q models.PageQuery) (models.Page[models.User], error) {
	if !actor.IsAdmin {
		return models.Page[models.User]{}, forbidden("only admins can list users")
	}
	if err := validate(q); err != nil {
		return models.Page[models.User]{}, err
	}
	total, err := s.UDB.CountDocuments(ctx, bson.M{})
	if err != nil {
		return models.Page[models.User]{}, storeErr("user", err)
	}
	users, err := s.UDB.Find(ctx, bson.M{}, databases.PageOpts(q.Page, q.Limit).SetProjection(userProjection))
	if err != nil {
		return models.Page[models.User]{}, storeErr("user", err)
	}
	return models.Page[models.User]{Items: users, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// SetActive activates or deactivates a user. Admins cannot deactivate themselves.
func (s Users) SetActive(ctx context.Context, actor models.Identity, userID string, input models.UserStatusInput) (*models.User, error) {
	if !actor.IsAdmin {
		return nil, forbidden("only admins can change user status")
	}
	id, err := parseWithInput("id", userID, input)
	if err != nil {
		return nil, err
	}
	if id == actor.UserID && !*input.IsActive {
		return nil, forbidden("admins cannot deactivate their own account")
	}

	user, err := s.UDB.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"isActive": *input.IsActive, "updatedAt": s.now()},
	})
	if err != nil {
		return nil, storeErr("user", err)
	}
	return user, nil
}
