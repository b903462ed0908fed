package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User holds the structure for the users collection in mongo
type User struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password,omitempty"`
	IsAdmin   bool               `json:"isAdmin" bson:"isAdmin"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Summary returns the display fields of u
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin}
}

// UserSummary is the subset of a user embedded in issue and comment responses
type UserSummary struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Name    string             `json:"name,omitempty" bson:"name"`
	Email   string             `json:"email,omitempty" bson:"email"`
	IsAdmin bool               `json:"isAdmin" bson:"isAdmin"`
}

// Identity is the authenticated caller. It is supplied by the auth middleware and
// passed explicitly to every operation that needs it.
type Identity struct {
	UserID  primitive.ObjectID
	IsAdmin bool
	Name    string
	Email   string
}

// UserStatusInput is the body of an activation change
type UserStatusInput struct {
	IsActive *bool `json:"isActive" validate:"required"`
}
