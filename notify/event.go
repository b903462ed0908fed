// Package notify delivers out-of-band notifications about issue activity. Delivery is
// fire-and-forget: publishing never blocks and sink failures never reach the caller.
package notify

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/urban-issue-api/models"
)

// EventType names what happened
type EventType string

// Event types
const (
	IssueCreated       EventType = "issue.created"
	IssueStatusChanged EventType = "issue.status_changed"
	CommentAdded       EventType = "comment.added"
)

// Event is one notification for one recipient
type Event struct {
	Type      EventType          `json:"type"`
	Recipient primitive.ObjectID `json:"recipient"`
	Issue     models.Issue       `json:"issue"`
	Comment   *models.Comment    `json:"comment,omitempty"`
	ActorName string             `json:"actorName,omitempty"`
	Note      string             `json:"note,omitempty"`
	At        time.Time          `json:"at"`
}

// Publisher accepts events for later delivery
type Publisher interface {
	Publish(Event)
}

// Nop drops every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(Event) {}
