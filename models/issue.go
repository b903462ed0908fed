package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is the kind of urban problem an issue reports
type Category string

// Issue categories
const (
	CategoryTraffic        Category = "traffic"
	CategorySanitation     Category = "sanitation"
	CategoryInfrastructure Category = "infrastructure"
	CategoryWater          Category = "water"
	CategoryElectricity    Category = "electricity"
	CategoryEnvironment    Category = "environment"
	CategorySecurity       Category = "security"
	CategoryOther          Category = "other"
)

// Categories lists every valid category in display order
var Categories = []Category{
	CategoryTraffic, CategorySanitation, CategoryInfrastructure, CategoryWater,
	CategoryElectricity, CategoryEnvironment, CategorySecurity, CategoryOther,
}

// Valid reports whether c is one of the fixed categories
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Priority of an issue
type Priority string

// Issue priorities
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is low, medium or high
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Status is the triage state of an issue
type Status string

// Issue statuses. Pending is the only initial state.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusResolved   Status = "resolved"
	StatusRejected   Status = "rejected"
)

// Statuses lists every valid status
var Statuses = []Status{StatusPending, StatusInProgress, StatusResolved, StatusRejected}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Coordinates holds a WGS84 position
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Location is where an issue was reported
type Location struct {
	Address     string      `json:"address" bson:"address"`
	Coordinates Coordinates `json:"coordinates" bson:"coordinates"`
}

// Issue holds the structure for the issues collection in mongo
type Issue struct {
	ID          primitive.ObjectID  `json:"_id" bson:"_id"`
	Title       string              `json:"title" bson:"title"`
	Description string              `json:"description" bson:"description"`
	Category    Category            `json:"category" bson:"category"`
	Priority    Priority            `json:"priority" bson:"priority"`
	Status      Status              `json:"status" bson:"status"`
	Location    Location            `json:"location" bson:"location"`
	ImageURL    string              `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	ReportedBy  primitive.ObjectID  `json:"reportedBy" bson:"reportedBy"`
	AssignedTo  *primitive.ObjectID `json:"assignedTo" bson:"assignedTo"`
	ResolvedAt  *time.Time          `json:"resolvedAt" bson:"resolvedAt"`
	Tags        []string            `json:"tags" bson:"tags"`
	Upvotes     int                 `json:"upvotes" bson:"upvotes"`
	Downvotes   int                 `json:"downvotes" bson:"downvotes"`
	Voters      []Voter             `json:"voters" bson:"voters"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Score is upvotes minus downvotes
func (i Issue) Score() int {
	return i.Upvotes - i.Downvotes
}

// IssueDetails is an issue with its user references resolved for display
type IssueDetails struct {
	Issue
	ReportedBy *UserSummary `json:"reportedBy"`
	AssignedTo *UserSummary `json:"assignedTo"`
	VoteCount  int          `json:"voteCount"`
}

// NewIssueDetails resolves the reporter and assignee of issue from users. References
// missing from users keep only their id.
func NewIssueDetails(issue Issue, users map[primitive.ObjectID]UserSummary) IssueDetails {
	d := IssueDetails{Issue: issue, VoteCount: issue.Score()}
	if u, ok := users[issue.ReportedBy]; ok {
		d.ReportedBy = &u
	} else {
		d.ReportedBy = &UserSummary{ID: issue.ReportedBy}
	}
	if issue.AssignedTo != nil {
		if u, ok := users[*issue.AssignedTo]; ok {
			d.AssignedTo = &u
		} else {
			d.AssignedTo = &UserSummary{ID: *issue.AssignedTo}
		}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Voters == nil {
		d.Voters = []Voter{}
	}
	return d
}

// IssueWithComments is the single issue view
type IssueWithComments struct {
	Issue    IssueDetails     `json:"issue"`
	Comments []CommentDetails `json:"comments"`
}

// IssueInput is the body accepted when reporting a new issue
type IssueInput struct {
	Title       string        `json:"title" validate:"required,max=200"`
	Description string        `json:"description" validate:"required,max=2000"`
	Category    Category      `json:"category" validate:"required,category"`
	Priority    Priority      `json:"priority" validate:"omitempty,priority"`
	Location    LocationInput `json:"location"`
	Tags        []string      `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
	ImageURL    string        `json:"-"`
}

// LocationInput uses pointers so a missing coordinate is distinguishable from 0
type LocationInput struct {
	Address     string           `json:"address" validate:"required"`
	Coordinates CoordinatesInput `json:"coordinates"`
}

// CoordinatesInput is the unvalidated form of Coordinates
type CoordinatesInput struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// NewIssue builds the document stored for a validated input
func NewIssue(input IssueInput, reporter primitive.ObjectID, now time.Time) Issue {
	priority := input.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	var lat, lng float64
	if input.Location.Coordinates.Latitude != nil {
		lat = *input.Location.Coordinates.Latitude
	}
	if input.Location.Coordinates.Longitude != nil {
		lng = *input.Location.Coordinates.Longitude
	}
	return Issue{
		ID:          primitive.NewObjectID(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    priority,
		Status:      StatusPending,
		Location: Location{
			Address:     input.Location.Address,
			Coordinates: Coordinates{Latitude: lat, Longitude: lng},
		},
		ImageURL:   input.ImageURL,
		ReportedBy: reporter,
		Tags:       tags,
		Voters:     []Voter{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// StatusInput is the body of a status change
type StatusInput struct {
	Status Status `json:"status" validate:"required,status"`
	Note   string `json:"comment" validate:"max=1000"`
}

// StatusUpdate is the result of a status change. Comment is the official note, when
// one was given and could be stored.
type StatusUpdate struct {
	Issue   IssueDetails    `json:"issue"`
	Comment *CommentDetails `json:"comment,omitempty"`
}

// AssignInput is the body of an assignment
type AssignInput struct {
	AssignedTo string `json:"assignedTo" validate:"required,objectid"`
}

// StatusChange is the mutation a status transition applies
type StatusChange struct {
	Status     Status
	ResolvedAt *time.Time
}

// PlanStatusChange decides what a transition to next writes. Entering resolved always
// stamps resolvedAt; leaving it keeps the previous stamp, so nothing is written for it.
func PlanStatusChange(next Status, now time.Time) StatusChange {
	c := StatusChange{Status: next}
	if next == StatusResolved {
		t := now
		c.ResolvedAt = &t
	}
	return c
}

// Apply returns the issue as it looks after the change
func (c StatusChange) Apply(issue Issue) Issue {
	issue.Status = c.Status
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		issue.ResolvedAt = &t
	}
	return issue
}
