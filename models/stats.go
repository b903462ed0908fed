package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// IssueStatusCounts counts issues by status
type IssueStatusCounts struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Resolved   int64 `json:"resolved"`
	Rejected   int64 `json:"rejected"`
}

// UserCounts counts users by role
type UserCounts struct {
	Total   int64 `json:"total"`
	Admins  int64 `json:"admins"`
	Regular int64 `json:"regular"`
}

// CountByKey is one bucket of a grouped count, decoded straight from a $group stage
type CountByKey struct {
	Key   string `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// Stats is the admin dashboard summary
type Stats struct {
	Issues            IssueStatusCounts `json:"issues"`
	Users             UserCounts        `json:"users"`
	RecentIssues      []IssueDetails    `json:"recentIssues"`
	CategoryStats     []CountByKey      `json:"categoryStats"`
	PriorityStats     []CountByKey      `json:"priorityStats"`
	ResolutionRate    float64           `json:"resolutionRate"`
	AvgResponseTimeMs float64           `json:"avgResponseTime"`
}

// DayKey identifies a calendar day in the reporting timezone
type DayKey struct {
	Year  int `json:"year" bson:"year"`
	Month int `json:"month" bson:"month"`
	Day   int `json:"day" bson:"day"`
}

// DailyCount is the number of events on one day
type DailyCount struct {
	ID    DayKey `json:"_id" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

// TopReporter is a user ranked by issues reported in a period
type TopReporter struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id"`
	Count int64              `json:"count" bson:"count"`
	Name  string             `json:"name" bson:"name"`
	Email string             `json:"email" bson:"email"`
}

// Analytics is the per-period trend report
type Analytics struct {
	Period        int           `json:"period"`
	DailyIssues   []DailyCount  `json:"dailyIssues"`
	ResolvedDaily []DailyCount  `json:"resolvedDaily"`
	TopReporters  []TopReporter `json:"topReporters"`
}

// Analytics bounds
const (
	DefaultAnalyticsPeriod = 30
	MaxAnalyticsPeriod     = 365
)
