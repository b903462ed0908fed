package services

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/databases"
	"github.com/linesmerrill/urban-issue-api/models"
)

// StatsCache keeps the last computed admin stats
type StatsCache interface {
	Get(ctx context.Context) (*models.Stats, bool)
	Set(ctx context.Context, stats *models.Stats)
}

// Query builds listings and admin aggregates
type Query struct {
	Deps
	Cache StatsCache
	// Timezone is the IANA zone analytics buckets days in
	Timezone string
}

// BuildIssueFilter turns a listing query into a mongo filter. Search is matched as a
// case-insensitive literal against title, description and address.
func BuildIssueFilter(q models.IssueQuery) bson.M {
	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = q.Category
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.Priority != "" {
		filter["priority"] = q.Priority
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"location.address": re},
		}
	}
	return filter
}

// List returns one page of issues matching q, newest first
func (s Query) List(ctx context.Context, q models.IssueQuery) (models.Page[models.IssueDetails], error) {
	q.Search = strings.TrimSpace(q.Search)
	if err := validate(q); err != nil {
		return models.Page[models.IssueDetails]{}, err
	}
	filter := BuildIssueFilter(q)

	total, err := s.IDB.CountDocuments(ctx, filter)
	if err != nil {
		return models.Page[models.IssueDetails]{}, storeErr("issue", err)
	}
	issues, err := s.IDB.Find(ctx, filter, databases.PageOpts(q.Page, q.Limit))
	if err != nil {
		return models.Page[models.IssueDetails]{}, storeErr("issue", err)
	}
	details, err := s.issueDetails(ctx, issues...)
	if err != nil {
		return models.Page[models.IssueDetails]{}, err
	}
	return models.Page[models.IssueDetails]{Items: details, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Stats returns the dashboard summary, from the cache when one is configured
func (s Query) Stats(ctx context.Context) (*models.Stats, error) {
	if s.Cache != nil {
		if stats, ok := s.Cache.Get(ctx); ok {
			return stats, nil
		}
	}
	return s.RefreshStats(ctx)
}

// RefreshStats recomputes the dashboard summary and stores it in the cache
func (s Query) RefreshStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}

	var byStatus []models.CountByKey
	if err := s.IDB.Aggregate(ctx, countBy("status"), &byStatus); err != nil {
		return nil, storeErr("issue", err)
	}
	for _, c := range byStatus {
		stats.Issues.Total += c.Count
		switch models.Status(c.Key) {
		case models.StatusPending:
			stats.Issues.Pending = c.Count
		case models.StatusInProgress:
			stats.Issues.InProgress = c.Count
		case models.StatusResolved:
			stats.Issues.Resolved = c.Count
		case models.StatusRejected:
			stats.Issues.Rejected = c.Count
		}
	}

	var err error
	if stats.Users.Total, err = s.UDB.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, storeErr("user", err)
	}
	if stats.Users.Admins, err = s.UDB.CountDocuments(ctx, bson.M{"isAdmin": true}); err != nil {
		return nil, storeErr("user", err)
	}
	stats.Users.Regular = stats.Users.Total - stats.Users.Admins

	recent, err := s.IDB.Find(ctx, bson.M{}, databases.PageOpts(1, 10))
	if err != nil {
		return nil, storeErr("issue", err)
	}
	if stats.RecentIssues, err = s.issueDetails(ctx, recent...); err != nil {
		return nil, err
	}

	if err := s.IDB.Aggregate(ctx, countBy("category"), &stats.CategoryStats); err != nil {
		return nil, storeErr("issue", err)
	}
	if err := s.IDB.Aggregate(ctx, countBy("priority"), &stats.PriorityStats); err != nil {
		return nil, storeErr("issue", err)
	}
	if stats.CategoryStats == nil {
		stats.CategoryStats = []models.CountByKey{}
	}
	if stats.PriorityStats == nil {
		stats.PriorityStats = []models.CountByKey{}
	}

	stats.ResolutionRate = ResolutionRate(stats.Issues.Resolved, stats.Issues.Total)

	var response []struct {
		Avg float64 `bson:"avg"`
	}
	if err := s.IDB.Aggregate(ctx, responseTimePipeline(), &response); err != nil {
		return nil, storeErr("issue", err)
	}
	if len(response) > 0 {
		stats.AvgResponseTimeMs = math.Round(response[0].Avg)
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, stats)
	}
	return stats, nil
}

// Analytics reports daily created and resolved counts and the top reporters over the
// trailing period days
func (s Query) Analytics(ctx context.Context, period int) (*models.Analytics, error) {
	if period == 0 {
		period = models.DefaultAnalyticsPeriod
	}
	if period < 1 || period > models.MaxAnalyticsPeriod {
		return nil, invalid("period", "Period must be between 1 and 365 days")
	}
	tz := s.Timezone
	if tz == "" {
		tz = "UTC"
	}
	since := s.now().Add(-time.Duration(period) * 24 * time.Hour)

	out := &models.Analytics{Period: period}
	if err := s.IDB.Aggregate(ctx, dailyPipeline(bson.M{"createdAt": bson.M{"$gte": since}}, "$createdAt", tz), &out.DailyIssues); err != nil {
		return nil, storeErr("issue", err)
	}
	resolved := bson.M{"status": models.StatusResolved, "resolvedAt": bson.M{"$gte": since}}
	if err := s.IDB.Aggregate(ctx, dailyPipeline(resolved, "$resolvedAt", tz), &out.ResolvedDaily); err != nil {
		return nil, storeErr("issue", err)
	}
	if err := s.IDB.Aggregate(ctx, topReportersPipeline(since), &out.TopReporters); err != nil {
		return nil, storeErr("issue", err)
	}

	if out.DailyIssues == nil {
		out.DailyIssues = []models.DailyCount{}
	}
	if out.ResolvedDaily == nil {
		out.ResolvedDaily = []models.DailyCount{}
	}
	if out.TopReporters == nil {
		out.TopReporters = []models.TopReporter{}
	}
	zap.S().Debugw("analytics computed", "period", period, "days", len(out.DailyIssues))
	return out, nil
}

// ResolutionRate is resolved/total as a percentage rounded to 2 decimals, 0 when total is 0
func ResolutionRate(resolved, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(resolved)/float64(total)*100*100) / 100
}

func countBy(field string) bson.A {
	return bson.A{
		bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
		bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
	}
}

// responseTimePipeline averages the milliseconds between an issue being reported and
// its first comment, over issues that have one
func responseTimePipeline() bson.A {
	return bson.A{
		bson.M{"$lookup": bson.M{
			"from": "comments",
			"let":  bson.M{"issueId": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$issue", "$$issueId"}}}},
				bson.M{"$sort": bson.M{"createdAt": 1}},
				bson.M{"$limit": 1},
				bson.M{"$project": bson.M{"createdAt": 1}},
			},
			"as": "firstComment",
		}},
		bson.M{"$unwind": "$firstComment"},
		bson.M{"$group": bson.M{
			"_id": nil,
			"avg": bson.M{"$avg": bson.M{"$subtract": bson.A{"$firstComment.createdAt", "$createdAt"}}},
		}},
	}
}

func dailyPipeline(match bson.M, dateField, tz string) bson.A {
	part := func(op string) bson.M {
		return bson.M{op: bson.M{"date": dateField, "timezone": tz}}
	}
	return bson.A{
		bson.M{"$match": match},
		bson.M{"$group": bson.M{
			"_id": bson.M{
				"year":  part("$year"),
				"month": part("$month"),
				"day":   part("$dayOfMonth"),
			},
			"count": bson.M{"$sum": 1},
		}},
		bson.M{"$sort": bson.D{{Key: "_id.year", Value: 1}, {Key: "_id.month", Value: 1}, {Key: "_id.day", Value: 1}}},
	}
}

func topReportersPipeline(since time.Time) bson.A {
	return bson.A{
		bson.M{"$match": bson.M{"createdAt": bson.M{"$gte": since}}},
		bson.M{"$group": bson.M{"_id": "$reportedBy", "count": bson.M{"$sum": 1}}},
		// reporters whose account is gone drop out here, before the limit
		bson.M{"$lookup": bson.M{"from": "users", "localField": "_id", "foreignField": "_id", "as": "user"}},
		bson.M{"$unwind": "$user"},
		bson.M{"$project": bson.M{"count": 1, "name": "$user.name", "email": "$user.email"}},
		bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
		bson.M{"$limit": 10},
	}
}
