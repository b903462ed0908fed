package mocks

import (
	context "context"
	time "time"

	mock "github.com/stretchr/testify/mock"
	primitive "go.mongodb.org/mongo-driver/bson/primitive"
	options "go.mongodb.org/mongo-driver/mongo/options"

	databases "github.com/linesmerrill/urban-issue-api/databases"
	models "github.com/linesmerrill/urban-issue-api/models"
)

// IssueDatabase is a mock type for the IssueDatabase type
type IssueDatabase struct {
	mock.Mock
}

func issueResult(ret mock.Arguments) (*models.Issue, error) {
	var r0 *models.Issue
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Issue)
	}
	return r0, ret.Error(1)
}

// Aggregate provides a mock function with given fields: ctx, pipeline, results
func (_m *IssueDatabase) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	ret := _m.Called(ctx, pipeline, results)
	return ret.Error(0)
}

// ApplyVote provides a mock function with given fields: ctx, id, plan, now
func (_m *IssueDatabase) ApplyVote(ctx context.Context, id primitive.ObjectID, plan models.VotePlan, now time.Time) (*models.Issue, error) {
	return issueResult(_m.Called(ctx, id, plan, now))
}

// Assign provides a mock function with given fields: ctx, id, assignee, now
func (_m *IssueDatabase) Assign(ctx context.Context, id primitive.ObjectID, assignee primitive.ObjectID, now time.Time) (*models.Issue, error) {
	return issueResult(_m.Called(ctx, id, assignee, now))
}

// CountDocuments provides a mock function with given fields: _a0, _a1, _a2
func (_m *IssueDatabase) CountDocuments(_a0 context.Context, _a1 interface{}, _a2 ...*options.CountOptions) (int64, error) {
	_va := make([]interface{}, len(_a2))
	for _i := range _a2 {
		_va[_i] = _a2[_i]
	}
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _va...)...)
	return ret.Get(0).(int64), ret.Error(1)
}

// DeleteOne provides a mock function with given fields: _a0, _a1, _a2
func (_m *IssueDatabase) DeleteOne(_a0 context.Context, _a1 interface{}, _a2 ...*options.DeleteOptions) (int64, error) {
	_va := make([]interface{}, len(_a2))
	for _i := range _a2 {
		_va[_i] = _a2[_i]
	}
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _va...)...)
	return ret.Get(0).(int64), ret.Error(1)
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *IssueDatabase) EnsureIndexes(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *IssueDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Issue, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	ret := _m.Called(variadic([]interface{}{ctx, filter}, _va...)...)

	var r0 []models.Issue
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Issue)
	}
	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter, opts
func (_m *IssueDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Issue, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	return issueResult(_m.Called(variadic([]interface{}{ctx, filter}, _va...)...))
}

// InsertOne provides a mock function with given fields: _a0, _a1, _a2
func (_m *IssueDatabase) InsertOne(_a0 context.Context, _a1 interface{}, _a2 ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	_va := make([]interface{}, len(_a2))
	for _i := range _a2 {
		_va[_i] = _a2[_i]
	}
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _va...)...)

	var r0 databases.InsertOneResultHelper
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(databases.InsertOneResultHelper)
	}
	return r0, ret.Error(1)
}

// SetStatus provides a mock function with given fields: ctx, id, change, now
func (_m *IssueDatabase) SetStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange, now time.Time) (*models.Issue, error) {
	return issueResult(_m.Called(ctx, id, change, now))
}
