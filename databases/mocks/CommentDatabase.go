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

// CommentDatabase is a mock type for the CommentDatabase type
type CommentDatabase struct {
	mock.Mock
}

func commentResult(ret mock.Arguments) (*models.Comment, error) {
	var r0 *models.Comment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Comment)
	}
	return r0, ret.Error(1)
}

// ApplyLike provides a mock function with given fields: ctx, id, plan, now
func (_m *CommentDatabase) ApplyLike(ctx context.Context, id primitive.ObjectID, plan models.LikePlan, now time.Time) (*models.Comment, error) {
	return commentResult(_m.Called(ctx, id, plan, now))
}

// DeleteMany provides a mock function with given fields: _a0, _a1, _a2
func (_m *CommentDatabase) DeleteMany(_a0 context.Context, _a1 interface{}, _a2 ...*options.DeleteOptions) (int64, error) {
	_va := make([]interface{}, len(_a2))
	for _i := range _a2 {
		_va[_i] = _a2[_i]
	}
	ret := _m.Called(variadic([]interface{}{_a0, _a1}, _va...)...)
	return ret.Get(0).(int64), ret.Error(1)
}

// EnsureIndexes provides a mock function with given fields: ctx
func (_m *CommentDatabase) EnsureIndexes(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// Find provides a mock function with given fields: ctx, filter, opts
func (_m *CommentDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Comment, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	ret := _m.Called(variadic([]interface{}{ctx, filter}, _va...)...)

	var r0 []models.Comment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Comment)
	}
	return r0, ret.Error(1)
}

// FindOne provides a mock function with given fields: ctx, filter, opts
func (_m *CommentDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Comment, error) {
	_va := make([]interface{}, len(opts))
	for _i := range opts {
		_va[_i] = opts[_i]
	}
	return commentResult(_m.Called(variadic([]interface{}{ctx, filter}, _va...)...))
}

// FindOneAndUpdate provides a mock function with given fields: ctx, filter, update
func (_m *CommentDatabase) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Comment, error) {
	return commentResult(_m.Called(ctx, filter, update))
}

// InsertOne provides a mock function with given fields: _a0, _a1, _a2
func (_m *CommentDatabase) InsertOne(_a0 context.Context, _a1 interface{}, _a2 ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
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
