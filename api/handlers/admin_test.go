package handlers_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/urban-issue-api/api/handlers"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
)

type warmCache struct{ stats *models.Stats }

func (c warmCache) Get(ctx context.Context) (*models.Stats, bool) { return c.stats, c.stats != nil }
func (c warmCache) Set(ctx context.Context, stats *models.Stats)  {}

func adminHandler(s stores, cache services.StatsCache) handlers.Admin {
	d := s.deps()
	return handlers.Admin{
		Query:    services.Query{Deps: d, Cache: cache},
		Workflow: services.Workflow{Deps: d},
		Users:    services.Users{Deps: d},
	}
}

func TestAdmin_StatsHandler(t *testing.T) {
	stats := &models.Stats{
		Issues:         models.IssueStatusCounts{Total: 4, Resolved: 1, Pending: 3},
		ResolutionRate: 25,
	}
	rr := serve(adminHandler(newStores(), warmCache{stats}).StatsHandler, request("GET", "/api/v1/admin/stats", nil, nil, &admin))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got models.Stats
	decodeData(t, rr, &got)
	assert.Equal(t, stats.Issues, got.Issues)
	assert.Equal(t, 25.0, got.ResolutionRate)
}

func TestAdmin_StatsHandler_StoreError(t *testing.T) {
	s := newStores()
	s.idb.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("mocked-error"))

	rr := serve(adminHandler(s, nil).StatsHandler, request("GET", "/", nil, nil, &admin))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "server error while fetching stats", decodeError(t, rr).Message)
}

func TestAdmin_AnalyticsHandler(t *testing.T) {
	s := newStores()
	h := adminHandler(s, nil)

	rr := serve(h.AnalyticsHandler, request("GET", "/api/v1/admin/analytics?period=abc", nil, nil, &admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "period", decodeError(t, rr).Errors[0].Field)

	rr = serve(h.AnalyticsHandler, request("GET", "/api/v1/admin/analytics?period=400", nil, nil, &admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	s.idb.On("Aggregate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	rr = serve(h.AnalyticsHandler, request("GET", "/api/v1/admin/analytics?period=7", nil, nil, &admin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out models.Analytics
	decodeData(t, rr, &out)
	assert.Equal(t, 7, out.Period)
}

func TestAdmin_AdminIssuesHandler(t *testing.T) {
	s := newStores()
	s.idb.On("CountDocuments", mock.Anything, bson.M{}).Return(int64(45), nil)
	s.idb.On("Find", mock.Anything, bson.M{}, mock.Anything).Return([]models.Issue{}, nil)

	rr := serve(adminHandler(s, nil).AdminIssuesHandler, request("GET", "/api/v1/admin/issues", nil, nil, &admin))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success":true,"count":0,"total":45,"page":1,"pages":3,"data":[]}`, rr.Body.String())
}

func TestAdmin_AssignHandler(t *testing.T) {
	s := newStores()
	issueID := primitive.NewObjectID()
	s.udb.On("FindOne", mock.Anything, bson.M{"_id": admin.UserID}).Return(&models.User{ID: admin.UserID, IsAdmin: true}, nil)
	s.udb.On("FindOne", mock.Anything, bson.M{"_id": citizen.UserID}).Return(&models.User{ID: citizen.UserID}, nil)
	s.idb.On("Assign", mock.Anything, issueID, admin.UserID, mock.Anything).
		Return(&models.Issue{ID: issueID, AssignedTo: &admin.UserID}, nil)
	s.udb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.User{{ID: admin.UserID, Name: admin.Name, IsAdmin: true}}, nil)
	h := adminHandler(s, nil)
	vars := map[string]string{"issue_id": issueID.Hex()}

	body := fmt.Sprintf(`{"assignedTo":"%s"}`, admin.UserID.Hex())
	rr := serve(h.AssignHandler, request("PUT", "/", strings.NewReader(body), vars, &admin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var issue models.IssueDetails
	resp := decodeData(t, rr, &issue)
	assert.Equal(t, "Issue assigned successfully", resp.Message)
	assert.Equal(t, "Root", issue.AssignedTo.Name)

	body = fmt.Sprintf(`{"assignedTo":"%s"}`, citizen.UserID.Hex())
	rr = serve(h.AssignHandler, request("PUT", "/", strings.NewReader(body), vars, &admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.FieldError{Field: "assignedTo", Message: "Issues can only be assigned to an admin user"}, decodeError(t, rr).Errors[0])
}

func TestAdmin_UsersHandler(t *testing.T) {
	s := newStores()
	s.udb.On("CountDocuments", mock.Anything, bson.M{}).Return(int64(2), nil)
	s.udb.On("Find", mock.Anything, bson.M{}, mock.Anything).
		Return([]models.User{{ID: admin.UserID, Name: "Root", IsAdmin: true}, {ID: citizen.UserID, Name: "Ada", Password: "hash"}}, nil)
	h := adminHandler(s, nil)

	rr := serve(h.UsersHandler, request("GET", "/api/v1/admin/users?limit=5", nil, nil, &admin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"count":2`)
	assert.NotContains(t, rr.Body.String(), "hash")

	rr = serve(h.UsersHandler, request("GET", "/api/v1/admin/users?limit=0", nil, nil, &admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "limit", decodeError(t, rr).Errors[0].Field)
}

func TestAdmin_UserStatusHandler(t *testing.T) {
	s := newStores()
	target := primitive.NewObjectID()
	s.udb.On("FindOneAndUpdate", mock.Anything, bson.M{"_id": target}, mock.Anything).
		Return(&models.User{ID: target, IsActive: false}, nil)
	h := adminHandler(s, nil)

	rr := serve(h.UserStatusHandler, request("PUT", "/", strings.NewReader(`{"isActive":false}`), map[string]string{"user_id": target.Hex()}, &admin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "User deactivated successfully")

	rr = serve(h.UserStatusHandler, request("PUT", "/", strings.NewReader(`{"isActive":false}`), map[string]string{"user_id": admin.UserID.Hex()}, &admin))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h.UserStatusHandler, request("PUT", "/", strings.NewReader(`{}`), map[string]string{"user_id": target.Hex()}, &admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "isActive", decodeError(t, rr).Errors[0].Field)
}
