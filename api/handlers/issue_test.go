package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/urban-issue-api/api/handlers"
	"github.com/linesmerrill/urban-issue-api/databases/mocks"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
	"github.com/linesmerrill/urban-issue-api/uploads"
)

const issueJSON = `{"title":"Burst pipe","description":"Water everywhere","category":"water","priority":"high",
	"location":{"address":"12 Main St","coordinates":{"latitude":51.5,"longitude":-0.12}},"tags":["flood"]}`

// pngHeader is enough of a PNG for content sniffing
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeUploader struct {
	url     string
	err     error
	name    string
	payload []byte
}

func (f *fakeUploader) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	f.name = filename
	f.payload, _ = io.ReadAll(file)
	return f.url, f.err
}

func (f *fakeUploader) Owns(imageURL string) bool {
	return strings.HasPrefix(imageURL, "https://res.cloudinary.com/demo/")
}

func issueHandler(s stores, up uploads.Uploader) handlers.Issue {
	d := s.deps()
	return handlers.Issue{
		Issues:   services.Issues{Deps: d},
		Workflow: services.Workflow{Deps: d},
		Query:    services.Query{Deps: d},
		Uploader: up,
	}
}

func TestIssue_IssuesHandler(t *testing.T) {
	s := newStores()
	reporter := primitive.NewObjectID()
	s.idb.On("CountDocuments", mock.Anything, bson.M{"category": models.Category("water")}).Return(int64(11), nil)
	s.idb.On("Find", mock.Anything, bson.M{"category": models.Category("water")}, mock.Anything).
		Return([]models.Issue{{ID: primitive.NewObjectID(), Title: "Leak", ReportedBy: reporter}}, nil)
	s.udb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.User{{ID: reporter, Name: "Ada"}}, nil)

	rr := serve(issueHandler(s, nil).IssuesHandler, request("GET", "/api/v1/issues?category=water&page=2", nil, nil, nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var issues []models.IssueDetails
	resp := decodeData(t, rr, &issues)
	assert.True(t, resp.Success)
	require.Len(t, issues, 1)
	assert.Equal(t, "Ada", issues[0].ReportedBy.Name)
	assert.Contains(t, rr.Body.String(), `"total":11`)
	assert.Contains(t, rr.Body.String(), `"pages":2`)
}

func TestIssue_IssuesHandler_BadQuery(t *testing.T) {
	rr := serve(issueHandler(newStores(), nil).IssuesHandler, request("GET", "/api/v1/issues?page=two&limit=500", nil, nil, nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "Validation failed", resp.Message)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, "page", resp.Errors[0].Field)
}

func TestIssue_IssueByIDHandler(t *testing.T) {
	s := newStores()
	id := primitive.NewObjectID()
	s.idb.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(nil, mongo.ErrNoDocuments)
	h := issueHandler(s, nil)

	rr := serve(h.IssueByIDHandler, request("GET", "/", nil, map[string]string{"issue_id": id.Hex()}, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Issue not found", decodeError(t, rr).Message)

	rr = serve(h.IssueByIDHandler, request("GET", "/", nil, map[string]string{"issue_id": "1234"}, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "id", decodeError(t, rr).Errors[0].Field)
}

func TestIssue_IssueByIDHandler_StoreError(t *testing.T) {
	s := newStores()
	s.idb.On("FindOne", mock.Anything, mock.Anything).Return(nil, errors.New("mocked-error"))

	rr := serve(issueHandler(s, nil).IssueByIDHandler, request("GET", "/", nil, map[string]string{"issue_id": primitive.NewObjectID().Hex()}, nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	resp := decodeError(t, rr)
	assert.Equal(t, "server error while fetching issue", resp.Message)
	assert.NotContains(t, rr.Body.String(), "mocked-error")
}

func TestIssue_CreateIssueHandler(t *testing.T) {
	s := newStores()
	s.idb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Issue")).Return(&mocks.InsertOneResultHelper{}, nil)
	s.udb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.User{{ID: citizen.UserID, Name: citizen.Name}}, nil)

	rr := serve(issueHandler(s, nil).CreateIssueHandler, request("POST", "/api/v1/issues", strings.NewReader(issueJSON), nil, &citizen))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var issue models.IssueDetails
	resp := decodeData(t, rr, &issue)
	assert.Equal(t, "Issue created successfully", resp.Message)
	assert.Equal(t, models.StatusPending, issue.Status)
	assert.Equal(t, citizen.UserID, issue.ReportedBy.ID)
	assert.Equal(t, []string{"flood"}, issue.Tags)
}

func TestIssue_CreateIssueHandler_Rejects(t *testing.T) {
	h := issueHandler(newStores(), &fakeUploader{})

	rr := serve(h.CreateIssueHandler, request("POST", "/api/v1/issues", strings.NewReader(issueJSON), nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(h.CreateIssueHandler, request("POST", "/api/v1/issues", strings.NewReader("{"), nil, &citizen))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "body", decodeError(t, rr).Errors[0].Field)

	rr = serve(h.CreateIssueHandler, request("POST", "/api/v1/issues", strings.NewReader(`{"title":""}`), nil, &citizen))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.GreaterOrEqual(t, len(decodeError(t, rr).Errors), 4)

	foreign := strings.Replace(issueJSON, `"tags"`, `"imageUrl":"https://evil.example.com/x.png","tags"`, 1)
	rr = serve(h.CreateIssueHandler, request("POST", "/api/v1/issues", strings.NewReader(foreign), nil, &citizen))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "imageUrl", decodeError(t, rr).Errors[0].Field)
}

func TestIssue_CreateIssueHandler_SignedImageURL(t *testing.T) {
	s := newStores()
	s.idb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Issue")).Return(&mocks.InsertOneResultHelper{}, nil)
	s.udb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.User{}, nil)

	body := strings.Replace(issueJSON, `"tags"`, `"imageUrl":"https://res.cloudinary.com/demo/image/upload/v1/urban-issues/a.png","tags"`, 1)
	rr := serve(issueHandler(s, &fakeUploader{}).CreateIssueHandler, request("POST", "/api/v1/issues", strings.NewReader(body), nil, &citizen))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	stored := s.idb.Calls[0].Arguments.Get(1).(models.Issue)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/v1/urban-issues/a.png", stored.ImageURL)
}

// issueForm builds a multipart report, with an image part when image is not nil
func issueForm(t *testing.T, lat string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":                            "Broken lamp",
		"description":                      "Dark at night",
		"category":                         "infrastructure",
		"location[address]":                "4 Elm Rd",
		"location[coordinates][latitude]":  lat,
		"location[coordinates][longitude]": "-0.1",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.WriteField("tags[]", "night"))
	if image != nil {
		part, err := mw.CreateFormFile("image", "lamp.png")
		require.NoError(t, err)
		_, _ = part.Write(image)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func multipartRequest(body io.Reader, contentType string) *http.Request {
	req := request("POST", "/api/v1/issues", nil, nil, &citizen)
	req.Body = io.NopCloser(body)
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestIssue_CreateIssueHandler_Multipart(t *testing.T) {
	s := newStores()
	s.idb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Issue")).Return(&mocks.InsertOneResultHelper{}, nil)
	s.udb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.User{}, nil)
	up := &fakeUploader{url: "https://res.cloudinary.com/demo/image/upload/v1/urban-issues/lamp.png"}

	body, ct := issueForm(t, "51.5", pngHeader)
	rr := serve(issueHandler(s, up).CreateIssueHandler, multipartRequest(body, ct))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "lamp.png", up.name)
	assert.Equal(t, pngHeader, up.payload)

	stored := s.idb.Calls[0].Arguments.Get(1).(models.Issue)
	assert.Equal(t, up.url, stored.ImageURL)
	assert.Equal(t, "4 Elm Rd", stored.Location.Address)
	assert.Equal(t, 51.5, stored.Location.Coordinates.Latitude)
	assert.Equal(t, []string{"night"}, stored.Tags)
	assert.Equal(t, models.PriorityMedium, stored.Priority)
}

func TestIssue_CreateIssueHandler_MultipartRejects(t *testing.T) {
	s := newStores()
	up := &fakeUploader{url: "https://res.cloudinary.com/demo/x.png"}
	h := issueHandler(s, up)

	onlyError := func(rr *httptest.ResponseRecorder) models.FieldError {
		t.Helper()
		errs := decodeError(t, rr).Errors
		require.Len(t, errs, 1, rr.Body.String())
		return errs[0]
	}

	body, ct := issueForm(t, "north", nil)
	rr := serve(h.CreateIssueHandler, multipartRequest(body, ct))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "location.coordinates.latitude", onlyError(rr).Field)

	body, ct = issueForm(t, "51.5", []byte("just some text, not an image"))
	rr = serve(h.CreateIssueHandler, multipartRequest(body, ct))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.FieldError{Field: "image", Message: "Only image files are allowed"}, onlyError(rr))

	// an invalid report never reaches the uploader
	body, ct = issueForm(t, "95", pngHeader)
	rr = serve(h.CreateIssueHandler, multipartRequest(body, ct))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "location.coordinates.latitude", onlyError(rr).Field)
	assert.Empty(t, up.name)

	up.err = errors.New("cloudinary down")
	body, ct = issueForm(t, "51.5", pngHeader)
	rr = serve(h.CreateIssueHandler, multipartRequest(body, ct))
	assert.Equal(t, http.StatusBadGateway, rr.Code, rr.Body.String())
	assert.Equal(t, "lamp.png", up.name)
	s.idb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)

	body, ct = issueForm(t, "51.5", pngHeader)
	rr = serve(issueHandler(s, nil).CreateIssueHandler, multipartRequest(body, ct))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, models.FieldError{Field: "image", Message: "Image uploads are not enabled"}, onlyError(rr))
}

func TestIssue_VoteHandler(t *testing.T) {
	s := newStores()
	id := primitive.NewObjectID()
	before := models.Issue{ID: id, Upvotes: 2, Voters: []models.Voter{}}
	after := models.Issue{ID: id, Upvotes: 3, Voters: []models.Voter{{User: citizen.UserID, VoteType: models.VoteUp}}}
	s.idb.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&before, nil)
	s.idb.On("ApplyVote", mock.Anything, id, mock.Anything, mock.Anything).Return(&after, nil)
	vars := map[string]string{"issue_id": id.Hex()}

	rr := serve(issueHandler(s, nil).VoteHandler, request("POST", "/", strings.NewReader(`{"voteType":"up"}`), vars, &citizen))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var result models.VoteResult
	resp := decodeData(t, rr, &result)
	assert.Equal(t, "Vote recorded successfully", resp.Message)
	assert.Equal(t, models.VoteResult{Upvotes: 3, VoteCount: 3, UserVote: models.VoteUp, HasVoted: true}, result)

	rr = serve(issueHandler(s, nil).VoteHandler, request("POST", "/", strings.NewReader(`{"voteType":"sideways"}`), vars, &citizen))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "voteType", decodeError(t, rr).Errors[0].Field)
}

func TestIssue_VoteHandler_Conflict(t *testing.T) {
	s := newStores()
	id := primitive.NewObjectID()
	s.idb.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.Issue{ID: id}, nil)
	s.idb.On("ApplyVote", mock.Anything, id, mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)

	rr := serve(issueHandler(s, nil).VoteHandler, request("POST", "/", strings.NewReader(`{"voteType":"down"}`), map[string]string{"issue_id": id.Hex()}, &citizen))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "The resource was modified concurrently, please retry", decodeError(t, rr).Message)
}

func TestIssue_UpdateStatusHandler(t *testing.T) {
	s := newStores()
	id := primitive.NewObjectID()
	s.idb.On("SetStatus", mock.Anything, id, mock.Anything, mock.Anything).
		Return(&models.Issue{ID: id, Status: models.StatusInProgress, ReportedBy: citizen.UserID}, nil)
	s.udb.On("Find", mock.Anything, mock.Anything, mock.Anything).Return([]models.User{}, nil)
	h := issueHandler(s, nil)
	vars := map[string]string{"issue_id": id.Hex()}

	rr := serve(h.UpdateStatusHandler, request("PUT", "/", strings.NewReader(`{"status":"in-progress"}`), vars, &admin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var update models.StatusUpdate
	resp := decodeData(t, rr, &update)
	assert.Equal(t, "Issue status updated successfully", resp.Message)
	assert.Equal(t, models.StatusInProgress, update.Issue.Status)
	assert.Nil(t, update.Comment)

	rr = serve(h.UpdateStatusHandler, request("PUT", "/", strings.NewReader(`{"status":"in-progress"}`), vars, &citizen))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h.UpdateStatusHandler, request("PUT", "/", strings.NewReader(`{"status":"closed"}`), vars, &admin))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "status", decodeError(t, rr).Errors[0].Field)
}

func TestIssue_DeleteIssueHandler(t *testing.T) {
	s := newStores()
	id := primitive.NewObjectID()
	s.idb.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.Issue{ID: id}, nil)
	s.cdb.On("DeleteMany", mock.Anything, bson.M{"issue": id}).Return(int64(4), nil)
	s.idb.On("DeleteOne", mock.Anything, bson.M{"_id": id}).Return(int64(1), nil)
	h := issueHandler(s, nil)
	vars := map[string]string{"issue_id": id.Hex()}

	rr := serve(h.DeleteIssueHandler, request("DELETE", "/", nil, vars, &citizen))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	s.cdb.AssertNotCalled(t, "DeleteMany", mock.Anything, mock.Anything)

	rr = serve(h.DeleteIssueHandler, request("DELETE", "/", nil, vars, &admin))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Issue deleted successfully","data":null}`, rr.Body.String())
}
