package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/urban-issue-api/api"
	"github.com/linesmerrill/urban-issue-api/databases/mocks"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
)

var (
	citizen = models.Identity{UserID: primitive.NewObjectID(), Name: "Ada", Email: "ada@example.com"}
	admin   = models.Identity{UserID: primitive.NewObjectID(), Name: "Root", Email: "root@example.com", IsAdmin: true}
)

type stores struct {
	idb *mocks.IssueDatabase
	cdb *mocks.CommentDatabase
	udb *mocks.UserDatabase
}

func newStores() stores {
	return stores{idb: &mocks.IssueDatabase{}, cdb: &mocks.CommentDatabase{}, udb: &mocks.UserDatabase{}}
}

func (s stores) deps() services.Deps {
	return services.Deps{IDB: s.idb, CDB: s.cdb, UDB: s.udb}
}

// request builds a request as the router would hand it over: path vars set and, when
// as is not nil, the caller put in the context by the auth middleware
func request(method, target string, body io.Reader, vars map[string]string, as *models.Identity) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	if as != nil {
		req = req.WithContext(api.WithIdentity(req.Context(), *as))
	}
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

// decodeData unmarshals the data of a success envelope into v
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) models.Response {
	t.Helper()
	resp := models.Response{Data: v}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}
