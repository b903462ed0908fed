package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/api"
	"github.com/linesmerrill/urban-issue-api/config"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
)

// maxBodyBytes bounds JSON bodies; multipart uploads have their own limit
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, models.Response{Success: true, Message: message, Data: data})
}

// writeServiceError maps a service error onto a status code. Anything unexpected is
// logged and reported as "server error while <action>".
func writeServiceError(w http.ResponseWriter, err error, action string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		config.WriteError(w, http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed", Errors: verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		config.WriteError(w, http.StatusNotFound, models.ErrorResponse{Message: notFoundMessage(err)})
	case errors.Is(err, services.ErrForbidden):
		config.WriteError(w, http.StatusForbidden, models.ErrorResponse{Message: "Not authorized to perform this action"})
	case errors.Is(err, services.ErrConflict):
		config.WriteError(w, http.StatusConflict, models.ErrorResponse{Message: "The resource was modified concurrently, please retry"})
	default:
		config.ErrorStatus("server error while "+action, http.StatusInternalServerError, w, err)
	}
}

// notFoundMessage turns "comment: not found" into "Comment not found"
func notFoundMessage(err error) string {
	resource, _, ok := strings.Cut(err.Error(), ":")
	if !ok || resource == "" {
		return "Not found"
	}
	return strings.ToUpper(resource[:1]) + resource[1:] + " not found"
}

// decodeJSON reads a JSON body into v. Malformed bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	zap.S().Debugw("failed to decode body", "path", r.URL.Path, "error", err)
	config.WriteError(w, http.StatusBadRequest, models.ErrorResponse{
		Message: "Validation failed",
		Errors:  []models.FieldError{{Field: "body", Message: "Request body must be valid JSON"}},
	})
	return false
}

// identity returns the caller set by the auth middleware. Routes that call it are
// always wrapped by that middleware.
func identity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	id, ok := api.IdentityFrom(r.Context())
	if !ok {
		config.WriteError(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Not authorized"})
	}
	return id, ok
}

// queryInt reads a positive integer query parameter, fallback when it is absent.
// A malformed value is reported under field.
func queryInt(r *http.Request, field string, fallback int, errs *[]models.FieldError) int {
	raw := strings.TrimSpace(r.URL.Query().Get(field))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, models.FieldError{Field: field, Message: "Invalid " + field})
		return fallback
	}
	return n
}

func parseIssueQuery(r *http.Request, defaultLimit int) (models.IssueQuery, []models.FieldError) {
	var errs []models.FieldError
	q := r.URL.Query()
	out := models.IssueQuery{
		Category: models.Category(q.Get("category")),
		Status:   models.Status(q.Get("status")),
		Priority: models.Priority(q.Get("priority")),
		Search:   q.Get("search"),
		Page:     queryInt(r, "page", models.DefaultPage, &errs),
		Limit:    queryInt(r, "limit", defaultLimit, &errs),
	}
	return out, errs
}

func parsePageQuery(r *http.Request, defaultLimit int) (models.PageQuery, []models.FieldError) {
	var errs []models.FieldError
	out := models.PageQuery{
		Page:  queryInt(r, "page", models.DefaultPage, &errs),
		Limit: queryInt(r, "limit", defaultLimit, &errs),
	}
	return out, errs
}

func writeFieldErrors(w http.ResponseWriter, errs []models.FieldError) {
	config.WriteError(w, http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed", Errors: errs})
}
