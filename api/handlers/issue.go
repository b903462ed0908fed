package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/api"
	"github.com/linesmerrill/urban-issue-api/config"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
	"github.com/linesmerrill/urban-issue-api/uploads"
)

// maxUploadBytes bounds a multipart issue report including its image
const maxUploadBytes = 10 << 20

// issueBody is the JSON form of a report. imageUrl is only accepted when it points at
// an image the uploader stored.
type issueBody struct {
	models.IssueInput
	ImageURL string `json:"imageUrl"`
}

// Issue exported for testing purposes
type Issue struct {
	Issues   services.Issues
	Workflow services.Workflow
	Query    services.Query
	Uploader uploads.Uploader
}

// IssuesHandler returns a filtered page of issues
func (i Issue) IssuesHandler(w http.ResponseWriter, r *http.Request) {
	q, errs := parseIssueQuery(r, models.DefaultLimit)
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	page, err := i.Query.List(ctx, q)
	if err != nil {
		writeServiceError(w, err, "fetching issues")
		return
	}
	writeJSON(w, http.StatusOK, models.NewListResponse(page))
}

// IssueByIDHandler returns an issue with its comments
func (i Issue) IssueByIDHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	issue, err := i.Issues.Get(ctx, mux.Vars(r)["issue_id"])
	if err != nil {
		writeServiceError(w, err, "fetching issue")
		return
	}
	writeData(w, http.StatusOK, "", issue)
}

// CreateIssueHandler reports a new issue from a JSON body or a multipart form with an
// optional image
func (i Issue) CreateIssueHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	var input models.IssueInput
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var errs []models.FieldError
		var file multipart.File
		var header *multipart.FileHeader
		input, file, header, errs = i.parseIssueForm(r)
		if len(errs) > 0 {
			writeFieldErrors(w, errs)
			return
		}
		if file != nil {
			defer file.Close()
			if err := i.Issues.Check(input); err != nil {
				writeServiceError(w, err, "creating issue")
				return
			}
			if input.ImageURL, ok = i.upload(r.Context(), w, file, header); !ok {
				return
			}
		}
	} else {
		var body issueBody
		if !decodeJSON(w, r, &body) {
			return
		}
		input = body.IssueInput
		if body.ImageURL != "" {
			if i.Uploader == nil || !i.Uploader.Owns(body.ImageURL) {
				writeFieldErrors(w, []models.FieldError{{Field: "imageUrl", Message: "Image must be uploaded through the signed upload endpoint"}})
				return
			}
			input.ImageURL = body.ImageURL
		}
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	issue, err := i.Issues.Create(ctx, actor, input)
	if err != nil {
		writeServiceError(w, err, "creating issue")
		return
	}
	writeData(w, http.StatusCreated, "Issue created successfully", issue)
}

// parseIssueForm reads the bracketed form fields browsers send for nested objects
func (i Issue) parseIssueForm(r *http.Request) (models.IssueInput, multipart.File, *multipart.FileHeader, []models.FieldError) {
	var input models.IssueInput
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return input, nil, nil, []models.FieldError{{Field: "body", Message: "Request body must be a valid multipart form"}}
	}

	var errs []models.FieldError
	coordinate := func(field, name string) *float64 {
		raw := strings.TrimSpace(r.FormValue(field))
		if raw == "" {
			return nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "location.coordinates." + name, Message: "Invalid " + name})
			return nil
		}
		return &f
	}

	input.Title = r.FormValue("title")
	input.Description = r.FormValue("description")
	input.Category = models.Category(r.FormValue("category"))
	input.Priority = models.Priority(r.FormValue("priority"))
	input.Location.Address = r.FormValue("location[address]")
	input.Location.Coordinates.Latitude = coordinate("location[coordinates][latitude]", "latitude")
	input.Location.Coordinates.Longitude = coordinate("location[coordinates][longitude]", "longitude")
	input.Tags = append(r.MultipartForm.Value["tags"], r.MultipartForm.Value["tags[]"]...)
	if len(errs) > 0 {
		return input, nil, nil, errs
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return input, nil, nil, nil
	}
	if err != nil {
		return input, nil, nil, []models.FieldError{{Field: "image", Message: "Invalid image upload"}}
	}
	return input, file, header, nil
}

// upload checks the file is an image and stores it
func (i Issue) upload(ctx context.Context, w http.ResponseWriter, file multipart.File, header *multipart.FileHeader) (string, bool) {
	if i.Uploader == nil {
		writeFieldErrors(w, []models.FieldError{{Field: "image", Message: "Image uploads are not enabled"}})
		return "", false
	}
	mime, err := mimetype.DetectReader(file)
	if err != nil || !strings.HasPrefix(mime.String(), "image/") {
		writeFieldErrors(w, []models.FieldError{{Field: "image", Message: "Only image files are allowed"}})
		return "", false
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		config.ErrorStatus("server error while reading image", http.StatusInternalServerError, w, err)
		return "", false
	}

	url, err := i.Uploader.Upload(ctx, file, header.Filename)
	if errors.Is(err, uploads.ErrNotConfigured) {
		writeFieldErrors(w, []models.FieldError{{Field: "image", Message: "Image uploads are not enabled"}})
		return "", false
	}
	if err != nil {
		config.ErrorStatus("server error while uploading image", http.StatusBadGateway, w, err)
		return "", false
	}
	zap.S().Debugw("issue image stored", "file", header.Filename, "type", mime.String())
	return url, true
}

// UpdateStatusHandler changes the status of an issue, optionally with an official note
func (i Issue) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var input models.StatusInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	update, err := i.Workflow.SetStatus(ctx, actor, mux.Vars(r)["issue_id"], input)
	if err != nil {
		writeServiceError(w, err, "updating issue status")
		return
	}
	writeData(w, http.StatusOK, "Issue status updated successfully", update)
}

// VoteHandler records an up or down vote by the caller
func (i Issue) VoteHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var input models.VoteInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := i.Issues.Vote(ctx, actor, mux.Vars(r)["issue_id"], input)
	if err != nil {
		writeServiceError(w, err, "voting")
		return
	}
	writeData(w, http.StatusOK, "Vote recorded successfully", result)
}

// DeleteIssueHandler deletes an issue and its comments
func (i Issue) DeleteIssueHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := i.Issues.Delete(ctx, actor, mux.Vars(r)["issue_id"]); err != nil {
		writeServiceError(w, err, "deleting issue")
		return
	}
	writeData(w, http.StatusOK, "Issue deleted successfully", nil)
}
