package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/urban-issue-api/api"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
)

// Comment exported for testing purposes
type Comment struct {
	Comments services.Comments
}

// CommentsByIssueHandler returns the live comments of an issue, oldest first
func (c Comment) CommentsByIssueHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	comments, err := c.Comments.ListForIssue(ctx, mux.Vars(r)["issue_id"])
	if err != nil {
		writeServiceError(w, err, "fetching comments")
		return
	}
	writeData(w, http.StatusOK, "", comments)
}

// CreateCommentHandler adds a comment or a reply to an issue
func (c Comment) CreateCommentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var input models.CommentInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	comment, err := c.Comments.Create(ctx, actor, input)
	if err != nil {
		writeServiceError(w, err, "creating comment")
		return
	}
	writeData(w, http.StatusCreated, "Comment added successfully", comment)
}

// UpdateCommentHandler edits the content of a comment
func (c Comment) UpdateCommentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var input models.CommentEditInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	comment, err := c.Comments.Edit(ctx, actor, mux.Vars(r)["comment_id"], input)
	if err != nil {
		writeServiceError(w, err, "updating comment")
		return
	}
	writeData(w, http.StatusOK, "Comment updated successfully", comment)
}

// DeleteCommentHandler soft deletes a comment
func (c Comment) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := c.Comments.SoftDelete(ctx, actor, mux.Vars(r)["comment_id"]); err != nil {
		writeServiceError(w, err, "deleting comment")
		return
	}
	writeData(w, http.StatusOK, "Comment deleted successfully", nil)
}

// LikeCommentHandler toggles the caller's like on a comment
func (c Comment) LikeCommentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := c.Comments.ToggleLike(ctx, actor, mux.Vars(r)["comment_id"])
	if err != nil {
		writeServiceError(w, err, "liking comment")
		return
	}
	writeData(w, http.StatusOK, "", result)
}
