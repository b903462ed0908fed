package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/urban-issue-api/api"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
)

// Admin exported for testing purposes
type Admin struct {
	Query    services.Query
	Workflow services.Workflow
	Users    services.Users
}

// StatsHandler returns the dashboard stats, served from the cache when it is warm
func (a Admin) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	stats, err := a.Query.Stats(ctx)
	if err != nil {
		writeServiceError(w, err, "fetching stats")
		return
	}
	writeData(w, http.StatusOK, "", stats)
}

// AnalyticsHandler returns daily series and top reporters for the last ?period days
func (a Admin) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	var errs []models.FieldError
	period := queryInt(r, "period", models.DefaultAnalyticsPeriod, &errs)
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	out, err := a.Query.Analytics(ctx, period)
	if err != nil {
		writeServiceError(w, err, "fetching analytics")
		return
	}
	writeData(w, http.StatusOK, "", out)
}

// AdminIssuesHandler is the issue listing with the larger admin page size
func (a Admin) AdminIssuesHandler(w http.ResponseWriter, r *http.Request) {
	q, errs := parseIssueQuery(r, models.DefaultAdminLimit)
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	page, err := a.Query.List(ctx, q)
	if err != nil {
		writeServiceError(w, err, "fetching issues")
		return
	}
	writeJSON(w, http.StatusOK, models.NewListResponse(page))
}

// AssignHandler assigns an issue to an admin
func (a Admin) AssignHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var input models.AssignInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	issue, err := a.Workflow.Assign(ctx, actor, mux.Vars(r)["issue_id"], input)
	if err != nil {
		writeServiceError(w, err, "assigning issue")
		return
	}
	writeData(w, http.StatusOK, "Issue assigned successfully", issue)
}

// UsersHandler pages through user accounts
func (a Admin) UsersHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	q, errs := parsePageQuery(r, models.DefaultAdminLimit)
	if len(errs) > 0 {
		writeFieldErrors(w, errs)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	page, err := a.Users.List(ctx, actor, q)
	if err != nil {
		writeServiceError(w, err, "fetching users")
		return
	}
	writeJSON(w, http.StatusOK, models.NewListResponse(page))
}

// UserStatusHandler activates or deactivates a user
func (a Admin) UserStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var input models.UserStatusInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := a.Users.SetActive(ctx, actor, mux.Vars(r)["user_id"], input)
	if err != nil {
		writeServiceError(w, err, "updating user status")
		return
	}
	message := "User deactivated successfully"
	if user.IsActive {
		message = "User activated successfully"
	}
	writeData(w, http.StatusOK, message, user)
}
