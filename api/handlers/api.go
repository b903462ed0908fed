package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/api"
	"github.com/linesmerrill/urban-issue-api/api/scheduler"
	"github.com/linesmerrill/urban-issue-api/cache"
	"github.com/linesmerrill/urban-issue-api/config"
	"github.com/linesmerrill/urban-issue-api/databases"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/notify"
	"github.com/linesmerrill/urban-issue-api/services"
	"github.com/linesmerrill/urban-issue-api/uploads"
)

// RequestTimeout bounds every non-websocket request
const RequestTimeout = 30 * time.Second

// App stores the router and db connection, so it can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	client     databases.ClientHelper
	dbHelper   databases.DatabaseHelper
	stats      services.StatsCache
	locker     scheduler.Locker
	uploader   *uploads.Cloudinary
	hub        *notify.Hub
	dispatcher *notify.Dispatcher
	scheduler  *scheduler.Scheduler
}

func (a *App) deps() services.Deps {
	d := services.Deps{
		IDB: databases.NewIssueDatabase(a.dbHelper),
		CDB: databases.NewCommentDatabase(a.dbHelper),
		UDB: databases.NewUserDatabase(a.dbHelper),
	}
	if a.dispatcher != nil {
		d.Events = a.dispatcher
	}
	return d
}

func (a *App) query() services.Query {
	return services.Query{Deps: a.deps(), Cache: a.stats, Timezone: a.Config.ReportTimezone}
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	// setup go-guardian for middleware
	m := &api.MiddlewareDB{DB: databases.NewUserDatabase(a.dbHelper), Secret: []byte(a.Config.JWTSecret)}
	m.SetupGoGuardian()

	if a.hub == nil {
		a.hub = notify.NewHub(nil)
	}

	deps := a.deps()
	i := Issue{
		Issues:   services.Issues{Deps: deps},
		Workflow: services.Workflow{Deps: deps},
		Query:    a.query(),
	}
	c := Comment{Comments: services.Comments{Deps: deps}}
	admin := Admin{Query: a.query(), Workflow: services.Workflow{Deps: deps}, Users: services.Users{Deps: deps}}
	n := Notification{Hub: a.hub}
	cloudinaryHandler := CloudinaryHandler{}
	if a.uploader != nil {
		i.Uploader = a.uploader
		cloudinaryHandler.Signer = a.uploader
	}

	user := func(h http.HandlerFunc) http.Handler { return m.Middleware(h) }
	adminOnly := func(h http.HandlerFunc) http.Handler { return m.Middleware(api.AdminOnly(h)) }

	r := mux.NewRouter()
	r.Use(api.LoggingMiddleware, api.TimeoutMiddleware(RequestTimeout))
	r.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)

	r.Handle("/ws/notifications", api.TokenFromQuery(user(n.NotificationsWebSocketHandler))).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/issues", http.HandlerFunc(i.IssuesHandler)).Methods("GET")
	apiCreate.Handle("/issues", user(i.CreateIssueHandler)).Methods("POST")
	apiCreate.Handle("/issues/{issue_id}", http.HandlerFunc(i.IssueByIDHandler)).Methods("GET")
	apiCreate.Handle("/issues/{issue_id}", adminOnly(i.DeleteIssueHandler)).Methods("DELETE")
	apiCreate.Handle("/issues/{issue_id}/status", adminOnly(i.UpdateStatusHandler)).Methods("PUT")
	apiCreate.Handle("/issues/{issue_id}/vote", user(i.VoteHandler)).Methods("POST")

	apiCreate.Handle("/comments", user(c.CreateCommentHandler)).Methods("POST")
	apiCreate.Handle("/comments/issue/{issue_id}", http.HandlerFunc(c.CommentsByIssueHandler)).Methods("GET")
	apiCreate.Handle("/comments/{comment_id}", user(c.UpdateCommentHandler)).Methods("PUT")
	apiCreate.Handle("/comments/{comment_id}", user(c.DeleteCommentHandler)).Methods("DELETE")
	apiCreate.Handle("/comments/{comment_id}/like", user(c.LikeCommentHandler)).Methods("POST")

	apiCreate.Handle("/admin/stats", adminOnly(admin.StatsHandler)).Methods("GET")
	apiCreate.Handle("/admin/analytics", adminOnly(admin.AnalyticsHandler)).Methods("GET")
	apiCreate.Handle("/admin/issues", adminOnly(admin.AdminIssuesHandler)).Methods("GET")
	apiCreate.Handle("/admin/issues/{issue_id}/assign", adminOnly(admin.AssignHandler)).Methods("PUT")
	apiCreate.Handle("/admin/users", adminOnly(admin.UsersHandler)).Methods("GET")
	apiCreate.Handle("/admin/users/{user_id}/status", adminOnly(admin.UserStatusHandler)).Methods("PUT")

	apiCreate.Handle("/uploads/signature", user(cloudinaryHandler.GenerateSignature)).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database and its optional
// collaborators, then create a router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)
	if err := client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("urban-issue-api has connected to the database")

	if a.Config.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	if err := databases.EnsureIndexes(ctx, a.dbHelper); err != nil {
		zap.S().Warnw("failed to ensure indexes", "error", err)
	}

	if a.Config.RedisAddress != "" {
		rdb, err := cache.Connect(ctx, a.Config.RedisAddress, a.Config.RedisPassword)
		if err != nil {
			zap.S().Warnw("redis unavailable, stats are computed on every request", "error", err)
		} else {
			a.stats = cache.NewRedis(rdb, a.Config.StatsCacheTTL)
			a.locker = cache.NewLock(rdb)
		}
	}

	if a.Config.CloudinaryURL != "" {
		cld, err := uploads.NewCloudinary(a.Config.CloudinaryURL, a.Config.CloudinaryFolder)
		if err != nil {
			zap.S().Warnw("invalid CLOUDINARY_URL, image uploads are disabled", "error", err)
		} else {
			a.uploader = cld
		}
	}

	a.hub = notify.NewHub(nil)
	sinks := []notify.Sink{a.hub}
	if a.Config.SendgridAPIKey != "" {
		sinks = append(sinks, notify.NewSendgridSink(a.Config.SendgridAPIKey, a.Config.MailFrom, a.Config.MailFromName,
			a.Config.FrontendURL, databases.NewUserDatabase(a.dbHelper)))
	} else {
		zap.S().Info("SENDGRID_API_KEY is not set, email notifications are disabled")
	}
	a.dispatcher = notify.NewDispatcher(a.Config.NotificationQueueSize, notify.DefaultDeliveryTimeout, sinks...)
	a.dispatcher.Start()

	if a.stats != nil {
		a.scheduler = scheduler.NewScheduler(a.query(), a.locker)
		if err := a.scheduler.Start(a.Config.StatsRefreshSchedule); err != nil {
			zap.S().Warnw("stats refresh job not scheduled", "spec", a.Config.StatsRefreshSchedule, "error", err)
		}
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

// Close stops background work and disconnects from the database
func (a *App) Close(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Warnw("failed to disconnect from database", "error", err)
		}
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	config.WriteError(w, http.StatusNotFound, models.ErrorResponse{Message: "Route not found"})
}
