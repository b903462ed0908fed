package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/urban-issue-api/databases"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/notify"
	"github.com/linesmerrill/urban-issue-api/services"
)

// The mem stores understand the handful of filters the services issue by _id, issue
// and isDeleted. Anything else is a test bug and panics.

func idFilter(filter interface{}) primitive.ObjectID {
	return filter.(bson.M)["_id"].(primitive.ObjectID)
}

func wantsLive(filter interface{}) bool {
	v, ok := filter.(bson.M)["isDeleted"]
	return ok && v == false
}

type memIssues struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Issue
}

func (m *memIssues) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.docs[idFilter(filter)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &issue, nil
}

// matching filters on category, status and priority equality
func (m *memIssues) matching(filter interface{}) []models.Issue {
	var out []models.Issue
	for _, issue := range m.docs {
		keep := true
		for k, v := range filter.(bson.M) {
			switch k {
			case "category":
				keep = keep && issue.Category == v.(models.Category)
			case "status":
				keep = keep && issue.Status == v.(models.Status)
			case "priority":
				keep = keep && issue.Priority == v.(models.Priority)
			default:
				panic("unsupported filter " + k)
			}
		}
		if keep {
			out = append(out, issue)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memIssues) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.matching(filter)
	for _, o := range opts {
		if o.Skip != nil {
			out = out[min(int(*o.Skip), len(out)):]
		}
		if o.Limit != nil && int(*o.Limit) < len(out) {
			out = out[:*o.Limit]
		}
	}
	return out, nil
}

func (m *memIssues) InsertOne(ctx context.Context, doc interface{}, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue := doc.(models.Issue)
	m.docs[issue.ID] = issue
	return nil, nil
}

func (m *memIssues) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idFilter(filter)
	if _, ok := m.docs[id]; !ok {
		return 0, nil
	}
	delete(m.docs, id)
	return 1, nil
}

func (m *memIssues) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matching(filter))), nil
}

func (m *memIssues) Aggregate(ctx context.Context, pipeline interface{}, results interface{}) error {
	panic("not used")
}

// ApplyVote mirrors the guarded update: it only applies while the voter entry is in
// the state the plan was made from
func (m *memIssues) ApplyVote(ctx context.Context, id primitive.ObjectID, plan models.VotePlan, now time.Time) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	var current models.VoteType
	for _, v := range issue.Voters {
		if v.User == plan.User {
			current = v.VoteType
		}
	}
	if plan.Action == models.VoteAdded && current != "" {
		return nil, mongo.ErrNoDocuments
	}
	if plan.Action != models.VoteAdded && current != plan.Previous {
		return nil, mongo.ErrNoDocuments
	}
	issue = plan.Apply(issue)
	issue.UpdatedAt = now
	m.docs[id] = issue
	return &issue, nil
}

func (m *memIssues) SetStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange, now time.Time) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	issue = change.Apply(issue)
	issue.UpdatedAt = now
	m.docs[id] = issue
	return &issue, nil
}

func (m *memIssues) Assign(ctx context.Context, id, assignee primitive.ObjectID, now time.Time) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.docs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	issue.AssignedTo = &assignee
	m.docs[id] = issue
	return &issue, nil
}

func (m *memIssues) EnsureIndexes(ctx context.Context) error { return nil }

type memComments struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Comment
}

func (m *memComments) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[idFilter(filter)]
	if !ok || (wantsLive(filter) && c.IsDeleted) {
		return nil, mongo.ErrNoDocuments
	}
	return &c, nil
}

func (m *memComments) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue := filter.(bson.M)["issue"].(primitive.ObjectID)
	var out []models.Comment
	for _, c := range m.docs {
		if c.Issue == issue && !(wantsLive(filter) && c.IsDeleted) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memComments) InsertOne(ctx context.Context, doc interface{}, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := doc.(models.Comment)
	m.docs[c.ID] = c
	return nil, nil
}

func (m *memComments) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := idFilter(filter)
	c, ok := m.docs[id]
	if !ok || (wantsLive(filter) && c.IsDeleted) {
		return nil, mongo.ErrNoDocuments
	}
	for k, v := range update.(bson.M)["$set"].(bson.M) {
		switch k {
		case "content":
			c.Content = v.(string)
		case "isEdited":
			c.IsEdited = v.(bool)
		case "editedAt":
			t := v.(time.Time)
			c.EditedAt = &t
		case "isDeleted":
			c.IsDeleted = v.(bool)
		case "updatedAt":
			c.UpdatedAt = v.(time.Time)
		default:
			panic("unexpected field " + k)
		}
	}
	m.docs[id] = c
	return &c, nil
}

func (m *memComments) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue := filter.(bson.M)["issue"].(primitive.ObjectID)
	var n int64
	for id, c := range m.docs {
		if c.Issue == issue {
			delete(m.docs, id)
			n++
		}
	}
	return n, nil
}

func (m *memComments) ApplyLike(ctx context.Context, id primitive.ObjectID, plan models.LikePlan, now time.Time) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.docs[id]
	if !ok || c.IsDeleted || c.LikedByUser(plan.User) == plan.Like {
		return nil, mongo.ErrNoDocuments
	}
	c = plan.Apply(c)
	m.docs[id] = c
	return &c, nil
}

func (m *memComments) EnsureIndexes(ctx context.Context) error { return nil }

type memUsers struct {
	docs map[primitive.ObjectID]models.User
}

func (m *memUsers) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.User, error) {
	u, ok := m.docs[idFilter(filter)]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &u, nil
}

func (m *memUsers) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.User, error) {
	ids := filter.(bson.M)["_id"].(bson.M)["$in"].([]primitive.ObjectID)
	var out []models.User
	for _, id := range ids {
		if u, ok := m.docs[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) InsertOne(ctx context.Context, doc interface{}, opts ...*options.InsertOneOptions) (databases.InsertOneResultHelper, error) {
	panic("not used")
}

func (m *memUsers) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	panic("not used")
}

func (m *memUsers) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*models.User, error) {
	panic("not used")
}

func (m *memUsers) EnsureIndexes(ctx context.Context) error { return nil }

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(e notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// ticker is a clock that moves one second per reading
type ticker struct {
	mu sync.Mutex
	t  time.Time
}

func (c *ticker) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type world struct {
	deps   services.Deps
	issues *memIssues
	notes  *memComments
	users  *memUsers
	events *recorder
}

func newWorld(users ...models.User) *world {
	w := &world{
		issues: &memIssues{docs: map[primitive.ObjectID]models.Issue{}},
		notes:  &memComments{docs: map[primitive.ObjectID]models.Comment{}},
		users:  &memUsers{docs: map[primitive.ObjectID]models.User{}},
		events: &recorder{},
	}
	for _, u := range users {
		w.users.docs[u.ID] = u
	}
	clock := &ticker{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	w.deps = services.Deps{IDB: w.issues, CDB: w.notes, UDB: w.users, Events: w.events, Now: clock.Now}
	return w
}

func newUser(name string, admin bool) (models.User, models.Identity) {
	u := models.User{ID: primitive.NewObjectID(), Name: name, Email: name + "@example.com", IsAdmin: admin, IsActive: true}
	return u, models.Identity{UserID: u.ID, IsAdmin: admin, Name: name, Email: u.Email}
}

func float(f float64) *float64 { return &f }

func issueInput(title, description string, category models.Category, priority models.Priority) models.IssueInput {
	return models.IssueInput{
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Location: models.LocationInput{
			Address:     "12 Main St",
			Coordinates: models.CoordinatesInput{Latitude: float(51.5), Longitude: float(-0.12)},
		},
	}
}

func fieldNames(verr *services.ValidationError) []string {
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}
