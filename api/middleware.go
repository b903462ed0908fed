package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/linesmerrill/urban-issue-api/config"
	"github.com/linesmerrill/urban-issue-api/databases"
	"github.com/linesmerrill/urban-issue-api/models"
)

// TokenCacheTTL bounds how long a verified token is trusted without looking at the
// user again, so deactivation takes effect within this window.
const TokenCacheTTL = 5 * time.Minute

const adminGroup = "admin"

type identityKey struct{}

// Claims are the JWT claims the API issues and accepts. Sub is the user id.
type Claims struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// MiddlewareDB authenticates requests against the users collection
type MiddlewareDB struct {
	DB     databases.UserDatabase
	Secret []byte

	authenticator auth.Authenticator
}

// SetupGoGuardian sets up the go-guardian bearer strategy. Verified tokens are
// cached by their raw value.
func (m *MiddlewareDB) SetupGoGuardian() {
	m.authenticator = auth.New()
	cache := store.NewFIFO(context.Background(), TokenCacheTTL)
	tokenStrategy := bearer.New(m.ValidateToken, cache)
	m.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// ValidateToken verifies an HS256 token and checks its subject is an active user
func (m *MiddlewareDB) ValidateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	id, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject")
	}
	user, err := m.DB.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID")
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user %s is deactivated", id.Hex())
	}

	var groups []string
	if user.IsAdmin {
		groups = []string{adminGroup}
	}
	return auth.NewDefaultUser(user.Name, user.ID.Hex(), groups, map[string][]string{"email": {user.Email}}), nil
}

// Middleware rejects unauthenticated requests and puts the caller's identity in the
// request context
func (m *MiddlewareDB) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Debugw("unauthorized", "url", r.URL.Path, "error", err)
			config.WriteError(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Not authorized"})
			return
		}
		id, err := identityFromInfo(info)
		if err != nil {
			config.ErrorStatus("Not authorized", http.StatusUnauthorized, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// AdminOnly rejects callers that are not admins. It must run after Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			config.WriteError(w, http.StatusUnauthorized, models.ErrorResponse{Message: "Not authorized"})
			return
		}
		if !id.IsAdmin {
			config.WriteError(w, http.StatusForbidden, models.ErrorResponse{Message: "Admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// TokenFromQuery lets clients that cannot set headers, like browser websockets, pass
// the bearer token as ?token=
func TokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t := r.URL.Query().Get("token"); t != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+t)
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying id
func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the authenticated caller stored by Middleware
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

func identityFromInfo(info auth.Info) (models.Identity, error) {
	uid, err := primitive.ObjectIDFromHex(info.ID())
	if err != nil {
		return models.Identity{}, errors.New("authenticated user has no valid id")
	}
	id := models.Identity{UserID: uid, Name: info.UserName()}
	for _, g := range info.Groups() {
		if g == adminGroup {
			id.IsAdmin = true
		}
	}
	if email := info.Extensions()["email"]; len(email) > 0 {
		id.Email = email[0]
	}
	return id, nil
}

// IssueToken signs an HS256 token for user that expires after ttl
func IssueToken(secret []byte, user models.User, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
