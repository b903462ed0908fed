package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/urban-issue-api/api"
	"github.com/linesmerrill/urban-issue-api/config"
	"github.com/linesmerrill/urban-issue-api/databases"
	"github.com/linesmerrill/urban-issue-api/models"
	"github.com/linesmerrill/urban-issue-api/services"
)

const commandTimeout = time.Minute

var rootCmd = &cobra.Command{
	Use:   "issuectl",
	Short: "Operator tasks for the urban issue API",
	Long:  `Seeds admin accounts, creates indexes, mints test tokens and prints stats against the configured database.`,
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create an admin user unless one with that email exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		name, _ := cmd.Flags().GetString("name")
		password, _ := cmd.Flags().GetString("password")

		return withDatabase(cmd.Context(), func(ctx context.Context, conf *config.Config, db databases.DatabaseHelper) error {
			user, created, err := seedAdmin(ctx, databases.NewUserDatabase(db), email, name, password, time.Now().UTC())
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID.Hex())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "user %s already exists (%s)\n", user.Email, user.ID.Hex())
			}
			return nil
		})
	},
}

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create the issue, comment and user indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, conf *config.Config, db databases.DatabaseHelper) error {
			if err := databases.EnsureIndexes(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "indexes are in place")
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed token for a user, for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user-id")
		admin, _ := cmd.Flags().GetBool("admin")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		conf := config.New()
		token, err := mintToken([]byte(conf.JWTSecret), userID, admin, ttl, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the admin dashboard stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, conf *config.Config, db databases.DatabaseHelper) error {
			q := services.Query{
				Deps: services.Deps{
					IDB: databases.NewIssueDatabase(db),
					CDB: databases.NewCommentDatabase(db),
					UDB: databases.NewUserDatabase(db),
				},
				Timezone: conf.ReportTimezone,
			}
			stats, err := q.RefreshStats(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		})
	},
}

// seedAdmin inserts an active admin with a bcrypt hashed password. An existing user
// with the same email is returned untouched.
func seedAdmin(ctx context.Context, udb databases.UserDatabase, email, name, password string, now time.Time) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" || len(password) < 6 {
		return nil, false, errors.New("email, name and a password of at least 6 characters are required")
	}

	existing, err := udb.FindOne(ctx, bson.M{"email": email})
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to look up %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}
	user := models.User{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Email:     email,
		Password:  string(hash),
		IsAdmin:   true,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := udb.InsertOne(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to insert %s: %w", email, err)
	}
	return &user, true, nil
}

func mintToken(secret []byte, userID string, admin bool, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", fmt.Errorf("invalid --user-id %q", userID)
	}
	return api.IssueToken(secret, models.User{ID: id, IsAdmin: admin}, ttl, now)
}

func withDatabase(parent context.Context, fn func(ctx context.Context, conf *config.Config, db databases.DatabaseHelper) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	conf := config.New()
	client, err := databases.NewClient(conf)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	return fn(ctx, conf, databases.NewDatabase(conf, client))
}

func init() {
	seedAdminCmd.Flags().String("email", "", "admin email")
	seedAdminCmd.Flags().String("name", "Administrator", "admin display name")
	seedAdminCmd.Flags().String("password", "", "admin password")
	_ = seedAdminCmd.MarkFlagRequired("email")
	_ = seedAdminCmd.MarkFlagRequired("password")

	tokenCmd.Flags().String("user-id", "", "hex id of the user the token is for")
	tokenCmd.Flags().Bool("admin", false, "mark the token as an admin token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("user-id")

	rootCmd.AddCommand(seedAdminCmd)
	rootCmd.AddCommand(ensureIndexesCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
