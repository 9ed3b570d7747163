// Command bootstrap-user creates an account directly in the database and
// prints a bearer token for it. It is meant for seeding admin or host
// accounts in new environments.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bachelorbari/bachelorbari/internal/auth"
	"github.com/bachelorbari/bachelorbari/internal/migrations"
	"github.com/bachelorbari/bachelorbari/internal/model"
	"github.com/bachelorbari/bachelorbari/internal/repository"
)

type output struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	TokenID     string     `json:"token_id"`
	Token       string     `json:"token"`
	TokenPrefix string     `json:"token_prefix"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		name        = flag.String("name", "Administrator", "Account name")
		email       = flag.String("email", "admin@bachelorbari.local", "Account email")
		role        = flag.String("role", string(model.RoleAdmin), "Role (tenant, host, admin, meal_provider)")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Account password (min 6 characters)")
		appEnv      = flag.String("app-env", os.Getenv("APP_ENV"), "Environment; selects the live or test token segment")
		migrate     = flag.Bool("migrate", false, "Apply migrations first")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if err := run(*databaseURL, *name, *email, *role, *password, *appEnv, *migrate, *format); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(databaseURL, name, email, roleInput, password, appEnv string, migrate bool, format string) error {
	if databaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if len([]rune(password)) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	role := model.Role(strings.TrimSpace(roleInput))
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %s", roleInput)
	}
	format = strings.ToLower(format)
	if format != "plain" && format != "json" {
		return errors.New("invalid format; use plain or json")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, err := repository.New(ctx, databaseURL, repository.DefaultPoolConfig)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	if migrate {
		db := repo.SQLDB()
		err := migrations.Up(ctx, db)
		db.Close()
		if err != nil {
			return err
		}
	}

	hasher, err := auth.NewHasher(auth.HasherConfig{})
	if err != nil {
		return err
	}

	user, err := ensureUser(ctx, repo, hasher, name, strings.ToLower(strings.TrimSpace(email)), password, role)
	if err != nil {
		return err
	}

	issued, err := auth.NewTokenIssuer(repo, hasher, auth.EnvForAppEnv(appEnv)).Mint(ctx, user.ID, model.TokenNameAuth)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	out := output{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		TokenID:     issued.Token.ID,
		Token:       issued.Plaintext,
		TokenPrefix: issued.Token.Prefix,
	}

	if format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	fmt.Println(out.Token)
	return nil
}

// ensureUser returns the account for email, creating it when absent.
// An existing account must already carry the requested role.
func ensureUser(ctx context.Context, repo *repository.Repository, hasher auth.PasswordHasher, name, email, password string, role model.Role) (*model.User, error) {
	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		if existing.Role != role {
			return nil, fmt.Errorf("user %s exists with role %s", email, existing.Role)
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IPAddress:    "127.0.0.1",
		UserAgent:    "bootstrap-user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
