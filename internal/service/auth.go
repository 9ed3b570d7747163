// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/oklog/ulid/v2"

	"github.com/bachelorbari/bachelorbari/internal/audit"
	"github.com/bachelorbari/bachelorbari/internal/auth"
	"github.com/bachelorbari/bachelorbari/internal/metrics"
	"github.com/bachelorbari/bachelorbari/internal/model"
	"github.com/bachelorbari/bachelorbari/internal/repository"
)

// Service errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
	ErrUserNotFound       = errors.New("user not found")
)

// Field messages.
const (
	MsgCredentialsIncorrect = "The provided credentials are incorrect."
	MsgEmailTaken           = "The email has already been taken."
)

// dummyPassword is hashed once and verified against when the email is
// unknown, so both login failures cost one hash verification.
const dummyPassword = "bachelorbari-dummy-password"

// UserStore is the Credential Store as seen by the service.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUserLogin(ctx context.Context, id string, upd model.LoginUpdate) error
}

// TokenIssuer mints bearer tokens.
type TokenIssuer interface {
	Mint(ctx context.Context, userID, name string) (*auth.IssuedToken, error)
}

// ValidationError lists every failing field with its messages.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

// ClientContext is the caller information recorded with an account.
type ClientContext struct {
	IP        string
	UserAgent string
}

// RegisterInput defines input for registering an account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginInput defines input for logging in.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by Register and Login.
// Token is the plaintext bearer token, shown once.
type AuthResult struct {
	Token string
	User  *model.User
}

// AuthService registers accounts and logs them in.
type AuthService struct {
	users   UserStore
	hasher  auth.PasswordHasher
	tokens  TokenIssuer
	audit   audit.Logger
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users UserStore,
	hasher auth.PasswordHasher,
	tokens TokenIssuer,
	auditLog audit.Logger,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		audit:   auditLog,
		logger:  logger,
		metrics: recorder,
		now:     time.Now,
	}
}

// Register validates in, creates the account and issues its first token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientContext) (*AuthResult, error) {
	in = normalizeRegister(in)

	verr := validateRegister(in)
	if !verr.has("email") {
		_, err := s.users.GetUserByEmail(ctx, in.Email)
		switch {
		case err == nil:
			verr.add("email", MsgEmailTaken)
		case !errors.Is(err, repository.ErrUserNotFound):
			s.metrics.IncRegistration(metrics.StatusError)
			return nil, unavailable("lookup user", err)
		}
	}
	if len(verr.Fields) > 0 {
		s.metrics.IncRegistration(metrics.StatusValidationFailed)
		return nil, verr
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		s.metrics.IncRegistration(metrics.StatusError)
		return nil, unavailable("hash password", err)
	}

	role := model.DefaultRole
	if in.Role != "" {
		role = model.Role(in.Role)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           ulid.Make().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		IPAddress:    client.IP,
		UserAgent:    client.UserAgent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Phone != "" {
		phone := in.Phone
		user.Phone = &phone
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			s.metrics.IncRegistration(metrics.StatusValidationFailed)
			return nil, &ValidationError{Fields: map[string][]string{"email": {MsgEmailTaken}}}
		}
		s.metrics.IncRegistration(metrics.StatusError)
		return nil, unavailable("create user", err)
	}

	issued, err := s.tokens.Mint(ctx, user.ID, model.TokenNameAuth)
	if err != nil {
		s.metrics.IncRegistration(metrics.StatusError)
		return nil, unavailable("mint token", err)
	}
	s.metrics.IncTokenMinted()

	s.appendActivity(ctx, audit.NewRecord(user.ID, model.ActionUserRegistered, model.ActivityProperties{
		IP:    client.IP,
		Agent: client.UserAgent,
	}, now))

	s.metrics.IncRegistration(metrics.StatusSuccess)
	return &AuthResult{Token: issued.Plaintext, User: user}, nil
}

// Login checks the credentials, records the login and issues a new token.
// Existing tokens of the user stay valid.
func (s *AuthService) Login(ctx context.Context, in LoginInput, client ClientContext) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)

	if verr := validateLogin(in); len(verr.Fields) > 0 {
		s.metrics.IncLogin(metrics.StatusValidationFailed)
		return nil, verr
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.burnVerify(ctx, in.Password)
			s.metrics.IncLogin(metrics.StatusInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.IncLogin(metrics.StatusError)
		return nil, unavailable("lookup user", err)
	}

	match, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil && ctx.Err() != nil {
		s.metrics.IncLogin(metrics.StatusError)
		return nil, unavailable("verify password", err)
	}
	if err != nil || !match {
		s.metrics.IncLogin(metrics.StatusInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	upd := model.LoginUpdate{
		LastLoginIP: client.IP,
		LastLoginAt: now,
		UserAgent:   client.UserAgent,
	}
	if err := s.users.UpdateUserLogin(ctx, user.ID, upd); err != nil {
		s.metrics.IncLogin(metrics.StatusError)
		return nil, unavailable("record login", err)
	}
	upd.Apply(user)

	issued, err := s.tokens.Mint(ctx, user.ID, model.TokenNameAuth)
	if err != nil {
		s.metrics.IncLogin(metrics.StatusError)
		return nil, unavailable("mint token", err)
	}
	s.metrics.IncTokenMinted()

	s.appendActivity(ctx, audit.NewRecord(user.ID, model.ActionUserLoggedIn, model.ActivityProperties{
		IP:        client.IP,
		Agent:     client.UserAgent,
		Timestamp: &now,
	}, now))

	s.metrics.IncLogin(metrics.StatusSuccess)
	return &AuthResult{Token: issued.Plaintext, User: user}, nil
}

// Profile returns the account of an authenticated user.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("lookup user", err)
	}
	return user, nil
}

// appendActivity records rec. The account and token already exist, so a
// failure is logged and not returned.
func (s *AuthService) appendActivity(ctx context.Context, rec model.ActivityRecord) {
	if err := s.audit.Append(ctx, rec); err != nil {
		s.logger.Warn("activity append failed",
			slog.String("action", rec.Action),
			slog.String("user_id", rec.ActorID),
			slog.String("error", err.Error()),
		)
	}
}

// burnVerify runs one verification against a fixed hash.
func (s *AuthService) burnVerify(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), dummyPassword)
		if err != nil {
			s.logger.Warn("dummy hash unavailable", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(ctx, password, s.dummyHash)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeRegister trims every field except the password.
func normalizeRegister(in RegisterInput) RegisterInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Role = strings.TrimSpace(in.Role)
	return in
}

func validateRegister(in RegisterInput) *ValidationError {
	roles := make([]interface{}, 0, len(model.ValidRoles))
	for _, r := range model.ValidRoles {
		roles = append(roles, string(r))
	}

	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.Required.Error("The name field is required."),
			validation.RuneLength(0, 100).Error("The name field must not be greater than 100 characters."),
		),
		validation.Field(&in.Email,
			validation.Required.Error("The email field is required."),
			is.Email.Error("The email field must be a valid email address."),
		),
		validation.Field(&in.Phone,
			validation.RuneLength(0, 15).Error("The phone field must not be greater than 15 characters."),
		),
		validation.Field(&in.Password,
			validation.Required.Error("The password field is required."),
			validation.RuneLength(6, 0).Error("The password field must be at least 6 characters."),
		),
		validation.Field(&in.Role,
			validation.In(roles...).Error("The selected role is invalid."),
		),
	)
	return toValidationError(err)
}

func validateLogin(in LoginInput) *ValidationError {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Email,
			validation.Required.Error("The email field is required."),
			is.Email.Error("The email field must be a valid email address."),
		),
		validation.Field(&in.Password,
			validation.Required.Error("The password field is required."),
		),
	)
	return toValidationError(err)
}

// toValidationError converts ozzo field errors, keyed by json tag.
func toValidationError(err error) *ValidationError {
	verr := &ValidationError{}
	var fields validation.Errors
	if errors.As(err, &fields) {
		for name, ferr := range fields {
			verr.add(name, ferr.Error())
		}
	}
	return verr
}
