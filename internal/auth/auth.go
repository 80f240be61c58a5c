// Package auth registers users, checks their credentials and resolves
// bearer tokens back to users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"bajeti/internal/core"
)

const minPasswordLength = 8

// Detail messages shared with the HTTP layer.
const (
	MsgInvalidCredentials = "Could not validate credentials"
	MsgBadLogin           = "Incorrect username or password"
	MsgBadSecurityAnswer  = "Incorrect answer to security question"
)

// UserStore is the subset of storage.Store the auth service needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	RegisterUser(ctx context.Context, u *core.User, first *core.Budget) error
	UpdateUser(ctx context.Context, u *core.User) error
}

type Service struct {
	users  UserStore
	tokens *Tokens
	cost   int
}

func NewService(users UserStore, tokens *Tokens) *Service {
	return &Service{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost, mostly to keep tests fast.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// Registration is the input of Register.
type Registration struct {
	FirstName      string
	LastName       string
	Email          string
	Password       string
	SecurityAnswer string
}

// ProfileUpdate changes the non-empty fields of a user.
type ProfileUpdate struct {
	FirstName      string
	LastName       string
	Email          string
	SecurityAnswer string
}

// Token is the response of a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Register creates a user together with its default budget.
func (s *Service) Register(ctx context.Context, r Registration) (core.User, error) {
	u := core.User{
		FirstName:      strings.TrimSpace(r.FirstName),
		LastName:       strings.TrimSpace(r.LastName),
		Email:          normalizeEmail(r.Email),
		SecurityAnswer: normalizeAnswer(r.SecurityAnswer),
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if len(r.Password) < minPasswordLength {
		return core.User{}, core.ErrWeakPassword
	}
	if u.SecurityAnswer == "" {
		return core.User{}, core.Invalid("security answer cannot be empty")
	}

	hashed, err := s.hash(r.Password)
	if err != nil {
		return core.User{}, err
	}
	u.HashedPassword = hashed

	budget := core.Budget{Name: core.DefaultBudgetName, Amount: decimal.Zero}
	if err := s.users.RegisterUser(ctx, &u, &budget); err != nil {
		return core.User{}, fmt.Errorf("register user: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "budget_id", budget.ID)
	return u, nil
}

// Login checks email and password and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Token{}, core.Unauthorized(MsgBadLogin)
		}
		return Token{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return Token{}, core.Unauthorized(MsgBadLogin)
	}

	access, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: access, TokenType: "bearer"}, nil
}

// Authenticate resolves a bearer token to its user. The user must still
// exist under the email the token was issued for.
func (s *Service) Authenticate(ctx context.Context, raw string) (core.User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		slog.DebugContext(ctx, "Rejected access token", "error", err)
		return core.User{}, core.Unauthorized(MsgInvalidCredentials)
	}

	u, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.Unauthorized(MsgInvalidCredentials)
		}
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	if u.ID != claims.UserID {
		slog.WarnContext(ctx, "Token user id mismatch", "token", claims.String(), "user_id", u.ID)
		return core.User{}, core.Unauthorized(MsgInvalidCredentials)
	}
	return u, nil
}

// UpdateProfile applies the non-empty fields of upd to the user.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (core.User, error) {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", userID, err)
	}
	if v := strings.TrimSpace(upd.FirstName); v != "" {
		u.FirstName = v
	}
	if v := strings.TrimSpace(upd.LastName); v != "" {
		u.LastName = v
	}
	if v := normalizeEmail(upd.Email); v != "" {
		u.Email = v
	}
	if v := normalizeAnswer(upd.SecurityAnswer); v != "" {
		u.SecurityAnswer = v
	}
	if err := u.Validate(); err != nil {
		return core.User{}, err
	}
	if err := s.users.UpdateUser(ctx, &u); err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", userID, err)
	}
	return u, nil
}

// ResetPassword replaces the password of the user owning email when the
// security answer matches.
func (s *Service) ResetPassword(ctx context.Context, email, answer, newPassword string) error {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if u.SecurityAnswer == "" {
		return core.Invalid("Security answer not configured for this account")
	}
	if normalizeAnswer(u.SecurityAnswer) != normalizeAnswer(answer) {
		return core.Invalid(MsgBadSecurityAnswer)
	}
	if len(newPassword) < minPasswordLength {
		return core.ErrWeakPassword
	}

	hashed, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	u.HashedPassword = hashed
	if err := s.users.UpdateUser(ctx, &u); err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	slog.InfoContext(ctx, "Password reset", "user_id", u.ID)
	return nil
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", core.Invalid("password too long (max 72 bytes)")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
