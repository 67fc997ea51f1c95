package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"litfunds/internal/core"
	"litfunds/internal/ports"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUnauthenticated    = errors.New("not signed in")
)

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

type SignUpRequest struct {
	Email           string
	Password        string
	ConfirmPassword string
	DisplayName     string
}

type AccountStore interface {
	ports.UserStore
	ports.SessionStore
	ports.ProfileStore
}

// AuthService handles accounts and sessions.
type AuthService struct {
	store      AccountStore
	sessionTTL time.Duration
	cost       int
	now        func() time.Time
}

func NewAuthService(store AccountStore, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		store:      store,
		sessionTTL: sessionTTL,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// SignUp creates the account with a default profile and the default
// budgets, then opens a session for it.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := core.ValidateCredentials(email, req.Password); err != nil {
		return Session{}, err
	}
	if req.Password != req.ConfirmPassword {
		return Session{}, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	profile := core.Profile{
		UserID:      user.ID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Currency:    core.CurrencyGHS,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = strings.SplitN(email, "@", 2)[0]
	}
	if err := s.store.SaveProfile(ctx, profile); err != nil {
		return Session{}, fmt.Errorf("save profile: %w", err)
	}

	categories := make([]string, 0, len(core.DefaultBudgets))
	for c := range core.DefaultBudgets {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		b := core.Budget{UserID: user.ID, Category: c, Limit: core.Money{Cents: core.DefaultBudgets[c]}}
		if err := s.store.SaveBudget(ctx, b); err != nil {
			return Session{}, fmt.Errorf("save default budget %s: %w", c, err)
		}
	}

	slog.InfoContext(ctx, "User signed up", "user_id", user.ID)
	return s.openSession(ctx, user.ID)
}

// SignIn checks the password and opens a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ports.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Failed sign in", "user_id", user.ID)
		return Session{}, ErrInvalidCredentials
	}
	return s.openSession(ctx, user.ID)
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	userID, err := s.store.GetSession(ctx, token, s.now())
	if errors.Is(err, ports.ErrNotFound) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	return userID, nil
}

func (s *AuthService) openSession(ctx context.Context, userID string) (Session, error) {
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, sess.Token, userID, sess.ExpiresAt); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}
