// Package auth registers users and checks their credentials.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

const minPasswordLength = 8

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Profile holds per-user display preferences.
type Profile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	EquityMode  string `json:"equityMode,omitempty"`
}

// Service is the entry point for registration, login and profiles.
type Service struct {
	repo UserRepository
	cost int
}

// NewService creates a Service. A zero cost uses bcrypt.DefaultCost.
func NewService(repo UserRepository, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, cost: cost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidInput, email)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login returns ErrInvalidCredentials for both an unknown email and a wrong
// password.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Profile returns ProfileNotLoaded until SaveProfile has been called for the
// user.
func (s *Service) Profile(ctx context.Context, userID string) (ProfileState, error) {
	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	p, ok, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return ProfileNotLoaded{}, nil
	}
	return ProfileLoaded{Profile: p}, nil
}

func (s *Service) SaveProfile(ctx context.Context, p Profile) error {
	if _, err := s.repo.GetByID(ctx, p.UserID); err != nil {
		return err
	}
	return s.repo.SaveProfile(ctx, p)
}
