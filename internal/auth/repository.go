package auth

import (
	"context"
	"sync"
)

// UserRepository stores users and their profiles.
type UserRepository interface {
	// Create returns ErrUserExists if the email is taken.
	Create(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	SaveProfile(ctx context.Context, p Profile) error
	// GetProfile reports false when no profile was saved.
	GetProfile(ctx context.Context, userID string) (Profile, bool, error)
}

// MemoryUserRepository keeps users in process memory.
type MemoryUserRepository struct {
	mu       sync.RWMutex
	byID     map[string]User
	byEmail  map[string]string
	profiles map[string]Profile
}

func NewMemoryUserRepository() *MemoryUserRepository {
	r := &MemoryUserRepository{}
	r.Reset()
	return r
}

// Reset drops all users and profiles. Intended for tests.
func (r *MemoryUserRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[string]User)
	r.byEmail = make(map[string]string)
	r.profiles = make(map[string]Profile)
}

func (r *MemoryUserRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return ErrUserExists
	}
	if _, exists := r.byID[u.ID]; exists {
		return ErrUserExists
	}
	r.byID[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := r.byID[id]
	return &u, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) SaveProfile(_ context.Context, p Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
	return nil
}

func (r *MemoryUserRepository) GetProfile(_ context.Context, userID string) (Profile, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	return p, ok, nil
}
