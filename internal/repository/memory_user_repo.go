package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-minimal-auth/internal/model"
)

// MemoryUserRepository keeps users in process memory. It enforces username
// uniqueness itself and is meant for tests and local development.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[string]model.User
	nextID int64
	now    func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: map[string]model.User{},
		now:   time.Now,
	}
}

func (r *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (model.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[username]
	return user, ok, nil
}

func (r *MemoryUserRepository) Insert(ctx context.Context, username string, passwordHash string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[username]; exists {
		return model.User{}, model.ErrUserAlreadyExists
	}

	r.nextID++
	user := model.User{
		ID:           r.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	}
	r.users[username] = user

	return user, nil
}

func (r *MemoryUserRepository) ListUsernamesOrderedByCreation(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	users := make([]model.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	r.mu.RUnlock()

	sort.Slice(users, func(i int, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})

	usernames := make([]string, 0, len(users))
	for _, user := range users {
		usernames = append(usernames, user.Username)
	}
	return usernames, nil
}

func (r *MemoryUserRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
