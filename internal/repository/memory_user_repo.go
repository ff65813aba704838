package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go-user-api/internal/model"
)

type MemoryUserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	users   map[int64]model.User
	byEmail map[string]int64
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   map[int64]model.User{},
		byEmail: map[string]int64{},
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, u model.User) (model.User, error) {
	key := model.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return model.User{}, fmt.Errorf("create user %q: %w", key, model.ErrUserAlreadyExists)
	}

	r.nextID++
	u.ID = r.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	r.users[u.ID] = u
	r.byEmail[key] = u.ID
	return u, nil
}

func (r *MemoryUserRepository) FindAll(_ context.Context) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedLocked(), nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id int64) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, exists := r.users[id]
	if !exists {
		return model.User{}, fmt.Errorf("find user %d: %w", id, model.ErrUserNotFound)
	}
	return u, nil
}

func (r *MemoryUserRepository) FindBy(_ context.Context, field model.UserField, value string) (model.User, error) {
	if !field.Valid() {
		return model.User{}, fmt.Errorf("find user by %q: %w", field, model.ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if field == model.FieldEmail {
		if id, exists := r.byEmail[model.NormalizeEmail(value)]; exists {
			return r.users[id], nil
		}
		return model.User{}, fmt.Errorf("find user by email: %w", model.ErrUserNotFound)
	}

	needle := strings.TrimSpace(value)
	for _, u := range r.sortedLocked() {
		if strings.EqualFold(u.Username, needle) {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("find user by %s: %w", field, model.ErrUserNotFound)
}

func (r *MemoryUserRepository) Update(_ context.Context, id int64, patch model.UserPatch) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.users[id]
	if !exists {
		return model.User{}, fmt.Errorf("update user %d: %w", id, model.ErrUserNotFound)
	}

	oldKey := model.NormalizeEmail(u.Email)
	if patch.Email != nil {
		newKey := model.NormalizeEmail(*patch.Email)
		if owner, taken := r.byEmail[newKey]; taken && owner != id {
			return model.User{}, fmt.Errorf("update user %d: %w", id, model.ErrUserAlreadyExists)
		}
	}

	patch.Apply(&u, time.Now().UTC())

	delete(r.byEmail, oldKey)
	r.byEmail[model.NormalizeEmail(u.Email)] = id
	r.users[id] = u
	return u, nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, exists := r.users[id]
	if !exists {
		return fmt.Errorf("delete user %d: %w", id, model.ErrUserNotFound)
	}

	delete(r.byEmail, model.NormalizeEmail(u.Email))
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *MemoryUserRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryUserRepository) sortedLocked() []model.User {
	users := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b model.User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users
}
