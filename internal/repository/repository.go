package repository

import (
	"context"

	"go-user-api/internal/model"
)

// UserRepository stores user records keyed by a sequential id that is never
// reused. Implementations enforce email uniqueness atomically and report
// violations as model.ErrUserAlreadyExists; absent ids as model.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	FindAll(ctx context.Context) ([]model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindBy(ctx context.Context, field model.UserField, value string) (model.User, error)
	Update(ctx context.Context, id int64, patch model.UserPatch) (model.User, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

func columnFor(field model.UserField) (string, bool) {
	switch field {
	case model.FieldEmail:
		return "email", true
	case model.FieldUsername:
		return "username", true
	default:
		return "", false
	}
}
