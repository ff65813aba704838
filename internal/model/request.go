package model

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// MaxPasswordBytes is the longest password bcrypt will accept.
const MaxPasswordBytes = 72

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat, validation.Length(3, 254)),
		validation.Field(&r.Username, validation.Required, validation.By(notBlank), validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Required, validation.By(passwordFits)),
	)
}

type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (r UpdateUserRequest) IsEmpty() bool {
	return r.Email == nil && r.Username == nil && r.Password == nil
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.EmailFormat, validation.Length(3, 254)),
		validation.Field(&r.Username, validation.NilOrNotEmpty, validation.By(notBlank), validation.Length(1, 64)),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.By(passwordFits)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// notBlank rejects values that are empty once surrounding whitespace is
// trimmed; stored usernames are trimmed.
func notBlank(value any) error {
	var text string
	switch v := value.(type) {
	case string:
		text = v
	case *string:
		if v == nil {
			return nil
		}
		text = *v
	default:
		return nil
	}

	if strings.TrimSpace(text) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}

func passwordFits(value any) error {
	var password string
	switch v := value.(type) {
	case string:
		password = v
	case *string:
		if v == nil {
			return nil
		}
		password = *v
	}

	if len(password) > MaxPasswordBytes {
		return validation.NewError("validation_password_too_long", "must be at most 72 bytes")
	}
	return nil
}
