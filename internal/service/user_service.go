package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go-user-api/internal/event"
	"go-user-api/internal/model"
	"go-user-api/internal/repository"
	"go-user-api/pkg/apierror"
)

type passwordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password string, digest string) bool
	NeedsRehash(digest string) bool
}

type tokenIssuer interface {
	Issue(claims model.SessionClaims) (model.AccessToken, error)
}

// UserService implements registration, user CRUD and credential login on
// top of a UserRepository. Returned records never include the password hash.
type UserService struct {
	users  repository.UserRepository
	hasher passwordHasher
	tokens tokenIssuer
	bus    event.Bus

	decoyOnce sync.Once
	decoyHash string
}

func NewUserService(users repository.UserRepository, hasher passwordHasher, tokens tokenIssuer, bus event.Bus) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		bus:    bus,
	}
}

func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (model.PublicUser, error) {
	if err := req.Validate(); err != nil {
		return model.PublicUser{}, apierror.BadRequest("invalid user payload", err.Error())
	}

	email := model.NormalizeEmail(req.Email)

	// Cheap pre-check so duplicates don't pay for a hash. Create re-checks atomically.
	if _, err := s.users.FindBy(ctx, model.FieldEmail, email); err == nil {
		return model.PublicUser{}, emailTaken(email)
	} else if !errors.Is(err, model.ErrUserNotFound) {
		return model.PublicUser{}, fmt.Errorf("register: %w", err)
	}

	digest, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return model.PublicUser{}, hashFailure(err)
	}

	user, err := s.users.Create(ctx, model.User{
		Email:        email,
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: digest,
	})
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return model.PublicUser{}, emailTaken(email)
	}
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("register: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	s.publish(event.Event{
		Type:    event.TypeUserRegistered,
		ActorID: user.ID,
		Payload: event.UserPayload{UserID: user.ID, Email: user.Email},
	})

	return user.Public(), nil
}

func (s *UserService) List(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (model.PublicUser, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.PublicUser{}, userLookupError(err, id)
	}
	return user.Public(), nil
}

// Me returns the record of the authenticated caller.
func (s *UserService) Me(ctx context.Context, claims model.SessionClaims) (model.PublicUser, error) {
	return s.Get(ctx, claims.UserID)
}

func (s *UserService) Update(ctx context.Context, actorID int64, id int64, req model.UpdateUserRequest) (model.PublicUser, error) {
	if req.IsEmpty() {
		return model.PublicUser{}, apierror.BadRequest("at least one of email, username or password is required", "")
	}
	if err := req.Validate(); err != nil {
		return model.PublicUser{}, apierror.BadRequest("invalid user payload", err.Error())
	}

	if _, err := s.users.FindByID(ctx, id); err != nil {
		return model.PublicUser{}, userLookupError(err, id)
	}

	var (
		patch  model.UserPatch
		fields []string
	)
	if req.Email != nil {
		email := model.NormalizeEmail(*req.Email)
		patch.Email = &email
		fields = append(fields, "email")
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		patch.Username = &username
		fields = append(fields, "username")
	}
	if req.Password != nil {
		digest, err := s.hasher.Hash(ctx, *req.Password)
		if err != nil {
			return model.PublicUser{}, hashFailure(err)
		}
		patch.PasswordHash = &digest
		fields = append(fields, "password")
	}

	user, err := s.users.Update(ctx, id, patch)
	switch {
	case errors.Is(err, model.ErrUserAlreadyExists):
		return model.PublicUser{}, emailTaken(*patch.Email)
	case err != nil:
		return model.PublicUser{}, userLookupError(err, id)
	}

	s.publish(event.Event{
		Type:    event.TypeUserUpdated,
		ActorID: actorID,
		Payload: event.UserPayload{UserID: user.ID, Fields: fields},
	})

	return user.Public(), nil
}

func (s *UserService) Delete(ctx context.Context, actorID int64, id int64) (model.MessageResponse, error) {
	if err := s.users.Delete(ctx, id); err != nil {
		return model.MessageResponse{}, userLookupError(err, id)
	}

	s.publish(event.Event{
		Type:    event.TypeUserDeleted,
		ActorID: actorID,
		Payload: event.UserPayload{UserID: id},
	})

	return model.MessageResponse{Message: fmt.Sprintf("user %d deleted", id)}, nil
}

// Login exchanges email and password for an access token. Unknown emails and
// wrong passwords produce the same error and take comparable time.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (model.AccessToken, error) {
	if err := req.Validate(); err != nil {
		return model.AccessToken{}, invalidCredentials()
	}

	email := model.NormalizeEmail(req.Email)
	user, err := s.users.FindBy(ctx, model.FieldEmail, email)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.Verify(ctx, req.Password, s.decoy(ctx))
		s.loginFailed(email)
		return model.AccessToken{}, invalidCredentials()
	}
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(ctx, req.Password, user.PasswordHash) {
		s.loginFailed(email)
		return model.AccessToken{}, invalidCredentials()
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, req.Password)
	}

	token, err := s.tokens.Issue(model.SessionClaims{UserID: user.ID, Email: user.Email})
	if err != nil {
		return model.AccessToken{}, fmt.Errorf("login: %w", err)
	}

	s.publish(event.Event{
		Type:    event.TypeUserLoginSucceeded,
		ActorID: user.ID,
		Payload: event.UserPayload{UserID: user.ID, Email: user.Email},
	})

	return token, nil
}

// rehash upgrades a stored digest to the configured cost. Failures are
// logged; the login itself still succeeds.
func (s *UserService) rehash(ctx context.Context, id int64, password string) {
	digest, err := s.hasher.Hash(ctx, password)
	if err != nil {
		slog.Warn("failed to rehash password", "user_id", id, "error", err)
		return
	}

	if _, err := s.users.Update(ctx, id, model.UserPatch{PasswordHash: &digest}); err != nil {
		slog.Warn("failed to store rehashed password", "user_id", id, "error", err)
		return
	}
	slog.Info("password rehashed at configured cost", "user_id", id)
}

// decoy returns a digest to verify against when the email is unknown.
func (s *UserService) decoy(ctx context.Context) string {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash(context.WithoutCancel(ctx), "decoy-password-never-matches")
		if err != nil {
			slog.Warn("failed to prepare login decoy hash", "error", err)
			return
		}
		s.decoyHash = digest
	})
	return s.decoyHash
}

func (s *UserService) loginFailed(email string) {
	s.publish(event.Event{
		Type:    event.TypeUserLoginFailed,
		Payload: event.UserPayload{Email: email},
	})
}

func (s *UserService) publish(e event.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(e)
}

func invalidCredentials() error {
	return apierror.Unauthorized("invalid credentials")
}

func emailTaken(email string) error {
	return apierror.Conflict("email already registered", email)
}

func userLookupError(err error, id int64) error {
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.NotFound("user not found", strconv.FormatInt(id, 10))
	}
	return err
}

func hashFailure(err error) error {
	if errors.Is(err, model.ErrInvalidInput) {
		return apierror.BadRequest("invalid password", "")
	}
	return fmt.Errorf("hash password: %w", err)
}
