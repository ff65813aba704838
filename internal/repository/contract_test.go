package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"go-user-api/internal/model"
)

func strPtr(s string) *string { return &s }

func newUser(email string, username string) model.User {
	return model.User{Email: email, Username: username, PasswordHash: "$2a$04$hash-of-" + username}
}

// runUserRepositoryContract exercises behaviour every UserRepository must share.
func runUserRepositoryContract(t *testing.T, newRepo func(t *testing.T) UserRepository) {
	t.Run("create assigns sequential ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Create(ctx, newUser("a@x.com", "a"))
		require.NoError(t, err)
		second, err := repo.Create(ctx, newUser("b@x.com", "b"))
		require.NoError(t, err)

		require.Positive(t, first.ID)
		require.Greater(t, second.ID, first.ID)
		require.False(t, first.CreatedAt.IsZero())
	})

	t.Run("create rejects duplicate email case-insensitively", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, newUser("a@x.com", "a"))
		require.NoError(t, err)
		_, err = repo.Create(ctx, newUser("A@X.com", "other"))
		require.ErrorIs(t, err, model.ErrUserAlreadyExists)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("deleted ids are never reused", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Create(ctx, newUser("a@x.com", "a"))
		require.NoError(t, err)
		second, err := repo.Create(ctx, newUser("b@x.com", "b"))
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, first.ID))

		third, err := repo.Create(ctx, newUser("c@x.com", "c"))
		require.NoError(t, err)
		require.Greater(t, third.ID, second.ID)
	})

	t.Run("find all returns records in id order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var created []model.User
		for i := 0; i < 3; i++ {
			u, err := repo.Create(ctx, newUser(fmt.Sprintf("u%d@x.com", i), fmt.Sprintf("u%d", i)))
			require.NoError(t, err)
			created = append(created, u)
		}

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		if diff := cmp.Diff(created, all, cmpopts.EquateApproxTime(time.Second)); diff != "" {
			t.Fatalf("FindAll mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("find by id and field", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newUser("a@x.com", "Alice"))
		require.NoError(t, err)

		byID, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.Email, byID.Email)
		require.Equal(t, created.PasswordHash, byID.PasswordHash)

		byEmail, err := repo.FindBy(ctx, model.FieldEmail, " A@x.COM ")
		require.NoError(t, err)
		require.Equal(t, created.ID, byEmail.ID)

		byName, err := repo.FindBy(ctx, model.FieldUsername, "alice")
		require.NoError(t, err)
		require.Equal(t, created.ID, byName.ID)

		_, err = repo.FindByID(ctx, created.ID+100)
		require.ErrorIs(t, err, model.ErrUserNotFound)
		_, err = repo.FindBy(ctx, model.FieldEmail, "ghost@x.com")
		require.ErrorIs(t, err, model.ErrUserNotFound)
		_, err = repo.FindBy(ctx, model.UserField("password_hash"), "x")
		require.ErrorIs(t, err, model.ErrInvalidInput)
	})

	t.Run("update merges only present fields", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newUser("a@x.com", "a"))
		require.NoError(t, err)

		updated, err := repo.Update(ctx, created.ID, model.UserPatch{Username: strPtr("renamed")})
		require.NoError(t, err)
		require.Equal(t, "renamed", updated.Username)
		require.Equal(t, "a@x.com", updated.Email)
		require.Equal(t, created.PasswordHash, updated.PasswordHash)

		updated, err = repo.Update(ctx, created.ID, model.UserPatch{Email: strPtr("new@x.com"), PasswordHash: strPtr("rehashed")})
		require.NoError(t, err)
		require.Equal(t, "new@x.com", updated.Email)
		require.Equal(t, "rehashed", updated.PasswordHash)

		_, err = repo.FindBy(ctx, model.FieldEmail, "a@x.com")
		require.ErrorIs(t, err, model.ErrUserNotFound)
		found, err := repo.FindBy(ctx, model.FieldEmail, "new@x.com")
		require.NoError(t, err)
		require.Equal(t, created.ID, found.ID)
	})

	t.Run("update to a taken email conflicts and leaves record untouched", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Create(ctx, newUser("a@x.com", "a"))
		require.NoError(t, err)
		b, err := repo.Create(ctx, newUser("b@x.com", "b"))
		require.NoError(t, err)

		_, err = repo.Update(ctx, b.ID, model.UserPatch{Email: strPtr("a@x.com")})
		require.ErrorIs(t, err, model.ErrUserAlreadyExists)

		stored, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.Equal(t, "b@x.com", stored.Email)
	})

	t.Run("update and delete report missing ids", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Update(ctx, 999, model.UserPatch{Username: strPtr("x")})
		require.ErrorIs(t, err, model.ErrUserNotFound)
		require.ErrorIs(t, repo.Delete(ctx, 999), model.ErrUserNotFound)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newUser("a@x.com", "a"))
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, created.ID))

		_, err = repo.FindByID(ctx, created.ID)
		require.ErrorIs(t, err, model.ErrUserNotFound)

		// the email is free again
		_, err = repo.Create(ctx, newUser("a@x.com", "a"))
		require.NoError(t, err)
	})

	t.Run("concurrent duplicate creates let exactly one win", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const workers = 8
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Create(ctx, newUser("race@x.com", fmt.Sprintf("r%d", i)))
				results <- err
			}(i)
		}
		wg.Wait()
		close(results)

		var wins, conflicts int
		for err := range results {
			switch {
			case err == nil:
				wins++
			default:
				require.ErrorIs(t, err, model.ErrUserAlreadyExists)
				conflicts++
			}
		}
		require.Equal(t, 1, wins)
		require.Equal(t, workers-1, conflicts)

		require.NoError(t, repo.Ping(ctx))
	})
}
