package bookstore_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	bookstore "github.com/goliatone/go-bookstore"
)

func registerAccount(t *testing.T, repo bookstore.RepositoryManager, email string) (user *bookstore.User, secret string) {
	t.Helper()

	handler := bookstore.RegisterUserHandler{
		Repo:   repo,
		Hasher: testHasher(),
		Logger: testLogger{},
	}

	err := handler.Execute(context.Background(), bookstore.RegisterUserMessage{
		Email:    email,
		Password: "password123",
		OnResponse: func(r *bookstore.RegisterUserResponse) {
			user = r.User
			secret = r.VerificationToken
		},
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotEmpty(t, secret)

	return user, secret
}

func TestVerifyEmailHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Redeems token and verifies account", func(t *testing.T) {
		repo := setupRepoManager(t)
		user, secret := registerAccount(t, repo, "reader@example.com")

		handler := bookstore.VerifyEmailHandler{Repo: repo}

		var res *bookstore.VerifyEmailResponse
		err := handler.Execute(ctx, bookstore.VerifyEmailMessage{
			Secret: secret,
			OnResponse: func(r *bookstore.VerifyEmailResponse) {
				res = r
			},
		})
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, user.ID.String(), res.UserID)

		reloaded, err := repo.Users().GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.True(t, reloaded.EmailValidated)
	})

	t.Run("Unknown token", func(t *testing.T) {
		repo := setupRepoManager(t)

		handler := bookstore.VerifyEmailHandler{Repo: repo}

		err := handler.Execute(ctx, bookstore.VerifyEmailMessage{Secret: "nope"})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, bookstore.TextCodeTokenNotFound, richErr.TextCode)
	})

	t.Run("Token redeems at most once", func(t *testing.T) {
		repo := setupRepoManager(t)
		_, secret := registerAccount(t, repo, "reader@example.com")

		handler := bookstore.VerifyEmailHandler{Repo: repo}

		require.NoError(t, handler.Execute(ctx, bookstore.VerifyEmailMessage{Secret: secret}))

		err := handler.Execute(ctx, bookstore.VerifyEmailMessage{Secret: secret})
		require.Error(t, err)

		// The loser of the redeem race learns nothing beyond "not found".
		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, goerrors.CategoryNotFound, richErr.Category)
		assert.Equal(t, bookstore.TextCodeTokenUsed, richErr.TextCode)
	})

	t.Run("Expired token", func(t *testing.T) {
		repo := setupRepoManager(t)
		_, secret := registerAccount(t, repo, "reader@example.com")

		// Age the token past its redeem-by time.
		token, err := repo.VerificationTokens().GetBySecret(ctx, secret)
		require.NoError(t, err)

		err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewUpdate().
				Model((*bookstore.VerificationToken)(nil)).
				Set("expires_at = ?", time.Now().Add(-time.Minute)).
				Where("id = ?", token.ID).
				Exec(ctx)
			return err
		})
		require.NoError(t, err)

		handler := bookstore.VerifyEmailHandler{Repo: repo}

		err = handler.Execute(ctx, bookstore.VerifyEmailMessage{Secret: secret})
		require.Error(t, err)

		var richErr *goerrors.Error
		require.ErrorAs(t, err, &richErr)
		assert.Equal(t, goerrors.CategoryNotFound, richErr.Category)
		assert.Equal(t, bookstore.TextCodeVerifyExpired, richErr.TextCode)

		// Expired tokens never verify the account.
		reloaded, err := repo.Users().GetByEmail(ctx, "reader@example.com")
		require.NoError(t, err)
		assert.False(t, reloaded.EmailValidated)
	})
}
