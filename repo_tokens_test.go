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

func TestVerificationTokensIssue(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	var token *bookstore.VerificationToken
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		issued, err := repo.VerificationTokens().IssueTx(ctx, tx, user.ID)
		token = issued
		return err
	})
	require.NoError(t, err)

	assert.NotEmpty(t, token.ID)
	assert.Equal(t, user.ID, token.UserID)
	assert.Len(t, token.Secret, 64) // 32 random bytes, hex encoded
	assert.False(t, token.Used)
	assert.WithinDuration(t, time.Now().Add(bookstore.VerificationTokenTTL), token.ExpiresAt, 5*time.Second)

	t.Run("Secrets are unique", func(t *testing.T) {
		var second *bookstore.VerificationToken
		err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			issued, err := repo.VerificationTokens().IssueTx(ctx, tx, user.ID)
			second = issued
			return err
		})
		require.NoError(t, err)
		assert.NotEqual(t, token.Secret, second.Secret)
	})
}

func TestVerificationTokensGetBySecret(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	var token *bookstore.VerificationToken
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		issued, err := repo.VerificationTokens().IssueTx(ctx, tx, user.ID)
		token = issued
		return err
	})
	require.NoError(t, err)

	t.Run("Known secret", func(t *testing.T) {
		found, err := repo.VerificationTokens().GetBySecret(ctx, token.Secret)
		require.NoError(t, err)
		assert.Equal(t, token.ID, found.ID)
	})

	t.Run("Unknown secret", func(t *testing.T) {
		_, err := repo.VerificationTokens().GetBySecret(ctx, "does-not-exist")
		require.Error(t, err)
		assert.True(t, goerrors.IsNotFound(err))
	})
}

func TestVerificationTokensConsumeOnce(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	var token *bookstore.VerificationToken
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		issued, err := repo.VerificationTokens().IssueTx(ctx, tx, user.ID)
		token = issued
		return err
	})
	require.NoError(t, err)

	// First redemption wins the compare-and-set.
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		consumed, err := repo.VerificationTokens().ConsumeTx(ctx, tx, token.ID)
		require.NoError(t, err)
		assert.True(t, consumed)
		return nil
	})
	require.NoError(t, err)

	// The second attempt loses.
	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		consumed, err := repo.VerificationTokens().ConsumeTx(ctx, tx, token.ID)
		require.NoError(t, err)
		assert.False(t, consumed)
		return nil
	})
	require.NoError(t, err)
}

func TestVerificationTokensDeleteForUser(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	var first, second *bookstore.VerificationToken
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if first, err = repo.VerificationTokens().IssueTx(ctx, tx, user.ID); err != nil {
			return err
		}
		second, err = repo.VerificationTokens().IssueTx(ctx, tx, user.ID)
		return err
	})
	require.NoError(t, err)

	err = repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.VerificationTokens().DeleteForUserTx(ctx, tx, user.ID)
	})
	require.NoError(t, err)

	for _, secret := range []string{first.Secret, second.Secret} {
		_, err := repo.VerificationTokens().GetBySecret(ctx, secret)
		assert.True(t, goerrors.IsNotFound(err))
	}
}
