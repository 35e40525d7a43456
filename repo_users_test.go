package bookstore_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookstore "github.com/goliatone/go-bookstore"
)

func TestUsersRepositoryCreateDefaults(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user, err := repo.Users().Create(ctx, &bookstore.User{
		Email:        "reader@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, bookstore.RoleUser, user.Role)
	assert.False(t, user.EmailValidated)
}

func TestUsersRepositoryGetByEmail(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	seeded := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	t.Run("Existing user", func(t *testing.T) {
		user, err := repo.Users().GetByEmail(ctx, "reader@example.com")
		require.NoError(t, err)
		assert.Equal(t, seeded.ID, user.ID)
		assert.Equal(t, "reader@example.com", user.Email)
	})

	t.Run("Unknown email", func(t *testing.T) {
		_, err := repo.Users().GetByEmail(ctx, "nobody@example.com")
		require.Error(t, err)
		assert.True(t, goerrors.IsNotFound(err))
	})

	t.Run("Not an email", func(t *testing.T) {
		_, err := repo.Users().GetByEmail(ctx, "not-an-email")
		require.Error(t, err)
		assert.True(t, goerrors.IsNotFound(err))
	})
}

func TestUsersRepositoryDuplicateEmail(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	_, err := repo.Users().Create(ctx, &bookstore.User{
		Email:        "reader@example.com",
		PasswordHash: "hash",
	})
	assert.Error(t, err)
}

func TestUsersRepositoryMarkEmailVerified(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	require.NoError(t, repo.Users().MarkEmailVerified(ctx, user.ID))

	reloaded, err := repo.Users().GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.True(t, reloaded.EmailValidated)
}

func TestUsersRepositoryUpdatePasswordHash(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	require.NoError(t, repo.Users().UpdatePasswordHash(ctx, user.ID, "new-hash"))

	reloaded, err := repo.Users().GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", reloaded.PasswordHash)
	// Skip-zero semantics: nothing else changed.
	assert.Equal(t, user.Email, reloaded.Email)
	assert.Equal(t, user.Role, reloaded.Role)
}

func TestUsersRepositoryUpdateRole(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	updated, err := repo.Users().UpdateRole(ctx, user.ID, bookstore.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, bookstore.RoleAdmin, updated.Role)

	reloaded, err := repo.Users().GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, bookstore.RoleAdmin, reloaded.Role)
}

func TestUsersRepositoryDeleteByID(t *testing.T) {
	repo := setupRepoManager(t)
	ctx := context.Background()

	user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, false)

	require.NoError(t, repo.Users().DeleteByID(ctx, user.ID))

	// Soft deleted accounts disappear from lookups.
	_, err := repo.Users().GetByEmail(ctx, user.Email)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err) || goerrors.IsNotFound(err))
}
