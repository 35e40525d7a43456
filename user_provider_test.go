package bookstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	bookstore "github.com/goliatone/go-bookstore"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("Successful verification", func(t *testing.T) {
		repo := setupRepoManager(t)
		user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, true)

		provider := bookstore.NewUserProvider(repo.Users(), testHasher()).
			WithLogger(testLogger{})

		identity, err := provider.VerifyIdentity(ctx, "reader@example.com", "password123")
		require.NoError(t, err)

		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "reader@example.com", identity.Email())
		assert.Equal(t, bookstore.RoleUser, identity.Role())
	})

	t.Run("Wrong password", func(t *testing.T) {
		repo := setupRepoManager(t)
		seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, true)

		provider := bookstore.NewUserProvider(repo.Users(), testHasher()).
			WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "reader@example.com", "wrong-password")
		assert.Equal(t, bookstore.ErrMismatchedHashAndPassword, err)
	})

	t.Run("Unknown email answers like a bad password", func(t *testing.T) {
		repo := setupRepoManager(t)

		provider := bookstore.NewUserProvider(repo.Users(), testHasher()).
			WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "nobody@example.com", "password123")
		assert.Equal(t, bookstore.ErrMismatchedHashAndPassword, err)
	})

	t.Run("Upgrades stale hashes on login", func(t *testing.T) {
		repo := setupRepoManager(t)
		user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleUser, true)

		original, err := repo.Users().GetByEmail(ctx, user.Email)
		require.NoError(t, err)

		// The stored hash was minted at MinCost; logging in through a
		// stronger hasher re-hashes it transparently.
		provider := bookstore.NewUserProvider(repo.Users(), bookstore.NewHasher(bcrypt.MinCost+1)).
			WithLogger(testLogger{})

		_, err = provider.VerifyIdentity(ctx, "reader@example.com", "password123")
		require.NoError(t, err)

		reloaded, err := repo.Users().GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.NotEqual(t, original.PasswordHash, reloaded.PasswordHash)

		cost, err := bcrypt.Cost([]byte(reloaded.PasswordHash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost+1, cost)

		// The next login verifies against the upgraded hash.
		_, err = provider.VerifyIdentity(ctx, "reader@example.com", "password123")
		assert.NoError(t, err)
	})
}

func TestUserProviderFindIdentityByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("Existing account", func(t *testing.T) {
		repo := setupRepoManager(t)
		user := seedUser(t, repo, "reader@example.com", "password123", bookstore.RoleAdmin, true)

		provider := bookstore.NewUserProvider(repo.Users(), testHasher()).
			WithLogger(testLogger{})

		identity, err := provider.FindIdentityByEmail(ctx, "reader@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, bookstore.RoleAdmin, identity.Role())
	})

	t.Run("Unknown account", func(t *testing.T) {
		repo := setupRepoManager(t)

		provider := bookstore.NewUserProvider(repo.Users(), testHasher()).
			WithLogger(testLogger{})

		_, err := provider.FindIdentityByEmail(ctx, "nobody@example.com")
		assert.Equal(t, bookstore.ErrIdentityNotFound, err)
	})
}
