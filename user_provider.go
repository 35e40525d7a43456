package bookstore

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserProvider resolves credentials against the users store
type UserProvider struct {
	store  Users
	hasher *Hasher
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users, hasher *Hasher) *UserProvider {
	return &UserProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and return the
// identity. Unknown emails answer with the same error as a bad password so
// responses do not leak which accounts exist.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	upgraded, err := u.hasher.Authenticate(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}

	if upgraded != "" {
		// Best effort: the login proceeds even if persisting the stronger
		// hash fails.
		if err := u.store.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
			u.logger.Error("failed to persist upgraded password hash", "error", err, "user_id", user.ID.String())
		}
	}

	return identityFromUser(user), nil
}

// FindIdentityByEmail loads the identity without checking credentials.
func (u *UserProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return identityFromUser(user), nil
}

type authIdentity struct {
	id    uuid.UUID
	email string
	role  Role
}

func identityFromUser(user *User) authIdentity {
	return authIdentity{
		id:    user.ID,
		email: user.Email,
		role:  user.Role,
	}
}

func (a authIdentity) ID() string {
	return a.id.String()
}

func (a authIdentity) UserID() uuid.UUID {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() Role {
	return a.role
}

var _ Identity = authIdentity{}
