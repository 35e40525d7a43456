package bookstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	OnResponse func(r *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User              *User
	VerificationToken string
}

// RegisterUserHandler creates the account and its first verification token
// in one transaction. The verification mail goes out after commit, through
// the notifier, so delivery failures never roll back the registration.
type RegisterUserHandler struct {
	Repo     RepositoryManager
	Hasher   *Hasher
	Notifier Notifier
	Logger   Logger
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	var secret string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.Repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return ErrEmailTaken
		} else if !repository.IsRecordNotFound(err) && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		hash, err := h.Hasher.Hash(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.Email = event.Email
		user.PasswordHash = hash
		user.Role = RoleUser

		if user, err = h.Repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		token, err := h.Repo.VerificationTokens().IssueTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue verification token")
		}
		secret = token.Secret

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	if h.Notifier != nil {
		if err := h.Notifier.SendVerificationEmail(ctx, user.Email, secret); err != nil {
			h.logger().Error("failed to queue verification email", "error", err, "email", user.Email)
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(&RegisterUserResponse{
			User:              user,
			VerificationToken: secret,
		})
	}

	return nil
}

func (h *RegisterUserHandler) logger() Logger {
	if h.Logger == nil {
		return defLogger{}
	}
	return h.Logger
}
