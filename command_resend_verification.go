package bookstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ResendVerificationMessage struct {
	Email      string `json:"email"`
	OnResponse func(r *ResendVerificationResponse)
}

func (e ResendVerificationMessage) Type() string { return "user.resend_verification" }

type ResendVerificationResponse struct {
	VerificationToken string
}

// ResendVerificationHandler rotates a user's verification token: any
// outstanding tokens are dropped before the replacement is issued so only
// the newest link in the inbox works.
type ResendVerificationHandler struct {
	Repo     RepositoryManager
	Notifier Notifier
	Logger   Logger
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	var secret string
	var email string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.Repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
		}

		if user.EmailValidated {
			return ErrAlreadyVerified
		}

		if err := h.Repo.VerificationTokens().DeleteForUserTx(ctx, tx, user.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to drop outstanding tokens")
		}

		token, err := h.Repo.VerificationTokens().IssueTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not issue verification token")
		}

		secret = token.Secret
		email = user.Email
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification resend transaction failed")
	}

	if h.Notifier != nil {
		if err := h.Notifier.SendVerificationEmail(ctx, email, secret); err != nil {
			h.logger().Error("failed to queue verification email", "error", err, "email", email)
		}
	}

	if event.OnResponse != nil {
		event.OnResponse(&ResendVerificationResponse{VerificationToken: secret})
	}

	return nil
}

func (h *ResendVerificationHandler) logger() Logger {
	if h.Logger == nil {
		return defLogger{}
	}
	return h.Logger
}
