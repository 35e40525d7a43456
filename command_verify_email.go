package bookstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Secret     string `json:"token"`
	OnResponse func(r *VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

type VerifyEmailResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// VerifyEmailHandler redeems a verification token. Consuming the token and
// flagging the account verified commit in the same transaction; the token
// flip is a compare-and-set so a token redeems at most once even under
// concurrent requests.
type VerifyEmailHandler struct {
	Repo RepositoryManager
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	resp := &VerifyEmailResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := h.Repo.VerificationTokens().GetBySecretTx(ctx, tx, event.Secret)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrVerificationTokenNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve verification token")
		}

		if token.Expired(nowFunc()) {
			return ErrVerificationTokenExpired
		}

		consumed, err := h.Repo.VerificationTokens().ConsumeTx(ctx, tx, token.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume verification token")
		}

		if !consumed {
			return ErrVerificationTokenUsed
		}

		if err := h.Repo.Users().MarkEmailVerifiedTx(ctx, tx, token.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account verified")
		}

		resp.UserID = token.UserID.String()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
