package bookstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type VerificationTokens interface {
	repository.Repository[*VerificationToken]

	IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*VerificationToken, error)
	GetBySecret(ctx context.Context, secret string) (*VerificationToken, error)
	GetBySecretTx(ctx context.Context, tx bun.IDB, secret string) (*VerificationToken, error)
	ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type verificationTokens struct {
	repository.Repository[*VerificationToken]
	db *bun.DB
}

var _ VerificationTokens = (*verificationTokens)(nil)

func NewVerificationTokensRepository(db *bun.DB) VerificationTokens {
	repo := repository.NewRepository[*VerificationToken](db, repository.ModelHandlers[*VerificationToken]{
		NewRecord: func() *VerificationToken { return &VerificationToken{} },
		GetID: func(t *VerificationToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *VerificationToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "secret"
		},
	})

	return &verificationTokens{
		Repository: repo,
		db:         db,
	}
}

// IssueTx creates a fresh token for the user inside the caller's
// transaction so user creation and token issuance commit together.
func (r *verificationTokens) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*VerificationToken, error) {
	secret, err := newTokenSecret()
	if err != nil {
		return nil, err
	}

	record := &VerificationToken{
		ID:        uuid.New(),
		UserID:    userID,
		Secret:    secret,
		ExpiresAt: nowFunc().Add(VerificationTokenTTL),
	}

	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *verificationTokens) GetBySecret(ctx context.Context, secret string) (*VerificationToken, error) {
	return r.GetBySecretTx(ctx, r.db, secret)
}

func (r *verificationTokens) GetBySecretTx(ctx context.Context, tx bun.IDB, secret string) (*VerificationToken, error) {
	record := &VerificationToken{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.secret = ?", secret).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"secret": "redacted",
				})
		}
		return nil, err
	}

	return record, nil
}

// ConsumeTx flips is_used with a compare-and-set so concurrent redemptions
// of the same token settle on exactly one winner. Returns false when the
// token was already consumed.
func (r *verificationTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*VerificationToken)(nil)).
		Set("is_used = TRUE").
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_used = FALSE").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (r *verificationTokens) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*VerificationToken)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}

func newTokenSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
