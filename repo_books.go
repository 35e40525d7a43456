package bookstore

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BookPage is a window into the catalog plus the cursors clients need to
// walk it.
type BookPage struct {
	Books      []*Book `json:"books"`
	TotalBooks int     `json:"total_books"`
	TotalPages int     `json:"total_pages"`
	NextPage   *int    `json:"next_page"`
	PrevPage   *int    `json:"prev_page"`
}

// Books exposes the repository.Repository[*Book] surface spelled out
// method by method: the paged List below shadows the repository's List,
// which Go does not allow through an interface embed.
type Books interface {
	Raw(ctx context.Context, sql string, args ...any) ([]*Book, error)
	RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]*Book, error)
	Get(ctx context.Context, criteria ...repository.SelectCriteria) (*Book, error)
	GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (*Book, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Book, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (*Book, error)
	ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]*Book, int, error)
	Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error)
	CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error)
	CreateMany(ctx context.Context, records []*Book, criteria ...repository.InsertCriteria) ([]*Book, error)
	CreateManyTx(ctx context.Context, tx bun.IDB, records []*Book, criteria ...repository.InsertCriteria) ([]*Book, error)
	GetOrCreate(ctx context.Context, record *Book) (*Book, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Book) (*Book, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Book, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Book, error)
	Update(ctx context.Context, record *Book, criteria ...repository.UpdateCriteria) (*Book, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *Book, criteria ...repository.UpdateCriteria) (*Book, error)
	UpdateMany(ctx context.Context, records []*Book, criteria ...repository.UpdateCriteria) ([]*Book, error)
	UpdateManyTx(ctx context.Context, tx bun.IDB, records []*Book, criteria ...repository.UpdateCriteria) ([]*Book, error)
	Upsert(ctx context.Context, record *Book, criteria ...repository.UpdateCriteria) (*Book, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Book, criteria ...repository.UpdateCriteria) (*Book, error)
	UpsertMany(ctx context.Context, records []*Book, criteria ...repository.UpdateCriteria) ([]*Book, error)
	UpsertManyTx(ctx context.Context, tx bun.IDB, records []*Book, criteria ...repository.UpdateCriteria) ([]*Book, error)
	Delete(ctx context.Context, record *Book) error
	DeleteTx(ctx context.Context, tx bun.IDB, record *Book) error
	DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error
	DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error
	DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error
	DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error
	ForceDelete(ctx context.Context, record *Book) error
	ForceDeleteTx(ctx context.Context, tx bun.IDB, record *Book) error
	Handlers() repository.ModelHandlers[*Book]
	RegisterScope(name string, scope repository.ScopeDefinition)
	SetScopeDefaults(defaults repository.ScopeDefaults) error
	GetScopeDefaults() repository.ScopeDefaults

	Create(ctx context.Context, record *Book, criteria ...repository.InsertCriteria) (*Book, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Book, criteria ...repository.InsertCriteria) (*Book, error)
	Patch(ctx context.Context, record *Book) (*Book, error)
	List(ctx context.Context, page, pageSize int) (*BookPage, error)
	SetCoverImage(ctx context.Context, id uuid.UUID, key string) (*Book, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type books struct {
	repository.Repository[*Book]
	db *bun.DB
}

var _ Books = (*books)(nil)

func NewBooksRepository(db *bun.DB) Books {
	repo := repository.NewRepository[*Book](db, repository.ModelHandlers[*Book]{
		NewRecord: func() *Book { return &Book{} },
		GetID: func(b *Book) uuid.UUID {
			if b == nil {
				return uuid.Nil
			}
			return b.ID
		},
		SetID: func(b *Book, id uuid.UUID) {
			if b != nil {
				b.ID = id
			}
		},
	})

	return &books{
		Repository: repo,
		db:         db,
	}
}

func (r *books) Create(ctx context.Context, record *Book, criteria ...repository.InsertCriteria) (*Book, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *books) CreateTx(ctx context.Context, tx bun.IDB, record *Book, criteria ...repository.InsertCriteria) (*Book, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

// Patch applies a partial update, leaving zero-valued fields untouched.
func (r *books) Patch(ctx context.Context, record *Book) (*Book, error) {
	return r.Repository.Update(ctx, record,
		repository.UpdateByID(record.ID.String()),
		repository.UpdateSkipZeroValues(),
	)
}

func (r *books) List(ctx context.Context, page, pageSize int) (*BookPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	records := make([]*Book, 0, pageSize)
	total, err := r.db.NewSelect().
		Model(&records).
		Order("bok.created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, err
	}

	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	result := &BookPage{
		Books:      records,
		TotalBooks: total,
		TotalPages: totalPages,
	}

	if page > 1 && page <= totalPages+1 {
		prev := page - 1
		result.PrevPage = &prev
	}
	if page < totalPages {
		next := page + 1
		result.NextPage = &next
	}

	return result, nil
}

func (r *books) SetCoverImage(ctx context.Context, id uuid.UUID, key string) (*Book, error) {
	record := &Book{}
	record.ID = id
	record.CoverImage = key

	return r.Repository.Update(ctx, record,
		repository.UpdateByID(id.String()),
		repository.UpdateSkipZeroValues(),
	)
}

// DeleteByID soft deletes the record; the soft_delete tag on the model
// turns this into an update of deleted_at.
func (r *books) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*Book)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

const (
	// DefaultPageSize bounds catalog listings when clients omit page_size.
	DefaultPageSize = 10
	// MaxPageSize caps page_size to keep result sets bounded.
	MaxPageSize = 100
)
