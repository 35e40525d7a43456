package bookstore

import (
	"fmt"
	"path"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/goliatone/go-bookstore/imagestore"
)

// allowedImageTypes is the cover upload content type allowlist.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type BooksController struct {
	Logger Logger
	Repo   RepositoryManager
	Images imagestore.Store
}

type BooksControllerOption func(*BooksController) *BooksController

func NewBooksController(opts ...BooksControllerOption) *BooksController {
	c := &BooksController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in books controller...")
	}

	return c
}

func WithBooksLogger(l Logger) BooksControllerOption {
	return func(c *BooksController) *BooksController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithImageStore(store imagestore.Store) BooksControllerOption {
	return func(c *BooksController) *BooksController {
		c.Images = store
		return c
	}
}

// RegisterBookRoutes mounts the catalog endpoints. Reads are public;
// mutations require an admin session.
func RegisterBookRoutes(app fiber.Router, auther Authenticator, opts ...BooksControllerOption) *BooksController {
	controller := NewBooksController(opts...)

	admin := []fiber.Handler{Protected(auther, controller.Logger), RequireRole(RoleAdmin)}

	app.Get("/books", controller.List)
	// Static segment must register ahead of the :id parameter.
	app.Post("/books/upload", append(admin, controller.Upload)...)
	app.Get("/books/:id", controller.Show)
	app.Post("/books", append(admin, controller.Create)...)
	app.Patch("/books/:id", append(admin, controller.Patch)...)
	app.Delete("/books/:id", append(admin, controller.Delete)...)
	app.Post("/books/:id/cover", append(admin, controller.UploadCover)...)

	return controller
}

// BookPayload is the create/update body
type BookPayload struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Price         float64 `json:"price"`
	PublishedDate string  `json:"published_date"`
}

// Validate will validate the payload
func (r BookPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, MaxTitleLength)),
		validation.Field(&r.Author, validation.Required, validation.Length(1, MaxAuthorLength)),
		validation.Field(&r.Price, validation.Required, validation.Min(0.01)),
		validation.Field(&r.PublishedDate, validation.Date("2006-01-02")),
	)
}

// ValidatePartial relaxes required fields for PATCH semantics.
func (r BookPayload) ValidatePartial() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(1, MaxTitleLength)),
		validation.Field(&r.Author, validation.Length(1, MaxAuthorLength)),
		validation.Field(&r.Price, validation.Min(0.0)),
		validation.Field(&r.PublishedDate, validation.Date("2006-01-02")),
	)
}

func (b *BooksController) List(ctx *fiber.Ctx) error {
	page := ctx.QueryInt("page", 1)
	pageSize := ctx.QueryInt("page_size", DefaultPageSize)

	if page < 1 {
		return RenderError(ctx, goerrors.New("page must be >= 1", goerrors.CategoryBadInput))
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return RenderError(ctx, goerrors.New(
			fmt.Sprintf("page_size must be between 1 and %d", MaxPageSize),
			goerrors.CategoryBadInput,
		))
	}

	result, err := b.Repo.Books().List(ctx.UserContext(), page, pageSize)
	if err != nil {
		b.Logger.Error("book list error", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list books"))
	}

	return ctx.JSON(result)
}

func (b *BooksController) Show(ctx *fiber.Ctx) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return RenderError(ctx, err)
	}

	book, err := b.Repo.Books().GetByID(ctx.UserContext(), id.String())
	if err != nil {
		return RenderError(ctx, bookNotFound(err, id))
	}

	return ctx.JSON(book)
}

func (b *BooksController) Create(ctx *fiber.Ctx) error {
	payload := new(BookPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	record := &Book{
		Title:  payload.Title,
		Author: payload.Author,
		Price:  payload.Price,
	}

	if payload.PublishedDate != "" {
		published, err := time.Parse("2006-01-02", payload.PublishedDate)
		if err != nil {
			return RenderError(ctx, goerrors.New("published_date must be YYYY-MM-DD", goerrors.CategoryValidation))
		}
		record.PublishedDate = &published
	}

	if identity, ok := IdentityFromFiber(ctx); ok {
		if ownerID, err := uuid.Parse(identity.ID()); err == nil {
			record.OwnerID = &ownerID
		}
	}

	book, err := b.Repo.Books().Create(ctx.UserContext(), record)
	if err != nil {
		b.Logger.Error("book create error", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create book"))
	}

	return ctx.Status(fiber.StatusCreated).JSON(book)
}

func (b *BooksController) Patch(ctx *fiber.Ctx) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return RenderError(ctx, err)
	}

	payload := new(BookPayload)
	if err := ctx.BodyParser(payload); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.ValidatePartial(); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	if _, err := b.Repo.Books().GetByID(ctx.UserContext(), id.String()); err != nil {
		return RenderError(ctx, bookNotFound(err, id))
	}

	record := &Book{
		Title:  payload.Title,
		Author: payload.Author,
		Price:  payload.Price,
	}
	record.ID = id

	if payload.PublishedDate != "" {
		published, err := time.Parse("2006-01-02", payload.PublishedDate)
		if err != nil {
			return RenderError(ctx, goerrors.New("published_date must be YYYY-MM-DD", goerrors.CategoryValidation))
		}
		record.PublishedDate = &published
	}

	book, err := b.Repo.Books().Patch(ctx.UserContext(), record)
	if err != nil {
		b.Logger.Error("book patch error", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update book"))
	}

	return ctx.JSON(book)
}

func (b *BooksController) Delete(ctx *fiber.Ctx) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return RenderError(ctx, err)
	}

	if _, err := b.Repo.Books().GetByID(ctx.UserContext(), id.String()); err != nil {
		return RenderError(ctx, bookNotFound(err, id))
	}

	if err := b.Repo.Books().DeleteByID(ctx.UserContext(), id); err != nil {
		b.Logger.Error("book delete error", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete book"))
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (b *BooksController) Upload(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return RenderError(ctx, goerrors.New("missing file form field", goerrors.CategoryBadInput))
	}

	src, err := file.Open()
	if err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to open uploaded file"))
	}
	defer src.Close()

	var res *ImportBooksResponse
	req := ImportBooksMessage{
		Reader: src,
		OnResponse: func(r *ImportBooksResponse) {
			res = r
		},
	}

	importer := ImportBooksHandler{Repo: b.Repo}
	if err := importer.Execute(ctx.UserContext(), req); err != nil {
		b.Logger.Error("book import error", "error", err)
		return RenderError(ctx, err)
	}

	return ctx.JSON(res)
}

func (b *BooksController) UploadCover(ctx *fiber.Ctx) error {
	if b.Images == nil {
		return RenderError(ctx, goerrors.New("image storage is not configured", goerrors.CategoryInternal))
	}

	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return RenderError(ctx, err)
	}

	if _, err := b.Repo.Books().GetByID(ctx.UserContext(), id.String()); err != nil {
		return RenderError(ctx, bookNotFound(err, id))
	}

	file, err := ctx.FormFile("image")
	if err != nil {
		return RenderError(ctx, goerrors.New("missing image form field", goerrors.CategoryBadInput))
	}

	contentType := file.Header.Get(fiber.HeaderContentType)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return RenderError(ctx, ErrInvalidImageFormat.Clone().WithMetadata(map[string]any{
			"content_type": contentType,
		}))
	}

	src, err := file.Open()
	if err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to open uploaded file"))
	}
	defer src.Close()

	key := imageObjectKey("books", ext)

	if err := b.Images.Upload(ctx.UserContext(), key, contentType, src); err != nil {
		b.Logger.Error("cover upload error", "error", err, "book_id", id.String())
		return RenderError(ctx, ErrImageUploadFailed)
	}

	book, err := b.Repo.Books().SetCoverImage(ctx.UserContext(), id, key)
	if err != nil {
		b.Logger.Error("cover persist error", "error", err, "book_id", id.String())
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist cover image"))
	}

	return ctx.JSON(book)
}

// imageObjectKey builds a date-bucketed storage key for uploads.
func imageObjectKey(prefix, ext string) string {
	now := nowFunc()
	return path.Join(prefix,
		fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()),
		uuid.NewString()+ext,
	)
}

func parseUUIDParam(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, goerrors.New("invalid id, expected a UUID", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	return id, nil
}

func bookNotFound(err error, id uuid.UUID) error {
	if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
		return goerrors.New("book not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"id": id.String()})
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load book")
}
