package bookstore

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/goliatone/go-bookstore/imagestore"
)

type UsersController struct {
	Logger Logger
	Repo   RepositoryManager
	Images imagestore.Store
}

type UsersControllerOption func(*UsersController) *UsersController

func NewUsersController(opts ...UsersControllerOption) *UsersController {
	c := &UsersController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in users controller...")
	}

	return c
}

func WithUsersLogger(l Logger) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithUsersImageStore(store imagestore.Store) UsersControllerOption {
	return func(c *UsersController) *UsersController {
		c.Images = store
		return c
	}
}

// RegisterUserRoutes mounts the account management endpoints. Role changes
// and deletion are admin only; the profile image upload is open to any
// authenticated account.
func RegisterUserRoutes(app fiber.Router, auther Authenticator, opts ...UsersControllerOption) *UsersController {
	controller := NewUsersController(opts...)

	admin := []fiber.Handler{Protected(auther, controller.Logger), RequireRole(RoleAdmin)}

	app.Post("/users/me/image", Protected(auther, controller.Logger), controller.UploadProfileImage)
	app.Patch("/users/:id", append(admin, controller.PatchRole)...)
	app.Delete("/users/:id", append(admin, controller.Delete)...)

	return controller
}

// UserRolePayload is the role change body
type UserRolePayload struct {
	Role string `json:"role"`
}

// Validate will validate the payload
func (r UserRolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required),
	)
}

func (u *UsersController) PatchRole(ctx *fiber.Ctx) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return RenderError(ctx, err)
	}

	payload := new(UserRolePayload)
	if err := ctx.BodyParser(payload); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	role, err := ParseRole(payload.Role)
	if err != nil {
		return RenderError(ctx, err)
	}

	if _, err := u.Repo.Users().GetByID(ctx.UserContext(), id.String()); err != nil {
		return RenderError(ctx, userNotFound(err, id))
	}

	user, err := u.Repo.Users().UpdateRole(ctx.UserContext(), id, role)
	if err != nil {
		u.Logger.Error("user role update error", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update role"))
	}

	return ctx.JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	})
}

func (u *UsersController) Delete(ctx *fiber.Ctx) error {
	id, err := parseUUIDParam(ctx, "id")
	if err != nil {
		return RenderError(ctx, err)
	}

	if _, err := u.Repo.Users().GetByID(ctx.UserContext(), id.String()); err != nil {
		return RenderError(ctx, userNotFound(err, id))
	}

	if err := u.Repo.Users().DeleteByID(ctx.UserContext(), id); err != nil {
		u.Logger.Error("user delete error", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user"))
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// UploadProfileImage stores an avatar for the authenticated account.
func (u *UsersController) UploadProfileImage(ctx *fiber.Ctx) error {
	if u.Images == nil {
		return RenderError(ctx, goerrors.New("image storage is not configured", goerrors.CategoryInternal))
	}

	identity, ok := IdentityFromFiber(ctx)
	if !ok {
		return RenderError(ctx, ErrUnableToFindSession)
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "session identity has no usable id"))
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

	key := imageObjectKey("users", ext)

	if err := u.Images.Upload(ctx.UserContext(), key, contentType, src); err != nil {
		u.Logger.Error("profile image upload error", "error", err, "user_id", id.String())
		return RenderError(ctx, ErrImageUploadFailed)
	}

	user, err := u.Repo.Users().SetProfileImage(ctx.UserContext(), id, key)
	if err != nil {
		u.Logger.Error("profile image persist error", "error", err, "user_id", id.String())
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile image"))
	}

	return ctx.JSON(user)
}

func userNotFound(err error, id uuid.UUID) error {
	if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
		return goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"id": id.String()})
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
}
