package bookstore

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

type AuthControllerRoutes struct {
	Register string
	Login    string
	Verify   string
	Resend   string
}

type AuthController struct {
	Logger   Logger
	Repo     RepositoryManager
	Auther   Authenticator
	Hasher   *Hasher
	Notifier Notifier
	Routes   *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register: "/auth/register",
			Login:    "/auth/login",
			Verify:   "/auth/verify",
			Resend:   "/auth/resend-verification-token",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Hasher == nil {
		c.Hasher = NewHasher(DefaultPasswordHashCost)
	}

	return c
}

func WithAuthLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// RegisterAuthRoutes mounts the account endpoints.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Get(controller.Routes.Verify, controller.VerifyGet)
	app.Post(controller.Routes.Resend, controller.ResendPost)

	return controller
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *AuthController) RegisterPost(ctx *fiber.Ctx) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload: ", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Debug("register user validate payload: ", "error", err)
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	var res *RegisterUserResponse
	req := RegisterUserMessage{
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(r *RegisterUserResponse) {
			res = r
		},
	}

	registerUser := RegisterUserHandler{
		Repo:     a.Repo,
		Hasher:   a.Hasher,
		Notifier: a.Notifier,
		Logger:   a.Logger,
	}
	if err := registerUser.Execute(ctx.UserContext(), req); err != nil {
		a.Logger.Error("register user error: ", "error", err)
		return RenderError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    res.User.ID,
		"email": res.User.Email,
		"role":  res.User.Role,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	session, err := a.Auther.Login(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Debug("login rejected", "error", err)
		return RenderError(ctx, err)
	}

	a.setCookieToken(ctx, session)

	return ctx.JSON(session)
}

func (a *AuthController) VerifyGet(ctx *fiber.Ctx) error {
	secret := ctx.Query("token")
	if secret == "" {
		return RenderError(ctx, goerrors.New("missing token query parameter", goerrors.CategoryBadInput))
	}

	var res *VerifyEmailResponse
	req := VerifyEmailMessage{
		Secret: secret,
		OnResponse: func(r *VerifyEmailResponse) {
			res = r
		},
	}

	verify := VerifyEmailHandler{Repo: a.Repo}
	if err := verify.Execute(ctx.UserContext(), req); err != nil {
		a.Logger.Debug("email verification failed", "error", err)
		return RenderError(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"verified": true,
		"user_id":  res.UserID,
	})
}

// ResendPayload is the resend-verification body
type ResendPayload struct {
	Email string `json:"email"`
}

// Validate will validate the payload
func (r ResendPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ResendPost(ctx *fiber.Ctx) error {
	payload := new(ResendPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body"))
	}

	if err := payload.Validate(); err != nil {
		return RenderError(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()))
	}

	resend := ResendVerificationHandler{
		Repo:     a.Repo,
		Notifier: a.Notifier,
		Logger:   a.Logger,
	}
	if err := resend.Execute(ctx.UserContext(), ResendVerificationMessage{Email: payload.Email}); err != nil {
		a.Logger.Debug("verification resend failed", "error", err)
		return RenderError(ctx, err)
	}

	return ctx.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "verification email queued",
	})
}

func (a *AuthController) setCookieToken(ctx *fiber.Ctx, session *Session) {
	ctx.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		MaxAge:   session.TTLSeconds,
		Expires:  nowFunc().Add(time.Duration(session.TTLSeconds) * time.Second),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
