package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	bookstore "github.com/goliatone/go-bookstore"
	"github.com/goliatone/go-bookstore/imagestore"
	"github.com/goliatone/go-bookstore/notify"
)

type App struct {
	config bookstore.Config
	bunDB  *bun.DB
	repo   bookstore.RepositoryManager
	auth   bookstore.Authenticator
	hasher *bookstore.Hasher
	mail   *notify.Queue
	srv    *fiber.App
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("bookstore"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := bookstore.LoadConfig()
	if err != nil {
		lgr.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.UsingPlaceholderKey() {
		lgr.Warn("SECRET_KEY not set, using the development placeholder")
	}

	app := &App{
		config: cfg,
		logger: lgr,
		hasher: bookstore.NewHasher(cfg.BcryptCost),
	}

	ctx := context.Background()

	if err := WithPersistence(ctx, app); err != nil {
		lgr.Error("persistence bootstrap failed", "error", err)
		os.Exit(1)
	}

	WithMailQueue(ctx, app)
	WithAuth(app)

	if err := WithHTTPServer(app); err != nil {
		lgr.Error("http bootstrap failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := app.srv.Listen(cfg.ServerAddr); err != nil {
			lgr.Error("server stopped", "error", err)
		}
	}()

	WaitExitSignal()

	if err := app.srv.Shutdown(); err != nil {
		lgr.Error("server shutdown error", "error", err)
	}
	app.mail.Stop()
}

func WithPersistence(ctx context.Context, app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.config.DatabaseDSN)
	if err != nil {
		return err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	models := []any{
		(*bookstore.User)(nil),
		(*bookstore.VerificationToken)(nil),
		(*bookstore.Book)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}

	app.bunDB = db
	app.repo = bookstore.NewRepositoryManager(db)

	return app.repo.Validate()
}

func WithMailQueue(ctx context.Context, app *App) {
	channel := notify.NewSMTPChannel(notify.SMTPConfig{
		Host:     app.config.SMTPHost,
		Port:     app.config.SMTPPort,
		Username: app.config.SMTPUsername,
		Password: app.config.SMTPPassword,
		From:     app.config.SMTPFrom,
	})

	queue := notify.NewQueue(channel, app.config.BaseURL, app.GetLogger("mail"))
	queue.Start(ctx)

	app.mail = queue
}

func WithAuth(app *App) {
	provider := bookstore.NewUserProvider(app.repo.Users(), app.hasher)
	provider.WithLogger(app.GetLogger("auth:provider"))

	tokenService := bookstore.NewTokenService(
		[]byte(app.config.SigningKey),
		app.config.TokenExpireMinutes,
		"go-bookstore",
		app.GetLogger("auth:tokens"),
	)

	auther := bookstore.NewAuthenticator(provider, tokenService)
	auther.WithLogger(app.GetLogger("auth"))

	app.auth = auther
}

func WithHTTPServer(app *App) error {
	srv := fiber.New(fiber.Config{
		AppName: "go-bookstore",
	})

	bookstore.RegisterAuthRoutes(srv,
		func(ac *bookstore.AuthController) *bookstore.AuthController {
			ac.Repo = app.repo
			ac.Auther = app.auth
			ac.Hasher = app.hasher
			ac.Notifier = app.mail
			return ac
		},
		bookstore.WithAuthLogger(app.GetLogger("auth:http")),
	)

	bookOpts := []bookstore.BooksControllerOption{
		func(bc *bookstore.BooksController) *bookstore.BooksController {
			bc.Repo = app.repo
			return bc
		},
		bookstore.WithBooksLogger(app.GetLogger("books:http")),
	}

	userOpts := []bookstore.UsersControllerOption{
		func(uc *bookstore.UsersController) *bookstore.UsersController {
			uc.Repo = app.repo
			return uc
		},
		bookstore.WithUsersLogger(app.GetLogger("users:http")),
	}

	if app.config.S3Bucket != "" {
		store, err := imagestore.NewS3Store(context.Background(), imagestore.S3Config{
			Bucket:    app.config.S3Bucket,
			Region:    app.config.S3Region,
			Endpoint:  app.config.S3Endpoint,
			AccessKey: app.config.S3AccessKey,
			SecretKey: app.config.S3SecretKey,
		})
		if err != nil {
			return err
		}
		bookOpts = append(bookOpts, bookstore.WithImageStore(store))
		userOpts = append(userOpts, bookstore.WithUsersImageStore(store))
	}

	bookstore.RegisterBookRoutes(srv, app.auth, bookOpts...)
	bookstore.RegisterUserRoutes(srv, app.auth, userOpts...)

	app.srv = srv

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
