package bookstore_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookstore "github.com/goliatone/go-bookstore"
)

type authStack struct {
	app      *fiber.App
	repo     bookstore.RepositoryManager
	notifier *stubNotifier
	auther   bookstore.Authenticator
}

func setupAuthStack(t *testing.T) *authStack {
	t.Helper()

	repo := setupRepoManager(t)
	notifier := &stubNotifier{}

	hasher := testHasher()
	provider := bookstore.NewUserProvider(repo.Users(), hasher).WithLogger(testLogger{})
	tokens := bookstore.NewTokenService(testSigningKey, 60, "go-bookstore", testLogger{})
	auther := bookstore.NewAuthenticator(provider, tokens).WithLogger(testLogger{})

	app := fiber.New()
	bookstore.RegisterAuthRoutes(app,
		func(c *bookstore.AuthController) *bookstore.AuthController {
			c.Repo = repo
			c.Auther = auther
			c.Hasher = hasher
			c.Notifier = notifier
			return c
		},
		bookstore.WithAuthLogger(testLogger{}),
	)

	return &authStack{app: app, repo: repo, notifier: notifier, auther: auther}
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func decodeJSON(t *testing.T, res *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	defer res.Body.Close()

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("Creates an account", func(t *testing.T) {
		stack := setupAuthStack(t)

		res := postJSON(t, stack.app, "/auth/register", fiber.Map{
			"email":    "reader@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		body := decodeJSON(t, res)
		assert.Equal(t, "reader@example.com", body["email"])
		assert.Equal(t, "user", body["role"])
		assert.NotEmpty(t, body["id"])

		require.Len(t, stack.notifier.deliveries(), 1)
	})

	t.Run("Duplicate email answers 409", func(t *testing.T) {
		stack := setupAuthStack(t)
		seedUser(t, stack.repo, "reader@example.com", "password123", bookstore.RoleUser, false)

		res := postJSON(t, stack.app, "/auth/register", fiber.Map{
			"email":    "reader@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusConflict, res.StatusCode)

		body := decodeJSON(t, res)
		assert.Equal(t, bookstore.TextCodeEmailTaken, body["code"])
	})

	t.Run("Validation failures answer 400", func(t *testing.T) {
		stack := setupAuthStack(t)

		tests := []fiber.Map{
			{"email": "not-an-email", "password": "password123"},
			{"email": "reader@example.com", "password": "short"},
			{"email": "", "password": "password123"},
			{"email": "reader@example.com", "password": ""},
		}

		for _, payload := range tests {
			res := postJSON(t, stack.app, "/auth/register", payload)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
		}
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("Issues a session", func(t *testing.T) {
		stack := setupAuthStack(t)
		seedUser(t, stack.repo, "reader@example.com", "password123", bookstore.RoleUser, true)

		res := postJSON(t, stack.app, "/auth/login", fiber.Map{
			"email":    "reader@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, res.StatusCode)

		body := decodeJSON(t, res)
		assert.NotEmpty(t, body["access_token"])
		assert.Equal(t, "bearer", body["token_type"])
		assert.Equal(t, float64(3600), body["expires_in"])
		assert.Equal(t, "user", body["role"])

		var cookie *http.Cookie
		for _, c := range res.Cookies() {
			if c.Name == bookstore.SessionCookieName {
				cookie = c
			}
		}
		require.NotNil(t, cookie, "session cookie must be set")
		assert.Equal(t, body["access_token"], cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	})

	t.Run("Wrong password answers 401", func(t *testing.T) {
		stack := setupAuthStack(t)
		seedUser(t, stack.repo, "reader@example.com", "password123", bookstore.RoleUser, true)

		res := postJSON(t, stack.app, "/auth/login", fiber.Map{
			"email":    "reader@example.com",
			"password": "wrong-password",
		})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

		body := decodeJSON(t, res)
		assert.Equal(t, bookstore.TextCodeInvalidCreds, body["code"])
	})

	t.Run("Unknown email answers 401 too", func(t *testing.T) {
		stack := setupAuthStack(t)

		res := postJSON(t, stack.app, "/auth/login", fiber.Map{
			"email":    "nobody@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})
}

func TestVerifyEndpoint(t *testing.T) {
	t.Run("Redeems the mailed token", func(t *testing.T) {
		stack := setupAuthStack(t)

		res := postJSON(t, stack.app, "/auth/register", fiber.Map{
			"email":    "reader@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		deliveries := stack.notifier.deliveries()
		require.Len(t, deliveries, 1)

		req := httptest.NewRequest(http.MethodGet, "/auth/verify?token="+deliveries[0].Token, nil)
		verifyRes, err := stack.app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, verifyRes.StatusCode)

		body := decodeJSON(t, verifyRes)
		assert.Equal(t, true, body["verified"])

		user, err := stack.repo.Users().GetByEmail(req.Context(), "reader@example.com")
		require.NoError(t, err)
		assert.True(t, user.EmailValidated)
	})

	t.Run("Missing token answers 400", func(t *testing.T) {
		stack := setupAuthStack(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
		res, err := stack.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("Unknown token answers 404", func(t *testing.T) {
		stack := setupAuthStack(t)

		req := httptest.NewRequest(http.MethodGet, "/auth/verify?token=bogus", nil)
		res, err := stack.app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("Repeating a verify answers 404", func(t *testing.T) {
		stack := setupAuthStack(t)

		res := postJSON(t, stack.app, "/auth/register", fiber.Map{
			"email":    "reader@example.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)

		deliveries := stack.notifier.deliveries()
		require.Len(t, deliveries, 1)
		target := "/auth/verify?token=" + deliveries[0].Token

		first, err := stack.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, first.StatusCode)

		// A consumed token is indistinguishable from an unknown one.
		second, err := stack.app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, second.StatusCode)

		body := decodeJSON(t, second)
		assert.Equal(t, bookstore.TextCodeTokenUsed, body["code"])
	})
}

func TestResendEndpoint(t *testing.T) {
	t.Run("Queues a fresh token", func(t *testing.T) {
		stack := setupAuthStack(t)
		seedUser(t, stack.repo, "reader@example.com", "password123", bookstore.RoleUser, false)

		res := postJSON(t, stack.app, "/auth/resend-verification-token", fiber.Map{
			"email": "reader@example.com",
		})
		require.Equal(t, http.StatusAccepted, res.StatusCode)

		require.Len(t, stack.notifier.deliveries(), 1)
	})

	t.Run("Already verified answers 409", func(t *testing.T) {
		stack := setupAuthStack(t)
		seedUser(t, stack.repo, "reader@example.com", "password123", bookstore.RoleUser, true)

		res := postJSON(t, stack.app, "/auth/resend-verification-token", fiber.Map{
			"email": "reader@example.com",
		})
		assert.Equal(t, http.StatusConflict, res.StatusCode)
	})

	t.Run("Unknown email answers 404", func(t *testing.T) {
		stack := setupAuthStack(t)

		res := postJSON(t, stack.app, "/auth/resend-verification-token", fiber.Map{
			"email": "nobody@example.com",
		})
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}
