package bookstore_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	bookstore "github.com/goliatone/go-bookstore"
)

// testSigningKey is shared by every token-issuing test.
var testSigningKey = []byte("test-signing-key")

func setupRepoManager(t *testing.T) bookstore.RepositoryManager {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{
		(*bookstore.User)(nil),
		(*bookstore.VerificationToken)(nil),
		(*bookstore.Book)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return bookstore.NewRepositoryManager(db)
}

// testHasher keeps bcrypt cheap so suites stay fast.
func testHasher() *bookstore.Hasher {
	return bookstore.NewHasher(bcrypt.MinCost)
}

func seedUser(t *testing.T, repo bookstore.RepositoryManager, email, password string, role bookstore.Role, verified bool) *bookstore.User {
	t.Helper()

	hash, err := testHasher().Hash(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &bookstore.User{
		Email:          email,
		PasswordHash:   hash,
		Role:           role,
		EmailValidated: verified,
	})
	require.NoError(t, err)

	return user
}

func seedBook(t *testing.T, repo bookstore.RepositoryManager, title, author string, price float64) *bookstore.Book {
	t.Helper()

	book, err := repo.Books().Create(context.Background(), &bookstore.Book{
		Title:  title,
		Author: author,
		Price:  price,
	})
	require.NoError(t, err)

	return book
}

// MockAuthenticator implements bookstore.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*bookstore.Session, error) {
	args := m.Called(ctx, email, password)
	if session, ok := args.Get(0).(*bookstore.Session); ok {
		return session, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (bookstore.AuthClaims, error) {
	args := m.Called(token)
	if claims, ok := args.Get(0).(bookstore.AuthClaims); ok {
		return claims, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAuthenticator) IdentityFromClaims(ctx context.Context, claims bookstore.AuthClaims) (bookstore.Identity, error) {
	args := m.Called(ctx, claims)
	if identity, ok := args.Get(0).(bookstore.Identity); ok {
		return identity, args.Error(1)
	}
	return nil, args.Error(1)
}

// mockIdentity implements bookstore.Identity
type mockIdentity struct {
	id    string
	email string
	role  bookstore.Role
}

func (m mockIdentity) ID() string           { return m.id }
func (m mockIdentity) Email() string        { return m.email }
func (m mockIdentity) Role() bookstore.Role { return m.role }

type sentMail struct {
	To    string
	Token string
}

// stubNotifier records verification mail instead of sending it.
type stubNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (s *stubNotifier) SendVerificationEmail(_ context.Context, to, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{To: to, Token: token})
	return nil
}

func (s *stubNotifier) deliveries() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMail{}, s.sent...)
}

// testLogger swallows output so test runs stay quiet.
type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
