package auth

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// mockUsers stubs the narrow account repository surface the command handlers
// touch. The embedded interface covers the rest; calling an unstubbed method
// panics, which is the point.
type mockUsers struct {
	mock.Mock
	Users
}

func (m *mockUsers) GetByUname(ctx context.Context, uname string) (*User, error) {
	args := m.Called(ctx, uname)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *mockUsers) GetByUnameTx(ctx context.Context, tx bun.IDB, uname string) (*User, error) {
	args := m.Called(ctx, tx, uname)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *mockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	args := m.Called(ctx, tx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *mockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	args := m.Called(ctx, tx, record)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *mockUsers) UpdateProfileTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	args := m.Called(ctx, tx, record)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *mockUsers) UpdateLastSeenTx(ctx context.Context, tx bun.IDB, uname string) error {
	args := m.Called(ctx, tx, uname)
	return args.Error(0)
}

func (m *mockUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, uname, pswHash string) error {
	args := m.Called(ctx, tx, uname, pswHash)
	return args.Error(0)
}

func (m *mockUsers) ConfirmEmailTx(ctx context.Context, tx bun.IDB, uname, email string) error {
	args := m.Called(ctx, tx, uname, email)
	return args.Error(0)
}

func userArg(v any) *User {
	if v == nil {
		return nil
	}
	return v.(*User)
}

// mockRepo satisfies RepositoryManager with an inline transaction that just
// invokes the callback.
type mockRepo struct {
	users Users
}

func (m *mockRepo) Users() Users    { return m.users }
func (m *mockRepo) Validate() error { return nil }
func (m *mockRepo) MustValidate()   {}

func (m *mockRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendConfirmEmail(ctx context.Context, email, uname, token string) error {
	args := m.Called(ctx, email, uname, token)
	return args.Error(0)
}

func (m *mockMailer) SendResetEmail(ctx context.Context, email, uname, token string) error {
	args := m.Called(ctx, email, uname, token)
	return args.Error(0)
}

// recordingSink keeps every event it sees.
type recordingSink struct {
	events []ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

// testConfig is a fixed Config for handler tests.
type testConfig struct {
	secret string
	admin  string
}

func (c testConfig) GetSigningKey() string  { return c.secret }
func (c testConfig) GetHashCost() int       { return 4 }
func (c testConfig) GetAdminUname() string  { return c.admin }
func (c testConfig) GetBindAddress() string { return "127.0.0.1:0" }
func (c testConfig) GetDSN() string         { return "file::memory:" }
func (c testConfig) GetPoolWorkers() int    { return 2 }
func (c testConfig) GetPoolBacklog() int    { return 4 }
