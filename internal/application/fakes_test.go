package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/user-account-service/internal/domain/apperr"
	"github.com/oksasatya/user-account-service/internal/domain/repository"
	"github.com/oksasatya/user-account-service/internal/infrastructure/memory"
)

type stubEmails struct{ err error }

func (s stubEmails) ValidateEmail(string) error { return s.err }

// recordingPasswords remembers the owner email it was asked about.
type recordingPasswords struct {
	err        error
	ownerEmail string
}

func (r *recordingPasswords) ValidatePassword(_, ownerEmail string) error {
	r.ownerEmail = ownerEmail
	return r.err
}

type prefixHasher struct{}

func (prefixHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "hashed:" + password, nil
}

func (prefixHasher) Compare(_ context.Context, password, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "hashed:") {
		return false, errors.New("unsupported hash")
	}
	return hash == "hashed:"+password, nil
}

type recordingNotifier struct {
	mu         sync.Mutex
	err        error
	changed    []AccountEvent
	registered []AccountEvent
}

func (n *recordingNotifier) AccountRegistered(_ context.Context, ev AccountEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registered = append(n.registered, ev)
	return n.err
}

func (n *recordingNotifier) AccountChanged(_ context.Context, ev AccountEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, ev)
	return n.err
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) AllocateID(ctx context.Context) (uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (repository.UserRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.UserRecord), args.Error(1)
}

func (m *mockRepository) FindByEmail(ctx context.Context, email string) (repository.UserRecord, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(repository.UserRecord), args.Error(1)
}

func (m *mockRepository) Save(ctx context.Context, rec repository.UserRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func record(id uuid.UUID, email, state, status string) repository.UserRecord {
	return repository.UserRecord{ID: id, Email: email, State: state, Status: status, PasswordHash: "hashed:old", Version: 1}
}

// fixture holds an Active admin A and an Active user B (b@x.com) in a memory store.
type fixture struct {
	repo     *memory.UserRepository
	admin    repository.UserRecord
	user     repository.UserRecord
	notifier *recordingNotifier
	policy   *recordingPasswords
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     memory.NewUserRepository(),
		admin:    record(uuid.New(), "a@x.com", "active", "admin"),
		user:     record(uuid.New(), "b@x.com", "active", "user"),
		notifier: &recordingNotifier{},
		policy:   &recordingPasswords{},
	}
	require.NoError(t, f.repo.Save(context.Background(), f.admin))
	require.NoError(t, f.repo.Save(context.Background(), f.user))
	return f
}

func (f *fixture) changeUser() *ChangeUser {
	return NewChangeUser(f.repo, stubEmails{}, f.policy, prefixHasher{}, f.notifier, nil)
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) repository.UserRecord {
	t.Helper()
	rec, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (f *fixture) put(t *testing.T, rec repository.UserRecord) {
	t.Helper()
	require.NoError(t, f.repo.Save(context.Background(), rec))
}

func ptr(s string) *string { return &s }

var errInvalidEmail = apperr.InvalidData("email is not valid")
