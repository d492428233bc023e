package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/dbx"
	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/passwords"
	rolesrepo "github.com/dmitrijs2005/gophidentity/internal/server/repositories/roles"
	usersrepo "github.com/dmitrijs2005/gophidentity/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory identity store with the same observable
// behaviour as the postgres repositories.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	roles   map[string]*models.Role
	members map[string]map[string]bool // user id -> role id

	getErr    error
	createErr error
	rolesErr  error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*models.User{},
		roles:   map[string]*models.Role{},
		members: map[string]map[string]bool{},
	}
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.createErr != nil {
		return nil, r.s.createErr
	}
	for _, e := range r.s.users {
		if e.NormalizedUserName == u.NormalizedUserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r memUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.getErr != nil {
		return nil, r.s.getErr
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *u
	return &c, nil
}

func (r memUsers) GetUserByLogin(ctx context.Context, normalized string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.getErr != nil {
		return nil, r.s.getErr
	}
	for _, u := range r.s.users {
		if u.NormalizedUserName == normalized {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) UpdateProfile(ctx context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return common.ErrorNotFound
	}
	for id, e := range r.s.users {
		if id != u.ID && e.NormalizedUserName == u.NormalizedUserName {
			return common.ErrorAlreadyExists
		}
	}
	cur.UserName, cur.NormalizedUserName, cur.Email, cur.FullName = u.UserName, u.NormalizedUserName, u.Email, u.FullName
	return nil
}

func (r memUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	cur.PasswordHash = hash
	return nil
}

func (r memUsers) RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (models.LockoutState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[id]
	if !ok {
		return models.LockoutState{}, common.ErrorNotFound
	}
	if cur.AccessFailedCount+1 >= maxAttempts {
		cur.AccessFailedCount = 0
		end := lockoutEnd
		cur.LockoutEnd = &end
	} else {
		cur.AccessFailedCount++
	}
	return models.LockoutState{AccessFailedCount: cur.AccessFailedCount, LockoutEnd: cur.LockoutEnd}, nil
}

func (r memUsers) ResetLockout(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cur, ok := r.s.users[id]; ok {
		cur.AccessFailedCount = 0
		cur.LockoutEnd = nil
	}
	return nil
}

func (r memUsers) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.users, id)
	delete(r.s.members, id)
	return nil
}

type memRoles struct{ s *memStore }

func (r memRoles) Create(ctx context.Context, role *models.Role) (*models.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roles[role.NormalizedName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	c := *role
	c.ID = uuid.NewString()
	r.s.roles[c.NormalizedName] = &c
	out := c
	return &out, nil
}

func (r memRoles) GetByName(ctx context.Context, normalized string) (*models.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	role, ok := r.s.roles[normalized]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *role
	return &c, nil
}

func (r memRoles) List(ctx context.Context) ([]models.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.rolesErr != nil {
		return nil, r.s.rolesErr
	}
	out := make([]models.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NormalizedName < out[j].NormalizedName })
	return out, nil
}

func (r memRoles) AddUserToRole(ctx context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.members[userID] == nil {
		r.s.members[userID] = map[string]bool{}
	}
	r.s.members[userID][roleID] = true
	return nil
}

func (r memRoles) RemoveUserFromRole(ctx context.Context, userID, roleID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.members[userID], roleID)
	return nil
}

func (r memRoles) RolesOf(ctx context.Context, userID string) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.rolesErr != nil {
		return nil, r.s.rolesErr
	}
	names := make([]string, 0)
	for _, role := range r.s.roles {
		if r.s.members[userID][role.ID] {
			names = append(names, role.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

type fakeRepoManager struct {
	store *memStore
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return memUsers{m.store} }
func (m *fakeRepoManager) Roles(db dbx.DBTX) rolesrepo.Repository       { return memRoles{m.store} }

// fixture wires the services over the in-memory store and a sqlmock DB
// that only sees transaction boundaries.
type fixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	store    *memStore
	now      time.Time
	issuer   *auth.Issuer
	verifier *CredentialVerifier
	roles    *RoleService
	users    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	f := &fixture{
		db:    db,
		mock:  mock,
		store: newMemStore(),
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.issuer, err = auth.NewIssuer(auth.IssuerConfig{SecretKey: []byte("k"), Validity: cfg.TokenValidityDuration})
	require.NoError(t, err)
	f.issuer.WithClock(clock)

	log := logging.NewDiscardLogger()
	rm := &fakeRepoManager{store: f.store}
	hasher := passwords.NewBcryptHasher(bcrypt.MinCost)
	// the user name check is opt-in; enable it so its rejections are covered
	policy := passwords.Policy{MinLength: cfg.PasswordMinLength, DisallowUserName: true}

	f.verifier = NewCredentialVerifier(db, rm, hasher, cfg, log).WithClock(clock)
	f.roles = NewRoleService(db, rm, log)
	f.users = NewUserService(db, rm, f.verifier, f.roles, f.issuer, hasher, policy, log)

	return f
}

func (f *fixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func (f *fixture) register(t *testing.T, name, password string) *auth.Claims {
	t.Helper()
	tok, err := f.users.Register(context.Background(), name, password, name)
	require.NoError(t, err)
	claims, err := f.issuer.ParseToken(tok)
	require.NoError(t, err)
	return claims
}
