package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	"github.com/rentworks/rentworks-backend/pkg/config"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/pagination"
	"github.com/rentworks/rentworks-backend/pkg/security"
)

// low-cost argon parameters keep hashing fast in tests
func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
		MinLength:        8,
	}
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAudit struct {
	entries []audit.Entry
}

func (a *stubAudit) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type stubRepo struct {
	byID map[uuid.UUID]*models.User
}

func newStubRepo() *stubRepo {
	return &stubRepo{byID: make(map[uuid.UUID]*models.User)}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) Create(ctx context.Context, user *models.User) error {
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *stubRepo) Update(ctx context.Context, user *models.User) error {
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *stubRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.byID {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.User, error) {
	return nil, nil
}

func (r *stubRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if user, ok := r.byID[id]; ok {
		user.LastLoginAt = &at
	}
	return nil
}

func (r *stubRepo) CountByRole(ctx context.Context, role enums.UserRole) (int64, error) {
	var count int64
	for _, user := range r.byID {
		if user.Role == role && user.IsActive {
			count++
		}
	}
	return count, nil
}

func newTestService(t *testing.T) (Service, *stubRepo, *stubAudit) {
	t.Helper()
	repo := newStubRepo()
	recorder := &stubAudit{}
	svc, err := NewService(repo, stubTx{}, recorder, testPasswordConfig())
	require.NoError(t, err)
	return svc, repo, recorder
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo, recorder := newTestService(t)

	user, temp, err := svc.Create(context.Background(), CreateInput{
		Email:    " Admin@Example.COM ",
		FullName: "Alex Admin",
		Role:     enums.UserRoleAdmin,
		Password: "s3cret-pass",
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com", user.Email)
	assert.Empty(t, temp)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	stored := repo.byID[user.ID]
	ok, err := security.VerifyPassword("s3cret-pass", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, recorder.entries, 1)
}

func TestCreateGeneratesTempPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	user, temp, err := svc.Create(context.Background(), CreateInput{
		Email:    "staff@example.com",
		FullName: "Sam Staff",
		Role:     enums.UserRoleStaff,
	})
	require.NoError(t, err)
	require.NotEmpty(t, temp)

	ok, err := security.VerifyPassword(temp, user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateRejectsShortPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.Create(context.Background(), CreateInput{
		Email:    "staff@example.com",
		FullName: "Sam Staff",
		Role:     enums.UserRoleStaff,
		Password: "short",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func seedUser(t *testing.T, svc Service, role enums.UserRole, email string) *models.User {
	t.Helper()
	user, _, err := svc.Create(context.Background(), CreateInput{
		Email:    email,
		FullName: "Seeded User",
		Role:     role,
		Password: "initial-pass",
	})
	require.NoError(t, err)
	return user
}

func TestSetActiveProtectsLastAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	admin := seedUser(t, svc, enums.UserRoleAdmin, "admin@example.com")

	_, err := svc.SetActive(context.Background(), admin.ID, false, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	seedUser(t, svc, enums.UserRoleAdmin, "admin2@example.com")
	deactivated, err := svc.SetActive(context.Background(), admin.ID, false, uuid.New())
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
}

func TestSetRoleProtectsLastAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	admin := seedUser(t, svc, enums.UserRoleAdmin, "admin@example.com")

	_, err := svc.SetRole(context.Background(), admin.ID, enums.UserRoleStaff, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	seedUser(t, svc, enums.UserRoleAdmin, "admin2@example.com")
	demoted, err := svc.SetRole(context.Background(), admin.ID, enums.UserRoleManager, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleManager, demoted.Role)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user := seedUser(t, svc, enums.UserRoleStaff, "staff@example.com")

	err := svc.ChangePassword(context.Background(), user.ID, "wrong-pass", "new-password-1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	err = svc.ChangePassword(context.Background(), user.ID, "initial-pass", "new-password-1")
	require.NoError(t, err)

	ok, err := security.VerifyPassword("new-password-1", repo.byID[user.ID].PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetPasswordIssuesTemp(t *testing.T) {
	svc, repo, _ := newTestService(t)
	user := seedUser(t, svc, enums.UserRoleStaff, "staff@example.com")

	temp, err := svc.ResetPassword(context.Background(), user.ID, uuid.New())
	require.NoError(t, err)
	require.NotEmpty(t, temp)

	ok, err := security.VerifyPassword(temp, repo.byID[user.ID].PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("initial-pass", repo.byID[user.ID].PasswordHash)
	require.NoError(t, err)
	assert.False(t, ok)
}
