package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentworks/rentworks-backend/internal/audit"
	pkgAuth "github.com/rentworks/rentworks-backend/pkg/auth"
	"github.com/rentworks/rentworks-backend/pkg/auth/session"
	"github.com/rentworks/rentworks-backend/pkg/config"
	"github.com/rentworks/rentworks-backend/pkg/db/models"
	"github.com/rentworks/rentworks-backend/pkg/enums"
	pkgerrors "github.com/rentworks/rentworks-backend/pkg/errors"
	"github.com/rentworks/rentworks-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "unit-test-secret",
		Issuer:            "rentworks-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     8,
		ArgonKeyLen:      16,
	}
}

type stubUserRepo struct {
	user      *models.User
	lastLogin *time.Time
}

func (r *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.user == nil || r.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *r.user
	return &copied, nil
}

func (r *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.lastLogin = &at
	return nil
}

type stubSessions struct {
	tokens  map[string]string
	revoked []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{tokens: make(map[string]string)}
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.tokens, oldAccessID)
	newID := session.NewAccessID()
	newToken := "refresh-" + newID
	s.tokens[newID] = newToken
	return newID, newToken, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	delete(s.tokens, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubAudit struct {
	entries []audit.Entry
}

func (a *stubAudit) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

func newTestService(t *testing.T) (Service, *stubUserRepo, *stubSessions, *stubAudit) {
	t.Helper()

	hash, err := security.HashPassword("correct horse", testPasswordConfig())
	require.NoError(t, err)

	repo := &stubUserRepo{user: &models.User{
		ID:           uuid.New(),
		Email:        "staff@example.com",
		PasswordHash: hash,
		FullName:     "Sam Staff",
		Role:         enums.UserRoleStaff,
		IsActive:     true,
	}}
	sessions := newStubSessions()
	recorder := &stubAudit{}

	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		AuditRecorder:  recorder,
		JWTConfig:      testJWTConfig(),
	})
	require.NoError(t, err)
	return svc, repo, sessions, recorder
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, repo, _, recorder := newTestService(t)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Staff@Example.com ",
		Password: "correct horse",
	})
	require.NoError(t, err)

	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, repo.lastLogin)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, repo.user.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleStaff, claims.Role)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, enums.AuditActionLogin, recorder.entries[0].Action)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "staff@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.user.IsActive = false

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "staff@example.com",
		Password: "correct horse",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct horse",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, sessions, _ := newTestService(t)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "staff@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.AccessToken, RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the old pair is burned
	_, err = svc.Refresh(context.Background(), login.AccessToken, RefreshRequest{
		RefreshToken: login.RefreshToken,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	assert.Len(t, sessions.tokens, 1)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions, _ := newTestService(t)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "staff@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims.ID))
	assert.Empty(t, sessions.tokens)
}
