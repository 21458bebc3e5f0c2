package auth

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/internal/affiliates"
	pkgauth "github.com/shutupnraveee/backend/pkg/auth"
	"github.com/shutupnraveee/backend/pkg/auth/session"
	"github.com/shutupnraveee/backend/pkg/config"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/security"
)

type fakeSessions struct {
	tokens       map[string]string
	lastAccessID string
	revoked      []string
	counter      int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) Generate(_ context.Context, accessID string) (string, error) {
	f.counter++
	token := fmt.Sprintf("refresh-%d", f.counter)
	f.tokens[accessID] = token
	f.lastAccessID = accessID
	return token, nil
}

func (f *fakeSessions) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := f.tokens[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	f.counter++
	newAccessID := fmt.Sprintf("access-%d", f.counter)
	newToken := fmt.Sprintf("refresh-%d", f.counter)
	f.tokens[newAccessID] = newToken
	f.lastAccessID = newAccessID
	return newAccessID, newToken, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.tokens, accessID)
	f.revoked = append(f.revoked, accessID)
	return nil
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL,
  phone_number TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS affiliates (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  ref_code TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'ACTIVE',
  password_hash TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    8,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testJWTCfg = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "shutupnraveee",
	ExpirationMinutes:      60,
	RefreshTokenTTLMinutes: 43200,
}

func newAuthService(t *testing.T, conn *gorm.DB, sessions sessionManager) Service {
	t.Helper()

	adminHash, err := security.HashPassword("admin-pass", testPasswordCfg)
	require.NoError(t, err)

	svc, err := NewService(
		affiliates.NewRepository(conn),
		sessions,
		config.AdminConfig{Email: "admin@shutupnraveee.com", PasswordHash: adminHash},
		testJWTCfg,
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
	require.NoError(t, err)
	return svc
}

func seedAffiliate(t *testing.T, conn *gorm.DB, email, password string, status enums.AffiliateStatus) *models.Affiliate {
	t.Helper()

	user := &models.User{FullName: "Partner", PhoneNumber: "+2348000000000", Email: email}
	require.NoError(t, conn.Create(user).Error)

	hash, err := security.HashPassword(password, testPasswordCfg)
	require.NoError(t, err)

	affiliate := &models.Affiliate{
		UserID:       user.ID,
		RefCode:      "partner-" + user.ID.String()[:4],
		Status:       status,
		PasswordHash: &hash,
	}
	require.NoError(t, conn.Create(affiliate).Error)
	return affiliate
}

func TestAdminLoginMintsAdminToken(t *testing.T) {
	conn := setupAuthTestDB(t)
	sessions := newFakeSessions()
	svc := newAuthService(t, conn, sessions)
	ctx := context.Background()

	pair, err := svc.AdminLogin(ctx, "Admin@Shutupnraveee.com", "admin-pass")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.ActorRoleAdmin, claims.Role)
	assert.Nil(t, claims.AffiliateID)
	assert.Equal(t, sessions.lastAccessID, claims.ID)
}

func TestAdminLoginRejectsWrongPassword(t *testing.T) {
	conn := setupAuthTestDB(t)
	svc := newAuthService(t, conn, newFakeSessions())
	ctx := context.Background()

	_, err := svc.AdminLogin(ctx, "admin@shutupnraveee.com", "wrong")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
}

func TestAffiliateLoginMintsAffiliateToken(t *testing.T) {
	conn := setupAuthTestDB(t)
	sessions := newFakeSessions()
	svc := newAuthService(t, conn, sessions)
	ctx := context.Background()

	affiliate := seedAffiliate(t, conn, "partner@example.com", "partner-pass", enums.AffiliateStatusActive)

	pair, err := svc.AffiliateLogin(ctx, "Partner@Example.com", "partner-pass")
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.ActorRoleAffiliate, claims.Role)
	assert.Equal(t, affiliate.UserID, claims.SubjectID)
	require.NotNil(t, claims.AffiliateID)
	assert.Equal(t, affiliate.ID, *claims.AffiliateID)
}

func TestAffiliateLoginRejectsInactiveAccount(t *testing.T) {
	conn := setupAuthTestDB(t)
	svc := newAuthService(t, conn, newFakeSessions())
	ctx := context.Background()

	seedAffiliate(t, conn, "benched@example.com", "partner-pass", enums.AffiliateStatusInactive)

	_, err := svc.AffiliateLogin(ctx, "benched@example.com", "partner-pass")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
}

func TestAffiliateLoginRejectsUnknownEmail(t *testing.T) {
	conn := setupAuthTestDB(t)
	svc := newAuthService(t, conn, newFakeSessions())
	ctx := context.Background()

	_, err := svc.AffiliateLogin(ctx, "nobody@example.com", "whatever")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeUnauthorized, domainErr.Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	conn := setupAuthTestDB(t)
	sessions := newFakeSessions()
	svc := newAuthService(t, conn, sessions)
	ctx := context.Background()

	pair, err := svc.AdminLogin(ctx, "admin@shutupnraveee.com", "admin-pass")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.ActorRoleAdmin, claims.Role)
	assert.Equal(t, sessions.lastAccessID, claims.ID)

	// Original refresh token is spent after rotation.
	_, err = svc.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.Error(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	conn := setupAuthTestDB(t)
	sessions := newFakeSessions()
	svc := newAuthService(t, conn, sessions)
	ctx := context.Background()

	pair, err := svc.AdminLogin(ctx, "admin@shutupnraveee.com", "admin-pass")
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(testJWTCfg, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken))
	require.Len(t, sessions.revoked, 1)
	assert.Equal(t, claims.ID, sessions.revoked[0])
}
