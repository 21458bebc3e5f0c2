package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/internal/affiliates"
	pkgauth "github.com/shutupnraveee/backend/pkg/auth"
	"github.com/shutupnraveee/backend/pkg/auth/session"
	"github.com/shutupnraveee/backend/pkg/config"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/security"
)

// TokenPair is the credentials handed to a client after login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Service owns authentication for the two back-office actor types.
type Service interface {
	AdminLogin(ctx context.Context, email, password string) (*TokenPair, error)
	AffiliateLogin(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	affiliateRepo *affiliates.Repository
	sessions      sessionManager
	adminCfg      config.AdminConfig
	jwtCfg        config.JWTConfig
	logg          *logger.Logger
	now           func() time.Time
}

// NewService wires the auth service. sessions is satisfied by session.Manager.
func NewService(affiliateRepo *affiliates.Repository, sessions sessionManager, adminCfg config.AdminConfig, jwtCfg config.JWTConfig, logg *logger.Logger) (Service, error) {
	if affiliateRepo == nil {
		return nil, fmt.Errorf("affiliates repository is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		affiliateRepo: affiliateRepo,
		sessions:      sessions,
		adminCfg:      adminCfg,
		jwtCfg:        jwtCfg,
		logg:          logg,
		now:           time.Now,
	}, nil
}

var errInvalidCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")

// AdminLogin authenticates against the env-provisioned admin account.
func (s *service) AdminLogin(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}
	if !strings.EqualFold(email, s.adminCfg.Email) {
		return nil, errInvalidCredentials
	}

	ok, err := security.VerifyPassword(password, s.adminCfg.PasswordHash)
	if err != nil || !ok {
		return nil, errInvalidCredentials
	}

	// The admin identity has no DB row; derive a stable subject from the
	// configured email.
	subject := uuid.NewSHA1(uuid.NameSpaceOID, []byte("admin:"+email))
	pair, err := s.mint(ctx, pkgauth.AccessTokenPayload{
		SubjectID: subject,
		Role:      enums.ActorRoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithActorRole(ctx, string(enums.ActorRoleAdmin)), "admin login succeeded")
	return pair, nil
}

// AffiliateLogin authenticates a referral partner by email and password.
func (s *service) AffiliateLogin(ctx context.Context, email, password string) (*TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errInvalidCredentials
	}

	affiliate, err := s.affiliateRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading affiliate account")
	}
	if affiliate.Status != enums.AffiliateStatusActive || affiliate.PasswordHash == nil {
		return nil, errInvalidCredentials
	}

	ok, err := security.VerifyPassword(password, *affiliate.PasswordHash)
	if err != nil || !ok {
		return nil, errInvalidCredentials
	}

	affiliateID := affiliate.ID
	pair, err := s.mint(ctx, pkgauth.AccessTokenPayload{
		SubjectID:   affiliate.UserID,
		Role:        enums.ActorRoleAffiliate,
		AffiliateID: &affiliateID,
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithActorRole(ctx, string(enums.ActorRoleAffiliate)), "affiliate login succeeded")
	return pair, nil
}

// Refresh rotates the session behind an access token, expired or not.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotating session")
	}

	access, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		SubjectID:   claims.SubjectID,
		Role:        claims.Role,
		AffiliateID: claims.AffiliateID,
		JTI:         newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}

	return &TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout revokes the refresh session behind the access token.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoking session")
	}
	return nil
}

func (s *service) mint(ctx context.Context, payload pkgauth.AccessTokenPayload) (*TokenPair, error) {
	accessID := session.NewAccessID()
	payload.JTI = accessID

	access, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "minting access token")
	}
	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating refresh session")
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
