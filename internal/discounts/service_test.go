package discounts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := setupDiscountsTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestValidateNormalizesAndResolvesCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Code:       "  rave10 ",
		Percentage: decimal.RequireFromString("0.10"),
	})
	require.NoError(t, err)
	assert.Equal(t, "RAVE10", created.Code)

	discount, err := svc.Validate(ctx, "rave10")
	require.NoError(t, err)
	assert.True(t, discount.Percentage.Equal(decimal.RequireFromString("0.10")))
}

func TestValidateRejectsInactiveAndUnknownCodes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Code:       "GONE",
		Percentage: decimal.RequireFromString("0.25"),
	})
	require.NoError(t, err)
	inactive := false
	_, err = svc.Update(ctx, created.ID, UpdateInput{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "GONE")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())

	_, err = svc.Validate(ctx, "NEVERWAS")
	require.Error(t, err)
	domainErr = pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestCreateValidatesPercentageRange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "ZERO", Percentage: decimal.Zero})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "TOOBIG", Percentage: decimal.RequireFromString("1.01")})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "FULL", Percentage: decimal.NewFromInt(1)})
	require.NoError(t, err)
}

func TestUpdateEditsCodePercentageAndActive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Code:       "EARLY",
		Percentage: decimal.RequireFromString("0.10"),
	})
	require.NoError(t, err)

	code := "earlybird"
	pct := decimal.RequireFromString("0.15")
	inactive := false
	updated, err := svc.Update(ctx, created.ID, UpdateInput{
		Code:       &code,
		Percentage: &pct,
		IsActive:   &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "EARLYBIRD", updated.Code)
	assert.True(t, updated.Percentage.Equal(pct))
	assert.False(t, updated.IsActive)

	// The old code no longer resolves.
	_, err = svc.Validate(ctx, "EARLY")
	require.Error(t, err)
}

func TestUpdateRejectsEmptyInputAndBadPercentage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Code:       "SOLID",
		Percentage: decimal.RequireFromString("0.10"),
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, UpdateInput{})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())

	tooBig := decimal.RequireFromString("1.5")
	_, err = svc.Update(ctx, created.ID, UpdateInput{Percentage: &tooBig})
	require.Error(t, err)
}

func TestUpdateMapsDuplicateCodeToConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "KEEP", Percentage: decimal.RequireFromString("0.10")})
	require.NoError(t, err)
	created, err := svc.Create(ctx, CreateInput{Code: "MOVE", Percentage: decimal.RequireFromString("0.20")})
	require.NoError(t, err)

	clash := "keep"
	_, err = svc.Update(ctx, created.ID, UpdateInput{Code: &clash})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeConflict, domainErr.Code())
}

func TestCreateMapsDuplicateToConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "DUP", Percentage: decimal.RequireFromString("0.10")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "dup", Percentage: decimal.RequireFromString("0.20")})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeConflict, domainErr.Code())
}
