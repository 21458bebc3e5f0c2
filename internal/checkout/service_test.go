package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/internal/affiliates"
	"github.com/shutupnraveee/backend/internal/discounts"
	"github.com/shutupnraveee/backend/internal/orders"
	"github.com/shutupnraveee/backend/internal/tickets"
	"github.com/shutupnraveee/backend/internal/users"
	"github.com/shutupnraveee/backend/pkg/config"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/paystack"
)

type passthroughTx struct {
	db *gorm.DB
}

func (p passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(p.db)
}

type fakeGateway struct {
	initialized  []paystack.InitializeParams
	verifyResult *paystack.VerifyResult
	verifyErr    error
	verifyCalls  int
}

func (f *fakeGateway) Initialize(_ context.Context, params paystack.InitializeParams) (*paystack.Authorization, error) {
	f.initialized = append(f.initialized, params)
	return &paystack.Authorization{
		AuthorizationURL: "https://checkout.paystack.com/" + params.Reference,
		AccessCode:       "access_" + params.Reference,
		Reference:        params.Reference,
	}, nil
}

func (f *fakeGateway) Verify(_ context.Context, reference string) (*paystack.VerifyResult, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	result := *f.verifyResult
	result.Reference = reference
	return &result, nil
}

type fakeFulfiller struct {
	orders []*models.Order
}

func (f *fakeFulfiller) Run(_ context.Context, order *models.Order) error {
	f.orders = append(f.orders, order)
	return nil
}

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
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
		`CREATE TABLE IF NOT EXISTS ticket_types (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  price_minor INTEGER NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS discounts (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  percentage NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  usage_count INTEGER NOT NULL DEFAULT 0,
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
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'PENDING',
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  is_active INTEGER NOT NULL DEFAULT 1,
  subtotal_minor INTEGER NOT NULL,
  discount_id TEXT,
  discount_code TEXT,
  discount_minor INTEGER NOT NULL DEFAULT 0,
  processing_fee_minor INTEGER NOT NULL,
  total_minor INTEGER NOT NULL,
  qr_code_url TEXT,
  event_date TEXT NOT NULL,
  event_time TEXT NOT NULL,
  event_location TEXT NOT NULL,
  affiliate_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS commission_rules (
  id TEXT PRIMARY KEY,
  affiliate_id TEXT NOT NULL,
  ticket_type_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  rate NUMERIC NOT NULL DEFAULT 0,
  amount_minor INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  UNIQUE (affiliate_id, ticket_type_id)
);`,
		`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  ticket_type_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_minor INTEGER NOT NULL,
  total_minor INTEGER NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type checkoutFixture struct {
	conn      *gorm.DB
	svc       Service
	gateway   *fakeGateway
	fulfiller *fakeFulfiller
	orders    orders.Repository
	discounts *discounts.Repository
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	conn := setupCheckoutTestDB(t)
	gateway := &fakeGateway{}
	fulfiller := &fakeFulfiller{}

	discountRepo := discounts.NewRepository(conn)
	discountSvc, err := discounts.NewService(discountRepo)
	require.NoError(t, err)

	ordersRepo := orders.NewRepository(conn)

	svc, err := NewService(Deps{
		Tx:           passthroughTx{db: conn},
		Orders:       ordersRepo,
		Users:        users.NewRepository(conn),
		Tickets:      tickets.NewRepository(conn),
		Discounts:    discountSvc,
		DiscountRepo: discountRepo,
		Affiliates:   affiliates.NewRepository(conn),
		Gateway:      gateway,
		Fulfillment:  fulfiller,
		Event: config.EventConfig{
			Name:     "shutupnraveee",
			Date:     "2026-12-19",
			Time:     "10:00 PM",
			Location: "Lagos",
		},
		CallbackURL: "https://shutupnraveee.com/payment/callback",
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &checkoutFixture{
		conn:      conn,
		svc:       svc,
		gateway:   gateway,
		fulfiller: fulfiller,
		orders:    ordersRepo,
		discounts: discountRepo,
	}
}

func TestInitiateCreatesPendingOrderAndSession(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName:    "Ada Obi",
		Email:       "Ada@Example.com",
		PhoneNumber: "+2348012345678",
		Items: []LineItemInput{
			{Name: "Solo Vibes", Quantity: 2},
			{Name: "Geng Energy", Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.True(t, orders.IsValidOrderID(result.OrderID))
	assert.Contains(t, result.AuthorizationURL, result.OrderID)

	// 2x5000 + 18000 = 28000; fee 5% = 1400.
	assert.Equal(t, int64(29400), result.TotalMinor)

	order, err := fx.orders.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, int64(28000), order.SubtotalMinor)
	assert.Equal(t, int64(1400), order.ProcessingFeeMinor)
	require.Len(t, order.Items, 2)

	require.Len(t, fx.gateway.initialized, 1)
	assert.Equal(t, result.OrderID, fx.gateway.initialized[0].Reference)
	assert.Equal(t, int64(29400), fx.gateway.initialized[0].AmountMinor)
	assert.Equal(t, "ada@example.com", fx.gateway.initialized[0].Email)
}

func TestInitiateRejectsUnknownTicketType(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.svc.Initiate(context.Background(), InitiateInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Items:    []LineItemInput{{Name: "VIP Table", Quantity: 1}},
	})
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
}

func TestInitiateUsesStoredPriceOverTable(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	// Pre-seed the ticket type at a different price; the stored price wins.
	require.NoError(t, fx.conn.Create(&models.TicketType{
		Name:       "Solo Vibes",
		PriceMinor: 6000,
	}).Error)

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Items:    []LineItemInput{{Name: "Solo Vibes", Quantity: 1}},
	})
	require.NoError(t, err)

	// 6000 + 5% fee = 6300.
	assert.Equal(t, int64(6300), result.TotalMinor)
}

func TestInitiateAppliesDiscountAndAffiliate(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	discount := &models.Discount{
		Code:       "RAVE10",
		Percentage: decimal.RequireFromString("0.10"),
		IsActive:   true,
	}
	require.NoError(t, fx.conn.Create(discount).Error)

	partner := &models.User{FullName: "Plug", PhoneNumber: "+2348000000000", Email: "plug@example.com"}
	require.NoError(t, fx.conn.Create(partner).Error)
	affiliate := &models.Affiliate{UserID: partner.ID, RefCode: "plug-ab12", Status: enums.AffiliateStatusActive}
	require.NoError(t, fx.conn.Create(affiliate).Error)

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName:     "Ada Obi",
		Email:        "ada@example.com",
		Items:        []LineItemInput{{Name: "Geng Energy", Quantity: 1}},
		DiscountCode: "rave10",
		RefCode:      "plug-ab12",
	})
	require.NoError(t, err)

	// 18000 - 10% = 16200; fee 810; total 17010.
	assert.Equal(t, int64(17010), result.TotalMinor)

	order, err := fx.orders.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	require.NotNil(t, order.DiscountCode)
	assert.Equal(t, "RAVE10", *order.DiscountCode)
	assert.Equal(t, int64(1800), order.DiscountMinor)
	require.NotNil(t, order.AffiliateID)
	assert.Equal(t, affiliate.ID, *order.AffiliateID)

	// Validation never consumes a use.
	var stored models.Discount
	require.NoError(t, fx.conn.First(&stored, "code = ?", "RAVE10").Error)
	assert.Equal(t, int64(0), stored.UsageCount)
}

func TestInitiateIgnoresUnknownRefCode(t *testing.T) {
	fx := newCheckoutFixture(t)

	result, err := fx.svc.Initiate(context.Background(), InitiateInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Items:    []LineItemInput{{Name: "Solo Vibes", Quantity: 1}},
		RefCode:  "no-such-code",
	})
	require.NoError(t, err)

	order, err := fx.orders.FindByOrderID(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Nil(t, order.AffiliateID)
}

func TestInitiateSettlesZeroTotalWithoutGateway(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.conn.Create(&models.Discount{
		Code:       "FREE100",
		Percentage: decimal.RequireFromString("1"),
		IsActive:   true,
	}).Error)

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName:     "Ada Obi",
		Email:        "ada@example.com",
		Items:        []LineItemInput{{Name: "Solo Vibes", Quantity: 1}},
		DiscountCode: "FREE100",
	})
	require.NoError(t, err)

	assert.Empty(t, result.AuthorizationURL)
	assert.Empty(t, fx.gateway.initialized)
	require.NotNil(t, result.Order)
	assert.Equal(t, enums.PaymentStatusPaid, result.Order.PaymentStatus)
	require.Len(t, fx.fulfiller.orders, 1)
}

func TestCompleteSettlesPaidOrderOnce(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Items:    []LineItemInput{{Name: "Geng Energy", Quantity: 1}},
	})
	require.NoError(t, err)

	fx.gateway.verifyResult = &paystack.VerifyResult{
		Succeeded:   true,
		Status:      "success",
		AmountMinor: result.TotalMinor,
	}

	settled, err := fx.svc.Complete(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, settled.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, settled.Status)
	require.Len(t, fx.fulfiller.orders, 1)

	// Re-verification is a no-op: no second gateway call, no second
	// fulfillment run.
	again, err := fx.svc.Complete(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, again.PaymentStatus)
	assert.Equal(t, 1, fx.gateway.verifyCalls)
	require.Len(t, fx.fulfiller.orders, 1)
}

func TestCompleteConsumesDiscountOnSettlement(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.conn.Create(&models.Discount{
		Code:       "RAVE10",
		Percentage: decimal.RequireFromString("0.10"),
		IsActive:   true,
	}).Error)

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName:     "Ada Obi",
		Email:        "ada@example.com",
		Items:        []LineItemInput{{Name: "Geng Energy", Quantity: 1}},
		DiscountCode: "RAVE10",
	})
	require.NoError(t, err)

	fx.gateway.verifyResult = &paystack.VerifyResult{
		Succeeded:   true,
		Status:      "success",
		AmountMinor: result.TotalMinor,
	}
	_, err = fx.svc.Complete(ctx, result.OrderID)
	require.NoError(t, err)

	var stored models.Discount
	require.NoError(t, fx.conn.First(&stored, "code = ?", "RAVE10").Error)
	assert.Equal(t, int64(1), stored.UsageCount)
}

func TestCompleteMarksDeclinedPaymentFailed(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Items:    []LineItemInput{{Name: "Solo Vibes", Quantity: 1}},
	})
	require.NoError(t, err)

	fx.gateway.verifyResult = &paystack.VerifyResult{
		Succeeded: false,
		Status:    "failed",
	}

	_, err = fx.svc.Complete(ctx, result.OrderID)
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodePaymentDeclined, domainErr.Code())

	order, err := fx.orders.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
	assert.Empty(t, fx.fulfiller.orders)
}

func TestCompleteLeavesOrderPendingOnGatewayError(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Items:    []LineItemInput{{Name: "Solo Vibes", Quantity: 1}},
	})
	require.NoError(t, err)

	fx.gateway.verifyErr = pkgerrors.New(pkgerrors.CodeDependency, "gateway unreachable")

	_, err = fx.svc.Complete(ctx, result.OrderID)
	require.Error(t, err)

	order, err := fx.orders.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)

	// A later retry can still settle it.
	fx.gateway.verifyErr = nil
	fx.gateway.verifyResult = &paystack.VerifyResult{
		Succeeded:   true,
		Status:      "success",
		AmountMinor: result.TotalMinor,
	}
	settled, err := fx.svc.Complete(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, settled.PaymentStatus)
}

func TestCompleteRejectsAmountMismatch(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Initiate(ctx, InitiateInput{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Items:    []LineItemInput{{Name: "Solo Vibes", Quantity: 1}},
	})
	require.NoError(t, err)

	fx.gateway.verifyResult = &paystack.VerifyResult{
		Succeeded:   true,
		Status:      "success",
		AmountMinor: result.TotalMinor - 100,
	}

	_, err = fx.svc.Complete(ctx, result.OrderID)
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeDependency, domainErr.Code())

	order, err := fx.orders.FindByOrderID(ctx, result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
}

func TestCompleteRejectsMalformedReference(t *testing.T) {
	fx := newCheckoutFixture(t)

	_, err := fx.svc.Complete(context.Background(), "not-a-reference")
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())

	_, err = fx.svc.Complete(context.Background(), "ORD-2026-ZZZZZZ")
	require.Error(t, err)
	domainErr = pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}
