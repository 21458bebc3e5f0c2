package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	"github.com/shutupnraveee/backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
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

func seedUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		FullName:    "Ada Obi",
		PhoneNumber: "+2348012345678",
		Email:       uuid.NewString() + "@example.com",
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func seedOrder(t *testing.T, conn *gorm.DB, user *models.User, orderID string, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderID:            orderID,
		UserID:             user.ID,
		Status:             enums.OrderStatusPending,
		PaymentStatus:      enums.PaymentStatusPending,
		IsActive:           true,
		SubtotalMinor:      10000,
		ProcessingFeeMinor: 500,
		TotalMinor:         10500,
		EventDate:          "2026-12-19",
		EventTime:          "10:00 PM",
		EventLocation:      "Lagos",
		CreatedAt:          createdAt,
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestMarkPaidFlipsExactlyOnce(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := seedUser(t, conn)
	seedOrder(t, conn, user, "ORD-2026-AAAAAA", time.Now().UTC())

	flipped, err := repo.MarkPaid(ctx, "ORD-2026-AAAAAA")
	require.NoError(t, err)
	assert.True(t, flipped)

	// Second settlement attempt observes no transition.
	flipped, err = repo.MarkPaid(ctx, "ORD-2026-AAAAAA")
	require.NoError(t, err)
	assert.False(t, flipped)

	order, err := repo.FindByOrderID(ctx, "ORD-2026-AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
}

func TestMarkFailedDoesNotOverridePaid(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := seedUser(t, conn)
	seedOrder(t, conn, user, "ORD-2026-BBBBBB", time.Now().UTC())

	flipped, err := repo.MarkPaid(ctx, "ORD-2026-BBBBBB")
	require.NoError(t, err)
	require.True(t, flipped)

	flipped, err = repo.MarkFailed(ctx, "ORD-2026-BBBBBB")
	require.NoError(t, err)
	assert.False(t, flipped)

	order, err := repo.FindByOrderID(ctx, "ORD-2026-BBBBBB")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
}

func TestMarkFailedCancelsPendingOrder(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := seedUser(t, conn)
	seedOrder(t, conn, user, "ORD-2026-CCCCCC", time.Now().UTC())

	flipped, err := repo.MarkFailed(ctx, "ORD-2026-CCCCCC")
	require.NoError(t, err)
	assert.True(t, flipped)

	order, err := repo.FindByOrderID(ctx, "ORD-2026-CCCCCC")
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusCancelled, order.Status)
}

func TestSetQRCodeURLRequiresPaidOrder(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := seedUser(t, conn)
	seedOrder(t, conn, user, "ORD-2026-DDDDDD", time.Now().UTC())

	set, err := repo.SetQRCodeURL(ctx, "ORD-2026-DDDDDD", "https://cdn.example.com/qr.png")
	require.NoError(t, err)
	assert.False(t, set)

	_, err = repo.MarkPaid(ctx, "ORD-2026-DDDDDD")
	require.NoError(t, err)

	set, err = repo.SetQRCodeURL(ctx, "ORD-2026-DDDDDD", "https://cdn.example.com/qr.png")
	require.NoError(t, err)
	assert.True(t, set)
}

func TestDeactivateTicketIsOneWay(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := seedUser(t, conn)
	seedOrder(t, conn, user, "ORD-2026-EEEEEE", time.Now().UTC())

	flipped, err := repo.DeactivateTicket(ctx, "ORD-2026-EEEEEE")
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = repo.DeactivateTicket(ctx, "ORD-2026-EEEEEE")
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestListPaginatesWithCursor(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := seedUser(t, conn)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedOrder(t, conn, user, "ORD-2026-P00001", base)
	seedOrder(t, conn, user, "ORD-2026-P00002", base.Add(time.Minute))
	seedOrder(t, conn, user, "ORD-2026-P00003", base.Add(2*time.Minute))

	page, err := repo.List(ctx, pagination.Params{Limit: 2}, Filters{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, "ORD-2026-P00003", page.Orders[0].OrderID)

	next, err := repo.List(ctx, pagination.Params{Limit: 2, Cursor: *page.NextCursor}, Filters{})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Nil(t, next.NextCursor)
	assert.Equal(t, "ORD-2026-P00001", next.Orders[0].OrderID)
}

func TestListFiltersByPaymentStatus(t *testing.T) {
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user := seedUser(t, conn)
	seedOrder(t, conn, user, "ORD-2026-F00001", time.Now().UTC())
	seedOrder(t, conn, user, "ORD-2026-F00002", time.Now().UTC().Add(time.Second))

	_, err := repo.MarkPaid(ctx, "ORD-2026-F00002")
	require.NoError(t, err)

	paid := enums.PaymentStatusPaid
	page, err := repo.List(ctx, pagination.Params{}, Filters{PaymentStatus: &paid})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "ORD-2026-F00002", page.Orders[0].OrderID)
}

func TestNewOrderIDShape(t *testing.T) {
	now := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		id, err := NewOrderID(now)
		require.NoError(t, err)
		assert.True(t, IsValidOrderID(id), "generated id %q should match pattern", id)
		assert.Contains(t, id, "ORD-2026-")
	}

	assert.False(t, IsValidOrderID("ORD-26-ABCDEF"))
	assert.False(t, IsValidOrderID("ORD-2026-abcdef"))
	assert.False(t, IsValidOrderID("ORD-2026-ABCDE"))
	assert.False(t, IsValidOrderID(""))
}
