package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/mailer"
)

type fakeQRStore struct {
	urls    map[string]string
	failSet bool
}

func newFakeQRStore() *fakeQRStore {
	return &fakeQRStore{urls: map[string]string{}}
}

func (f *fakeQRStore) SetQRCodeURL(_ context.Context, orderID, url string) (bool, error) {
	if f.failSet {
		return false, errors.New("db unavailable")
	}
	if _, ok := f.urls[orderID]; ok {
		return false, nil
	}
	f.urls[orderID] = url
	return true, nil
}

type fakeUploader struct {
	objects map[string][]byte
	fail    bool
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}}
}

func (f *fakeUploader) UploadObject(_ context.Context, objectName, _ string, payload []byte) (string, error) {
	if f.fail {
		return "", errors.New("bucket unreachable")
	}
	f.objects[objectName] = payload
	return "https://storage.googleapis.com/test-bucket/" + objectName, nil
}

type fakeMailer struct {
	sent []mailer.Message
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	if f.fail {
		return "", errors.New("provider down")
	}
	f.sent = append(f.sent, msg)
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

type fakeAffiliateStore struct {
	affiliate   *models.Affiliate
	rules       map[uuid.UUID]*models.CommissionRule
	commissions []*models.AffiliateCommission
}

func (f *fakeAffiliateStore) FindByID(_ context.Context, id uuid.UUID) (*models.Affiliate, error) {
	if f.affiliate == nil || f.affiliate.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.affiliate, nil
}

func (f *fakeAffiliateStore) FindRule(_ context.Context, _, ticketTypeID uuid.UUID) (*models.CommissionRule, error) {
	rule, ok := f.rules[ticketTypeID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rule, nil
}

func (f *fakeAffiliateStore) CreateCommission(_ context.Context, commission *models.AffiliateCommission) error {
	for _, existing := range f.commissions {
		if existing.AffiliateID == commission.AffiliateID && existing.OrderItemID == commission.OrderItemID {
			return errors.New("duplicate key value violates unique constraint \"ux_commission_affiliate_item\"")
		}
	}
	f.commissions = append(f.commissions, commission)
	return nil
}

func paidOrder(affiliateID *uuid.UUID) *models.Order {
	ticketTypeID := uuid.New()
	return &models.Order{
		ID:      uuid.New(),
		OrderID: "ORD-2026-ABC123",
		User: &models.User{
			ID:       uuid.New(),
			FullName: "Rave Goer",
			Email:    "goer@example.com",
		},
		Status:        enums.OrderStatusConfirmed,
		PaymentStatus: enums.PaymentStatusPaid,
		IsActive:      true,
		SubtotalMinor: 18000,
		TotalMinor:    18900,
		EventDate:     "2026-12-20",
		EventTime:     "10pm",
		EventLocation: "Lagos",
		AffiliateID:   affiliateID,
		Items: []models.OrderItem{
			{
				ID:             uuid.New(),
				TicketTypeID:   ticketTypeID,
				TicketType:     &models.TicketType{ID: ticketTypeID, Name: "Geng Energy"},
				Quantity:       1,
				UnitPriceMinor: 18000,
				TotalMinor:     18000,
			},
		},
	}
}

func newTestPipeline(t *testing.T, orders *fakeQRStore, affs *fakeAffiliateStore, mail *fakeMailer, assets *fakeUploader) *Pipeline {
	t.Helper()

	var uploader AssetUploader
	if assets != nil {
		uploader = assets
	}
	var store affiliateStore
	if affs != nil {
		store = affs
	}
	var sender mailSender
	if mail != nil {
		sender = mail
	}

	pipeline, err := NewPipeline(orders, store, sender, uploader, Config{
		PublicURL:    "https://shutupnraveee.com",
		ObjectPrefix: "tickets",
		EventName:    "shutupnraveee",
		AdminEmail:   "ops@shutupnraveee.com",
	}, nil, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return pipeline
}

func TestRunAttachesQRCodeAndSendsEmails(t *testing.T) {
	orders := newFakeQRStore()
	mail := &fakeMailer{}
	assets := newFakeUploader()
	pipeline := newTestPipeline(t, orders, nil, mail, assets)

	order := paidOrder(nil)
	require.NoError(t, pipeline.Run(context.Background(), order))

	require.NotNil(t, order.QRCodeURL)
	assert.Equal(t, "https://storage.googleapis.com/test-bucket/tickets/ORD-2026-ABC123.png", *order.QRCodeURL)
	assert.Contains(t, assets.objects, "tickets/ORD-2026-ABC123.png")

	// Confirmation to the buyer plus the admin notification.
	require.Len(t, mail.sent, 2)
	assert.Equal(t, []string{"goer@example.com"}, mail.sent[0].To)
	assert.Contains(t, mail.sent[0].HTML, "ORD-2026-ABC123")
	assert.Contains(t, mail.sent[0].HTML, *order.QRCodeURL)
	assert.Equal(t, []string{"ops@shutupnraveee.com"}, mail.sent[1].To)
}

func TestRunInlinesQRCodeWhenUploadFails(t *testing.T) {
	orders := newFakeQRStore()
	mail := &fakeMailer{}
	assets := newFakeUploader()
	assets.fail = true
	pipeline := newTestPipeline(t, orders, nil, mail, assets)

	order := paidOrder(nil)
	require.NoError(t, pipeline.Run(context.Background(), order))

	require.NotNil(t, order.QRCodeURL)
	assert.True(t, strings.HasPrefix(*order.QRCodeURL, "data:image/png;base64,"))
}

func TestRunRecordsCommissionsOncePerItem(t *testing.T) {
	affiliateUserID := uuid.New()
	affiliateID := uuid.New()
	order := paidOrder(&affiliateID)
	ticketTypeID := order.Items[0].TicketTypeID

	affs := &fakeAffiliateStore{
		affiliate: &models.Affiliate{
			ID:     affiliateID,
			UserID: affiliateUserID,
			User:   &models.User{ID: affiliateUserID, FullName: "Plug", Email: "plug@example.com"},
		},
		rules: map[uuid.UUID]*models.CommissionRule{
			ticketTypeID: {
				AffiliateID:  affiliateID,
				TicketTypeID: ticketTypeID,
				Kind:         enums.CommissionKindPercentage,
				Rate:         decimal.RequireFromString("0.10"),
			},
		},
	}

	orders := newFakeQRStore()
	mail := &fakeMailer{}
	pipeline := newTestPipeline(t, orders, affs, mail, nil)

	require.NoError(t, pipeline.Run(context.Background(), order))

	require.Len(t, affs.commissions, 1)
	assert.Equal(t, int64(1800), affs.commissions[0].CommissionMinor)

	// Buyer confirmation, affiliate sale alert, admin notification.
	require.Len(t, mail.sent, 3)
	assert.Equal(t, []string{"plug@example.com"}, mail.sent[1].To)
	assert.Contains(t, mail.sent[1].HTML, "18.00")

	// A replayed settlement collides with the unique constraint and does not
	// double-pay or re-alert the affiliate.
	mail.sent = nil
	require.NoError(t, pipeline.Run(context.Background(), order))
	require.Len(t, affs.commissions, 1)
	require.Len(t, mail.sent, 2)
}

func TestRunAggregatesStepFailures(t *testing.T) {
	orders := newFakeQRStore()
	orders.failSet = true
	mail := &fakeMailer{fail: true}
	pipeline := newTestPipeline(t, orders, nil, mail, nil)

	order := paidOrder(nil)
	err := pipeline.Run(context.Background(), order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qr_code")
	assert.Contains(t, err.Error(), "confirmation_email")
	assert.Contains(t, err.Error(), "admin_email")
}
