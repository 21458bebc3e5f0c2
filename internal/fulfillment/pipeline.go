package fulfillment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/internal/affiliates"
	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/mailer"
	"github.com/shutupnraveee/backend/pkg/metrics"
	"github.com/shutupnraveee/backend/pkg/qr"
)

// Step names reported to metrics when a side effect fails.
const (
	stepQRCode          = "qr_code"
	stepConfirmEmail    = "confirmation_email"
	stepCommissions     = "affiliate_commissions"
	stepAffiliateEmail  = "affiliate_email"
	stepAdminEmail      = "admin_email"
	commissionUniqueKey = "ux_commission_affiliate_item"
)

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// AssetUploader stores a rendered ticket asset and returns its public URL.
type AssetUploader interface {
	UploadObject(ctx context.Context, objectName, contentType string, payload []byte) (string, error)
}

type qrStore interface {
	SetQRCodeURL(ctx context.Context, orderID, url string) (bool, error)
}

type affiliateStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Affiliate, error)
	FindRule(ctx context.Context, affiliateID, ticketTypeID uuid.UUID) (*models.CommissionRule, error)
	CreateCommission(ctx context.Context, commission *models.AffiliateCommission) error
}

// Config carries the static values the pipeline stamps into tickets and emails.
type Config struct {
	PublicURL     string
	ObjectPrefix  string
	EventName     string
	AdminEmail    string
	QRCodeSizePts int
}

// Pipeline runs the side effects owed to a freshly paid order. Steps are
// attempted independently and never roll the payment back; failures are
// aggregated and counted so operators can replay them.
type Pipeline struct {
	orders     qrStore
	affiliates affiliateStore
	mail       mailSender
	assets     AssetUploader
	cfg        Config
	checkout   *metrics.CheckoutMetrics
	logg       *logger.Logger
}

// NewPipeline wires the fulfillment pipeline. assets may be nil; QR codes then
// fall back to inline data URIs. mail may be nil in tests.
func NewPipeline(orders qrStore, affiliateRepo affiliateStore, mail mailSender, assets AssetUploader, cfg Config, checkout *metrics.CheckoutMetrics, logg *logger.Logger) (*Pipeline, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders store is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if strings.TrimSpace(cfg.PublicURL) == "" {
		return nil, fmt.Errorf("public url is required")
	}
	return &Pipeline{
		orders:     orders,
		affiliates: affiliateRepo,
		mail:       mail,
		assets:     assets,
		cfg:        cfg,
		checkout:   checkout,
		logg:       logg,
	}, nil
}

// Run executes every fulfillment step for a paid order. The order must carry
// its user and items with ticket types preloaded. The returned error is an
// aggregate of every failed step; a nil return means everything landed.
func (p *Pipeline) Run(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	ctx = p.logg.WithOrderID(ctx, order.OrderID)

	var errs error

	qrURL, err := p.attachQRCode(ctx, order)
	if err != nil {
		p.fail(ctx, stepQRCode, err)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", stepQRCode, err))
	}

	if err := p.sendConfirmation(ctx, order, qrURL); err != nil {
		p.fail(ctx, stepConfirmEmail, err)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", stepConfirmEmail, err))
	}

	if order.AffiliateID != nil {
		earned, err := p.recordCommissions(ctx, order)
		if err != nil {
			p.fail(ctx, stepCommissions, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", stepCommissions, err))
		} else if earned > 0 {
			if err := p.sendAffiliateSale(ctx, order, earned); err != nil {
				p.fail(ctx, stepAffiliateEmail, err)
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", stepAffiliateEmail, err))
			}
		}
	}

	if err := p.sendAdminNotify(ctx, order); err != nil {
		p.fail(ctx, stepAdminEmail, err)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", stepAdminEmail, err))
	}

	if errs == nil {
		p.logg.Info(ctx, "fulfillment completed")
	}
	return errs
}

// attachQRCode renders the ticket QR code, stores it, and persists its URL on
// the order. When the asset store is unavailable the PNG is inlined as a data
// URI so the confirmation email still carries a scannable code.
func (p *Pipeline) attachQRCode(ctx context.Context, order *models.Order) (string, error) {
	payload := qr.AdminVerifyURL(p.cfg.PublicURL, order.OrderID)
	png, err := qr.EncodePNG(payload, p.cfg.QRCodeSizePts)
	if err != nil {
		return "", err
	}

	url := p.uploadOrInline(ctx, order.OrderID, png)

	flipped, err := p.orders.SetQRCodeURL(ctx, order.OrderID, url)
	if err != nil {
		return url, err
	}
	if !flipped {
		// Another settlement already attached a code; keep that one.
		if order.QRCodeURL != nil {
			return *order.QRCodeURL, nil
		}
		return url, nil
	}
	order.QRCodeURL = &url
	return url, nil
}

func (p *Pipeline) uploadOrInline(ctx context.Context, orderID string, png []byte) string {
	if p.assets != nil {
		objectName := fmt.Sprintf("%s/%s.png", strings.Trim(p.cfg.ObjectPrefix, "/"), orderID)
		url, err := p.assets.UploadObject(ctx, objectName, "image/png", png)
		if err == nil {
			return url
		}
		p.logg.Warn(p.logg.WithField(ctx, "object", objectName), "qr upload failed, inlining image")
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

func (p *Pipeline) sendConfirmation(ctx context.Context, order *models.Order, qrURL string) error {
	if p.mail == nil {
		return nil
	}
	if order.User == nil {
		return fmt.Errorf("order user is not loaded")
	}
	if qrURL == "" && order.QRCodeURL != nil {
		qrURL = *order.QRCodeURL
	}

	html, err := renderTemplate(confirmationTemplate, confirmationProps{
		FullName:      order.User.FullName,
		OrderID:       order.OrderID,
		EventName:     p.cfg.EventName,
		EventDate:     order.EventDate,
		EventTime:     order.EventTime,
		EventLocation: order.EventLocation,
		Lines:         emailLines(order.Items),
		TotalMinor:    order.TotalMinor,
		QRCodeURL:     qrURL,
	})
	if err != nil {
		return err
	}

	_, err = p.mail.Send(ctx, mailer.Message{
		To:      []string{order.User.Email},
		Subject: fmt.Sprintf("Your %s ticket (%s)", p.cfg.EventName, order.OrderID),
		HTML:    html,
	})
	return err
}

// recordCommissions writes one commission row per matching line item. Replayed
// settlements collide with the unique constraint and are treated as already
// recorded. Returns the total newly earned in minor units.
func (p *Pipeline) recordCommissions(ctx context.Context, order *models.Order) (int64, error) {
	if p.affiliates == nil {
		return 0, nil
	}
	affiliateID := *order.AffiliateID

	var earned int64
	var errs error
	for i := range order.Items {
		item := &order.Items[i]

		rule, err := p.affiliates.FindRule(ctx, affiliateID, item.TicketTypeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}

		amount := affiliates.CommissionFor(rule, item)
		if amount <= 0 {
			continue
		}

		err = p.affiliates.CreateCommission(ctx, &models.AffiliateCommission{
			AffiliateID:     affiliateID,
			OrderItemID:     item.ID,
			TicketTypeID:    item.TicketTypeID,
			CommissionMinor: amount,
		})
		if err != nil {
			if db.IsUniqueViolation(err, commissionUniqueKey) {
				continue
			}
			errs = multierr.Append(errs, err)
			continue
		}
		earned += amount
	}
	return earned, errs
}

func (p *Pipeline) sendAffiliateSale(ctx context.Context, order *models.Order, earnedMinor int64) error {
	if p.mail == nil || p.affiliates == nil {
		return nil
	}

	affiliate, err := p.affiliates.FindByID(ctx, *order.AffiliateID)
	if err != nil {
		return err
	}
	if affiliate.User == nil {
		return fmt.Errorf("affiliate user is not loaded")
	}

	html, err := renderTemplate(affiliateSaleTemplate, affiliateSaleProps{
		FullName:        affiliate.User.FullName,
		OrderID:         order.OrderID,
		CommissionMinor: earnedMinor,
	})
	if err != nil {
		return err
	}

	_, err = p.mail.Send(ctx, mailer.Message{
		To:      []string{affiliate.User.Email},
		Subject: fmt.Sprintf("You earned a commission on %s", order.OrderID),
		HTML:    html,
	})
	return err
}

func (p *Pipeline) sendAdminNotify(ctx context.Context, order *models.Order) error {
	if p.mail == nil || strings.TrimSpace(p.cfg.AdminEmail) == "" {
		return nil
	}
	if order.User == nil {
		return fmt.Errorf("order user is not loaded")
	}

	html, err := renderTemplate(adminNotifyTemplate, adminNotifyProps{
		OrderID:       order.OrderID,
		CustomerName:  order.User.FullName,
		CustomerEmail: order.User.Email,
		TotalMinor:    order.TotalMinor,
		Lines:         emailLines(order.Items),
	})
	if err != nil {
		return err
	}

	_, err = p.mail.Send(ctx, mailer.Message{
		To:      []string{p.cfg.AdminEmail},
		Subject: fmt.Sprintf("New paid order %s", order.OrderID),
		HTML:    html,
	})
	return err
}

func emailLines(items []models.OrderItem) []EmailLine {
	lines := make([]EmailLine, 0, len(items))
	for _, item := range items {
		name := "ticket"
		if item.TicketType != nil {
			name = item.TicketType.Name
		}
		lines = append(lines, EmailLine{
			Name:       name,
			Quantity:   item.Quantity,
			TotalMinor: item.TotalMinor,
		})
	}
	return lines
}

func (p *Pipeline) fail(ctx context.Context, step string, err error) {
	p.checkout.IncFulfillmentFailure(step)
	p.logg.Error(p.logg.WithField(ctx, "step", step), "fulfillment step failed", err)
}
