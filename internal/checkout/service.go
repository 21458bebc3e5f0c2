package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shutupnraveee/backend/internal/affiliates"
	"github.com/shutupnraveee/backend/internal/discounts"
	"github.com/shutupnraveee/backend/internal/orders"
	"github.com/shutupnraveee/backend/internal/pricing"
	"github.com/shutupnraveee/backend/internal/tickets"
	"github.com/shutupnraveee/backend/internal/users"
	"github.com/shutupnraveee/backend/pkg/config"
	"github.com/shutupnraveee/backend/pkg/db"
	"github.com/shutupnraveee/backend/pkg/db/models"
	"github.com/shutupnraveee/backend/pkg/enums"
	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
	"github.com/shutupnraveee/backend/pkg/logger"
	"github.com/shutupnraveee/backend/pkg/metrics"
	"github.com/shutupnraveee/backend/pkg/paystack"
)

const orderIDCreateAttempts = 3

// Settlement outcome labels for the checkout metrics.
const (
	outcomePaid     = "paid"
	outcomeDeclined = "declined"
	outcomeReplayed = "replayed"
)

type gateway interface {
	Initialize(ctx context.Context, params paystack.InitializeParams) (*paystack.Authorization, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type fulfiller interface {
	Run(ctx context.Context, order *models.Order) error
}

// LineItemInput is one requested ticket selection.
type LineItemInput struct {
	Name     string
	Quantity int
}

// InitiateInput carries one storefront checkout submission.
type InitiateInput struct {
	FullName     string
	Email        string
	PhoneNumber  string
	Items        []LineItemInput
	DiscountCode string
	RefCode      string
}

// InitiateResult hands the storefront everything it needs to redirect the
// buyer to the hosted payment page. AuthorizationURL is empty for zero-total
// orders, which settle immediately.
type InitiateResult struct {
	OrderID          string
	AuthorizationURL string
	AccessCode       string
	TotalMinor       int64
	Order            *models.Order
}

// Service orchestrates checkout initiation and payment settlement.
type Service interface {
	Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error)
	Complete(ctx context.Context, reference string) (*models.Order, error)
}

type service struct {
	tx           txRunner
	ordersRepo   orders.Repository
	usersRepo    *users.Repository
	ticketsRepo  *tickets.Repository
	discountsSvc discounts.Service
	discountRepo *discounts.Repository
	affiliates   *affiliates.Repository
	resolver     *pricing.Resolver
	gateway      gateway
	fulfillment  fulfiller
	eventCfg     config.EventConfig
	callbackURL  string
	checkout     *metrics.CheckoutMetrics
	logg         *logger.Logger
	now          func() time.Time
}

// Deps bundles the checkout service dependencies.
type Deps struct {
	Tx           txRunner
	Orders       orders.Repository
	Users        *users.Repository
	Tickets      *tickets.Repository
	Discounts    discounts.Service
	DiscountRepo *discounts.Repository
	Affiliates   *affiliates.Repository
	Resolver     *pricing.Resolver
	Gateway      gateway
	Fulfillment  fulfiller
	Event        config.EventConfig
	CallbackURL  string
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
}

// NewService wires the checkout orchestrator.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner is required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders repository is required")
	case deps.Users == nil:
		return nil, fmt.Errorf("users repository is required")
	case deps.Tickets == nil:
		return nil, fmt.Errorf("tickets repository is required")
	case deps.Discounts == nil:
		return nil, fmt.Errorf("discounts service is required")
	case deps.DiscountRepo == nil:
		return nil, fmt.Errorf("discounts repository is required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("payment gateway is required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = pricing.NewResolver(nil)
	}
	return &service{
		tx:           deps.Tx,
		ordersRepo:   deps.Orders,
		usersRepo:    deps.Users,
		ticketsRepo:  deps.Tickets,
		discountsSvc: deps.Discounts,
		discountRepo: deps.DiscountRepo,
		affiliates:   deps.Affiliates,
		resolver:     resolver,
		gateway:      deps.Gateway,
		fulfillment:  deps.Fulfillment,
		eventCfg:     deps.Event,
		callbackURL:  deps.CallbackURL,
		checkout:     deps.Metrics,
		logg:         deps.Logger,
		now:          time.Now,
	}, nil
}

// Initiate prices the cart, records a pending order, and opens a hosted
// payment session. Prices always come from the server-side table; the stored
// ticket type price wins when the two disagree.
func (s *service) Initiate(ctx context.Context, input InitiateInput) (*InitiateResult, error) {
	if strings.TrimSpace(input.FullName) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name and email are required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one ticket is required")
	}

	var discount *models.Discount
	var discountRate *decimal.Decimal
	if strings.TrimSpace(input.DiscountCode) != "" {
		found, err := s.discountsSvc.Validate(ctx, input.DiscountCode)
		if err != nil {
			return nil, err
		}
		discount = found
		rate := found.Percentage
		discountRate = &rate
	}

	affiliate := s.resolveAffiliate(ctx, input.RefCode)

	lines := make([]pricing.LineInput, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, pricing.LineInput{Name: item.Name, Quantity: item.Quantity})
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		usersRepo := s.usersRepo.WithTx(tx)
		ticketsRepo := s.ticketsRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		user, err := usersRepo.UpsertByEmail(ctx, strings.TrimSpace(input.FullName), strings.TrimSpace(input.PhoneNumber), input.Email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving purchaser")
		}

		quote, ticketTypes, err := s.priceAgainstStore(ctx, ticketsRepo, lines, discountRate)
		if err != nil {
			return err
		}

		order, err = s.createOrder(ctx, ordersRepo, user, quote, ticketTypes, discount, affiliate)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.OrderID)

	// A fully discounted cart owes nothing; settle on the spot.
	if order.TotalMinor == 0 {
		settled, err := s.settlePaid(ctx, order.OrderID)
		if err != nil {
			return nil, err
		}
		return &InitiateResult{OrderID: order.OrderID, TotalMinor: 0, Order: settled}, nil
	}

	started := s.now()
	authorization, err := s.gateway.Initialize(ctx, paystack.InitializeParams{
		Reference:   order.OrderID,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		AmountMinor: order.TotalMinor,
		CallbackURL: s.callbackURL,
		Metadata:    map[string]any{"order_id": order.OrderID},
	})
	s.checkout.ObserveGatewayDuration("initialize_transaction", s.now().Sub(started))
	if err != nil {
		// The pending order stays behind; the buyer can retry against the
		// same reference.
		return nil, err
	}

	s.logg.Info(ctx, "checkout initiated")
	return &InitiateResult{
		OrderID:          order.OrderID,
		AuthorizationURL: authorization.AuthorizationURL,
		AccessCode:       authorization.AccessCode,
		TotalMinor:       order.TotalMinor,
		Order:            order,
	}, nil
}

// priceAgainstStore quotes the cart using stored ticket type prices, creating
// missing ticket types from the canonical table. The first persisted price for
// a name is immutable; later table changes never reprice it.
func (s *service) priceAgainstStore(ctx context.Context, ticketsRepo *tickets.Repository, lines []pricing.LineInput, discountRate *decimal.Decimal) (*pricing.Quote, map[string]*models.TicketType, error) {
	table := make(map[string]int64, len(lines))
	ticketTypes := make(map[string]*models.TicketType, len(lines))

	for _, line := range lines {
		if _, ok := ticketTypes[line.Name]; ok {
			continue
		}
		canonical, err := s.resolver.UnitPrice(line.Name)
		if err != nil {
			return nil, nil, err
		}
		ticket, err := ticketsRepo.GetOrCreate(ctx, line.Name, canonical, pricing.DefaultDescriptions[line.Name])
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving ticket type")
		}
		table[line.Name] = ticket.PriceMinor
		ticketTypes[line.Name] = ticket
	}

	quote, err := pricing.NewResolver(table).Quote(lines, discountRate)
	if err != nil {
		return nil, nil, err
	}
	return quote, ticketTypes, nil
}

// createOrder persists the order, retrying on the astronomically unlikely
// order reference collision.
func (s *service) createOrder(ctx context.Context, ordersRepo orders.Repository, user *models.User, quote *pricing.Quote, ticketTypes map[string]*models.TicketType, discount *models.Discount, affiliate *models.Affiliate) (*models.Order, error) {
	items := make([]models.OrderItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		ticket := ticketTypes[line.Name]
		items = append(items, models.OrderItem{
			TicketTypeID:   ticket.ID,
			Quantity:       line.Quantity,
			UnitPriceMinor: line.UnitPriceMinor,
			TotalMinor:     line.TotalMinor,
		})
	}

	order := &models.Order{
		UserID:             user.ID,
		User:               user,
		SubtotalMinor:      quote.SubtotalMinor,
		DiscountMinor:      quote.DiscountMinor,
		ProcessingFeeMinor: quote.ProcessingFeeMinor,
		TotalMinor:         quote.TotalMinor,
		IsActive:           true,
		EventDate:          s.eventCfg.Date,
		EventTime:          s.eventCfg.Time,
		EventLocation:      s.eventCfg.Location,
		Items:              items,
	}
	if discount != nil {
		discountID := discount.ID
		code := discount.Code
		order.DiscountID = &discountID
		order.DiscountCode = &code
	}
	if affiliate != nil {
		affiliateID := affiliate.ID
		order.AffiliateID = &affiliateID
	}

	var lastErr error
	for attempt := 0; attempt < orderIDCreateAttempts; attempt++ {
		orderID, err := orders.NewOrderID(s.now())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating order reference")
		}
		order.OrderID = orderID

		created, err := ordersRepo.Create(ctx, order)
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "creating order")
}

// resolveAffiliate maps a referral code to an affiliate. Unknown or inactive
// codes are dropped silently so a stale link never blocks a sale.
func (s *service) resolveAffiliate(ctx context.Context, refCode string) *models.Affiliate {
	refCode = strings.TrimSpace(refCode)
	if refCode == "" || s.affiliates == nil {
		return nil
	}
	affiliate, err := s.affiliates.FindByRefCode(ctx, refCode)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "ref_code", refCode), "resolving referral code failed")
		}
		return nil
	}
	return affiliate
}

// Complete verifies the payment behind an order reference and settles it.
// The conditional status flip makes re-verification idempotent: only the
// caller that observes the transition runs fulfillment.
func (s *service) Complete(ctx context.Context, reference string) (*models.Order, error) {
	if !orders.IsValidOrderID(reference) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order reference")
	}
	ctx = s.logg.WithOrderID(ctx, reference)

	order, err := s.ordersRepo.FindByOrderID(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}

	// Already settled; nothing left to verify.
	if order.PaymentStatus == enums.PaymentStatusPaid {
		s.checkout.IncSettlement(outcomeReplayed)
		return order, nil
	}

	started := s.now()
	verification, err := s.gateway.Verify(ctx, reference)
	s.checkout.ObserveGatewayDuration("verify_transaction", s.now().Sub(started))
	if err != nil {
		// Outcome unknown; leave the order untouched so a later retry can
		// settle it.
		return nil, err
	}

	if !verification.Succeeded {
		flipped, err := s.ordersRepo.MarkFailed(ctx, reference)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording failed payment")
		}
		if flipped {
			s.checkout.IncSettlement(outcomeDeclined)
			s.logg.Info(s.logg.WithField(ctx, "gateway_status", verification.Status), "payment declined")
		}
		return nil, pkgerrors.New(pkgerrors.CodePaymentDeclined, "payment was not successful")
	}

	if verification.AmountMinor != order.TotalMinor {
		err := pkgerrors.New(pkgerrors.CodeDependency, "settled amount does not match the order total")
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"expected_minor": order.TotalMinor,
			"settled_minor":  verification.AmountMinor,
		}), "settlement amount mismatch", err)
		return nil, err
	}

	return s.settlePaid(ctx, reference)
}

// settlePaid flips the order to paid and, when this caller wins the flip,
// runs the fulfillment side effects exactly once.
func (s *service) settlePaid(ctx context.Context, reference string) (*models.Order, error) {
	flipped, err := s.ordersRepo.MarkPaid(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling order")
	}

	order, err := s.ordersRepo.FindByOrderID(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading settled order")
	}

	if !flipped {
		s.checkout.IncSettlement(outcomeReplayed)
		return order, nil
	}

	s.checkout.IncSettlement(outcomePaid)
	s.consumeDiscount(ctx, order)

	if s.fulfillment != nil {
		if err := s.fulfillment.Run(ctx, order); err != nil {
			// The payment is settled; failed side effects are logged and
			// counted, never surfaced to the buyer.
			s.logg.Error(ctx, "fulfillment finished with errors", err)
		}
	}

	s.logg.Info(ctx, "order settled")
	return order, nil
}

// consumeDiscount burns one use of the order's discount code. Runs only on
// the winning settlement, so a code is consumed at most once per order.
func (s *service) consumeDiscount(ctx context.Context, order *models.Order) {
	if order.DiscountID == nil {
		return
	}
	bumped, err := s.discountRepo.IncrementUsage(ctx, *order.DiscountID)
	if err != nil {
		s.logg.Error(ctx, "incrementing discount usage failed", err)
		return
	}
	if !bumped {
		s.logg.Warn(ctx, "discount code deactivated before settlement; usage not counted")
	}
}
