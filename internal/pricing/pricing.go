package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/shutupnraveee/backend/pkg/errors"
)

// DefaultTable is the server-side price list. Client-submitted prices are
// never trusted; resolution always goes through this table.
var DefaultTable = map[string]int64{
	"Solo Vibes":  5000,
	"Geng Energy": 18000,
}

// Descriptions for the public ticket catalog.
var DefaultDescriptions = map[string]string{
	"Solo Vibes":  "Single entry ticket",
	"Geng Energy": "Group entry for four",
}

var processingFeeRate = decimal.RequireFromString("0.05")

// LineInput is one requested ticket selection from the storefront.
type LineInput struct {
	Name     string
	Quantity int
}

// QuoteLine is a priced line item.
type QuoteLine struct {
	Name           string
	Quantity       int
	UnitPriceMinor int64
	TotalMinor     int64
}

// Quote is the fully priced cart: lines, discount, fee, and total, all in
// integer minor units.
type Quote struct {
	Lines                   []QuoteLine
	SubtotalMinor           int64
	DiscountMinor           int64
	DiscountedSubtotalMinor int64
	ProcessingFeeMinor      int64
	TotalMinor              int64
}

// Resolver prices carts against the canonical table.
type Resolver struct {
	table map[string]int64
}

// NewResolver builds a resolver; a nil table falls back to the default list.
func NewResolver(table map[string]int64) *Resolver {
	if table == nil {
		table = DefaultTable
	}
	return &Resolver{table: table}
}

// UnitPrice returns the canonical price for the named ticket type.
func (r *Resolver) UnitPrice(name string) (int64, error) {
	price, ok := r.table[name]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown ticket type %q", name))
	}
	return price, nil
}

// Table returns the full price list.
func (r *Resolver) Table() map[string]int64 {
	out := make(map[string]int64, len(r.table))
	for name, price := range r.table {
		out[name] = price
	}
	return out
}

// Quote prices the cart. discountRate, when non-nil, must be in (0, 1] and is
// applied to the subtotal before the processing fee. The fee is 5% of the
// post-discount subtotal, rounded to the nearest minor unit.
func (r *Resolver) Quote(lines []LineInput, discountRate *decimal.Decimal) (*Quote, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one ticket is required")
	}

	quote := &Quote{Lines: make([]QuoteLine, 0, len(lines))}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for %q must be positive", line.Name))
		}
		unit, err := r.UnitPrice(line.Name)
		if err != nil {
			return nil, err
		}
		total := unit * int64(line.Quantity)
		quote.Lines = append(quote.Lines, QuoteLine{
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceMinor: unit,
			TotalMinor:     total,
		})
		quote.SubtotalMinor += total
	}

	if discountRate != nil {
		rate := *discountRate
		if rate.LessThanOrEqual(decimal.Zero) || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount rate must be in (0, 1]")
		}
		quote.DiscountMinor = decimal.NewFromInt(quote.SubtotalMinor).Mul(rate).Round(0).IntPart()
	}

	quote.DiscountedSubtotalMinor = quote.SubtotalMinor - quote.DiscountMinor
	quote.ProcessingFeeMinor = decimal.NewFromInt(quote.DiscountedSubtotalMinor).Mul(processingFeeRate).Round(0).IntPart()
	quote.TotalMinor = quote.DiscountedSubtotalMinor + quote.ProcessingFeeMinor

	return quote, nil
}
