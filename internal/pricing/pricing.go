// Package pricing computes the sale price of a listing from its original
// price, expiry date and discount configuration.
package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/greenshelf/internal/models"
	"github.com/pauljones0/greenshelf/internal/validator"
)

// ExpiringSoonDays is the days-to-expiry at or below which a listing is
// flagged as expiring soon.
const ExpiringSoonDays = 2

// Tier is one step of the automatic markdown table: listings with at most
// MaxDays left get at least Percent off.
type Tier struct {
	MaxDays int
	Percent int
}

// Tiers is the canonical markdown table, ordered by MaxDays. Listings with
// zero or fewer days left get no automatic markdown.
var Tiers = []Tier{
	{MaxDays: 1, Percent: 50},
	{MaxDays: 2, Percent: 30},
	{MaxDays: 5, Percent: 20},
	{MaxDays: 7, Percent: 10},
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)

	v = validator.New()
)

// Input is the subset of a listing the rule reads.
type Input struct {
	OriginalPrice float64             `validate:"gte=0"`
	ExpiryDate    time.Time           `validate:"required"`
	ListingType   models.ListingType  `validate:"required,oneof=sell donate"`
	DiscountMode  models.DiscountMode `validate:"omitempty,oneof=percentOff amountOff"`
	DiscountValue float64             `validate:"gte=0"`
}

// InputFor extracts the pricing input of a product.
func InputFor(p *models.Product) Input {
	return Input{
		OriginalPrice: p.OriginalPrice,
		ExpiryDate:    p.ExpiryDate,
		ListingType:   p.ListingType,
		DiscountMode:  p.DiscountMode,
		DiscountValue: p.DiscountValue,
	}
}

// Result is the outcome of one evaluation.
type Result struct {
	FinalPrice      float64 `json:"finalPrice"`
	DiscountPercent int     `json:"discountPercent"`
	DaysToExpiry    int     `json:"daysToExpiry"`
	IsExpiringSoon  bool    `json:"isExpiringSoon"`
}

// Evaluate applies the pricing rule at the instant now. It never reads the
// wall clock.
func Evaluate(in Input, now time.Time) (Result, error) {
	if err := check(in); err != nil {
		return Result{}, err
	}

	days := DaysToExpiry(in.ExpiryDate, now)
	res := Result{
		DaysToExpiry:   days,
		IsExpiringSoon: days <= ExpiringSoonDays,
	}

	if in.ListingType == models.ListingDonate {
		res.DiscountPercent = 100
		return res, nil
	}

	original := decimal.NewFromFloat(in.OriginalPrice)
	discount := decimal.NewFromFloat(in.DiscountValue)

	var final decimal.Decimal
	switch in.DiscountMode {
	case models.DiscountAmountOff:
		// Automatic tiers do not apply to amount-off listings.
		amount := decimal.Min(discount, original)
		final = original.Sub(amount)
		if original.IsPositive() {
			res.DiscountPercent = int(amount.Div(original).Mul(hundred).Round(0).IntPart())
		}
	default:
		effective := decimal.Max(discount, decimal.NewFromInt(int64(AutoDiscountPercent(days))))
		final = original.Mul(one.Sub(effective.Div(hundred)))
		res.DiscountPercent = int(effective.Round(0).IntPart())
	}

	final = final.Round(2)
	if final.IsNegative() {
		final = decimal.Zero
	}
	if final.GreaterThan(original) {
		final = original
	}
	res.FinalPrice = final.InexactFloat64()
	return res, nil
}

// AutoDiscountPercent returns the minimum markdown mandated by the number of
// days left before expiry.
func AutoDiscountPercent(daysToExpiry int) int {
	if daysToExpiry <= 0 {
		return 0
	}
	for _, t := range Tiers {
		if daysToExpiry <= t.MaxDays {
			return t.Percent
		}
	}
	return 0
}

// DaysToExpiry counts whole calendar days from now to expiry, both taken in
// the expiry date's location. Lapsed listings yield zero or a negative count.
func DaysToExpiry(expiry, now time.Time) int {
	ey, em, ed := expiry.Date()
	ny, nm, nd := now.In(expiry.Location()).Date()
	e := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(math.Round(e.Sub(n).Hours() / 24))
}

func check(in Input) error {
	if err := v.ValidateStruct(in); err != nil {
		return err
	}
	if math.IsInf(in.OriginalPrice, 0) {
		return &models.ValidationError{Fields: map[string]string{"OriginalPrice": "must be finite"}}
	}
	if math.IsInf(in.DiscountValue, 0) {
		return &models.ValidationError{Fields: map[string]string{"DiscountValue": "must be finite"}}
	}
	if in.ListingType == models.ListingSell && in.DiscountMode != models.DiscountAmountOff && in.DiscountValue > 100 {
		return &models.ValidationError{Fields: map[string]string{"DiscountValue": "must be <= 100 for percentOff"}}
	}
	return nil
}
