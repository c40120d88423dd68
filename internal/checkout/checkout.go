// Package checkout prices a cart against freshly evaluated listing prices.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/greenshelf/internal/models"
	"github.com/pauljones0/greenshelf/internal/pricing"
)

// ProductGetter is the read side of the listing store.
type ProductGetter interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
}

type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type QuoteLine struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	OriginalPrice float64 `json:"originalPrice"`
	LineTotal     float64 `json:"lineTotal"`
}

type Quote struct {
	Lines    []QuoteLine `json:"lines"`
	Subtotal float64     `json:"subtotal"`
	Tax      float64     `json:"tax"`
	Total    float64     `json:"total"`
}

type Service struct {
	store   ProductGetter
	taxRate decimal.Decimal
	now     func() time.Time
}

func New(store ProductGetter, taxRate float64) *Service {
	return &Service{
		store:   store,
		taxRate: decimal.NewFromFloat(taxRate),
		now:     time.Now,
	}
}

// Quote prices each line at the listing's current price, evaluated now
// rather than read from the stored cache. Lines for the same product are
// checked against its stock together.
func (s *Service) Quote(ctx context.Context, lines []Line) (*Quote, error) {
	if len(lines) == 0 {
		return nil, models.NewValidationError("cart is empty")
	}
	wanted := make(map[string]int, len(lines))
	for i, l := range lines {
		if l.ProductID == "" {
			return nil, models.NewValidationError("line %d: productId is required", i)
		}
		if l.Quantity <= 0 {
			return nil, models.NewValidationError("line %d: quantity must be positive, got %d", i, l.Quantity)
		}
		wanted[l.ProductID] += l.Quantity
	}

	now := s.now().UTC()
	products := make(map[string]*models.Product, len(wanted))
	prices := make(map[string]decimal.Decimal, len(wanted))
	for _, l := range lines {
		if _, ok := products[l.ProductID]; ok {
			continue
		}
		p, err := s.store.GetProductByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		if p.Status != models.StatusActive || p.Quantity < wanted[l.ProductID] {
			return nil, models.NewValidationError("product %q is no longer available in the required quantity", p.Name)
		}
		res, err := pricing.Evaluate(pricing.InputFor(p), now)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}
		products[l.ProductID] = p
		prices[l.ProductID] = decimal.NewFromFloat(res.FinalPrice)
	}

	quote := &Quote{Lines: make([]QuoteLine, 0, len(lines))}
	subtotal := decimal.Zero
	for _, l := range lines {
		p := products[l.ProductID]
		unit := prices[l.ProductID]
		lineTotal := unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		subtotal = subtotal.Add(lineTotal)
		quote.Lines = append(quote.Lines, QuoteLine{
			ProductID:     p.ID,
			Name:          p.Name,
			Quantity:      l.Quantity,
			UnitPrice:     unit.InexactFloat64(),
			OriginalPrice: p.OriginalPrice,
			LineTotal:     lineTotal.InexactFloat64(),
		})
	}
	tax := subtotal.Mul(s.taxRate).Round(2)
	quote.Subtotal = subtotal.InexactFloat64()
	quote.Tax = tax.InexactFloat64()
	quote.Total = subtotal.Add(tax).InexactFloat64()
	return quote, nil
}
