package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/greenshelf/internal/config"
	"github.com/pauljones0/greenshelf/internal/models"
	"github.com/pauljones0/greenshelf/internal/pricing"
	"github.com/pauljones0/greenshelf/internal/validator"
)

// Processor is the pricing surface the HTTP server drives.
type Processor interface {
	RecomputePrices(ctx context.Context, daysThreshold *int) (*models.RepriceSummary, error)
	CreateListing(ctx context.Context, product models.Product) (*models.Product, pricing.Result, error)
	GetProductPricing(ctx context.Context, id string) (*ProductPricing, error)
}

// PriceProcessor reprices listings held in a ProductStore and reports
// changes through an optional PriceNotifier.
type PriceProcessor struct {
	store       ProductStore
	notifier    PriceNotifier
	validator   *validator.Validator
	now         func() time.Time
	itemTimeout time.Duration
	concurrency int
}

// ProductPricing is a listing together with its freshly evaluated price.
type ProductPricing struct {
	Product *models.Product `json:"product"`
	Pricing pricing.Result  `json:"pricing"`
}

// New builds a processor. n may be nil to disable notifications.
func New(store ProductStore, n PriceNotifier, cfg *config.Config) *PriceProcessor {
	itemTimeout := cfg.ItemTimeout
	if itemTimeout <= 0 {
		slog.Warn("Invalid item timeout, using default", "timeout", itemTimeout, "default", "10s")
		itemTimeout = 10 * time.Second
	}
	concurrency := cfg.BatchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &PriceProcessor{
		store:       store,
		notifier:    n,
		validator:   validator.New(),
		now:         time.Now,
		itemTimeout: itemTimeout,
		concurrency: concurrency,
	}
}

// CreateListing validates a new listing, prices it and persists it once with
// the computed price already in place.
func (p *PriceProcessor) CreateListing(ctx context.Context, product models.Product) (*models.Product, pricing.Result, error) {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.Status == "" {
		product.Status = models.StatusActive
	}
	if product.DiscountMode == "" {
		product.DiscountMode = models.DiscountPercentOff
	}
	if err := p.validator.ValidateStruct(product); err != nil {
		return nil, pricing.Result{}, err
	}

	now := p.now().UTC()
	res, err := pricing.Evaluate(pricing.InputFor(&product), now)
	if err != nil {
		return nil, pricing.Result{}, err
	}
	product.CurrentPrice = res.FinalPrice
	product.DiscountPercent = res.DiscountPercent
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := p.store.CreateProduct(ctx, product); err != nil {
		return nil, pricing.Result{}, fmt.Errorf("failed to create listing %s: %w", product.Name, err)
	}
	slog.Info("New listing added", "id", product.ID, "name", product.Name, "price", product.CurrentPrice, "type", product.ListingType)

	if product.ListingType == models.ListingDonate && p.notifier != nil {
		if err := p.notifier.NotifyListing(ctx, product); err != nil {
			slog.Warn("Listing notification failed", "id", product.ID, "error", err)
		}
	}
	return &product, res, nil
}

// GetProductPricing evaluates the current price of a listing without
// touching the stored cache.
func (p *PriceProcessor) GetProductPricing(ctx context.Context, id string) (*ProductPricing, error) {
	product, err := p.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := pricing.Evaluate(pricing.InputFor(product), p.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return &ProductPricing{Product: product, Pricing: res}, nil
}

// UpdateProductPrice re-evaluates one stored listing and writes the pricing
// fields back only when they changed.
func (p *PriceProcessor) UpdateProductPrice(ctx context.Context, id string) (*models.RepriceResult, error) {
	product, err := p.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	res, err := pricing.Evaluate(pricing.InputFor(product), now)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}

	result := &models.RepriceResult{
		ItemID:          product.ID,
		Name:            product.Name,
		ListingType:     product.ListingType,
		OldPrice:        product.CurrentPrice,
		NewPrice:        res.FinalPrice,
		DiscountPercent: res.DiscountPercent,
		DaysToExpiry:    res.DaysToExpiry,
	}
	if product.CurrentPrice == res.FinalPrice && product.DiscountPercent == res.DiscountPercent {
		return result, nil
	}

	if err := p.store.UpdatePricing(ctx, product.ID, res.FinalPrice, res.DiscountPercent, now); err != nil {
		return nil, err
	}
	result.Changed = true
	slog.Info("Updated price", "id", product.ID, "name", product.Name,
		"old", product.CurrentPrice, "new", res.FinalPrice,
		"discount", res.DiscountPercent, "daysToExpiry", res.DaysToExpiry)
	return result, nil
}

// RecomputePrices reprices every active sell listing, or only those expiring
// within daysThreshold days when it is non-nil. Per-item failures end up in
// the summary's Errors. Cancelling ctx stops scheduling further items;
// updates already started run to completion under their own timeout.
func (p *PriceProcessor) RecomputePrices(ctx context.Context, daysThreshold *int) (*models.RepriceSummary, error) {
	var cutoff *time.Time
	if daysThreshold != nil {
		if *daysThreshold < 0 {
			return nil, models.NewValidationError("daysThreshold must not be negative, got %d", *daysThreshold)
		}
		y, m, d := p.now().UTC().Date()
		c := time.Date(y, m, d+*daysThreshold, 0, 0, 0, 0, time.UTC)
		cutoff = &c
	}

	items, err := p.store.QueryActiveSellItems(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings for repricing: %w", err)
	}
	attrs := []any{"count", len(items)}
	if daysThreshold != nil {
		attrs = append(attrs, "daysThreshold", *daysThreshold)
	}
	slog.Info("Starting price recompute", attrs...)

	summary := &models.RepriceSummary{
		TotalScanned: len(items),
		Results:      []models.RepriceResult{},
		Errors:       []models.RepriceError{},
	}

	var (
		mu          sync.Mutex
		g           errgroup.Group
		lateSkipped int
	)
	g.SetLimit(p.concurrency)

	for i, item := range items {
		if ctx.Err() != nil {
			summary.Skipped = len(items) - i
			break
		}
		id := item.ID
		g.Go(func() error {
			// g.Go may have waited for a slot while ctx was cancelled.
			if ctx.Err() != nil {
				mu.Lock()
				lateSkipped++
				mu.Unlock()
				return nil
			}
			itemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.itemTimeout)
			defer cancel()

			res, err := p.UpdateProductPrice(itemCtx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Failed to reprice listing", "id", id, "error", err)
				summary.Errors = append(summary.Errors, models.RepriceError{ItemID: id, Reason: err.Error()})
				return nil
			}
			summary.Results = append(summary.Results, *res)
			if res.Changed {
				summary.UpdatedCount++
			}
			return nil
		})
	}
	_ = g.Wait()
	summary.Skipped += lateSkipped

	sort.Slice(summary.Results, func(i, j int) bool { return summary.Results[i].ItemID < summary.Results[j].ItemID })
	sort.Slice(summary.Errors, func(i, j int) bool { return summary.Errors[i].ItemID < summary.Errors[j].ItemID })

	slog.Info("Finished price recompute", "scanned", summary.TotalScanned, "updated", summary.UpdatedCount,
		"errors", len(summary.Errors), "skipped", summary.Skipped)

	if summary.UpdatedCount > 0 && p.notifier != nil && ctx.Err() == nil {
		if err := p.notifier.NotifyPriceDrops(ctx, *summary); err != nil {
			slog.Warn("Price drop notification failed", "error", err)
		}
	}

	if summary.Skipped > 0 {
		return summary, fmt.Errorf("price recompute stopped after %d of %d listings: %w",
			summary.TotalScanned-summary.Skipped, summary.TotalScanned, ctx.Err())
	}
	return summary, nil
}
