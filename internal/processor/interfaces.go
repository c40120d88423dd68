package processor

import (
	"context"
	"time"

	"github.com/pauljones0/greenshelf/internal/models"
)

// ProductStore abstracts the storage layer for listings.
type ProductStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) error
	UpdatePricing(ctx context.Context, id string, price float64, discountPercent int, updatedAt time.Time) error
	QueryActiveSellItems(ctx context.Context, expiryBefore *time.Time) ([]models.Product, error)
}

// PriceNotifier abstracts the notification layer.
type PriceNotifier interface {
	NotifyPriceDrops(ctx context.Context, summary models.RepriceSummary) error
	NotifyListing(ctx context.Context, p models.Product) error
}
