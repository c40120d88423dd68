package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pauljones0/greenshelf/internal/models"
)

// SQLStore keeps products in a SQLite database through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database at path and migrates the
// products table. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases shared across goroutines.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Product{}); err != nil {
		return nil, fmt.Errorf("failed to migrate products table: %w", err)
	}
	return NewSQLStore(db), nil
}

// NewSQLStore wraps an already migrated gorm database.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetProductByID retrieves a product by its ID.
func (s *SQLStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
		}
		return nil, &models.PersistenceError{Op: "get product", ID: id, Err: err}
	}
	return &p, nil
}

// CreateProduct saves a new product. Returns ErrProductExists if the ID is taken.
func (s *SQLStore) CreateProduct(ctx context.Context, p models.Product) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
		return &models.PersistenceError{Op: "create product", ID: p.ID, Err: err}
	}
	if count > 0 {
		return fmt.Errorf("product %s: %w", p.ID, models.ErrProductExists)
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return &models.PersistenceError{Op: "create product", ID: p.ID, Err: err}
	}
	return nil
}

// UpdatePricing writes only the derived pricing fields.
func (s *SQLStore) UpdatePricing(ctx context.Context, id string, price float64, discountPercent int, updatedAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
		"current_price":    price,
		"discount_percent": discountPercent,
		"updated_at":       updatedAt,
	})
	if err := result.Error; err != nil {
		return &models.PersistenceError{Op: "update pricing", ID: id, Err: err}
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// QueryActiveSellItems returns active sell listings, optionally only those
// expiring on or before expiryBefore.
func (s *SQLStore) QueryActiveSellItems(ctx context.Context, expiryBefore *time.Time) ([]models.Product, error) {
	q := s.db.WithContext(ctx).
		Where("status = ? AND listing_type = ?", models.StatusActive, models.ListingSell)
	if expiryBefore != nil {
		q = q.Where("expiry_date <= ?", *expiryBefore)
	}

	var products []models.Product
	if err := q.Order("expiry_date").Find(&products).Error; err != nil {
		return nil, &models.PersistenceError{Op: "query active sell items", Err: err}
	}
	return products, nil
}
