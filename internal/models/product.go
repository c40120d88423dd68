package models

import (
	"time"
)

// ListingType says whether a product is sold or given away.
type ListingType string

const (
	ListingSell   ListingType = "sell"
	ListingDonate ListingType = "donate"
)

// DiscountMode selects how DiscountValue is interpreted.
type DiscountMode string

const (
	DiscountPercentOff DiscountMode = "percentOff"
	DiscountAmountOff  DiscountMode = "amountOff"
)

// Status is the lifecycle state of a listing. Only active listings are
// repriced or sold.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusSold     Status = "sold"
	StatusExpired  Status = "expired"
)

// Product is a listing as persisted by the stores. CurrentPrice and
// DiscountPercent are caches written only by the pricing processor.
type Product struct {
	ID          string `firestore:"-" gorm:"primaryKey;size:36" json:"id"`
	Name        string `firestore:"name" gorm:"size:200;not null" json:"name" validate:"required"`
	Description string `firestore:"description,omitempty" gorm:"size:1000" json:"description,omitempty"`
	Category    string `firestore:"category,omitempty" gorm:"size:50" json:"category,omitempty"`
	SellerID    string `firestore:"sellerID,omitempty" gorm:"size:64;index" json:"sellerId,omitempty"`

	OriginalPrice   float64      `firestore:"originalPrice" gorm:"not null" json:"originalPrice" validate:"gte=0"`
	CurrentPrice    float64      `firestore:"currentPrice" gorm:"not null" json:"currentPrice"`
	DiscountPercent int          `firestore:"discountPercent" gorm:"not null;default:0" json:"discountPercent"`
	ExpiryDate      time.Time    `firestore:"expiryDate" gorm:"not null;index" json:"expiryDate" validate:"required"`
	ListingType     ListingType  `firestore:"listingType" gorm:"size:16;not null;index:idx_status_type" json:"listingType" validate:"required,oneof=sell donate"`
	DiscountMode    DiscountMode `firestore:"discountMode" gorm:"size:16;not null" json:"discountMode" validate:"omitempty,oneof=percentOff amountOff"`
	DiscountValue   float64      `firestore:"discountValue" gorm:"not null;default:0" json:"discountValue" validate:"gte=0"`
	Status          Status       `firestore:"status" gorm:"size:16;not null;index:idx_status_type" json:"status" validate:"omitempty,oneof=active inactive sold expired"`

	Quantity int    `firestore:"quantity" gorm:"not null;default:0" json:"quantity" validate:"gte=0"`
	Unit     string `firestore:"unit,omitempty" gorm:"size:16" json:"unit,omitempty"`

	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// TableName returns the table name for Product model.
func (Product) TableName() string {
	return "products"
}

// IsRepriceable reports whether batch recomputes should touch the product.
func (p *Product) IsRepriceable() bool {
	return p.Status == StatusActive && p.ListingType == ListingSell
}
