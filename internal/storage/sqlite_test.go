package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pauljones0/greenshelf/internal/models"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newProduct(name string, lt models.ListingType, st models.Status, expiry time.Time) models.Product {
	return models.Product{
		ID:            uuid.New().String(),
		Name:          name,
		OriginalPrice: 10,
		CurrentPrice:  10,
		ExpiryDate:    expiry,
		ListingType:   lt,
		DiscountMode:  models.DiscountPercentOff,
		Status:        st,
		Quantity:      4,
	}
}

func TestSQLStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	expiry := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	p := newProduct("Yogurt", models.ListingSell, models.StatusActive, expiry)
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	got, err := store.GetProductByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProductByID() error = %v", err)
	}
	if got.Name != "Yogurt" {
		t.Errorf("Name = %q, want %q", got.Name, "Yogurt")
	}
	if !got.ExpiryDate.Equal(expiry) {
		t.Errorf("ExpiryDate = %v, want %v", got.ExpiryDate, expiry)
	}
	if got.ListingType != models.ListingSell {
		t.Errorf("ListingType = %q, want sell", got.ListingType)
	}
}

func TestSQLStore_CreateDuplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	p := newProduct("Bread", models.ListingSell, models.StatusActive, time.Now().UTC())
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	err := store.CreateProduct(ctx, p)
	if !errors.Is(err, models.ErrProductExists) {
		t.Errorf("expected ErrProductExists, got %v", err)
	}
}

func TestSQLStore_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetProductByID(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLStore_UpdatePricing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	p := newProduct("Cheese", models.ListingSell, models.StatusActive, time.Now().UTC())
	if err := store.CreateProduct(ctx, p); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdatePricing(ctx, p.ID, 6.5, 35, time.Now().UTC()); err != nil {
		t.Fatalf("UpdatePricing() error = %v", err)
	}
	got, err := store.GetProductByID(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CurrentPrice != 6.5 || got.DiscountPercent != 35 {
		t.Errorf("got price %v / %d%%, want 6.5 / 35%%", got.CurrentPrice, got.DiscountPercent)
	}
	if got.OriginalPrice != 10 {
		t.Errorf("OriginalPrice changed to %v", got.OriginalPrice)
	}

	err = store.UpdatePricing(ctx, "missing", 1, 0, time.Now().UTC())
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing product, got %v", err)
	}
}

func TestSQLStore_QueryActiveSellItems(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	soon := newProduct("Soon", models.ListingSell, models.StatusActive, base.AddDate(0, 0, 2))
	later := newProduct("Later", models.ListingSell, models.StatusActive, base.AddDate(0, 0, 20))
	donated := newProduct("Donated", models.ListingDonate, models.StatusActive, base.AddDate(0, 0, 1))
	sold := newProduct("Sold", models.ListingSell, models.StatusSold, base.AddDate(0, 0, 1))
	for _, p := range []models.Product{soon, later, donated, sold} {
		if err := store.CreateProduct(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.QueryActiveSellItems(ctx, nil)
	if err != nil {
		t.Fatalf("QueryActiveSellItems() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 active sell items, got %d", len(all))
	}
	if all[0].Name != "Soon" {
		t.Errorf("expected results ordered by expiry, first = %q", all[0].Name)
	}

	cutoff := base.AddDate(0, 0, 5)
	expiring, err := store.QueryActiveSellItems(ctx, &cutoff)
	if err != nil {
		t.Fatalf("QueryActiveSellItems(cutoff) error = %v", err)
	}
	if len(expiring) != 1 || expiring[0].ID != soon.ID {
		t.Errorf("expected only %q before cutoff, got %+v", soon.Name, expiring)
	}
}

func TestSQLStore_QueryActiveSellItems_CutoffInclusive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 6, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"day before cutoff", cutoff.AddDate(0, 0, -1), true},
		{"on cutoff", cutoff, true},
		{"day after cutoff", cutoff.AddDate(0, 0, 1), false},
	}
	want := map[string]bool{}
	for _, tt := range tests {
		p := newProduct(tt.name, models.ListingSell, models.StatusActive, tt.expiry)
		if err := store.CreateProduct(ctx, p); err != nil {
			t.Fatal(err)
		}
		want[p.Name] = tt.want
	}

	got, err := store.QueryActiveSellItems(ctx, &cutoff)
	if err != nil {
		t.Fatalf("QueryActiveSellItems() error = %v", err)
	}
	returned := map[string]bool{}
	for _, p := range got {
		returned[p.Name] = true
	}
	for name, included := range want {
		if returned[name] != included {
			t.Errorf("%s: included = %v, want %v", name, returned[name], included)
		}
	}
}
