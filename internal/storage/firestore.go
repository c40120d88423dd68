package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/greenshelf/internal/models"
)

const firestoreCollection = "products"

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// GetProductByID retrieves a product by its Firestore Document ID.
func (s *FirestoreStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	doc, err := s.client.Collection(firestoreCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
		}
		return nil, &models.PersistenceError{Op: "get product", ID: id, Err: err}
	}
	if !doc.Exists() {
		return nil, fmt.Errorf("product %s: %w", id, models.ErrNotFound)
	}
	return decodeProduct(doc)
}

// CreateProduct stores a new product. Returns ErrProductExists if the ID is taken.
func (s *FirestoreStore) CreateProduct(ctx context.Context, p models.Product) error {
	docRef := s.client.Collection(firestoreCollection).Doc(p.ID)
	// Create fails if the document already exists.
	if _, err := docRef.Create(ctx, p); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("product %s: %w", p.ID, models.ErrProductExists)
		}
		return &models.PersistenceError{Op: "create product", ID: p.ID, Err: err}
	}
	return nil
}

// UpdatePricing writes only the derived pricing fields so a concurrent
// seller edit of other fields is not overwritten.
func (s *FirestoreStore) UpdatePricing(ctx context.Context, id string, price float64, discountPercent int, updatedAt time.Time) error {
	docRef := s.client.Collection(firestoreCollection).Doc(id)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "currentPrice", Value: price},
		{Path: "discountPercent", Value: discountPercent},
		{Path: "updatedAt", Value: updatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("product %s: %w", id, models.ErrNotFound)
		}
		return &models.PersistenceError{Op: "update pricing", ID: id, Err: err}
	}
	return nil
}

// QueryActiveSellItems returns active sell listings, optionally only those
// expiring on or before expiryBefore.
func (s *FirestoreStore) QueryActiveSellItems(ctx context.Context, expiryBefore *time.Time) ([]models.Product, error) {
	q := s.client.Collection(firestoreCollection).
		Where("status", "==", string(models.StatusActive)).
		Where("listingType", "==", string(models.ListingSell))
	if expiryBefore != nil {
		q = q.Where("expiryDate", "<=", *expiryBefore)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var products []models.Product
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &models.PersistenceError{Op: "query active sell items", Err: err}
		}
		p, err := decodeProduct(doc)
		if err != nil {
			// Returned by ID only; the per-item update reports the failure.
			slog.Warn("Skipping undecodable product", "id", doc.Ref.ID, "error", err)
			products = append(products, models.Product{ID: doc.Ref.ID})
			continue
		}
		products = append(products, *p)
	}
	return products, nil
}

func decodeProduct(doc *firestore.DocumentSnapshot) (*models.Product, error) {
	var p models.Product
	if err := doc.DataTo(&p); err != nil {
		return nil, &models.PersistenceError{Op: "decode product", ID: doc.Ref.ID, Err: err}
	}
	p.ID = doc.Ref.ID
	return &p, nil
}
