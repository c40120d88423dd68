package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pauljones0/greenshelf/internal/checkout"
	"github.com/pauljones0/greenshelf/internal/models"
	"github.com/pauljones0/greenshelf/internal/pricing"
	"github.com/pauljones0/greenshelf/internal/processor"
)

const maxBodyBytes = 1 << 20

type quoter interface {
	Quote(ctx context.Context, lines []checkout.Line) (*checkout.Quote, error)
}

type Server struct {
	processor processor.Processor
	checkout  quoter
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("PUT /update-prices", s.UpdatePricesHandler)
	mux.HandleFunc("POST /products", s.CreateProductHandler)
	mux.HandleFunc("GET /products/{id}/pricing", s.ProductPricingHandler)
	mux.HandleFunc("POST /checkout/quote", s.QuoteHandler)
	return mux
}

func (s *Server) UpdatePricesHandler(w http.ResponseWriter, r *http.Request) {
	var threshold *int
	if raw := r.URL.Query().Get("daysThreshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, models.NewValidationError("daysThreshold must be an integer, got %q", raw))
			return
		}
		threshold = &n
	}

	summary, err := s.processor.RecomputePrices(r.Context(), threshold)
	if err != nil {
		slog.Error("Price update failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: fmt.Sprintf("Updated prices for %d out of %d products", summary.UpdatedCount, summary.TotalScanned),
		Data:    summary.Results,
		Errors:  summary.Errors,
	})
}

type createProductRequest struct {
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Category      string              `json:"category"`
	SellerID      string              `json:"sellerId"`
	OriginalPrice float64             `json:"originalPrice"`
	ExpiryDate    string              `json:"expiryDate"`
	ListingType   models.ListingType  `json:"listingType"`
	DiscountMode  models.DiscountMode `json:"discountMode"`
	DiscountValue float64             `json:"discountValue"`
	Quantity      int                 `json:"quantity"`
	Unit          string              `json:"unit"`
}

func (s *Server) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	expiry, err := pricing.ParseExpiryDate(req.ExpiryDate)
	if err != nil {
		writeError(w, err)
		return
	}

	product, res, err := s.processor.CreateListing(r.Context(), models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		SellerID:      req.SellerID,
		OriginalPrice: req.OriginalPrice,
		ExpiryDate:    expiry,
		ListingType:   req.ListingType,
		DiscountMode:  req.DiscountMode,
		DiscountValue: req.DiscountValue,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "Product created successfully",
		Data:    processor.ProductPricing{Product: product, Pricing: res},
	})
}

func (s *Server) ProductPricingHandler(w http.ResponseWriter, r *http.Request) {
	pp, err := s.processor.GetProductPricing(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: pp})
}

type quoteRequest struct {
	Items []checkout.Line `json:"items"`
}

func (s *Server) QuoteHandler(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	q, err := s.checkout.Quote(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: q})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, models.NewValidationError("invalid JSON body: %v", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		message = "Validation failed"
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = "Product not found"
	case errors.Is(err, models.ErrProductExists):
		status = http.StatusConflict
		message = "Product already exists"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
		message = "Request interrupted"
	}
	writeJSON(w, status, apiResponse{Success: false, Message: message, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// requestLogger logs method, path and latency of every request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Handled request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
