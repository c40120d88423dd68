package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/greenshelf/internal/models"
)

func newTestClient(url string) *Client {
	client := New(url)
	// Override rate limiter for tests to run fast
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	client.maxRetries = 0
	return client
}

func sampleSummary(n int) models.RepriceSummary {
	s := models.RepriceSummary{TotalScanned: n + 1}
	for i := 0; i < n; i++ {
		s.Results = append(s.Results, models.RepriceResult{
			ItemID: "id", Name: "Bread", ListingType: models.ListingSell,
			OldPrice: 10, NewPrice: 5, DiscountPercent: 50, DaysToExpiry: 1, Changed: true,
		})
	}
	s.Results = append(s.Results, models.RepriceResult{ItemID: "same", Name: "Rice", OldPrice: 3, NewPrice: 3})
	s.UpdatedCount = n
	return s
}

func TestFormatPriceDrops(t *testing.T) {
	embed := formatPriceDrops(sampleSummary(1).Changed())

	if embed.Title != "Price drops: 1 listing" {
		t.Errorf("Title incorrect. Got: %s", embed.Title)
	}
	want := "**Bread**: ~~$10.00~~ → $5.00 (50% off, 1 day left)"
	if embed.Description != want {
		t.Errorf("Description incorrect.\nGot:  %s\nWant: %s", embed.Description, want)
	}
	if embed.Color != colorHugeDrop {
		t.Errorf("Color = %d, want %d", embed.Color, colorHugeDrop)
	}
	if embed.Footer != nil {
		t.Errorf("Footer should be empty, got %+v", embed.Footer)
	}
}

func TestFormatPriceDrops_Truncates(t *testing.T) {
	embed := formatPriceDrops(sampleSummary(13).Changed())

	if got := strings.Count(embed.Description, "\n") + 1; got != maxListedDrops {
		t.Errorf("Expected %d lines, got %d", maxListedDrops, got)
	}
	if embed.Footer == nil || embed.Footer.Text != "and 3 more" {
		t.Errorf("Footer incorrect: %+v", embed.Footer)
	}
}

func TestFormatListing_Donation(t *testing.T) {
	embed := formatListing(models.Product{
		Name:          "Apples",
		OriginalPrice: 50,
		ListingType:   models.ListingDonate,
		ExpiryDate:    time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		Quantity:      4,
		Unit:          "kg",
	})

	if embed.Title != "New listing: Apples (FREE)" {
		t.Errorf("Title incorrect. Got: %s", embed.Title)
	}
	if embed.Color != colorDonation {
		t.Errorf("Color = %d, want donation color", embed.Color)
	}
	if len(embed.Fields) != 2 || embed.Fields[0].Value != "2026-09-13" || embed.Fields[1].Value != "4 kg" {
		t.Errorf("Fields incorrect: %+v", embed.Fields)
	}
}

func TestDropColor(t *testing.T) {
	tests := map[int]int{0: colorMildDrop, 10: colorGoodDrop, 30: colorBigDrop, 49: colorBigDrop, 50: colorHugeDrop, 100: colorHugeDrop}
	for pct, want := range tests {
		if got := dropColor(pct); got != want {
			t.Errorf("dropColor(%d) = %d, want %d", pct, got, want)
		}
	}
}

func TestClient_NotifyPriceDrops(t *testing.T) {
	var received discordWebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.NotifyPriceDrops(context.Background(), sampleSummary(2)); err != nil {
		t.Fatalf("NotifyPriceDrops() error = %v", err)
	}
	if len(received.Embeds) != 1 || received.Embeds[0].Title != "Price drops: 2 listings" {
		t.Errorf("unexpected payload %+v", received)
	}
}

func TestClient_NotifyPriceDrops_NothingChanged(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if err := client.NotifyPriceDrops(context.Background(), sampleSummary(0)); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("Expected no request, got %d", calls)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "invalid embed"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.NotifyListing(context.Background(), models.Product{Name: "Milk", ListingType: models.ListingDonate})
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "invalid embed") {
		t.Errorf("error should include body, got %v", err)
	}
}

func TestClient_DoesNotRetryClientError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.maxRetries = 2
	if err := client.NotifyPriceDrops(context.Background(), sampleSummary(1)); err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 attempt, got %d", got)
	}
}

func TestClient_RetriesTransientFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message": "rate limited"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.maxRetries = 1
	if err := client.NotifyPriceDrops(context.Background(), sampleSummary(1)); err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestClient_EmptyWebhook(t *testing.T) {
	c := New("")
	if err := c.NotifyPriceDrops(context.Background(), sampleSummary(1)); err != nil {
		t.Errorf("Expected nil error for empty webhook, got %v", err)
	}
	if err := c.NotifyListing(context.Background(), models.Product{Name: "x"}); err != nil {
		t.Errorf("Expected nil error for empty webhook, got %v", err)
	}
}
