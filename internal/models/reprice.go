package models

// RepriceResult describes one listing after the pricing rule was applied.
type RepriceResult struct {
	ItemID          string      `json:"itemId"`
	Name            string      `json:"name"`
	ListingType     ListingType `json:"listingType"`
	OldPrice        float64     `json:"oldPrice"`
	NewPrice        float64     `json:"newPrice"`
	DiscountPercent int         `json:"discountPercent"`
	DaysToExpiry    int         `json:"daysToExpiry"`
	Changed         bool        `json:"changed"`
}

// RepriceError records a listing that could not be repriced.
type RepriceError struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

// RepriceSummary is the outcome of a batch recompute. A batch can succeed
// partially: callers must inspect Errors.
type RepriceSummary struct {
	TotalScanned int             `json:"totalScanned"`
	UpdatedCount int             `json:"updatedCount"`
	Skipped      int             `json:"skipped,omitempty"`
	Results      []RepriceResult `json:"results"`
	Errors       []RepriceError  `json:"errors"`
}

// Changed returns the results whose stored price was rewritten.
func (s RepriceSummary) Changed() []RepriceResult {
	var out []RepriceResult
	for _, r := range s.Results {
		if r.Changed {
			out = append(out, r)
		}
	}
	return out
}
