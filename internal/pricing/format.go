package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pauljones0/greenshelf/internal/models"
)

const dateLayout = "2006-01-02"

// FormatPrice renders a price for display. Donations show as FREE.
func FormatPrice(price float64, lt models.ListingType) string {
	if lt == models.ListingDonate {
		return "FREE"
	}
	return "$" + decimal.NewFromFloat(price).StringFixed(2)
}

// ParseExpiryDate accepts a calendar date (YYYY-MM-DD) or an RFC 3339
// timestamp and returns the date at midnight UTC.
func ParseExpiryDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		ts, tsErr := time.Parse(time.RFC3339, s)
		if tsErr != nil {
			return time.Time{}, &models.ValidationError{
				Message: fmt.Sprintf("unparseable expiry date %q", s),
				Fields:  map[string]string{"expiryDate": "must be a date (YYYY-MM-DD)"},
			}
		}
		t = ts
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
