package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/greenshelf/internal/models"
	"github.com/pauljones0/greenshelf/internal/pricing"
	"github.com/pauljones0/greenshelf/internal/util"
)

const (
	colorMildDrop = 3092790  // #2F3136
	colorGoodDrop = 16776960 // #FFFF00
	colorBigDrop  = 16753920 // #FFA500
	colorHugeDrop = 16711680 // #FF0000
	colorDonation = 5763719  // #57F287

	maxListedDrops = 10
)

type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
	maxRetries  int
}

func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Discord allows roughly 5 webhook requests per 2 seconds.
		rateLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		maxRetries:  2,
	}
}

// NotifyPriceDrops posts one message listing the listings whose price
// changed in a batch.
func (c *Client) NotifyPriceDrops(ctx context.Context, summary models.RepriceSummary) error {
	if c.webhookURL == "" {
		return nil
	}
	changed := summary.Changed()
	if len(changed) == 0 {
		return nil
	}
	return c.post(ctx, formatPriceDrops(changed))
}

// NotifyListing announces a new listing, mainly donations for NGOs.
func (c *Client) NotifyListing(ctx context.Context, p models.Product) error {
	if c.webhookURL == "" {
		return nil
	}
	return c.post(ctx, formatListing(p))
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
}

func formatPriceDrops(changed []models.RepriceResult) discordEmbed {
	noun := "listings"
	if len(changed) == 1 {
		noun = "listing"
	}

	shown := changed
	if len(shown) > maxListedDrops {
		shown = shown[:maxListedDrops]
	}

	maxDiscount := 0
	lines := make([]string, 0, len(shown))
	for _, r := range shown {
		lines = append(lines, fmt.Sprintf("**%s**: ~~%s~~ → %s (%d%% off, %s)",
			r.Name,
			pricing.FormatPrice(r.OldPrice, models.ListingSell),
			pricing.FormatPrice(r.NewPrice, r.ListingType),
			r.DiscountPercent,
			daysLeft(r.DaysToExpiry)))
	}
	for _, r := range changed {
		if r.DiscountPercent > maxDiscount {
			maxDiscount = r.DiscountPercent
		}
	}

	embed := discordEmbed{
		Title:       fmt.Sprintf("Price drops: %d %s", len(changed), noun),
		Description: strings.Join(lines, "\n"),
		Color:       dropColor(maxDiscount),
	}
	if extra := len(changed) - len(shown); extra > 0 {
		embed.Footer = &discordEmbedFooter{Text: fmt.Sprintf("and %d more", extra)}
	}
	return embed
}

func formatListing(p models.Product) discordEmbed {
	embed := discordEmbed{
		Title: fmt.Sprintf("New listing: %s (%s)", p.Name, pricing.FormatPrice(p.CurrentPrice, p.ListingType)),
		Color: dropColor(p.DiscountPercent),
		Fields: []discordEmbedField{
			{Name: "Expires", Value: p.ExpiryDate.Format("2006-01-02"), Inline: true},
		},
	}
	if p.ListingType == models.ListingDonate {
		embed.Color = colorDonation
	}
	if p.Quantity > 0 {
		qty := fmt.Sprintf("%d", p.Quantity)
		if p.Unit != "" {
			qty += " " + p.Unit
		}
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Quantity", Value: qty, Inline: true})
	}
	if p.Description != "" {
		embed.Description = p.Description
	}
	if !p.CreatedAt.IsZero() {
		embed.Timestamp = p.CreatedAt.Format(time.RFC3339)
	}
	return embed
}

func daysLeft(days int) string {
	switch {
	case days <= 0:
		return "expires today"
	case days == 1:
		return "1 day left"
	default:
		return fmt.Sprintf("%d days left", days)
	}
}

func dropColor(discountPercent int) int {
	switch {
	case discountPercent >= 50:
		return colorHugeDrop
	case discountPercent >= 30:
		return colorBigDrop
	case discountPercent >= 10:
		return colorGoodDrop
	default:
		return colorMildDrop
	}
}

func (c *Client) post(ctx context.Context, embed discordEmbed) error {
	payloadBytes, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return err
	}

	return util.RetryWithBackoff(ctx, c.maxRetries, func(attempt int) error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payloadBytes))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		err = fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return util.Permanent(err)
		}
		return err
	})
}
