package remote

import (
	"context"
	"net/http"
	"time"
)

// Public display data for the landing page. None of these endpoints
// require authentication.

// InventoryItem is one blood group's stock level.
type InventoryItem struct {
	BloodGroup string `json:"blood_group"`
	Units      int    `json:"units"`
}

// Stats is the public dashboard counter set.
type Stats struct {
	TotalDonors    int `json:"total_donors"`
	LivesSaved     int `json:"lives_saved"`
	ActiveRequests int `json:"active_requests"`
	CampsThisMonth int `json:"camps_this_month"`
}

// NewsItem is one homepage news entry.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
}

// BloodInventory fetches the public stock levels.
func (c *Client) BloodInventory(ctx context.Context) ([]InventoryItem, error) {
	var items []InventoryItem
	if err := c.call(ctx, http.MethodGet, "/blood-inventory", "", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DashboardStats fetches the public counters.
func (c *Client) DashboardStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := c.call(ctx, http.MethodGet, "/dashboard-stats", "", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// NewsUpdates fetches the homepage news feed.
func (c *Client) NewsUpdates(ctx context.Context) ([]NewsItem, error) {
	var items []NewsItem
	if err := c.call(ctx, http.MethodGet, "/news-updates", "", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Seed values keep the landing page populated before the first
// successful fetch and across outages.

// SeedInventory returns a representative default stock table.
func SeedInventory() []InventoryItem {
	return []InventoryItem{
		{BloodGroup: "A+", Units: 12}, {BloodGroup: "A-", Units: 4},
		{BloodGroup: "B+", Units: 9}, {BloodGroup: "B-", Units: 3},
		{BloodGroup: "AB+", Units: 5}, {BloodGroup: "AB-", Units: 2},
		{BloodGroup: "O+", Units: 15}, {BloodGroup: "O-", Units: 6},
	}
}

// SeedStats returns representative default counters.
func SeedStats() Stats {
	return Stats{TotalDonors: 1200, LivesSaved: 3400, ActiveRequests: 18, CampsThisMonth: 3}
}

// SeedNews returns a single placeholder entry.
func SeedNews() []NewsItem {
	return []NewsItem{{
		ID:      "seed",
		Title:   "Blood donation camps resume this month",
		Summary: "Check the schedule for a camp near you.",
	}}
}
