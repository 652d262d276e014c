package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cardstock/pkg/models"
)

// ErrRateLimited is returned on a 429. The backfill worker treats it as
// an inconclusive probe, never as a miss.
var ErrRateLimited = errors.New("scryfall: rate limited")

// ErrNotFound is returned when a lookup resolves to no card (404).
var ErrNotFound = errors.New("scryfall: not found")

// Client talks to the Scryfall API: the bulk default-cards download for
// index construction and single-card lookups for the backfill worker.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: "https://api.scryfall.com",
		// bulk file is a couple hundred MB, give it room
		HTTP: &http.Client{Timeout: 5 * time.Minute},
	}
}

// BulkCards downloads the default-cards bulk file and returns the
// entries that exist on paper. Two requests: the bulk-data listing for
// the current download URI, then the file itself.
func (c *Client) BulkCards(ctx context.Context) ([]models.ReferenceCard, error) {
	var meta struct {
		DownloadURI string `json:"download_uri"`
	}
	if err := c.getJSON(ctx, c.BaseURL+"/bulk-data/default-cards", &meta); err != nil {
		return nil, fmt.Errorf("bulk data listing: %w", err)
	}
	if meta.DownloadURI == "" {
		return nil, fmt.Errorf("bulk data listing: no download_uri")
	}

	var all []models.ReferenceCard
	if err := c.getJSON(ctx, meta.DownloadURI, &all); err != nil {
		return nil, fmt.Errorf("bulk download: %w", err)
	}

	paper := all[:0]
	for _, ref := range all {
		if ref.IsPaper() {
			paper = append(paper, ref)
		}
	}
	return paper, nil
}

// CardBySetNumber looks up one printing by set code and collector
// number.
func (c *Client) CardBySetNumber(ctx context.Context, set, number string) (*models.ReferenceCard, error) {
	u := fmt.Sprintf("%s/cards/%s/%s", c.BaseURL, url.PathEscape(set), url.PathEscape(number))
	var ref models.ReferenceCard
	if err := c.getJSON(ctx, u, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// CardByName looks up a card by exact name, optionally pinned to a set.
func (c *Client) CardByName(ctx context.Context, name, set string) (*models.ReferenceCard, error) {
	q := url.Values{}
	q.Set("exact", name)
	if set != "" {
		q.Set("set", set)
	}
	var ref models.ReferenceCard
	if err := c.getJSON(ctx, c.BaseURL+"/cards/named?"+q.Encode(), &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("request %s: unexpected status %d", u, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
