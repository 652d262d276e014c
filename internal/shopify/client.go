package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"cardstock/pkg/models"
)

// ErrRateLimited is returned on a 429 from Shopify. Callers retry the
// same request after a backoff; it is never a hard failure.
var ErrRateLimited = errors.New("shopify: rate limited")

const apiVersion = "2024-01"

// Client talks to the Shopify Admin REST API for one store.
type Client struct {
	BaseURL  string // https://<shop>.myshopify.com, overridable for tests
	Token    string
	PageSize int
	HTTP     *http.Client
}

func NewClient(domain, token string) *Client {
	return &Client{
		BaseURL:  "https://" + domain,
		Token:    token,
		PageSize: 250,
		HTTP:     &http.Client{Timeout: 20 * time.Second},
	}
}

// Products fetches one page of the product catalog. pageInfo is the
// opaque cursor from a previous call ("" for the first page); the
// returned cursor is "" when no pages remain.
func (c *Client) Products(ctx context.Context, pageInfo string) ([]models.Product, string, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(c.pageSize()))
	if pageInfo != "" {
		q.Set("page_info", pageInfo)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/admin/api/"+apiVersion+"/products.json?"+q.Encode(), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("products request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("products: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Products []models.Product `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("decode products: %w", err)
	}

	return body.Products, nextPageInfo(resp.Header.Get("Link")), nil
}

// MetafieldUpdate is one structured-attribute write against a product.
type MetafieldUpdate struct {
	ProductID int64
	Namespace string
	Key       string
	Type      string
	Value     string
}

// HasMetafield reports whether the product already carries the given
// metafield.
func (c *Client) HasMetafield(ctx context.Context, productID int64, namespace, key string) (bool, error) {
	q := url.Values{}
	q.Set("namespace", namespace)
	q.Set("key", key)

	path := fmt.Sprintf("/admin/api/%s/products/%d/metafields.json?%s", apiVersion, productID, q.Encode())
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("metafields request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return false, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("metafields: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Metafields []struct {
			ID int64 `json:"id"`
		} `json:"metafields"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode metafields: %w", err)
	}
	return len(body.Metafields) > 0, nil
}

// SetMetafields writes a batch of metafield updates, one POST per
// entry. The batch is the caller's flush unit; a failure aborts the
// rest of the batch so a partial write stays bounded.
func (c *Client) SetMetafields(ctx context.Context, batch []MetafieldUpdate) error {
	for _, m := range batch {
		if err := c.setMetafield(ctx, m); err != nil {
			return fmt.Errorf("product %d: %w", m.ProductID, err)
		}
	}
	return nil
}

func (c *Client) setMetafield(ctx context.Context, m MetafieldUpdate) error {
	payload := map[string]any{
		"metafield": map[string]any{
			"namespace": m.Namespace,
			"key":       m.Key,
			"type":      m.Type,
			"value":     m.Value,
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal metafield: %w", err)
	}

	path := fmt.Sprintf("/admin/api/%s/products/%d/metafields.json", apiVersion, m.ProductID)
	req, err := c.newRequest(ctx, http.MethodPost, path, strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("metafield request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("metafield: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("X-Shopify-Access-Token", c.Token)
	}
	return req, nil
}

func (c *Client) pageSize() int {
	if c.PageSize <= 0 || c.PageSize > 250 {
		return 250
	}
	return c.PageSize
}

var reLinkNext = regexp.MustCompile(`<[^>]*[?&]page_info=([^&>]+)[^>]*>;\s*rel="next"`)

// nextPageInfo pulls the opaque next-page cursor out of Shopify's Link
// header, "" when this was the last page.
func nextPageInfo(link string) string {
	for _, part := range strings.Split(link, ",") {
		if m := reLinkNext.FindStringSubmatch(strings.TrimSpace(part)); m != nil {
			return m[1]
		}
	}
	return ""
}
