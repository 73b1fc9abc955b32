package shopifysync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type shopifyClient struct {
	baseURL string
	token   string
	http    *http.Client
	limiter <-chan time.Time
}

func newShopifyClient(shopDomain, accessToken string) (*shopifyClient, error) {
	shopDomain = strings.TrimSpace(shopDomain)
	if shopDomain == "" {
		return nil, errors.New("shopify shop domain is empty")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("shopify access token is empty")
	}
	if !strings.Contains(shopDomain, ".") {
		shopDomain = shopDomain + ".myshopify.com"
	}

	apiVersion := strings.TrimSpace(os.Getenv("SHOPIFY_API_VERSION"))
	if apiVersion == "" {
		apiVersion = "2024-01"
	}

	// Shopify's REST limit is 2 requests per second per store.
	rateLimitPerSec := int64(2)
	if v := strings.TrimSpace(os.Getenv("SHOPIFY_RATE_LIMIT_PER_SEC")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerSec = n
		}
	}
	interval := time.Second / time.Duration(rateLimitPerSec)

	return &shopifyClient{
		baseURL: fmt.Sprintf("https://%s/admin/api/%s", shopDomain, apiVersion),
		token:   accessToken,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(interval),
	}, nil
}

var linkNextRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// nextPageInfo pulls the page_info cursor out of Shopify's Link header.
func nextPageInfo(linkHeader string) string {
	m := linkNextRe.FindStringSubmatch(linkHeader)
	if len(m) < 2 {
		return ""
	}
	u, err := url.Parse(m[1])
	if err != nil {
		return ""
	}
	return u.Query().Get("page_info")
}

// getList fetches one page and returns the raw body plus the cursor of the
// next page, empty when this was the last one.
func (c *shopifyClient) getList(ctx context.Context, path string, params url.Values) ([]byte, string, error) {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("shopify api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nextPageInfo(resp.Header.Get("Link")), nil
}

func (c *shopifyClient) getJSON(ctx context.Context, path string, dest interface{}) error {
	body, _, err := c.getList(ctx, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}

func (c *shopifyClient) postJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	<-c.limiter
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if dest == nil {
		return nil
	}
	return json.Unmarshal(body, dest)
}
