// Package remotecatalog is the client for the remote product-catalog
// service. The service is an optional collaborator: callers must treat
// every error as "no remote data" and degrade to convention probing.
package remotecatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmikhr/catalog-imagery/internal/core/port"
)

var _ port.RemoteCatalog = (*Client)(nil)

const defaultTimeout = 5 * time.Second

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type (
	capturedItem struct {
		ImageURLs []string `json:"image_urls"`
	}

	productResponse struct {
		Captured []capturedItem `json:"captured"`
	}
)

// ProductImageURLs returns every image URL the remote catalog reports
// for the SKU, in reported order.
func (c *Client) ProductImageURLs(
	ctx context.Context, sku string,
) ([]string, error) {
	const op = "remotecatalog.Client.ProductImageURLs"

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "/v1/products/" + url.PathEscape(sku)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status %d", op, res.StatusCode)
	}

	var pr productResponse
	if err := json.NewDecoder(res.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var urls []string
	for _, item := range pr.Captured {
		urls = append(urls, item.ImageURLs...)
	}
	return urls, nil
}
