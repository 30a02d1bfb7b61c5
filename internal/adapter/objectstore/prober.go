// Package objectstore probes the flat object store by naming
// convention. Existence is confirmed per URL with a presence check,
// never by listing the bucket.
package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmikhr/catalog-imagery/internal/core/port"
	"github.com/dmikhr/catalog-imagery/pkg/locator"
)

var _ port.ObjectProber = (*Prober)(nil)

const defaultTimeout = 3 * time.Second

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Prober struct {
	baseURL    string
	httpClient *http.Client
}

func New(cfg Config) *Prober {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Prober{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// URL builds the conventional object path for a SKU and index.
func (p *Prober) URL(sku string, index int) string {
	return locator.ObjectURL(p.baseURL, sku, index)
}

// Exists performs a HEAD presence check. 404 means absent; any other
// non-2xx status is an error so callers can distinguish "missing" from
// "store unreachable".
func (p *Prober) Exists(ctx context.Context, url string) (bool, error) {
	const op = "objectstore.Prober.Exists"

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	res, err := p.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return true, nil
	case res.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%s: unexpected status %d", op, res.StatusCode)
	}
}
