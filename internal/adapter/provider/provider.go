// Package provider holds the external background-removal clients. Each
// client normalizes its own request encoding (source URL or base64
// inline bytes) and response encoding (remote URL, inline JSON payload
// or raw body bytes) into one [domain.RemovalOutcome] shape.
package provider

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
)

const (
	NameQueue  = "queue"
	NameHosted = "hosted"
	NameLocal  = "local"
)

const defaultRequestTimeout = 30 * time.Second

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

func defaultClient() *http.Client {
	return &http.Client{Timeout: defaultRequestTimeout}
}

// failure wraps any single provider error so the orchestrator can
// recover it and continue the chain.
func failure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrProviderFailure, err)
}

func badStatus(res *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", res.StatusCode, detail)
}
