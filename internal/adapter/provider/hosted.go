package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
)

var _ port.RemovalProvider = (*HostedProvider)(nil)

type HostedConfig struct {
	BaseURL    string
	HTTPClient httpDoer
}

// HostedProvider is the free-tier hosted service: one synchronous call
// with the source URL, inline base64 result in the response body.
type HostedProvider struct {
	cfg HostedConfig
}

func NewHostedProvider(cfg HostedConfig) *HostedProvider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaultClient()
	}
	return &HostedProvider{cfg}
}

func (p *HostedProvider) Name() string { return NameHosted }

func (p *HostedProvider) Accepts(img domain.CanonicalImage) bool {
	return p.cfg.BaseURL != "" && !img.IsInline()
}

type (
	hostedRequest struct {
		ImageURL string `json:"image_url"`
	}

	hostedResponse struct {
		ResultBase64 string `json:"result_base64"`
	}
)

func (p *HostedProvider) Remove(
	ctx context.Context, img domain.CanonicalImage,
) (domain.RemovalOutcome, error) {
	const op = "HostedProvider.Remove"

	body, _ := json.Marshal(hostedRequest{ImageURL: img.SourceURL()})

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/remove"
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, url, bytes.NewReader(body),
	)
	if err != nil {
		return domain.RemovalOutcome{}, failure(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return domain.RemovalOutcome{}, failure(op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return domain.RemovalOutcome{}, failure(op, badStatus(res))
	}

	var hr hostedResponse
	if err := json.NewDecoder(res.Body).Decode(&hr); err != nil {
		return domain.RemovalOutcome{}, failure(op, err)
	}

	data, err := base64.StdEncoding.DecodeString(hr.ResultBase64)
	if err != nil || len(data) == 0 {
		return domain.RemovalOutcome{},
			failure(op, fmt.Errorf("invalid inline result: %v", err))
	}

	return domain.RemovalOutcome{
		Provider:       NameHosted,
		ProcessedBytes: data,
	}, nil
}
