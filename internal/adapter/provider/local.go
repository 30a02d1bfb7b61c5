package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
)

var _ port.RemovalProvider = (*LocalProvider)(nil)

// whiteBackground requests a white composite instead of transparency.
var whiteBackground = [4]int{255, 255, 255, 255}

type LocalConfig struct {
	BaseURL    string
	HTTPClient httpDoer
}

// LocalProvider is the self-hosted removal server. It is the only
// provider that accepts inline bytes directly. The response body holds
// the processed image: image/jpeg means the white backing was
// composited in, image/png means the alpha channel survived.
type LocalProvider struct {
	cfg LocalConfig
}

func NewLocalProvider(cfg LocalConfig) *LocalProvider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaultClient()
	}
	return &LocalProvider{cfg}
}

func (p *LocalProvider) Name() string { return NameLocal }

func (p *LocalProvider) Accepts(img domain.CanonicalImage) bool {
	return p.cfg.BaseURL != ""
}

type (
	localURLRequest struct {
		ImageURL string `json:"image_url"`
		BGColor  [4]int `json:"bgcolor"`
	}

	localBase64Request struct {
		ImageBase64 string `json:"image_base64"`
		BGColor     [4]int `json:"bgcolor"`
	}
)

func (p *LocalProvider) Remove(
	ctx context.Context, img domain.CanonicalImage,
) (domain.RemovalOutcome, error) {
	const op = "LocalProvider.Remove"

	var (
		path string
		body []byte
	)
	if img.IsInline() {
		path = "/api/remove-bg-base64"
		body, _ = json.Marshal(localBase64Request{
			ImageBase64: base64.StdEncoding.EncodeToString(img.Inline),
			BGColor:     whiteBackground,
		})
	} else {
		path = "/api/remove-bg-from-url"
		body, _ = json.Marshal(localURLRequest{
			ImageURL: img.SourceURL(),
			BGColor:  whiteBackground,
		})
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + path
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

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return domain.RemovalOutcome{}, failure(op, err)
	}

	return domain.RemovalOutcome{
		Provider:       NameLocal,
		ProcessedBytes: data,
		Opaque:         res.Header.Get("Content-Type") == "image/jpeg",
	}, nil
}
