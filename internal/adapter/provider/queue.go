package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
	"github.com/dmikhr/catalog-imagery/pkg/retry"
)

var _ port.RemovalProvider = (*QueueProvider)(nil)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 30
)

// errJobPending marks a poll round that must be retried: the job is
// still running or the poll request itself failed transiently.
var errJobPending = errors.New("job pending")

type QueueConfig struct {
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	MaxPolls     int
	HTTPClient   httpDoer
}

// QueueProvider is the queue-based cloud service: submit a job for a
// fetchable source URL, then poll at a fixed interval until the job
// completes, fails or the attempt ceiling is reached.
type QueueProvider struct {
	cfg QueueConfig
}

func NewQueueProvider(cfg QueueConfig) *QueueProvider {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaultClient()
	}
	return &QueueProvider{cfg}
}

func (p *QueueProvider) Name() string { return NameQueue }

// Accepts requires a configured credential and a fetchable source URL:
// the queue service cannot take inline bytes.
func (p *QueueProvider) Accepts(img domain.CanonicalImage) bool {
	return p.cfg.APIKey != "" && p.cfg.BaseURL != "" && !img.IsInline()
}

func (p *QueueProvider) Remove(
	ctx context.Context, img domain.CanonicalImage,
) (domain.RemovalOutcome, error) {
	const op = "QueueProvider.Remove"
	log := slog.With("op", op)

	jobID, err := p.submit(ctx, img.SourceURL())
	if err != nil {
		return domain.RemovalOutcome{}, failure(op, err)
	}
	log.Info("job submitted", "jobID", jobID)

	resultURL, err := p.await(ctx, jobID)
	if err != nil {
		return domain.RemovalOutcome{}, failure(op, err)
	}

	return domain.RemovalOutcome{
		Provider:         NameQueue,
		ProcessedLocator: resultURL,
		Opaque:           true,
	}, nil
}

type (
	submitRequest struct {
		ImageURL   string `json:"image_url"`
		Background string `json:"background"`
	}

	submitResponse struct {
		JobID string `json:"job_id"`
	}

	jobResponse struct {
		Status    string `json:"status"`
		ResultURL string `json:"result_url"`
		Error     string `json:"error"`
	}
)

func (p *QueueProvider) submit(ctx context.Context, srcURL string) (string, error) {
	body, _ := json.Marshal(submitRequest{
		ImageURL:   srcURL,
		Background: "#FFFFFF",
	})

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.endpoint("/v1/jobs"), bytes.NewReader(body),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", p.cfg.APIKey)

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusAccepted {
		return "", badStatus(res)
	}

	var sr submitResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return "", err
	}
	if sr.JobID == "" {
		return "", fmt.Errorf("empty job id")
	}
	return sr.JobID, nil
}

// await polls the job at a fixed interval. A single poll request error
// is tolerated and retried, but the attempt ceiling is absolute.
func (p *QueueProvider) await(ctx context.Context, jobID string) (string, error) {
	retryCfg := retry.RetryConfig{
		MaxAttempts: p.cfg.MaxPolls,
		Backoff:     retry.FixedBackoff(p.cfg.PollInterval),
		ShouldRetry: func(err error) bool {
			return errors.Is(err, errJobPending)
		},
	}

	resultURL, err := retry.DoWithResult(ctx, retryCfg, func() (string, error) {
		return p.poll(ctx, jobID)
	})
	if err != nil {
		if errors.Is(err, errJobPending) {
			return "", fmt.Errorf("%w: job %s after %d polls",
				domain.ErrPollTimeout, jobID, p.cfg.MaxPolls)
		}
		return "", err
	}
	return resultURL, nil
}

func (p *QueueProvider) poll(ctx context.Context, jobID string) (string, error) {
	const op = "QueueProvider.poll"

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, p.endpoint("/v1/jobs/"+jobID), nil,
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Api-Key", p.cfg.APIKey)

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		slog.Warn("poll request failed, retrying", "op", op, "err", err)
		return "", fmt.Errorf("%w: %w", errJobPending, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		slog.Warn("poll request failed, retrying",
			"op", op, "status", res.StatusCode)
		return "", fmt.Errorf("%w: %w", errJobPending, badStatus(res))
	}

	var jr jobResponse
	if err := json.NewDecoder(res.Body).Decode(&jr); err != nil {
		return "", fmt.Errorf("%w: %w", errJobPending, err)
	}

	switch jr.Status {
	case "completed":
		if jr.ResultURL == "" {
			return "", fmt.Errorf("job %s completed without result url", jobID)
		}
		return jr.ResultURL, nil
	case "failed":
		return "", fmt.Errorf("job %s failed: %s", jobID, jr.Error)
	default:
		return "", errJobPending
	}
}

func (p *QueueProvider) endpoint(path string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + path
}
