package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
	"github.com/dmikhr/catalog-imagery/pkg/locator"
)

// Hint values accepted by RemoveBackground. An unknown hint falls back
// to the default chain.
const (
	HintQueue  = "queue"
	HintHosted = "hosted"
	HintLocal  = "local"
)

// RemoveBackground drives the provider chain for one canonical image.
// Providers are attempted strictly in priority order, first success
// wins; every provider failure is recovered locally until the chain is
// exhausted.
func (s *Service) RemoveBackground(
	ctx context.Context, img domain.CanonicalImage, providerHint string,
) (domain.RemovalOutcome, error) {
	const op = "Service.RemoveBackground"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return domain.RemovalOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.markProcessing(ctx, img.Record); err != nil {
		return domain.RemovalOutcome{}, fmt.Errorf("%s: %w", op, err)
	}

	var lastErr error
	for _, p := range s.chain(providerHint) {
		if !p.Accepts(img) {
			log.Debug("provider skipped", "provider", p.Name())
			continue
		}

		outcome, err := p.Remove(ctx, img)
		if err != nil {
			lastErr = err
			log.Warn("provider failed, falling through",
				"provider", p.Name(), "err", err)
			continue
		}

		outcome, err = s.commitOutcome(ctx, img, outcome)
		if err != nil {
			return domain.RemovalOutcome{}, fmt.Errorf("%s: %w", op, err)
		}
		return outcome, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no applicable provider configured")
	}

	if err := s.markFailed(ctx, img); err != nil {
		log.Error("failed to mark image failed", "err", err)
	}

	return domain.RemovalOutcome{},
		fmt.Errorf("%s: %w: %w", op, domain.ErrAllProvidersFailed, lastErr)
}

// chain returns the providers to attempt, priority order preserved.
// The queue provider always leads when applicable; hinting "local"
// drops the hosted tier.
func (s *Service) chain(hint string) []port.RemovalProvider {
	if hint != HintLocal {
		return s.providers
	}

	var out []port.RemovalProvider
	for _, p := range s.providers {
		if p.Name() == HintHosted {
			continue
		}
		out = append(out, p)
	}
	return out
}

// commitOutcome folds the provider result into the persisted record.
// Inline provider bytes become a self-contained data reference so the
// completed <=> processedLocator invariant holds in one shape.
func (s *Service) commitOutcome(
	ctx context.Context, img domain.CanonicalImage, outcome domain.RemovalOutcome,
) (domain.RemovalOutcome, error) {
	if outcome.ProcessedLocator == "" && len(outcome.ProcessedBytes) > 0 {
		mediaType := "image/png"
		if outcome.Opaque {
			mediaType = "image/jpeg"
		}
		outcome.ProcessedLocator = locator.Inline(
			mediaType, outcome.ProcessedBytes,
		)
	}

	if img.Record == nil {
		return outcome, nil
	}

	err := s.images.CompleteImage(ctx, img.Record.ID, outcome.ProcessedLocator)
	if err != nil {
		return domain.RemovalOutcome{}, err
	}
	img.Record.Status = domain.StatusCompleted
	img.Record.ProcessedLocator = outcome.ProcessedLocator

	s.publishEvent(ctx, img.Record, domain.StatusCompleted, outcome.Provider)
	return outcome, nil
}

// markProcessing enters the processing state before the first provider
// attempt. A record promoted from a probe token is already processing.
func (s *Service) markProcessing(
	ctx context.Context, rec *domain.ImageRecord,
) error {
	if rec == nil || rec.Status == domain.StatusProcessing {
		return nil
	}
	if !rec.Status.CanTransition(domain.StatusProcessing) {
		return fmt.Errorf("%w: %s -> %s",
			domain.ErrInvalidTransition, rec.Status, domain.StatusProcessing)
	}
	if err := s.images.SetStatus(ctx, rec.ID, domain.StatusProcessing); err != nil {
		return err
	}
	rec.Status = domain.StatusProcessing
	return nil
}

func (s *Service) markFailed(
	ctx context.Context, img domain.CanonicalImage,
) error {
	if img.Record == nil {
		return nil
	}
	err := s.images.SetStatus(ctx, img.Record.ID, domain.StatusFailed)
	if err != nil {
		return err
	}
	img.Record.Status = domain.StatusFailed

	s.publishEvent(ctx, img.Record, domain.StatusFailed, "")
	return nil
}

// publishEvent emits the terminal outcome to the events topic.
// Best effort: publishing never affects the removal result.
func (s *Service) publishEvent(
	ctx context.Context,
	rec *domain.ImageRecord,
	status domain.ImageStatus,
	provider string,
) {
	const op = "Service.publishEvent"

	if s.events == nil {
		return
	}

	var sku string
	if p, err := s.products.ProductByID(ctx, rec.ProductID); err == nil {
		sku = p.SKU
	}

	evt := domain.RemovalEvent{
		SKU:        sku,
		ImageID:    rec.ID,
		Status:     status,
		Provider:   provider,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.events.ProduceRemovalEvent(ctx, evt); err != nil {
		slog.Warn("failed to publish removal event", "op", op, "err", err)
	}
}
