package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/pkg/locator"
)

// MergedImages reconciles the three image sources for one product into
// a single ordered list, deduplicated by resolved URL: native catalog
// uploads first, then remote-catalog images or convention probes.
func (s *Service) MergedImages(
	ctx context.Context, sku string,
) ([]domain.ImageView, error) {
	const op = "Service.MergedImages"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.products.ProductBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	recs, err := s.images.ProductImages(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	byLocator := make(map[string]domain.ImageRecord, len(recs))
	for _, rec := range recs {
		byLocator[rec.OriginalLocator] = rec
	}

	seen := make(map[string]struct{})
	var views []domain.ImageView

	// Native uploads: catalog records outside the convention namespace.
	for _, rec := range recs {
		if locator.IsObjectURL(s.objectBaseURL, rec.OriginalLocator) {
			continue
		}
		if _, dup := seen[rec.OriginalLocator]; dup {
			continue
		}
		seen[rec.OriginalLocator] = struct{}{}
		views = append(views, domain.ImageView{
			ID:               rec.ID,
			OriginalLocator:  rec.OriginalLocator,
			ProcessedLocator: rec.ProcessedLocator,
			Status:           rec.Status,
			Source:           domain.SourceCatalog,
		})
	}

	remoteURLs := s.remoteImageURLs(ctx, sku)
	if len(remoteURLs) > 0 {
		for _, url := range remoteURLs {
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}
			views = append(views, s.conventionView(
				url, byLocator, domain.SourceRemote,
			))
		}
		return views, nil
	}

	for _, url := range s.probeURLs(ctx, sku) {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		views = append(views, s.conventionView(
			url, byLocator, domain.SourceProbe,
		))
	}

	return views, nil
}

// remoteImageURLs queries the remote product-catalog service. It is an
// optional collaborator: any error degrades to convention probing.
func (s *Service) remoteImageURLs(ctx context.Context, sku string) []string {
	const op = "Service.remoteImageURLs"

	if s.remote == nil {
		return nil
	}

	urls, err := s.remote.ProductImageURLs(ctx, sku)
	if err != nil {
		slog.Warn("remote catalog unavailable, probing instead",
			"op", op, "sku", sku, "err", err)
		return nil
	}
	return urls
}

// probeURLs walks convention indices 1..probeLimit and stops at the
// first absent index: once an index is missing no higher one exists.
func (s *Service) probeURLs(ctx context.Context, sku string) []string {
	const op = "Service.probeURLs"

	var urls []string
	for index := 1; index <= s.probeLimit; index++ {
		url := s.prober.URL(sku, index)
		ok, err := s.prober.Exists(ctx, url)
		if err != nil {
			slog.Warn("presence check failed, stopping probe",
				"op", op, "url", url, "err", err)
			break
		}
		if !ok {
			break
		}
		urls = append(urls, url)
	}
	return urls
}

// conventionView builds the view for a convention-path URL, surfacing
// the catalog record when the URL was already promoted.
func (s *Service) conventionView(
	url string,
	byLocator map[string]domain.ImageRecord,
	source domain.ImageSource,
) domain.ImageView {
	if rec, ok := byLocator[url]; ok {
		return domain.ImageView{
			ID:               rec.ID,
			OriginalLocator:  rec.OriginalLocator,
			ProcessedLocator: rec.ProcessedLocator,
			Status:           rec.Status,
			Source:           source,
		}
	}
	return domain.ImageView{
		OriginalLocator: url,
		Status:          domain.StatusPending,
		Source:          source,
	}
}
