package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/pkg/locator"
)

// Resolve turns a decoded locator into the canonical image the removal
// chain acts on. Probe tokens are promoted into persisted records at
// most once: the original locator acts as the natural key.
func (s *Service) Resolve(
	ctx context.Context, loc locator.Locator,
) (domain.CanonicalImage, error) {
	const op = "Service.Resolve"

	if err := ctx.Err(); err != nil {
		return domain.CanonicalImage{}, fmt.Errorf("%s: %w", op, err)
	}

	switch loc.Kind {
	case locator.KindRecord:
		rec, err := s.images.ImageByID(ctx, loc.RecordID)
		if err != nil {
			return domain.CanonicalImage{}, fmt.Errorf("%s: %w", op, err)
		}
		return domain.CanonicalImage{Record: &rec}, nil

	case locator.KindProbe:
		rec, err := s.promoteProbe(ctx, loc.SKU, loc.Index)
		if err != nil {
			return domain.CanonicalImage{}, fmt.Errorf("%s: %w", op, err)
		}
		return domain.CanonicalImage{Record: &rec}, nil

	case locator.KindInline:
		return domain.CanonicalImage{Inline: loc.Data}, nil
	}

	return domain.CanonicalImage{},
		fmt.Errorf("%s: %w", op, domain.ErrMalformedLocator)
}

// promoteProbe links an object-store convention image into the catalog.
// The unique original_locator index makes the promotion idempotent even
// across concurrent requests.
func (s *Service) promoteProbe(
	ctx context.Context, sku string, index int,
) (domain.ImageRecord, error) {
	const op = "Service.promoteProbe"
	log := slog.With("op", op, "sku", sku, "index", index)

	url := s.prober.URL(sku, index)

	p, err := s.productOrCreate(ctx, sku)
	if err != nil {
		return domain.ImageRecord{}, err
	}

	rec, err := s.images.ImageByOriginalLocator(ctx, url)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.ImageRecord{}, err
	}

	rec, err = s.images.InsertImage(ctx, domain.ImageRecord{
		ProductID:       p.ID,
		OriginalLocator: url,
		Status:          domain.StatusProcessing,
	})
	if err != nil {
		return domain.ImageRecord{}, err
	}

	log.Info("promoted probe image", "imageID", rec.ID)
	return rec, nil
}

func (s *Service) productOrCreate(
	ctx context.Context, sku string,
) (domain.Product, error) {
	p, err := s.products.ProductBySKU(ctx, sku)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Product{}, err
	}

	return s.products.CreateProduct(ctx, domain.Product{
		SKU:    sku,
		Name:   "Imported " + sku,
		Status: "draft",
	})
}
