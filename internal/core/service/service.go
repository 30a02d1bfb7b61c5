package service

import (
	"context"
	"fmt"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
)

var _ port.ImageResolver = (*Service)(nil)
var _ port.BackgroundRemover = (*Service)(nil)
var _ port.ImageMerger = (*Service)(nil)
var _ port.ImageRegistrar = (*Service)(nil)

const defaultProbeLimit = 10

type Service struct {
	products  port.ProductsStorage
	images    port.ImagesStorage
	providers []port.RemovalProvider
	remote    port.RemoteCatalog
	prober    port.ObjectProber
	events    port.RemovalEventsProducer

	objectBaseURL string
	probeLimit    int
}

type Option func(*Service)

// RemoteCatalogOpt attaches the remote product-catalog collaborator.
// Without it the merge engine goes straight to convention probing.
func RemoteCatalogOpt(rc port.RemoteCatalog) Option {
	return func(s *Service) { s.remote = rc }
}

// EventsProducerOpt attaches the removal-events producer.
func EventsProducerOpt(p port.RemovalEventsProducer) Option {
	return func(s *Service) { s.events = p }
}

// ProbeLimitOpt overrides the convention-probing index cap.
func ProbeLimitOpt(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.probeLimit = limit
		}
	}
}

func New(
	products port.ProductsStorage,
	images port.ImagesStorage,
	providers []port.RemovalProvider,
	prober port.ObjectProber,
	objectBaseURL string,
	opts ...Option,
) *Service {
	s := &Service{
		products:      products,
		images:        images,
		providers:     providers,
		prober:        prober,
		objectBaseURL: objectBaseURL,
		probeLimit:    defaultProbeLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterImage creates an image record for an uploaded original,
// creating the owning product on first reference. Registering the same
// locator twice returns the already persisted record.
func (s *Service) RegisterImage(
	ctx context.Context, sku, originalLocator string,
) (domain.ImageRecord, error) {
	const op = "Service.RegisterImage"

	if err := ctx.Err(); err != nil {
		return domain.ImageRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.productOrCreate(ctx, sku)
	if err != nil {
		return domain.ImageRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	rec, err := s.images.InsertImage(ctx, domain.ImageRecord{
		ProductID:       p.ID,
		OriginalLocator: originalLocator,
		Status:          domain.StatusPending,
	})
	if err != nil {
		return domain.ImageRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}
