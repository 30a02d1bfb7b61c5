package port

import (
	"context"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/pkg/locator"
)

// Inbound ports.

type ImageResolver interface {
	Resolve(context.Context, locator.Locator) (domain.CanonicalImage, error)
}

type BackgroundRemover interface {
	RemoveBackground(
		ctx context.Context, img domain.CanonicalImage, providerHint string,
	) (domain.RemovalOutcome, error)
}

type ImageMerger interface {
	MergedImages(ctx context.Context, sku string) ([]domain.ImageView, error)
}

type ImageRegistrar interface {
	RegisterImage(
		ctx context.Context, sku, originalLocator string,
	) (domain.ImageRecord, error)
}

// Outbound ports.

type ProductsStorage interface {
	ProductBySKU(ctx context.Context, sku string) (domain.Product, error)
	ProductByID(ctx context.Context, id int64) (domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
}

type ImagesStorage interface {
	ImageByID(ctx context.Context, id int64) (domain.ImageRecord, error)
	ImageByOriginalLocator(
		ctx context.Context, originalLocator string,
	) (domain.ImageRecord, error)

	// InsertImage inserts a record keyed by its original locator. On a
	// locator conflict the existing row is returned, converting the
	// concurrent-promotion race into an idempotent read.
	InsertImage(
		ctx context.Context, rec domain.ImageRecord,
	) (domain.ImageRecord, error)

	ProductImages(
		ctx context.Context, productID int64,
	) ([]domain.ImageRecord, error)

	SetStatus(ctx context.Context, id int64, status domain.ImageStatus) error

	// CompleteImage sets status completed and the processed locator in
	// one statement, preserving completed <=> processedLocator set.
	CompleteImage(ctx context.Context, id int64, processedLocator string) error
}

// RemovalProvider is one external background-removal service.
type RemovalProvider interface {
	Name() string

	// Accepts reports whether the provider can take this image at all:
	// configuration present and locator shape supported.
	Accepts(img domain.CanonicalImage) bool

	Remove(
		ctx context.Context, img domain.CanonicalImage,
	) (domain.RemovalOutcome, error)
}

// RemoteCatalog is the remote product-catalog service. It is an optional
// collaborator: callers degrade to convention probing when it errors.
type RemoteCatalog interface {
	ProductImageURLs(ctx context.Context, sku string) ([]string, error)
}

// ObjectProber confirms convention-path existence by presence check,
// never by listing.
type ObjectProber interface {
	URL(sku string, index int) string
	Exists(ctx context.Context, url string) (bool, error)
}

type RemovalEventsProducer interface {
	ProduceRemovalEvent(context.Context, domain.RemovalEvent) error
}
