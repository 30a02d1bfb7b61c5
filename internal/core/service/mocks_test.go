package service_test

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type MockProductsStorage struct {
	mock.Mock
}

func (m *MockProductsStorage) ProductBySKU(
	ctx context.Context, sku string,
) (domain.Product, error) {
	args := m.Called(ctx, sku)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductsStorage) ProductByID(
	ctx context.Context, id int64,
) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockProductsStorage) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(domain.Product), args.Error(1)
}

type MockImagesStorage struct {
	mock.Mock
}

func (m *MockImagesStorage) ImageByID(
	ctx context.Context, id int64,
) (domain.ImageRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.ImageRecord), args.Error(1)
}

func (m *MockImagesStorage) ImageByOriginalLocator(
	ctx context.Context, originalLocator string,
) (domain.ImageRecord, error) {
	args := m.Called(ctx, originalLocator)
	return args.Get(0).(domain.ImageRecord), args.Error(1)
}

func (m *MockImagesStorage) InsertImage(
	ctx context.Context, rec domain.ImageRecord,
) (domain.ImageRecord, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(domain.ImageRecord), args.Error(1)
}

func (m *MockImagesStorage) ProductImages(
	ctx context.Context, productID int64,
) ([]domain.ImageRecord, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.ImageRecord), args.Error(1)
}

func (m *MockImagesStorage) SetStatus(
	ctx context.Context, id int64, status domain.ImageStatus,
) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockImagesStorage) CompleteImage(
	ctx context.Context, id int64, processedLocator string,
) error {
	args := m.Called(ctx, id, processedLocator)
	return args.Error(0)
}

type MockRemoteCatalog struct {
	mock.Mock
}

func (m *MockRemoteCatalog) ProductImageURLs(
	ctx context.Context, sku string,
) ([]string, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// stubProber answers presence checks from a fixed index set and records
// which indices were actually checked.
type stubProber struct {
	baseURL string
	present map[int]bool
	checked []int
	err     error
}

func (p *stubProber) URL(sku string, index int) string {
	return fmt.Sprintf("%s/%s_%d.jpg", p.baseURL, sku, index)
}

func (p *stubProber) Exists(ctx context.Context, url string) (bool, error) {
	name := strings.TrimSuffix(path.Base(url), ".jpg")
	index, _ := strconv.Atoi(name[strings.LastIndex(name, "_")+1:])
	p.checked = append(p.checked, index)
	if p.err != nil {
		return false, p.err
	}
	return p.present[index], nil
}

// stubProvider is one provider in the chain with canned behavior and a
// call counter.
type stubProvider struct {
	name    string
	accepts bool
	outcome domain.RemovalOutcome
	err     error
	calls   int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Accepts(domain.CanonicalImage) bool { return p.accepts }

func (p *stubProvider) Remove(
	ctx context.Context, img domain.CanonicalImage,
) (domain.RemovalOutcome, error) {
	p.calls++
	if p.err != nil {
		return domain.RemovalOutcome{}, p.err
	}
	out := p.outcome
	out.Provider = p.name
	return out, nil
}

type stubEvents struct {
	events []domain.RemovalEvent
}

func (e *stubEvents) ProduceRemovalEvent(
	ctx context.Context, evt domain.RemovalEvent,
) error {
	e.events = append(e.events, evt)
	return nil
}
