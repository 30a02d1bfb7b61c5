package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
)

var _ port.ProductsStorage = (*ProductsRepository)(nil)

const productColumns = `
	id, sku, name, brand, category, size, color,
	price, barcode, rank, status, created_at`

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) ProductBySKU(
	ctx context.Context, sku string,
) (domain.Product, error) {
	const op = "ProductsRepository.ProductBySKU"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + productColumns + ` FROM products WHERE sku = $1;`
	return r.scanProduct(r.sqldb.QueryRowContext(ctx, query, sku), op)
}

func (r ProductsRepository) ProductByID(
	ctx context.Context, id int64,
) (domain.Product, error) {
	const op = "ProductsRepository.ProductByID"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + productColumns + ` FROM products WHERE id = $1;`
	return r.scanProduct(r.sqldb.QueryRowContext(ctx, query, id), op)
}

// CreateProduct inserts a product keyed by its SKU. A concurrent insert
// of the same SKU degrades to reading the winning row.
func (r ProductsRepository) CreateProduct(
	ctx context.Context, p domain.Product,
) (domain.Product, error) {
	const op = "ProductsRepository.CreateProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO products (
			sku, name, brand, category, size, color,
			price, barcode, rank, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (sku) DO NOTHING
		RETURNING` + productColumns + `;`

	row := r.sqldb.QueryRowContext(ctx, query,
		p.SKU, p.Name, p.Brand, p.Category, p.Size, p.Color,
		p.Price, p.Barcode, p.Rank, p.Status,
	)

	created, err := r.scanProduct(row, op)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Product{}, err
	}
	return r.ProductBySKU(ctx, p.SKU)
}

func (r ProductsRepository) scanProduct(
	row *sql.Row, op string,
) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Brand, &p.Category, &p.Size, &p.Color,
		&p.Price, &p.Barcode, &p.Rank, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
