package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/dmikhr/catalog-imagery/internal/core/port"
)

var _ port.ImagesStorage = (*ImagesRepository)(nil)

const imageColumns = `
	id, COALESCE(product_id, 0), original_locator,
	COALESCE(processed_locator, ''), status, created_at`

type ImagesRepository struct {
	sqldb sqldb
}

func NewImagesRepository(sqldb sqldb) ImagesRepository {
	return ImagesRepository{sqldb}
}

func (r ImagesRepository) ImageByID(
	ctx context.Context, id int64,
) (domain.ImageRecord, error) {
	const op = "ImagesRepository.ImageByID"

	if err := ctx.Err(); err != nil {
		return domain.ImageRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + imageColumns + ` FROM images WHERE id = $1;`
	return r.scanImage(r.sqldb.QueryRowContext(ctx, query, id), op)
}

func (r ImagesRepository) ImageByOriginalLocator(
	ctx context.Context, originalLocator string,
) (domain.ImageRecord, error) {
	const op = "ImagesRepository.ImageByOriginalLocator"

	if err := ctx.Err(); err != nil {
		return domain.ImageRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + imageColumns + ` FROM images WHERE original_locator = $1;`
	row := r.sqldb.QueryRowContext(ctx, query, originalLocator)
	return r.scanImage(row, op)
}

// InsertImage inserts a record keyed by its original locator. The
// unique index turns a concurrent duplicate insert into a read of the
// winning row, so promotion stays idempotent across requests.
func (r ImagesRepository) InsertImage(
	ctx context.Context, rec domain.ImageRecord,
) (domain.ImageRecord, error) {
	const op = "ImagesRepository.InsertImage"

	if err := ctx.Err(); err != nil {
		return domain.ImageRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `
		INSERT INTO images (product_id, original_locator, status)
		VALUES (NULLIF($1, 0), $2, $3)
		ON CONFLICT (original_locator) DO NOTHING
		RETURNING` + imageColumns + `;`

	row := r.sqldb.QueryRowContext(ctx, query,
		rec.ProductID, rec.OriginalLocator, rec.Status,
	)

	inserted, err := r.scanImage(row, op)
	if err == nil {
		return inserted, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.ImageRecord{}, err
	}
	return r.ImageByOriginalLocator(ctx, rec.OriginalLocator)
}

func (r ImagesRepository) ProductImages(
	ctx context.Context, productID int64,
) ([]domain.ImageRecord, error) {
	const op = "ImagesRepository.ProductImages"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + imageColumns + `
		FROM images WHERE product_id = $1 ORDER BY id ASC;`

	rows, err := r.sqldb.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var recs []domain.ImageRecord
	for rows.Next() {
		var rec domain.ImageRecord
		err := rows.Scan(
			&rec.ID, &rec.ProductID, &rec.OriginalLocator,
			&rec.ProcessedLocator, &rec.Status, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return recs, nil
}

func (r ImagesRepository) SetStatus(
	ctx context.Context, id int64, status domain.ImageStatus,
) error {
	const op = "ImagesRepository.SetStatus"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Leaving the completed state also clears the processed locator so
	// the completed <=> processedLocator invariant survives retries.
	query := `
		UPDATE images
		SET status = $2,
		    processed_locator = CASE WHEN $2 = 'completed'
		        THEN processed_locator ELSE NULL END
		WHERE id = $1;`

	res, err := r.sqldb.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return r.requireRow(res, op)
}

// CompleteImage commits the terminal success state: status and
// processed locator change in one statement.
func (r ImagesRepository) CompleteImage(
	ctx context.Context, id int64, processedLocator string,
) error {
	const op = "ImagesRepository.CompleteImage"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE images
		SET status = 'completed', processed_locator = $2
		WHERE id = $1;`

	res, err := r.sqldb.ExecContext(ctx, query, id, processedLocator)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return r.requireRow(res, op)
}

func (r ImagesRepository) requireRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func (r ImagesRepository) scanImage(
	row *sql.Row, op string,
) (domain.ImageRecord, error) {
	var rec domain.ImageRecord
	err := row.Scan(
		&rec.ID, &rec.ProductID, &rec.OriginalLocator,
		&rec.ProcessedLocator, &rec.Status, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ImageRecord{},
				fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.ImageRecord{}, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}
