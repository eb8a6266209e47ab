package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/MedCatGit/catalog_api/internal/models"
)

// ProductRepository handles data access for catalog product documents.
// Documents are stored with their nested data and audit blocks as JSONB so
// the persisted shape matches the document model one-to-one.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// productRow is the flat DB projection of a product document.
type productRow struct {
	ID        string          `db:"id"`
	ProductID int64           `db:"product_id"`
	DocID     string          `db:"doc_id"`
	Status    string          `db:"status"`
	Immutable bool            `db:"immutable"`
	CompanyID string          `db:"company_id"`
	Data      json.RawMessage `db:"data"`
	Info      json.RawMessage `db:"info"`
	DeletedAt sql.NullTime    `db:"deleted_at"`
}

func (r productRow) toModel() (*models.Product, error) {
	p := &models.Product{
		ID:           r.ID,
		ProductID:    r.ProductID,
		DocID:        r.DocID,
		Status:       r.Status,
		Immutable:    r.Immutable,
		CompanyID:    r.CompanyID,
		DeploymentID: models.DefaultDeploymentID,
		DocType:      models.DefaultDocType,
		Namespace:    models.DefaultNamespace,
	}
	if err := json.Unmarshal(r.Data, &p.Data); err != nil {
		return nil, fmt.Errorf("unmarshal product data: %w", err)
	}
	if err := json.Unmarshal(r.Info, &p.Info); err != nil {
		return nil, fmt.Errorf("unmarshal product info: %w", err)
	}
	return p, nil
}

// GetByBusinessID returns the persisted product for the given business
// product id, or (nil, nil) when none exists. Soft-deleted records are
// returned too: a re-appearing feed id revives its old record instead of
// creating a duplicate.
func (r *ProductRepository) GetByBusinessID(ctx context.Context, productID int64) (*models.Product, error) {
	const q = `
        SELECT id, product_id, doc_id, status, immutable, company_id, data, info, deleted_at
        FROM products WHERE product_id = $1 LIMIT 1`

	var row productRow
	if err := r.db.GetContext(ctx, &row, q, productID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel()
}

// Create inserts a new product document.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	data, info, err := marshalDoc(p)
	if err != nil {
		return err
	}

	const q = `
        INSERT INTO products (id, product_id, doc_id, status, immutable, company_id, data, info)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = r.db.ExecContext(ctx, q, p.ID, p.ProductID, p.DocID, p.Status, p.Immutable, p.CompanyID, data, info)
	return err
}

// Update replaces the mutable fields of an existing record identified by its
// internal id. Identifiers are never touched; a previous soft-delete mark is
// cleared because the product is present in the current feed snapshot.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	data, info, err := marshalDoc(p)
	if err != nil {
		return err
	}

	const q = `
        UPDATE products SET
            status = $2,
            immutable = $3,
            company_id = $4,
            data = $5,
            info = $6,
            deleted_at = NULL,
            updated_at = NOW()
        WHERE id = $1`

	res, err := r.db.ExecContext(ctx, q, p.ID, p.Status, p.Immutable, p.CompanyID, data, info)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("update product %s: no such record", p.ID)
	}
	return err
}

// UpdateDescription rewrites only the description field of a product's data
// block. Used by the enrichment step so it cannot clobber a concurrent pass.
func (r *ProductRepository) UpdateDescription(ctx context.Context, id, description string) error {
	const q = `
        UPDATE products SET
            data = jsonb_set(data, '{description}', to_jsonb($2::text)),
            updated_at = NOW()
        WHERE id = $1`

	_, err := r.db.ExecContext(ctx, q, id, description)
	return err
}

// BulkSoftDelete marks every record whose business product id is NOT in the
// seen set as deleted: sets the deleted_at timestamp and mirrors the deletion
// into the document's audit block. Records already soft-deleted are left
// untouched. Returns the number of records modified.
func (r *ProductRepository) BulkSoftDelete(ctx context.Context, seen map[int64]struct{}, deletedBy, deletedAt string) (int64, error) {
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	const q = `
        UPDATE products SET
            status = $1,
            deleted_at = NOW(),
            updated_at = NOW(),
            info = jsonb_set(jsonb_set(info, '{deletedAt}', to_jsonb($2::text)), '{deletedBy}', to_jsonb($3::text))
        WHERE NOT (product_id = ANY($4))
        AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, q, models.StatusDeleted, deletedAt, deletedBy, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountActive returns the number of non-deleted products in the store.
func (r *ProductRepository) CountActive(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(1) FROM products WHERE deleted_at IS NULL`
	var n int64
	if err := r.db.GetContext(ctx, &n, q); err != nil {
		return 0, err
	}
	return n, nil
}

func marshalDoc(p *models.Product) (data, info []byte, err error) {
	if data, err = json.Marshal(p.Data); err != nil {
		return nil, nil, fmt.Errorf("marshal product data: %w", err)
	}
	if info, err = json.Marshal(p.Info); err != nil {
		return nil, nil, fmt.Errorf("marshal product info: %w", err)
	}
	return data, info, nil
}
