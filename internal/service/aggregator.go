package service

import (
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MedCatGit/catalog_api/internal/models"
	"github.com/MedCatGit/catalog_api/pkg/catalogfeed"
)

// RowSource yields decoded feed rows until io.EOF. *catalogfeed.Decoder
// satisfies it.
type RowSource interface {
	Next() (catalogfeed.Row, error)
}

// AggregateResult is the outcome of grouping one feed snapshot.
type AggregateResult struct {
	// Products in feed insertion order.
	Products []*models.Product
	// Seen holds every business product id present in this snapshot; the
	// reconciler needs it to decide soft-deletion.
	Seen map[int64]struct{}
	// SkippedRows counts rows dropped for an invalid business id.
	SkippedRows int
}

// Aggregator groups flat feed rows into product aggregates keyed by business
// product id. Rows are processed strictly in order so that later variants
// attach to the product created by the first row with their id.
type Aggregator struct {
	deriver *FieldDeriver
	now     func() time.Time
}

// NewAggregator constructs an Aggregator.
func NewAggregator(deriver *FieldDeriver) *Aggregator {
	return &Aggregator{deriver: deriver, now: time.Now}
}

// Aggregate consumes the row source to exhaustion. A row whose business
// product id is not a valid integer is skipped without error: the feed is
// known to carry dirty rows and a single one must not sink the pass. Any
// other source error (a malformed stream) is fatal and propagated.
func (a *Aggregator) Aggregate(src RowSource) (*AggregateResult, error) {
	result := &AggregateResult{Seen: make(map[int64]struct{})}
	index := make(map[int64]*models.Product)
	timestamp := a.now().UTC().Format(time.RFC3339)

	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		id, err := row.BusinessID()
		if err != nil {
			result.SkippedRows++
			log.Debug().Str("product_id", row.ProductID).Str("item_id", row.ItemID).Msg("skipping row with invalid business id")
			continue
		}

		product, ok := index[id]
		if !ok {
			product = a.deriver.NewProduct(id, row, timestamp)
			index[id] = product
			result.Products = append(result.Products, product)
			result.Seen[id] = struct{}{}
		}
		product.Data.Variants = append(product.Data.Variants, a.deriver.DeriveVariant(row))
	}

	if result.SkippedRows > 0 {
		log.Warn().Int("rows", result.SkippedRows).Msg("rows skipped for invalid business id")
	}
	return result, nil
}
