package service

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/MedCatGit/catalog_api/internal/identity"
	"github.com/MedCatGit/catalog_api/internal/models"
	"github.com/MedCatGit/catalog_api/pkg/catalogfeed"
)

// PriceMarkup is the factor applied to feed unit cost to compute the selling
// price. Prices are rounded to 4 decimal places.
const PriceMarkup = 1.4

// DefaultCurrency for variant pricing; the feed carries no currency column.
const DefaultCurrency = "USD"

// FieldDeriver computes derived per-variant attributes and per-product
// defaults from raw feed rows. Identifier fields with no feed source come
// from the injected identity provider.
type FieldDeriver struct {
	ids identity.Provider
}

// NewFieldDeriver constructs a FieldDeriver.
func NewFieldDeriver(ids identity.Provider) *FieldDeriver {
	return &FieldDeriver{ids: ids}
}

// NewProduct materializes a product aggregate from the first feed row seen
// for a business id. Product-level fields are never overwritten by later
// rows with the same id.
func (d *FieldDeriver) NewProduct(productID int64, row catalogfeed.Row, timestamp string) *models.Product {
	return &models.Product{
		ID:           d.ids.NewToken(),
		ProductID:    productID,
		DocID:        d.ids.NewToken(),
		Status:       models.StatusActive,
		Immutable:    false,
		DeploymentID: models.DefaultDeploymentID,
		DocType:      models.DefaultDocType,
		Namespace:    models.DefaultNamespace,
		CompanyID:    d.ids.NewToken(),
		Data: models.ProductData{
			Name:           row.ProductName,
			Description:    row.ProductDescription,
			VendorID:       d.ids.NewToken(),
			ManufacturerID: row.ManufacturerID,
			CategoryID:     row.CategoryID,
			Variants:       []models.Variant{},
			Options:        []models.Option{},
		},
		Info: models.ProductInfo{
			CreatedBy:     d.ids.NewToken(),
			CreatedAt:     timestamp,
			UpdatedBy:     d.ids.NewToken(),
			UpdatedAt:     timestamp,
			DataSource:    models.DataSourceCSV,
			CompanyStatus: models.StatusActive,
			TransactionID: d.ids.NewToken(),
			SkipEvent:     false,
			UserRequestID: d.ids.NewToken(),
		},
	}
}

// DeriveVariant builds one variant from a feed row. Unparsable numeric cells
// are substituted with 0 and logged; they never fail the pass.
func (d *FieldDeriver) DeriveVariant(row catalogfeed.Row) models.Variant {
	cost := parseNumber(row.UnitPrice, catalogfeed.ColUnitPrice, row.ItemID)
	qty := parseQuantity(row.QuantityOnHand, row.ItemID)

	return models.Variant{
		ID:        d.ids.NewToken(),
		Available: qty > 0,
		Attributes: models.VariantAttributes{
			Packaging:   row.PKG,
			Description: row.ItemDescription,
		},
		Cost:                 cost,
		Currency:             DefaultCurrency,
		Description:          row.ItemDescription,
		ManufacturerItemCode: row.ManufacturerItemCode,
		ManufacturerItemID:   d.ids.NewToken(),
		Packaging:            row.PKG,
		Price:                roundTo(cost*PriceMarkup, 4),
		OptionName:           fmt.Sprintf("%s, %s", row.PKG, row.ItemDescription),
		SKU:                  d.deriveSKU(row),
		Active:               true,
		Images:               deriveImages(row),
		ItemCode:             row.ItemID,
	}
}

// deriveSKU combines the item id and packaging with a fresh token. Uniqueness
// matters; stability across passes does not.
func (d *FieldDeriver) deriveSKU(row catalogfeed.Row) string {
	return fmt.Sprintf("%s-%s-%s", row.ItemID, row.PKG, d.ids.NewShortToken())
}

func deriveImages(row catalogfeed.Row) []models.VariantImage {
	if row.ItemImageURL == "" {
		return []models.VariantImage{}
	}
	return []models.VariantImage{{
		FileName: path.Base(row.ItemImageURL),
		CDNLink:  row.ItemImageURL,
		Alt:      row.ProductName,
	}}
}

// parseNumber parses a decimal feed cell, substituting 0 for anything
// unparsable.
func parseNumber(raw, field, itemID string) float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		log.Warn().Str("field", field).Str("item_id", itemID).Str("value", raw).Msg("unparsable numeric cell, substituting 0")
		return 0
	}
	return v
}

// parseQuantity parses an integer quantity cell, substituting 0 for anything
// unparsable (which makes the variant unavailable).
func parseQuantity(raw, itemID string) int64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		log.Warn().Str("field", catalogfeed.ColQuantityOnHand).Str("item_id", itemID).Str("value", raw).Msg("unparsable quantity cell, substituting 0")
		return 0
	}
	return v
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
