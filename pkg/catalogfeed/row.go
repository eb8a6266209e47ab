package catalogfeed

import (
	"strconv"
	"strings"
)

// Recognized feed column names. Columns outside this set are preserved in
// Row.Extra so a feed revision cannot silently drop data.
const (
	ColProductID            = "ProductID"
	ColItemID               = "ItemID"
	ColProductName          = "ProductName"
	ColProductDescription   = "ProductDescription"
	ColManufacturerID       = "ManufacturerID"
	ColManufacturerItemCode = "ManufacturerItemCode"
	ColItemDescription      = "ItemDescription"
	ColPKG                  = "PKG"
	ColUnitPrice            = "UnitPrice"
	ColQuantityOnHand       = "QuantityOnHand"
	ColItemImageURL         = "ItemImageURL"
	ColCategoryID           = "CategoryID"
)

// Row is one decoded line of the catalog feed. All fields are the raw string
// cells; numeric coercion is applied by the consumer so that substitution
// policies (skip vs. default-with-warning) stay with the business rules.
type Row struct {
	ProductID            string
	ItemID               string
	ProductName          string
	ProductDescription   string
	ManufacturerID       string
	ManufacturerItemCode string
	ItemDescription      string
	PKG                  string
	UnitPrice            string
	QuantityOnHand       string
	ItemImageURL         string
	CategoryID           string

	// Extra holds cells from columns outside the recognized set.
	Extra map[string]string
}

// BusinessID parses the stable business product identifier. Rows for which
// this fails are skipped by the aggregator rather than failing the pass.
func (r Row) BusinessID() (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(r.ProductID), 10, 64)
}

// set assigns a cell to the field named by the header column.
func (r *Row) set(name, value string) {
	switch name {
	case ColProductID:
		r.ProductID = value
	case ColItemID:
		r.ItemID = value
	case ColProductName:
		r.ProductName = value
	case ColProductDescription:
		r.ProductDescription = value
	case ColManufacturerID:
		r.ManufacturerID = value
	case ColManufacturerItemCode:
		r.ManufacturerItemCode = value
	case ColItemDescription:
		r.ItemDescription = value
	case ColPKG:
		r.PKG = value
	case ColUnitPrice:
		r.UnitPrice = value
	case ColQuantityOnHand:
		r.QuantityOnHand = value
	case ColItemImageURL:
		r.ItemImageURL = value
	case ColCategoryID:
		r.CategoryID = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[name] = value
	}
}
