package models

// Variant is one unit-of-sale within a product. Variants are rebuilt from
// scratch on every import pass; they are never merged field-by-field with a
// previously persisted variant.
type Variant struct {
	ID                   string            `json:"id"`
	Available            bool              `json:"available"`
	Attributes           VariantAttributes `json:"attributes"`
	Cost                 float64           `json:"cost"`
	Currency             string            `json:"currency"`
	Description          string            `json:"description"`
	ManufacturerItemCode string            `json:"manufacturerItemCode"`
	ManufacturerItemID   string            `json:"manufacturerItemId"`
	Packaging            string            `json:"packaging"`
	Price                float64           `json:"price"`
	OptionName           string            `json:"optionName"`
	OptionsPath          string            `json:"optionsPath"`
	OptionItemsPath      string            `json:"optionItemsPath"`
	SKU                  string            `json:"sku"`
	Active               bool              `json:"active"`
	Images               []VariantImage    `json:"images"`
	ItemCode             string            `json:"itemCode"`
}

// VariantAttributes carries free-form display attributes of a variant.
type VariantAttributes struct {
	Packaging   string `json:"packaging"`
	Description string `json:"description"`
}

// VariantImage references one image asset served from the CDN.
type VariantImage struct {
	FileName string `json:"fileName"`
	CDNLink  string `json:"cdnLink"`
	Alt      string `json:"alt"`
}
