package models

// Product lifecycle statuses.
const (
	StatusActive  = "active"
	StatusDeleted = "deleted"
)

// Defaults applied to every product document built from the CSV feed.
const (
	DefaultDeploymentID = "d8039"
	DefaultDocType      = "item"
	DefaultNamespace    = "items"
	DataSourceCSV       = "csv"
)

// Product is the canonical catalog document persisted in the store.
// ID is the internal record identifier; ProductID is the stable business
// identifier from the source feed and is what reconciliation matches on.
type Product struct {
	ID           string      `json:"_id"`
	ProductID    int64       `json:"productId"`
	DocID        string      `json:"docId"`
	Data         ProductData `json:"data"`
	Immutable    bool        `json:"immutable"`
	DeploymentID string      `json:"deploymentId"`
	DocType      string      `json:"docType"`
	Namespace    string      `json:"namespace"`
	CompanyID    string      `json:"companyId"`
	Status       string      `json:"status"`
	Info         ProductInfo `json:"info"`
}

// ProductData holds the nested, mutable portion of a product document.
// Product-level fields come from the first CSV row seen for a business id;
// each row contributes one Variant.
type ProductData struct {
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	VendorID       string    `json:"vendorId"`
	ManufacturerID string    `json:"manufacturerId"`
	Variants       []Variant `json:"variants"`
	Options        []Option  `json:"options"`
	CategoryID     string    `json:"categoryId"`
	IsFragile      bool      `json:"isFragile"`
	IsTaxable      bool      `json:"isTaxable"`
}

// ProductInfo is the audit block. Actor ids are placeholders issued by the
// identity provider until an authoritative identity service supplies them.
type ProductInfo struct {
	CreatedBy     string `json:"createdBy"`
	CreatedAt     string `json:"createdAt"`
	UpdatedBy     string `json:"updatedBy"`
	UpdatedAt     string `json:"updatedAt"`
	DeletedBy     string `json:"deletedBy,omitempty"`
	DeletedAt     string `json:"deletedAt,omitempty"`
	DataSource    string `json:"dataSource"`
	CompanyStatus string `json:"companyStatus"`
	TransactionID string `json:"transactionId"`
	SkipEvent     bool   `json:"skipEvent"`
	UserRequestID string `json:"userRequestId"`
}

// Option describes a selectable product option (e.g. packaging).
type Option struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// OptionValue is one selectable value of an Option.
type OptionValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}
