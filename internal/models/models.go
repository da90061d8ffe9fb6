package models

import (
	"net/url"
	"time"
)

// Product mirrors the subset of the WooCommerce v3 product resource the
// manager reads and writes. Prices are strings on the wire.
type Product struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name" validate:"required"`
	Slug             string  `json:"slug,omitempty"`
	SKU              string  `json:"sku"`
	GlobalUniqueID   string  `json:"global_unique_id,omitempty"` // UPC/EAN/GTIN/ISBN
	Price            string  `json:"price"`
	RegularPrice     string  `json:"regular_price"`
	SalePrice        string  `json:"sale_price"`
	ManageStock      bool    `json:"manage_stock"`
	StockQuantity    *int    `json:"stock_quantity"`
	Status           string  `json:"status"` // "publish", "draft", "pending", "private"
	Description      string  `json:"description"`
	ShortDescription string  `json:"short_description"`
	Images           []Image `json:"images,omitempty"`
	DateCreated      string  `json:"date_created,omitempty"`
	DateModified     string  `json:"date_modified,omitempty"`
}

type Image struct {
	ID   int64  `json:"id,omitempty"`
	Src  string `json:"src"`
	Name string `json:"name,omitempty"`
	Alt  string `json:"alt,omitempty"`
}

// ProductDraft is supplier-provided data that can be applied to a Product.
type ProductDraft struct {
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       string  `json:"price"`
	Images      []Image `json:"images"`
}

// SearchQuery is the raw product search form. Every field is optional and
// kept as the operator typed it; list fields hold one value per line.
type SearchQuery struct {
	Category     string `json:"category"`
	ProductNames string `json:"productNames"`
	SKUs         string `json:"skus"`
	UPCs         string `json:"upcs"`
	Barcodes     string `json:"barcodes"`
	MinPrice     string `json:"minPrice"`
	MaxPrice     string `json:"maxPrice"`
	MinStock     string `json:"minStock"`
	MaxStock     string `json:"maxStock"`
	CreatedFrom  string `json:"createdFrom"`
	CreatedTo    string `json:"createdTo"`
	ModifiedFrom string `json:"modifiedFrom"`
	ModifiedTo   string `json:"modifiedTo"`
	Status       string `json:"status"`
	SortBy       string `json:"sortBy"`
	SortOrder    string `json:"sortOrder"`
}

// SearchQueryFromValues reads a SearchQuery from query-string or form values.
func SearchQueryFromValues(v url.Values) SearchQuery {
	return SearchQuery{
		Category:     v.Get("category"),
		ProductNames: v.Get("productNames"),
		SKUs:         v.Get("skus"),
		UPCs:         v.Get("upcs"),
		Barcodes:     v.Get("barcodes"),
		MinPrice:     v.Get("minPrice"),
		MaxPrice:     v.Get("maxPrice"),
		MinStock:     v.Get("minStock"),
		MaxStock:     v.Get("maxStock"),
		CreatedFrom:  v.Get("createdFrom"),
		CreatedTo:    v.Get("createdTo"),
		ModifiedFrom: v.Get("modifiedFrom"),
		ModifiedTo:   v.Get("modifiedTo"),
		Status:       v.Get("status"),
		SortBy:       v.Get("sortBy"),
		SortOrder:    v.Get("sortOrder"),
	}
}

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"` // Store hashed password
}

const (
	ActivityProductUpdate  = "product_update"
	ActivitySettingsUpdate = "settings_update"
)

// Activity is one entry of the admin audit log. It never carries API secrets.
type Activity struct {
	ID          int       `json:"id"`
	Kind        string    `json:"kind"`
	ProductID   int64     `json:"product_id,omitempty"`
	ProductSKU  string    `json:"product_sku,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	BaseURL     string    `json:"base_url,omitempty"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}
