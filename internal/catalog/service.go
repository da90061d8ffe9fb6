// Package catalog searches and edits products in the external WooCommerce
// catalog. It owns the mapping from the search form to API parameters and
// the Client boundary the HTTP layer talks through.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/supplier"
)

// Client is the capability the manager needs from a product catalog.
type Client interface {
	Search(ctx context.Context, params url.Values) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Update(ctx context.Context, id int64, product models.Product) (*models.Product, error)
}

// ClientSource hands out the client built from the current credentials, or
// ErrConfigurationMissing.
type ClientSource interface {
	Client() (Client, error)
}

type Service struct {
	Clients  ClientSource
	Supplier supplier.Source
}

func NewService(clients ClientSource, src supplier.Source) *Service {
	return &Service{Clients: clients, Supplier: src}
}

// Search validates q, queries the catalog and applies the stock range.
// Several names or barcodes become one catalog call each; their results are
// merged in call order without duplicates. On success the result is never
// nil, and any failed call fails the whole search.
func (s *Service) Search(ctx context.Context, q models.SearchQuery) ([]models.Product, error) {
	params, stock, err := parseQuery(q)
	if err != nil {
		return nil, err
	}
	requests, err := searchRequests(q, params)
	if err != nil {
		return nil, err
	}

	client, err := s.Clients.Client()
	if err != nil {
		return nil, err
	}

	var (
		results  = []models.Product{}
		seen     = map[int64]bool{}
		returned int
	)
	for _, req := range requests {
		products, err := client.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		returned += len(products)
		for _, p := range products {
			if seen[p.ID] || !stock.Matches(p) {
				continue
			}
			seen[p.ID] = true
			results = append(results, p)
		}
	}
	slog.Debug("Product search finished", "params", params.Encode(), "requests", len(requests), "returned", returned, "matched", len(results))
	return results, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	client, err := s.Clients.Client()
	if err != nil {
		return nil, err
	}
	return client.Get(ctx, id)
}

// Update overwrites the whole product record. The id argument wins over
// product.ID. There is no concurrency check: the last writer wins.
func (s *Service) Update(ctx context.Context, id int64, product models.Product) (*models.Product, error) {
	if id <= 0 {
		return nil, &ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	if strings.TrimSpace(product.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	client, err := s.Clients.Client()
	if err != nil {
		return nil, err
	}
	product.ID = id
	return client.Update(ctx, id, product)
}

// SupplierDraft fetches supplier data for sku.
func (s *Service) SupplierDraft(ctx context.Context, sku string) (models.ProductDraft, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return models.ProductDraft{}, &ValidationError{Field: "sku", Message: "is required"}
	}
	if s.Supplier == nil {
		return models.ProductDraft{}, errors.New("no supplier source configured")
	}
	return s.Supplier.FetchSupplierData(ctx, sku)
}

// ApplyDraft copies the non-empty fields of d onto p.
func ApplyDraft(p *models.Product, d models.ProductDraft) {
	if d.Name != "" {
		p.Name = d.Name
	}
	if d.Description != "" {
		p.Description = d.Description
	}
	if d.Price != "" {
		p.RegularPrice = d.Price
	}
	if len(d.Images) > 0 {
		p.Images = d.Images
	}
}
