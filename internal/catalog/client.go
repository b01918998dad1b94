package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Product types understood by the catalog.
const (
	ProductTypeRetail   = "retail"
	ProductTypeMenuItem = "menu_item"
)

// ProductSnapshot is the immutable view of a product captured at order-entry
// time. Line items store a copy so historical orders survive catalog edits.
type ProductSnapshot struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductType  string    `json:"product_type"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	SellingPrice float64   `json:"selling_price"`
	Station      string    `json:"station,omitempty"`
	PrepMinutes  int       `json:"prep_minutes,omitempty"`
}

// Prepared reports whether the product is routed to a kitchen station.
// Retail goods never enter the kitchen.
func (s ProductSnapshot) Prepared() bool {
	return s.ProductType == ProductTypeMenuItem && s.Station != ""
}

// Client resolves product references against the catalog service.
type Client interface {
	Resolve(ctx context.Context, id uuid.UUID, productType string) (ProductSnapshot, error)
}

// HTTPClient implements the catalog Client using HTTP
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP catalog client
func NewHTTPClient(baseURL string) *HTTPClient {
	if baseURL == "" {
		baseURL = "http://localhost:8084" // Default catalog service URL
	}
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type productResponse struct {
	ID           string  `json:"id"`
	ProductType  string  `json:"product_type"`
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	SellingPrice float64 `json:"selling_price"`
	Station      string  `json:"kitchen_station"`
	PrepMinutes  int     `json:"preparation_time"`
	Active       bool    `json:"active"`
}

// Resolve fetches a product projection from the catalog service.
func (c *HTTPClient) Resolve(ctx context.Context, id uuid.UUID, productType string) (ProductSnapshot, error) {
	url := fmt.Sprintf("%s/catalog/products/%s?type=%s", c.baseURL, id.String(), productType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProductSnapshot{}, fmt.Errorf("create request failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProductSnapshot{}, fmt.Errorf("catalog service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ProductSnapshot{}, fmt.Errorf("product %s not found in catalog", id.String())
	}

	if resp.StatusCode != http.StatusOK {
		return ProductSnapshot{}, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var product productResponse
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return ProductSnapshot{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if !product.Active {
		return ProductSnapshot{}, fmt.Errorf("product %s is not active in catalog", id.String())
	}

	return ProductSnapshot{
		ProductID:    id,
		ProductType:  product.ProductType,
		Name:         product.Name,
		SKU:          product.SKU,
		SellingPrice: product.SellingPrice,
		Station:      product.Station,
		PrepMinutes:  product.PrepMinutes,
	}, nil
}

// NoopClient is a no-op implementation for testing or when catalog resolution
// is disabled. It echoes the reference back with zero pricing.
type NoopClient struct{}

// NewNoopClient creates a new no-op catalog client
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

func (c *NoopClient) Resolve(ctx context.Context, id uuid.UUID, productType string) (ProductSnapshot, error) {
	return ProductSnapshot{ProductID: id, ProductType: productType}, nil
}
