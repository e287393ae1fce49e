package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shopsphere/order-fulfillment/internal/domain"
)

// Product is the slice of the catalog the saga needs for pricing.
type Product struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
}

// CatalogClient resolves current unit prices. A failing lookup triggers the
// fallback-price policy in the orchestrator; it never aborts a checkout.
type CatalogClient interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error)
}

// HTTPCatalogClient talks to the catalog collaborator over its REST surface.
type HTTPCatalogClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCatalogClient(baseURL string, timeout time.Duration) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCatalogClient) GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error) {
	url := fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.DownstreamError{Service: "catalog", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.DownstreamError{
			Service: "catalog",
			Err:     fmt.Errorf("unexpected status %d for product %s", resp.StatusCode, productID),
		}
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, &domain.DownstreamError{Service: "catalog", Err: err}
	}
	return &product, nil
}
