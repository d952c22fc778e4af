package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/example/storefront-client/internal/metrics"
	"github.com/example/storefront-client/internal/model"
	"github.com/example/storefront-client/internal/normalize"
)

// Products fetches the product catalog. Malformed records are dropped and
// logged; one bad product never blanks the page.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	payload, err := c.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	return c.decodeProducts(payload, "products")
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id string) (model.Product, error) {
	payload, err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil)
	if err != nil {
		return model.Product{}, err
	}

	p, err := normalize.Product(payload)
	if err != nil {
		return model.Product{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return p, nil
}

// RecommendationsForUser fetches collaborative recommendations for a user.
func (c *Client) RecommendationsForUser(ctx context.Context, userID string) ([]model.Product, error) {
	payload, err := c.do(ctx, http.MethodGet, "/recommendations/collaborative/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	return c.decodeProducts(payload, "recommendations")
}

// RelatedProducts fetches content-based recommendations for a product.
func (c *Client) RelatedProducts(ctx context.Context, productID string) ([]model.Product, error) {
	payload, err := c.do(ctx, http.MethodGet, "/recommendations/content/"+url.PathEscape(productID), nil)
	if err != nil {
		return nil, err
	}
	return c.decodeProducts(payload, "recommendations")
}

func (c *Client) decodeProducts(payload any, kind string) ([]model.Product, error) {
	products, errs := normalize.ProductList(payload)
	if products == nil && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrBackend, kind, errs[0])
	}
	for _, err := range errs {
		metrics.RecordsDropped.WithLabelValues("product").Inc()
		c.logger.Warn().Err(err).Str("kind", kind).Msg("dropped malformed record")
	}
	return products, nil
}
