package cj

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"dropship-service/internal/clients"
)

const maxPageSize = 200

// GetCategories fetches the three-level category tree, flattened
func (c *Client) GetCategories(ctx context.Context) ([]clients.ExternalCategory, error) {
	var tree []cjCategoryFirst
	if err := c.doRequest(ctx, http.MethodGet, "/product/getCategory", nil, nil, &tree); err != nil {
		return nil, err
	}
	return flattenCategories(tree), nil
}

// SearchProducts lists one page of the CJ catalog
func (c *Client) SearchProducts(ctx context.Context, opts *clients.ProductSearchOptions) (*clients.ProductsResult, error) {
	if opts == nil {
		opts = &clients.ProductSearchOptions{}
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := url.Values{}
	params.Set("pageNum", strconv.Itoa(page))
	params.Set("pageSize", strconv.Itoa(pageSize))
	if opts.CategoryID != "" {
		params.Set("categoryId", opts.CategoryID)
	}
	if opts.Keyword != "" {
		params.Set("productNameEn", opts.Keyword)
	}

	var data cjProductPage
	if err := c.doRequest(ctx, http.MethodGet, "/product/list", params, nil, &data); err != nil {
		return nil, err
	}

	products := make([]clients.ExternalProduct, 0, len(data.List))
	for _, p := range data.List {
		products = append(products, convertProduct(p, nil))
	}

	result := &clients.ProductsResult{Products: products, Page: data.PageNum, PageSize: data.PageSize, Total: data.Total}
	if result.Page == 0 {
		result.Page = page
	}
	if result.PageSize == 0 {
		result.PageSize = pageSize
	}
	return result, nil
}

// GetProduct fetches a product with its variants
func (c *Client) GetProduct(ctx context.Context, productID string) (*clients.ExternalProduct, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	params := url.Values{"pid": {productID}}

	var raw json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/product/query", params, nil, &raw); err != nil {
		return nil, err
	}
	var p cjProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to parse product response: %w", err)
	}
	if p.PID == "" {
		return nil, &APIError{Code: 404, HTTPStatus: http.StatusOK, Message: "product not found: " + productID}
	}

	product := convertProduct(p, raw)
	if len(product.Variants) == 0 {
		variants, err := c.GetVariants(ctx, productID)
		if err != nil {
			return nil, err
		}
		product.Variants = variants
	}
	return &product, nil
}

// GetVariants fetches the variants of a product
func (c *Client) GetVariants(ctx context.Context, productID string) ([]clients.ExternalVariant, error) {
	params := url.Values{"pid": {productID}}

	var rows []cjVariant
	if err := c.doRequest(ctx, http.MethodGet, "/product/variant/query", params, nil, &rows); err != nil {
		return nil, err
	}
	variants := make([]clients.ExternalVariant, 0, len(rows))
	for _, v := range rows {
		variant := convertVariant(v)
		if variant.ProductID == "" {
			variant.ProductID = productID
		}
		variants = append(variants, variant)
	}
	return variants, nil
}

// GetVariantStock fetches warehouse inventory for a variant
func (c *Client) GetVariantStock(ctx context.Context, variantID string) (*clients.StockLevel, error) {
	params := url.Values{"vid": {variantID}}

	var rows []cjStock
	if err := c.doRequest(ctx, http.MethodGet, "/product/stock/queryByVid", params, nil, &rows); err != nil {
		return nil, err
	}
	return convertStock(variantID, rows), nil
}
