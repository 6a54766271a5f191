package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dropship-service/internal/clients"
	"dropship-service/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	maxSlugLength    = 100
	maxProductImages = 10
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// ProductMapper transforms supplier catalog data into catalog rows
type ProductMapper struct {
	supplier *models.Supplier
	pricer   *Pricer
	currency string
	now      func() time.Time
}

// NewProductMapper creates a mapper for one supplier
func NewProductMapper(supplier *models.Supplier, pricer *Pricer, currency string) *ProductMapper {
	if currency == "" {
		currency = "USD"
	}
	return &ProductMapper{supplier: supplier, pricer: pricer, currency: currency, now: time.Now}
}

// NewProduct builds a product for a first import. With no category the
// product waits in PENDING_MAPPING until a mapping is applied.
func (m *ProductMapper) NewProduct(external *clients.ExternalProduct, categoryID *uuid.UUID) *models.Product {
	now := m.now()
	cost := costOf(external)
	pid := external.ID
	supplierID := m.supplier.ID

	product := &models.Product{
		ID:                uuid.New(),
		Name:              external.Name,
		Slug:              importedSlug(external.Name, pid),
		Description:       external.Description,
		SKU:               generateSKU(m.supplier.Code, external.SKU, pid),
		Status:            models.ProductPendingMapping,
		Price:             m.pricer.RetailPrice(cost, m.supplier),
		CostPrice:         cost.Round(2),
		Currency:          m.currency,
		CategoryID:        categoryID,
		SupplierID:        &supplierID,
		SupplierProductID: &pid,
		SupplierSyncedAt:  &now,
		SupplierRaw:       rawJSON(external.RawData),
		Images:            limitImages(external.Images),
		Weight:            external.Weight,
	}
	if external.CategoryID != "" {
		cat := external.CategoryID
		product.SupplierCategoryID = &cat
	}
	if categoryID != nil {
		product.Status = models.ProductDraft
	}
	return product
}

// RefreshFields returns the column updates for a re-import of an existing
// product. Category and status are left to the caller; price follows cost
// unless an admin has overridden it.
func (m *ProductMapper) RefreshFields(existing *models.Product, external *clients.ExternalProduct) map[string]interface{} {
	cost := costOf(external)
	updates := map[string]interface{}{
		"name":               external.Name,
		"cost_price":         cost.Round(2),
		"images":             limitImages(external.Images),
		"weight":             external.Weight,
		"supplier_synced_at": m.now(),
	}
	if external.Description != "" {
		updates["description"] = external.Description
	}
	if len(external.RawData) > 0 {
		updates["supplier_raw"] = rawJSON(external.RawData)
	}
	if external.CategoryID != "" {
		updates["supplier_category_id"] = external.CategoryID
	}
	if !existing.PriceOverridden {
		updates["price"] = m.pricer.RetailPrice(cost, m.supplier)
	}
	return updates
}

// Variants maps supplier variants onto a product. Variants without a
// stock reading keep stock 0 until a stock sync runs.
func (m *ProductMapper) Variants(productID uuid.UUID, external *clients.ExternalProduct) []models.ProductVariant {
	variants := make([]models.ProductVariant, 0, len(external.Variants))
	for _, v := range external.Variants {
		if v.ID == "" {
			continue
		}
		vid := v.ID
		cost := v.SellPrice
		if cost.IsZero() {
			cost = external.SellPrice
		}

		attrs := models.JSONB{}
		for k, val := range v.Attributes {
			attrs[k] = val
		}

		variant := models.ProductVariant{
			ID:                uuid.New(),
			ProductID:         productID,
			SupplierVariantID: &vid,
			SKU:               generateSKU(m.supplier.Code, v.SKU, vid),
			Name:              defaultStr(v.Name, external.Name),
			Price:             m.pricer.RetailPrice(cost, m.supplier),
			CostPrice:         cost.Round(2),
			Image:             v.Image,
			Attributes:        attrs,
		}
		if v.Stock != nil {
			variant.Stock = *v.Stock
		}
		variants = append(variants, variant)
	}
	return variants
}

// costOf is the product sell price, or the cheapest variant when CJ omits it
func costOf(external *clients.ExternalProduct) decimal.Decimal {
	if external.SellPrice.IsPositive() {
		return external.SellPrice
	}
	var lowest decimal.Decimal
	for _, v := range external.Variants {
		if v.SellPrice.IsPositive() && (lowest.IsZero() || v.SellPrice.LessThan(lowest)) {
			lowest = v.SellPrice
		}
	}
	return lowest
}

func generateSlug(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// importedSlug suffixes the supplier id so imports never collide
func importedSlug(name, supplierProductID string) string {
	suffix := generateSlug(supplierProductID)
	if len(suffix) > 12 {
		suffix = suffix[len(suffix)-12:]
	}
	base := generateSlug(name)
	if len(base) > maxSlugLength-len(suffix)-1 {
		base = strings.TrimRight(base[:maxSlugLength-len(suffix)-1], "-")
	}
	if base == "" {
		return "product-" + suffix
	}
	return base + "-" + suffix
}

func generateSKU(prefix, externalSKU, externalID string) string {
	if externalSKU != "" {
		return fmt.Sprintf("%s-%s", prefix, externalSKU)
	}
	return fmt.Sprintf("%s-%s", prefix, externalID)
}

func limitImages(images []string) pq.StringArray {
	if len(images) > maxProductImages {
		images = images[:maxProductImages]
	}
	return pq.StringArray(images)
}

func rawJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return nil
	}
	return datatypes.JSON(raw)
}

func defaultStr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
