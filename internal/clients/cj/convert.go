package cj

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"dropship-service/internal/clients"
)

const pathSeparator = " > "

// syntheticID derives a stable id for taxonomy levels CJ does not number
func syntheticID(level int, path string) string {
	sum := sha1.Sum([]byte(strings.ToLower(path)))
	return "cj-l" + strconv.Itoa(level) + "-" + hex.EncodeToString(sum[:])[:12]
}

func flattenCategories(tree []cjCategoryFirst) []clients.ExternalCategory {
	var out []clients.ExternalCategory
	for _, first := range tree {
		firstName := strings.TrimSpace(first.CategoryFirstName)
		firstID := first.CategoryFirstID
		if firstID == "" {
			firstID = syntheticID(1, firstName)
		}
		out = append(out, clients.ExternalCategory{ID: firstID, Name: firstName, Level: 1, Path: firstName})

		for _, second := range first.CategoryFirstList {
			secondName := strings.TrimSpace(second.CategorySecondName)
			secondPath := firstName + pathSeparator + secondName
			secondID := second.CategorySecondID
			if secondID == "" {
				secondID = syntheticID(2, secondPath)
			}
			out = append(out, clients.ExternalCategory{ID: secondID, Name: secondName, ParentID: firstID, Level: 2, Path: secondPath})

			for _, leaf := range second.CategorySecondList {
				if leaf.CategoryID == "" {
					continue
				}
				name := strings.TrimSpace(leaf.CategoryName)
				out = append(out, clients.ExternalCategory{
					ID:       leaf.CategoryID,
					Name:     name,
					ParentID: secondID,
					Level:    3,
					Path:     secondPath + pathSeparator + name,
				})
			}
		}
	}
	return out
}

func convertProduct(p cjProduct, raw json.RawMessage) clients.ExternalProduct {
	images := make([]string, 0, len(p.ProductImage)+len(p.ProductImageSet))
	seen := map[string]bool{}
	for _, img := range append([]string(p.ProductImage), p.ProductImageSet...) {
		img = strings.TrimSpace(img)
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		images = append(images, img)
	}

	product := clients.ExternalProduct{
		ID:           p.PID,
		Name:         strings.TrimSpace(p.ProductNameEn),
		Description:  p.Description,
		SKU:          p.ProductSku,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Images:       images,
		SellPrice:    p.SellPrice.Decimal,
		Weight:       p.ProductWeight.InexactFloat64(),
		UpdatedAt:    parseUpdateTime(p.UpdateTime),
		RawData:      raw,
	}
	for _, v := range p.Variants {
		product.Variants = append(product.Variants, convertVariant(v))
	}
	return product
}

func convertVariant(v cjVariant) clients.ExternalVariant {
	return clients.ExternalVariant{
		ID:         v.VID,
		ProductID:  v.PID,
		Name:       strings.TrimSpace(v.VariantNameEn),
		SKU:        v.VariantSku,
		Image:      v.VariantImage,
		SellPrice:  v.VariantSellPrice.Decimal,
		Weight:     v.VariantWeight.InexactFloat64(),
		Attributes: parseVariantKey(v.VariantKey),
	}
}

// parseVariantKey turns "Black-XL" into positional option attributes
func parseVariantKey(key string) map[string]string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	attrs := map[string]string{}
	for i, part := range strings.Split(key, "-") {
		if part = strings.TrimSpace(part); part != "" {
			attrs["option"+strconv.Itoa(i+1)] = part
		}
	}
	return attrs
}

func convertStock(vid string, rows []cjStock) *clients.StockLevel {
	level := &clients.StockLevel{VariantID: vid, Warehouses: make([]clients.WarehouseStock, 0, len(rows))}
	for _, r := range rows {
		level.Total += r.StorageNum
		level.Warehouses = append(level.Warehouses, clients.WarehouseStock{
			AreaID:      r.AreaID,
			AreaName:    r.AreaEn,
			CountryCode: r.CountryCode,
			Quantity:    r.StorageNum,
		})
	}
	return level
}

func convertOrder(o cjOrder) *clients.ExternalOrder {
	number := o.OrderNumber
	if number == "" {
		number = o.OrderNum
	}
	return &clients.ExternalOrder{
		ID:             o.OrderID,
		OrderNumber:    number,
		Status:         o.OrderStatus,
		TrackingNumber: o.TrackNumber,
		LogisticName:   o.LogisticName,
		TotalAmount:    o.OrderAmount.Decimal,
	}
}

// parseUpdateTime handles epoch millis as well as formatted timestamps
func parseUpdateTime(v interface{}) time.Time {
	switch t := v.(type) {
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC()
		}
		return parseTime(t, time.Time{})
	}
	return time.Time{}
}

func toOrderProducts(lines []clients.OrderLine) []cjOrderProduct {
	out := make([]cjOrderProduct, 0, len(lines))
	for _, l := range lines {
		out = append(out, cjOrderProduct{VID: l.VariantID, Quantity: l.Quantity})
	}
	return out
}
