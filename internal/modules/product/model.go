package product

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/product-manager/internal/docstore"
)

// Document field names.
const (
	FieldName     = "name"
	FieldPrice    = "price"
	FieldStock    = "stock"
	FieldCategory = "category"
	FieldOwnerID  = "ownerId"
)

// Product is one inventory record owned by a single principal. ID is empty
// until the store assigns one.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Category string  `json:"category"`
	OwnerID  string  `json:"owner_id"`
}

// ToDocument returns the stored representation. The id is the document key
// and is not part of the body.
func (p Product) ToDocument() docstore.Document {
	return docstore.Document{
		FieldName:     p.Name,
		FieldPrice:    p.Price,
		FieldStock:    p.Stock,
		FieldCategory: p.Category,
		FieldOwnerID:  p.OwnerID,
	}
}

// FromDocument decodes a stored document. Missing or mistyped fields take
// their zero value.
func FromDocument(id string, d docstore.Document) Product {
	return Product{
		ID:       id,
		Name:     stringField(d, FieldName),
		Price:    nonNegative(floatField(d, FieldPrice)),
		Stock:    int(nonNegative(floatField(d, FieldStock))),
		Category: stringField(d, FieldCategory),
		OwnerID:  stringField(d, FieldOwnerID),
	}
}

// ParsePrice reads a user-entered price. Anything that is not a finite,
// non-negative decimal becomes 0.
func ParsePrice(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return 0
	}
	return nonNegative(d.InexactFloat64())
}

// ParseStock reads a user-entered stock count. Anything that is not a
// non-negative integer becomes 0.
func ParseStock(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func stringField(d docstore.Document, key string) string {
	s, _ := d[key].(string)
	return s
}

func floatField(d docstore.Document, key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func nonNegative(f float64) float64 {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
