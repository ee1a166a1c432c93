package product

import (
	"encoding/json"
	"testing"

	"github.com/georgemunganga/product-manager/internal/docstore"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"9.99", 9.99},
		{" 12 ", 12},
		{"0", 0},
		{"abc", 0},
		{"", 0},
		{"-3.5", 0},
		{"NaN", 0},
		{"1e2", 100},
		{"1e400", 0},
		{"-1e400", 0},
	}
	for _, tc := range cases {
		if got := ParsePrice(tc.in); got != tc.want {
			t.Errorf("ParsePrice(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseStock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"3", 3},
		{" 42", 42},
		{"abc", 0},
		{"", 0},
		{"2.5", 0},
		{"-1", 0},
	}
	for _, tc := range cases {
		if got := ParseStock(tc.in); got != tc.want {
			t.Errorf("ParseStock(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestDocumentMapping(t *testing.T) {
	p := Product{ID: "ignored", Name: "Widget", Price: 9.99, Stock: 3, Category: "Tools", OwnerID: "P"}
	doc := p.ToDocument()
	if _, ok := doc["id"]; ok {
		t.Fatalf("id must not be part of the document body")
	}
	if doc[FieldOwnerID] != "P" || doc[FieldName] != "Widget" {
		t.Fatalf("unexpected document: %v", doc)
	}

	got := FromDocument("doc-1", doc)
	want := p
	want.ID = "doc-1"
	if got != want {
		t.Fatalf("FromDocument=%+v want %+v", got, want)
	}
}

func TestFromDocumentToleratesWireTypes(t *testing.T) {
	d := docstore.Document{
		FieldName:    "x",
		FieldPrice:   json.Number("2.50"),
		FieldStock:   int64(7),
		FieldOwnerID: "P",
	}
	got := FromDocument("id", d)
	if got.Price != 2.5 || got.Stock != 7 || got.Category != "" {
		t.Fatalf("unexpected product: %+v", got)
	}

	bad := FromDocument("id", docstore.Document{FieldPrice: "oops", FieldStock: -4.0})
	if bad.Price != 0 || bad.Stock != 0 {
		t.Fatalf("mistyped fields should decode to zero: %+v", bad)
	}
}
