package bigbasket_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/snakeeebyte/BigBasketScraper/bigbasket"
	"github.com/snakeeebyte/BigBasketScraper/pipeline"
)

const listingPage = `{
	"tabs": [
		{
			"product_info": {
				"number_of_pages": 7,
				"products": [
					{
						"id": 40123456,
						"desc": "Organic Banana",
						"brand": {"name": "Fresho"},
						"absolute_url": "/pd/40123456/fresho-organic-banana/",
						"unit": "kg",
						"magnitude": "1 kg",
						"images": [
							{"s": "small-1.jpg", "l": "large-1.jpg"},
							{"l": "large-2.jpg"},
							{"s": "small-only.jpg"}
						],
						"pricing": {"discount": {"mrp": "12900", "prim_price": {"sp": "9999"}}},
						"is_best_value": true,
						"sku_max_quantity": 10,
						"availability": {"avail_status": "001"},
						"category": {"tlc_name": "Fruits & Vegetables", "mlc_name": "Fresh Fruits", "llc_name": "Banana"},
						"parent_info": {"created_on": "2021-06-08 17:35:27", "updated_on": "2024-01-15 09:00:00"}
					},
					{"desc": "ghost entry without an id"},
					{"id": 50001, "desc": "Plain Salt"}
				]
			}
		}
	]
}`

func parsePage(t *testing.T, raw string) ([]pipeline.Record, int) {
	t.Helper()
	records, total, err := bigbasket.NewParser(quietLogger()).ParsePage([]byte(raw))
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	return records, total
}

func asProduct(t *testing.T, rec pipeline.Record) *bigbasket.Product {
	t.Helper()
	p, ok := rec.(*bigbasket.Product)
	if !ok {
		t.Fatalf("record type = %T, want *bigbasket.Product", rec)
	}
	return p
}

// -- Listing pages ---------------------------------------------------------------

func TestParsePage_FullProduct(t *testing.T) {
	records, total := parsePage(t, listingPage)

	if total != 7 {
		t.Fatalf("total = %d, want 7", total)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (the id-less entry is skipped)", len(records))
	}

	p := asProduct(t, records[0])
	if p.ProductID != 40123456 || p.Key() != 40123456 {
		t.Errorf("ProductID = %d, Key = %d, want 40123456", p.ProductID, p.Key())
	}
	if p.Name != "Organic Banana" || p.Brand != "Fresho" {
		t.Errorf("Name = %q, Brand = %q", p.Name, p.Brand)
	}
	if p.ProductURL != "/pd/40123456/fresho-organic-banana/" {
		t.Errorf("ProductURL = %q", p.ProductURL)
	}
	if p.Unit != "kg" || p.QuantityLabel != "1 kg" {
		t.Errorf("Unit = %q, QuantityLabel = %q", p.Unit, p.QuantityLabel)
	}
	if want := []string{"large-1.jpg", "large-2.jpg"}; !reflect.DeepEqual(p.Images, want) {
		t.Errorf("Images = %v, want %v", p.Images, want)
	}
	if p.PriceMRP == nil || *p.PriceMRP != 129.0 {
		t.Errorf("PriceMRP = %v, want 129.0", p.PriceMRP)
	}
	if p.PriceSP == nil || *p.PriceSP != 99.99 {
		t.Errorf("PriceSP = %v, want 99.99", p.PriceSP)
	}
	if p.DiscountPercent == nil || *p.DiscountPercent != 22.49 {
		t.Errorf("DiscountPercent = %v, want 22.49", p.DiscountPercent)
	}
	if !p.IsBestValue || p.AvailableQuantity != 10 || p.AvailabilityCode != "001" {
		t.Errorf("IsBestValue = %v, AvailableQuantity = %d, AvailabilityCode = %q",
			p.IsBestValue, p.AvailableQuantity, p.AvailabilityCode)
	}
	if p.CategoryMain != "Fruits & Vegetables" || p.CategoryMid != "Fresh Fruits" || p.CategoryLeaf != "Banana" {
		t.Errorf("categories = %q / %q / %q", p.CategoryMain, p.CategoryMid, p.CategoryLeaf)
	}
	if p.CreatedOnSite == nil || *p.CreatedOnSite != "2021-06-08 17:35:27" {
		t.Errorf("CreatedOnSite = %v", p.CreatedOnSite)
	}
	if p.UpdatedOnSite == nil || *p.UpdatedOnSite != "2024-01-15 09:00:00" {
		t.Errorf("UpdatedOnSite = %v", p.UpdatedOnSite)
	}
}

func TestParsePage_MinimalProductLeavesOptionalFieldsNil(t *testing.T) {
	records, _ := parsePage(t, listingPage)

	p := asProduct(t, records[1])
	if p.ProductID != 50001 || p.Name != "Plain Salt" {
		t.Fatalf("ProductID = %d, Name = %q", p.ProductID, p.Name)
	}
	if p.PriceMRP != nil || p.PriceSP != nil || p.DiscountPercent != nil {
		t.Errorf("prices = %v/%v/%v, want all nil", p.PriceMRP, p.PriceSP, p.DiscountPercent)
	}
	if p.CreatedOnSite != nil || p.UpdatedOnSite != nil {
		t.Errorf("site timestamps = %v/%v, want nil", p.CreatedOnSite, p.UpdatedOnSite)
	}
	if len(p.Images) != 0 {
		t.Errorf("Images = %v, want none", p.Images)
	}
	if p.Brand != "" || p.Unit != "" || p.AvailabilityCode != "" {
		t.Errorf("Brand = %q, Unit = %q, AvailabilityCode = %q, want empty", p.Brand, p.Unit, p.AvailabilityCode)
	}
}

func TestParsePage_ZeroPricesStayNil(t *testing.T) {
	raw := `{"tabs":[{"product_info":{"number_of_pages":1,"products":[
		{"id": 60001, "desc": "Freebie", "pricing": {"discount": {"mrp": 0, "prim_price": {"sp": "0"}}}}
	]}}]}`

	records, _ := parsePage(t, raw)
	p := asProduct(t, records[0])
	if p.PriceMRP != nil || p.PriceSP != nil || p.DiscountPercent != nil {
		t.Fatalf("prices = %v/%v/%v, want all nil for zero amounts", p.PriceMRP, p.PriceSP, p.DiscountPercent)
	}
}

func TestParsePage_MissingProductInfo(t *testing.T) {
	_, _, err := bigbasket.NewParser(quietLogger()).ParsePage([]byte(`{"tabs": []}`))

	var perr *pipeline.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want a ParseError", err)
	}
}

func TestParsePage_PageCountDefaultsToOne(t *testing.T) {
	raw := `{"tabs":[{"product_info":{"products":[{"id": 70001, "desc": "Lone Item"}]}}]}`

	records, total := parsePage(t, raw)
	if total != 1 {
		t.Fatalf("total = %d, want 1 when the payload has no page count", total)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
}
