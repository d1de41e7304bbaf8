package bigbasket

import (
	"log/slog"
	"math"

	"github.com/tidwall/gjson"

	"github.com/snakeeebyte/BigBasketScraper/pipeline"
)

// Product is one catalog item parsed from a listing page. Pointer fields stay
// nil when the payload lacks them and are stored as NULLs.
type Product struct {
	ProductID         int64    `json:"product_id"`
	Name              string   `json:"name"`
	Brand             string   `json:"brand"`
	ProductURL        string   `json:"product_url"`
	Images            []string `json:"images"`
	Unit              string   `json:"unit"`
	QuantityLabel     string   `json:"quantity_label"`
	PriceMRP          *float64 `json:"price_mrp"`
	PriceSP           *float64 `json:"price_sp"`
	DiscountPercent   *float64 `json:"discount_percent"`
	IsBestValue       bool     `json:"is_best_value"`
	AvailableQuantity int64    `json:"available_quantity"`
	AvailabilityCode  string   `json:"availability_code"`
	CategoryMain      string   `json:"category_main"`
	CategoryMid       string   `json:"category_mid"`
	CategoryLeaf      string   `json:"category_leaf"`
	CreatedOnSite     *string  `json:"created_at_on_web_site"`
	UpdatedOnSite     *string  `json:"updated_at_on_web_site"`
}

func (p *Product) Key() int64 { return p.ProductID }

// Parser extracts products and the announced page count from listing
// payloads. A malformed product entry is skipped, never fails the page.
type Parser struct {
	logger *slog.Logger
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

func (p *Parser) ParsePage(raw []byte) ([]pipeline.Record, int, error) {
	info := gjson.GetBytes(raw, "tabs.0.product_info")
	if !info.Exists() {
		return nil, 0, &pipeline.ParseError{Reason: "payload has no product_info"}
	}

	total := int(info.Get("number_of_pages").Int())
	if total < 1 {
		total = 1
	}

	var records []pipeline.Record
	info.Get("products").ForEach(func(_, prod gjson.Result) bool {
		rec := parseProduct(prod)
		if rec == nil {
			p.logger.Debug("product entry without id skipped")
			return true
		}
		records = append(records, rec)
		return true
	})

	return records, total, nil
}

func parseProduct(prod gjson.Result) *Product {
	id := prod.Get("id").Int()
	if id == 0 {
		return nil
	}

	p := &Product{
		ProductID:         id,
		Name:              prod.Get("desc").String(),
		Brand:             prod.Get("brand.name").String(),
		ProductURL:        prod.Get("absolute_url").String(),
		Unit:              prod.Get("unit").String(),
		QuantityLabel:     prod.Get("magnitude").String(),
		IsBestValue:       prod.Get("is_best_value").Bool(),
		AvailableQuantity: prod.Get("sku_max_quantity").Int(),
		AvailabilityCode:  prod.Get("availability.avail_status").String(),
		CategoryMain:      prod.Get("category.tlc_name").String(),
		CategoryMid:       prod.Get("category.mlc_name").String(),
		CategoryLeaf:      prod.Get("category.llc_name").String(),
	}

	prod.Get("images").ForEach(func(_, img gjson.Result) bool {
		if l := img.Get("l").String(); l != "" {
			p.Images = append(p.Images, l)
		}
		return true
	})

	// Listing prices arrive in paise.
	discount := prod.Get("pricing.discount")
	if mrp := discount.Get("mrp"); mrp.Exists() && mrp.Float() > 0 {
		v := mrp.Float() / 100
		p.PriceMRP = &v
	}
	if sp := discount.Get("prim_price.sp"); sp.Exists() && sp.Float() > 0 {
		v := sp.Float() / 100
		p.PriceSP = &v
	}
	if p.PriceMRP != nil && p.PriceSP != nil && *p.PriceMRP > 0 {
		d := math.Round((*p.PriceMRP-*p.PriceSP)/(*p.PriceMRP)*100*100) / 100
		p.DiscountPercent = &d
	}

	if created := prod.Get("parent_info.created_on"); created.Exists() && created.String() != "" {
		v := created.String()
		p.CreatedOnSite = &v
	}
	if updated := prod.Get("parent_info.updated_on"); updated.Exists() && updated.String() != "" {
		v := updated.String()
		p.UpdatedOnSite = &v
	}

	return p
}
