package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SportDirectAdapter parses the SportDirect response shape:
//
//	{
//	  "provider": "SportDirect",
//	  "currency": "GBP",
//	  "products": [
//	    {"product_id": 1, "product_name": "Nike Pegasus 40", "brand": "Nike",
//	     "category": "Koşu", "subcategory": "Ayakkabı", "colour": "Mavi",
//	     "price_gbp": 130.95, "stock_quantity": 100, "in_stock": true}
//	  ]
//	}
type SportDirectAdapter struct{}

// NewSportDirectAdapter creates the adapter.
func NewSportDirectAdapter() *SportDirectAdapter {
	return &SportDirectAdapter{}
}

func (a *SportDirectAdapter) Slug() string {
	return "sport-direct"
}

func (a *SportDirectAdapter) Currency() string {
	return "GBP"
}

type sportDirectItem struct {
	ProductID     flexString `json:"product_id"`
	ProductName   string     `json:"product_name"`
	Brand         string     `json:"brand"`
	Category      string     `json:"category"`
	Subcategory   string     `json:"subcategory"`
	Colour        string     `json:"colour"`
	PriceGBP      flexString `json:"price_gbp"`
	StockQuantity int        `json:"stock_quantity"`
	InStock       bool       `json:"in_stock"`
	ProductURL    string     `json:"product_url"`
	Sizes         []string   `json:"sizes"`
}

func (a *SportDirectAdapter) Adapt(body json.RawMessage) ([]Record, error) {
	items, err := extractItems(body, "products")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Slug(), err)
	}

	records := make([]Record, 0, len(items))
	for i, raw := range items {
		var item sportDirectItem
		if err := json.Unmarshal(raw, &item); err != nil {
			warnSkip(a.Slug(), i, err)
			continue
		}
		if item.ProductID == "" || item.ProductName == "" || item.PriceGBP == "" {
			warnSkip(a.Slug(), i, errors.New("missing product_id, product_name or price_gbp"))
			continue
		}

		rec := Record{
			ProviderSlug:  a.Slug(),
			ExternalCode:  item.ProductID.String(),
			Name:          item.ProductName,
			Brand:         item.Brand,
			Category:      item.Category,
			Subcategory:   item.Subcategory,
			Price:         item.PriceGBP.String(),
			CurrencyCode:  a.Currency(),
			InStock:       item.InStock,
			StockQuantity: item.StockQuantity,
			ProductURL:    item.ProductURL,
			Sizes:         item.Sizes,
		}
		if item.Colour != "" {
			rec.Colors = []string{item.Colour}
		}
		records = append(records, rec)
	}
	return records, nil
}
