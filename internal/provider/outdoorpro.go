package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// OutdoorProAdapter parses the OutdoorPro response shape:
//
//	{
//	  "source": "OutdoorPro",
//	  "count": 21,
//	  "items": [
//	    {"id": 1, "name": "NorthFace Stormbreak 2 Çadır", "brand": "NorthFace",
//	     "category": "Kamp", "price": 325.95, "currency": "USD",
//	     "stock": 27, "available": true}
//	  ]
//	}
//
// OutdoorPro sends the currency inline and omits subcategory and colour.
type OutdoorProAdapter struct{}

// NewOutdoorProAdapter creates the adapter.
func NewOutdoorProAdapter() *OutdoorProAdapter {
	return &OutdoorProAdapter{}
}

func (a *OutdoorProAdapter) Slug() string {
	return "outdoor-pro"
}

func (a *OutdoorProAdapter) Currency() string {
	return "USD"
}

type outdoorProItem struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Brand      string     `json:"brand"`
	Category   string     `json:"category"`
	Price      flexString `json:"price"`
	Currency   string     `json:"currency"`
	Stock      int        `json:"stock"`
	Available  bool       `json:"available"`
	ProductURL string     `json:"url"`
}

func (a *OutdoorProAdapter) Adapt(body json.RawMessage) ([]Record, error) {
	items, err := extractItems(body, "items")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Slug(), err)
	}

	records := make([]Record, 0, len(items))
	for i, raw := range items {
		var item outdoorProItem
		if err := json.Unmarshal(raw, &item); err != nil {
			warnSkip(a.Slug(), i, err)
			continue
		}
		if item.ID == "" || item.Name == "" || item.Price == "" {
			warnSkip(a.Slug(), i, errors.New("missing id, name or price"))
			continue
		}

		currency := strings.ToUpper(item.Currency)
		if currency == "" {
			currency = a.Currency()
		}

		records = append(records, Record{
			ProviderSlug:  a.Slug(),
			ExternalCode:  item.ID.String(),
			Name:          item.Name,
			Brand:         item.Brand,
			Category:      item.Category,
			Price:         item.Price.String(),
			CurrencyCode:  currency,
			InStock:       item.Available,
			StockQuantity: item.Stock,
			ProductURL:    item.ProductURL,
		})
	}
	return records, nil
}
