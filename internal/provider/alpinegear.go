package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// AlpineGearAdapter parses the AlpineGear response shape (German field names):
//
//	{
//	  "anbieter": "AlpineGear",
//	  "waehrung": "EUR",
//	  "produkte": [
//	    {"artikel_id": 1, "produktname": "Mammut Nordwand Pro HS", "marke": "Mammut",
//	     "kategorie": "Bekleidung", "unterkategorie": "Jacken", "farbe": "Rot",
//	     "preis": 599.95, "lagerbestand": 23, "verfuegbar": true}
//	  ]
//	}
type AlpineGearAdapter struct{}

// NewAlpineGearAdapter creates the adapter.
func NewAlpineGearAdapter() *AlpineGearAdapter {
	return &AlpineGearAdapter{}
}

func (a *AlpineGearAdapter) Slug() string {
	return "alpine-gear"
}

func (a *AlpineGearAdapter) Currency() string {
	return "EUR"
}

type alpineGearItem struct {
	ArtikelID      flexString `json:"artikel_id"`
	Produktname    string     `json:"produktname"`
	Marke          string     `json:"marke"`
	Kategorie      string     `json:"kategorie"`
	Unterkategorie string     `json:"unterkategorie"`
	Farbe          string     `json:"farbe"`
	Preis          flexString `json:"preis"`
	Lagerbestand   int        `json:"lagerbestand"`
	Verfuegbar     bool       `json:"verfuegbar"`
	Groessen       []string   `json:"groessen"`
}

func (a *AlpineGearAdapter) Adapt(body json.RawMessage) ([]Record, error) {
	items, err := extractItems(body, "produkte")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Slug(), err)
	}

	records := make([]Record, 0, len(items))
	for i, raw := range items {
		var item alpineGearItem
		if err := json.Unmarshal(raw, &item); err != nil {
			warnSkip(a.Slug(), i, err)
			continue
		}
		if item.ArtikelID == "" || item.Produktname == "" || item.Preis == "" {
			warnSkip(a.Slug(), i, errors.New("missing artikel_id, produktname or preis"))
			continue
		}

		rec := Record{
			ProviderSlug:  a.Slug(),
			ExternalCode:  item.ArtikelID.String(),
			Name:          item.Produktname,
			Brand:         item.Marke,
			Category:      item.Kategorie,
			Subcategory:   item.Unterkategorie,
			Price:         item.Preis.String(),
			CurrencyCode:  a.Currency(),
			InStock:       item.Verfuegbar,
			StockQuantity: item.Lagerbestand,
			Sizes:         item.Groessen,
		}
		if item.Farbe != "" {
			rec.Colors = []string{item.Farbe}
		}
		records = append(records, rec)
	}
	return records, nil
}
