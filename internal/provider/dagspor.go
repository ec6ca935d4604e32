package provider

import (
	"encoding/json"
	"errors"
	"fmt"
)

// DagSporAdapter parses the DagSpor response shape (Turkish field names):
//
//	{
//	  "tedarikci": "DagSpor",
//	  "para_birimi": "TRY",
//	  "urunler": [
//	    {"urun_id": 1, "urun_adi": "Salomon X Ultra 4 GTX", "marka": "Salomon",
//	     "kategori": "Outdoor", "alt_kategori": "Ayakkabı", "renk": "Gri",
//	     "fiyat": 8499.99, "stok_adedi": 45, "stokta_var": true}
//	  ]
//	}
type DagSporAdapter struct{}

// NewDagSporAdapter creates the adapter.
func NewDagSporAdapter() *DagSporAdapter {
	return &DagSporAdapter{}
}

func (a *DagSporAdapter) Slug() string {
	return "dag-spor"
}

func (a *DagSporAdapter) Currency() string {
	return "TRY"
}

type dagSporItem struct {
	UrunID      flexString `json:"urun_id"`
	UrunAdi     string     `json:"urun_adi"`
	Marka       string     `json:"marka"`
	Kategori    string     `json:"kategori"`
	AltKategori string     `json:"alt_kategori"`
	Renk        string     `json:"renk"`
	Fiyat       flexString `json:"fiyat"`
	StokAdedi   int        `json:"stok_adedi"`
	StoktaVar   bool       `json:"stokta_var"`
	Bedenler    []string   `json:"bedenler"`
}

func (a *DagSporAdapter) Adapt(body json.RawMessage) ([]Record, error) {
	items, err := extractItems(body, "urunler")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Slug(), err)
	}

	records := make([]Record, 0, len(items))
	for i, raw := range items {
		var item dagSporItem
		if err := json.Unmarshal(raw, &item); err != nil {
			warnSkip(a.Slug(), i, err)
			continue
		}
		if item.UrunID == "" || item.UrunAdi == "" || item.Fiyat == "" {
			warnSkip(a.Slug(), i, errors.New("missing urun_id, urun_adi or fiyat"))
			continue
		}

		rec := Record{
			ProviderSlug:  a.Slug(),
			ExternalCode:  item.UrunID.String(),
			Name:          item.UrunAdi,
			Brand:         item.Marka,
			Category:      item.Kategori,
			Subcategory:   item.AltKategori,
			Price:         item.Fiyat.String(),
			CurrencyCode:  a.Currency(),
			InStock:       item.StoktaVar,
			StockQuantity: item.StokAdedi,
			Sizes:         item.Bedenler,
		}
		if item.Renk != "" {
			rec.Colors = []string{item.Renk}
		}
		records = append(records, rec)
	}
	return records, nil
}
