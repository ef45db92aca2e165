package estimate

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// CatalogEntry is a reference resource with a typical price.
type CatalogEntry struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Category  string   `yaml:"category" json:"category"`
	Unit      string   `yaml:"unit" json:"unit"`
	UnitPrice float64  `yaml:"unit_price" json:"unitPrice"`
	Types     []string `yaml:"types" json:"types"`
}

// Catalog is the list of reference resources.
type Catalog []CatalogEntry

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes a YAML list of entries.
func ParseCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for i, e := range c {
		if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("catalog entry %d: id and name are required", i)
		}
		if e.UnitPrice < 0 {
			return nil, fmt.Errorf("catalog entry %s: negative price", e.ID)
		}
	}
	return c, nil
}

// ForType returns entries tagged with projectType (case-insensitive).
func (c Catalog) ForType(projectType string) Catalog {
	projectType = strings.ToLower(strings.TrimSpace(projectType))
	var out Catalog
	for _, e := range c {
		for _, t := range e.Types {
			if strings.ToLower(t) == projectType {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Item turns an entry into an estimate line of the given quantity.
func (e CatalogEntry) Item(quantity float64) Item {
	return Item{
		Name:      e.Name,
		Category:  e.Category,
		Quantity:  quantity,
		Unit:      e.Unit,
		UnitPrice: e.UnitPrice,
	}
}
