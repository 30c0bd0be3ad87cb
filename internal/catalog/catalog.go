// Package catalog holds the fixed subscription packages a customer can buy.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	yaml "gopkg.in/yaml.v3"
)

// Package describes a purchasable subscription.
type Package struct {
	ID             int    `yaml:"id" json:"id"`
	Amount         string `yaml:"amount" json:"amount"`
	Description    string `yaml:"description" json:"description"`
	DurationMonths int    `yaml:"durationMonths" json:"durationMonths"`
}

// Catalog is an immutable packageId -> Package table.
type Catalog struct {
	items map[int]Package
}

// Default returns the built-in package table.
func Default() *Catalog {
	c, _ := New([]Package{
		{ID: 1, Amount: "0.01", Description: "Subscription for 1 month", DurationMonths: 1},
		{ID: 2, Amount: "0.03", Description: "Subscription for 3 months", DurationMonths: 3},
		{ID: 3, Amount: "0.05", Description: "Subscription for 5 months", DurationMonths: 5},
	})
	return c
}

// New validates and indexes pkgs. Amounts must be positive decimals and are
// kept as the caller wrote them.
func New(pkgs []Package) (*Catalog, error) {
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("catalog: no packages")
	}
	items := make(map[int]Package, len(pkgs))
	for _, p := range pkgs {
		if p.ID <= 0 {
			return nil, fmt.Errorf("catalog: package id must be positive, got %d", p.ID)
		}
		if _, dup := items[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate package id %d", p.ID)
		}
		amt, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("catalog: package %d amount %q: %w", p.ID, p.Amount, err)
		}
		if !amt.IsPositive() {
			return nil, fmt.Errorf("catalog: package %d amount must be positive", p.ID)
		}
		if p.Description == "" {
			return nil, fmt.Errorf("catalog: package %d description required", p.ID)
		}
		if p.DurationMonths <= 0 {
			return nil, fmt.Errorf("catalog: package %d durationMonths must be positive", p.ID)
		}
		items[p.ID] = p
	}
	return &Catalog{items: items}, nil
}

// LoadFile reads a YAML document of the form `packages: [...]`.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Packages []Package `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(doc.Packages)
}

// Lookup returns the package for id.
func (c *Catalog) Lookup(id int) (Package, bool) {
	p, ok := c.items[id]
	return p, ok
}

// All returns packages ordered by id.
func (c *Catalog) All() []Package {
	out := make([]Package, 0, len(c.items))
	for _, p := range c.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
