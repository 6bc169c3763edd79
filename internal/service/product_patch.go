package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jafarshop/groceryadmin/internal/domain"
)

// ProductPatch is the body of PATCH /admin/products/{id}. Only fields that are
// set are sent.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Description *string          `json:"description,omitempty"`
}

func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil &&
		p.Category == nil &&
		p.Unit == nil &&
		p.Price == nil &&
		p.Stock == nil &&
		p.Description == nil
}

// Fields lists the JSON names of the set fields.
func (p ProductPatch) Fields() []string {
	var out []string
	if p.Name != nil {
		out = append(out, "name")
	}
	if p.Category != nil {
		out = append(out, "category")
	}
	if p.Unit != nil {
		out = append(out, "unit")
	}
	if p.Price != nil {
		out = append(out, "price")
	}
	if p.Stock != nil {
		out = append(out, "stock")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	return out
}

// PatchBuilder collects the edits made to a displayed product and keeps only
// those that differ from it.
type PatchBuilder struct {
	current domain.Product
	patch   ProductPatch
}

func NewPatchBuilder(current domain.Product) *PatchBuilder {
	return &PatchBuilder{current: current}
}

func (b *PatchBuilder) Name(v string) *PatchBuilder {
	b.patch.Name = changedString(b.current.Name, v)
	return b
}

func (b *PatchBuilder) Category(v string) *PatchBuilder {
	b.patch.Category = changedString(b.current.Category, v)
	return b
}

func (b *PatchBuilder) Unit(v string) *PatchBuilder {
	b.patch.Unit = changedString(b.current.Unit, v)
	return b
}

func (b *PatchBuilder) Description(v string) *PatchBuilder {
	b.patch.Description = changedString(b.current.Description, v)
	return b
}

func (b *PatchBuilder) Price(v decimal.Decimal) *PatchBuilder {
	b.patch.Price = nil
	if !v.Equal(b.current.Price) {
		b.patch.Price = &v
	}
	return b
}

func (b *PatchBuilder) Stock(v int) *PatchBuilder {
	b.patch.Stock = nil
	if v != b.current.Stock {
		b.patch.Stock = &v
	}
	return b
}

// Build returns the patch of changed fields.
func (b *PatchBuilder) Build() ProductPatch {
	return b.patch
}

// DiffProduct builds the patch turning current into edited.
func DiffProduct(current domain.Product, edited ProductInput) ProductPatch {
	return NewPatchBuilder(current).
		Name(edited.Name).
		Category(edited.Category).
		Unit(edited.Unit).
		Price(edited.Price).
		Stock(edited.Stock).
		Description(edited.Description).
		Build()
}

func changedString(current, v string) *string {
	v = strings.TrimSpace(v)
	if v == current {
		return nil
	}
	return &v
}
