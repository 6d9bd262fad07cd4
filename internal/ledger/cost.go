// Package ledger holds the cost roll-up and stock mutation planning used by
// the service layer. Everything here is pure computation over values read
// inside a unit of work.
package ledger

import (
	"github.com/shopspring/decimal"

	"craftstock/backend/internal/domain"
)

// MaterialLine is one material link of a component, resolved against the
// material's current cost.
type MaterialLine struct {
	Quantity        decimal.Decimal
	MaterialCost    decimal.Decimal
	UseMaterialCost bool
	CustomCost      decimal.NullDecimal
}

// UnitCost is the per-unit price applied to the line. A custom-cost line
// without a custom cost contributes nothing.
func (l MaterialLine) UnitCost() decimal.Decimal {
	if l.UseMaterialCost {
		return l.MaterialCost
	}
	if l.CustomCost.Valid {
		return l.CustomCost.Decimal
	}
	return decimal.Zero
}

func (l MaterialLine) Cost() decimal.Decimal {
	return l.Quantity.Mul(l.UnitCost())
}

func LineFromLink(link domain.ComponentMaterial) MaterialLine {
	return MaterialLine{
		Quantity:        link.Quantity,
		MaterialCost:    link.MaterialCost,
		UseMaterialCost: link.UseMaterialCost,
		CustomCost:      link.CustomCost,
	}
}

// ComponentCost sums the line costs of a component. No lines cost zero.
func ComponentCost(lines []MaterialLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Cost())
	}
	return total
}

// ComponentBreakdown prices every material link of c.
func ComponentBreakdown(c domain.Component) domain.ComponentCostBreakdown {
	out := domain.ComponentCostBreakdown{
		ComponentID:   c.ID,
		ComponentName: c.Name,
		Materials:     make([]domain.CostLine, 0, len(c.Materials)),
		TotalCost:     decimal.Zero,
	}
	for _, link := range c.Materials {
		line := LineFromLink(link)
		cost := line.Cost()
		out.Materials = append(out.Materials, domain.CostLine{
			MaterialID:      link.MaterialID,
			MaterialName:    link.MaterialName,
			Quantity:        link.Quantity,
			UnitCost:        line.UnitCost(),
			UseMaterialCost: link.UseMaterialCost,
			LineCost:        cost,
		})
		out.TotalCost = out.TotalCost.Add(cost)
	}
	return out
}

// BOMLink is one entry of a model's bill of materials. It is implemented by
// ComponentLink and DirectMaterialLink only.
type BOMLink interface {
	Cost() decimal.Decimal
	bomLink()
}

type ComponentLink struct {
	ComponentID   string
	Quantity      decimal.Decimal
	ComponentCost decimal.Decimal
}

func (l ComponentLink) Cost() decimal.Decimal {
	return l.ComponentCost.Mul(l.Quantity)
}

func (ComponentLink) bomLink() {}

type DirectMaterialLink struct {
	MaterialID  string
	Quantity    decimal.Decimal
	CostPerUnit decimal.Decimal
}

func (l DirectMaterialLink) Cost() decimal.Decimal {
	return l.CostPerUnit.Mul(l.Quantity)
}

func (DirectMaterialLink) bomLink() {}

// ProductionCost sums every link of a bill of materials.
func ProductionCost(links []BOMLink) decimal.Decimal {
	total := decimal.Zero
	for _, link := range links {
		total = total.Add(link.Cost())
	}
	return total
}
