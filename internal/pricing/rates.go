package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category classifies products for tax purposes.
type Category string

const (
	CategoryElectronics   Category = "ELECTRONICS"
	CategoryClothing      Category = "CLOTHING"
	CategoryFurniture     Category = "FURNITURE"
	CategoryFood          Category = "FOOD"
	CategoryBooks         Category = "BOOKS"
	CategoryToys          Category = "TOYS"
	CategoryOthers        Category = "OTHERS"
	CategoryUncategorized Category = "UNCATEGORIZED"
)

// ShippingMethod selects the shipping rate applied to an order total.
type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "STANDARD"
	ShippingExpress  ShippingMethod = "EXPRESS"
	ShippingNextDay  ShippingMethod = "NEXT_DAY"
	ShippingPickup   ShippingMethod = "PICKUP"
	ShippingOther    ShippingMethod = "OTHER"
)

var taxRates = map[Category]decimal.Decimal{
	CategoryElectronics:   decimal.RequireFromString("0.18"),
	CategoryClothing:      decimal.RequireFromString("0.09"),
	CategoryFurniture:     decimal.RequireFromString("0.15"),
	CategoryFood:          decimal.RequireFromString("0.19"),
	CategoryBooks:         decimal.RequireFromString("0.05"),
	CategoryToys:          decimal.RequireFromString("0.20"),
	CategoryOthers:        decimal.RequireFromString("0.08"),
	CategoryUncategorized: decimal.RequireFromString("0.11"),
}

var shippingRates = map[ShippingMethod]decimal.Decimal{
	ShippingStandard: decimal.RequireFromString("0.01"),
	ShippingExpress:  decimal.RequireFromString("0.10"),
	ShippingNextDay:  decimal.RequireFromString("0.05"),
	ShippingPickup:   decimal.Zero,
	ShippingOther:    decimal.RequireFromString("0.01"),
}

// ParseCategory normalises a category name, falling back to UNCATEGORIZED.
func ParseCategory(value string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := taxRates[c]; ok {
		return c
	}
	return CategoryUncategorized
}

// TaxRate returns the tax rate for the category.
func TaxRate(c Category) decimal.Decimal {
	if rate, ok := taxRates[c]; ok {
		return rate
	}
	return taxRates[CategoryUncategorized]
}

// UnitTax derives the per-unit tax stored on a product from its price.
func UnitTax(price Money, c Category) Money {
	return Round2(price.Mul(TaxRate(c)))
}

// ValidShippingMethod reports whether m has a dedicated rate.
func ValidShippingMethod(m ShippingMethod) bool {
	_, ok := shippingRates[m]
	return ok
}

// ShippingRate returns the rate for the method; unknown methods use OTHER.
func ShippingRate(m ShippingMethod) decimal.Decimal {
	if rate, ok := shippingRates[m]; ok {
		return rate
	}
	return shippingRates[ShippingOther]
}

// ShippingCost computes the shipping charge for an order total.
func ShippingCost(total Money, m ShippingMethod) Money {
	return Round2(total.Mul(ShippingRate(m)))
}
