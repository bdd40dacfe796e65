package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a raw quantity entry is not a
	// non-negative number with at most two decimal places.
	ErrInvalidQuantity = errors.New("pricing: invalid quantity")
	// ErrInvalidDiscount is returned when a raw discount entry is not a
	// percentage between 0 and 100 with at most two decimal places.
	ErrInvalidDiscount = errors.New("pricing: invalid discount")
)

var oneHundred = decimal.NewFromInt(100)

// Tier maps a quantity range to a percentage discount. A nil MaxQty means the
// range is unbounded above.
type Tier struct {
	MinQty          decimal.Decimal  `json:"minQty"`
	MaxQty          *decimal.Decimal `json:"maxQty"`
	DiscountPercent decimal.Decimal  `json:"discountPercent"`
}

// Contains reports whether qty falls inside the tier range.
func (t Tier) Contains(qty decimal.Decimal) bool {
	if qty.Cmp(t.MinQty) < 0 {
		return false
	}
	return t.MaxQty == nil || qty.Cmp(*t.MaxQty) <= 0
}

// ResolveTierDiscount scans tiers in the given order and returns the discount
// of the first tier containing qty. Tiers are taken as supplied: overlaps are
// resolved by position, not by sorting. Returns zero when no tier matches,
// the table is empty, or qty is negative.
func ResolveTierDiscount(qty decimal.Decimal, tiers []Tier) decimal.Decimal {
	if qty.IsNegative() {
		return decimal.Zero
	}
	for _, tier := range tiers {
		if tier.Contains(qty) {
			return tier.DiscountPercent
		}
	}
	return decimal.Zero
}

// EffectiveDiscount picks between automatic tiering and the manual entry.
// A non-empty tier table is authoritative and clobbers any manual value; only
// when no table exists does the manual percentage survive a quantity change.
func EffectiveDiscount(qty decimal.Decimal, tiers []Tier, manual decimal.Decimal) decimal.Decimal {
	if len(tiers) > 0 {
		return ResolveTierDiscount(qty, tiers)
	}
	return manual
}

// LineTotal returns unitPrice * qty without rounding.
func LineTotal(unitPrice, qty decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(qty)
}

// ApplyDiscount subtracts pct percent from total. A zero or negative pct is a
// no-op so a malformed negative discount can never inflate the total.
func ApplyDiscount(total, pct decimal.Decimal) decimal.Decimal {
	if pct.IsPositive() {
		return total.Sub(total.Mul(pct).Div(oneHundred))
	}
	return total
}

// Round2 rounds to two decimal places, half away from zero. This is the only
// rounding applied to monetary values; intermediate results stay unrounded.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// ParseQuantity validates a raw quantity entry: a non-negative number with at
// most two decimal places. Anything else is rejected so the caller can keep
// the previous value.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	qty, err := parseNonNegative(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidQuantity
	}
	return qty, nil
}

// ParseDiscount validates a raw manual discount entry. An empty entry means
// zero; otherwise the value must be a percentage in [0, 100] with at most two
// decimal places.
func ParseDiscount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	pct, err := parseNonNegative(raw)
	if err != nil || pct.Cmp(oneHundred) > 0 {
		return decimal.Zero, ErrInvalidDiscount
	}
	return pct, nil
}

func parseNonNegative(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "+") {
		return decimal.Zero, errors.New("empty or signed entry")
	}
	v, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, err
	}
	if v.IsNegative() {
		return decimal.Zero, errors.New("negative entry")
	}
	if v.Exponent() < -2 {
		return decimal.Zero, errors.New("more than two decimal places")
	}
	return v, nil
}

// Line holds the derived numeric fields of one order line.
type Line struct {
	Quantity        decimal.Decimal
	DiscountPercent decimal.Decimal
	Total           decimal.Decimal
}

func quote(unitPrice, qty, pct decimal.Decimal) Line {
	return Line{
		Quantity:        qty,
		DiscountPercent: pct,
		Total:           Round2(ApplyDiscount(LineTotal(unitPrice, qty), pct)),
	}
}

// QuoteOnSelect derives line numbers for a freshly selected item: quantity
// defaults to one and the discount comes from the item's tier table.
func QuoteOnSelect(unitPrice decimal.Decimal, tiers []Tier) Line {
	qty := decimal.NewFromInt(1)
	return quote(unitPrice, qty, EffectiveDiscount(qty, tiers, decimal.Zero))
}

// QuoteOnQuantity derives line numbers after a quantity edit. The discount is
// re-resolved from the tier table when one exists; otherwise the previous
// manual discount carries over.
func QuoteOnQuantity(unitPrice, qty decimal.Decimal, tiers []Tier, prevDiscount decimal.Decimal) Line {
	return quote(unitPrice, qty, EffectiveDiscount(qty, tiers, prevDiscount))
}

// QuoteOnDiscount derives line numbers after a manual discount edit. The
// entered percentage is taken literally for this computation; the tier table
// is not consulted.
func QuoteOnDiscount(unitPrice, qty, pct decimal.Decimal) Line {
	return quote(unitPrice, qty, pct)
}
