package orderform

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martadelgado/pg-product-form/internal/catalog"
	"github.com/martadelgado/pg-product-form/internal/pricing"
)

var (
	// ErrProtectedLine is returned when removing the first line. The form
	// always keeps at least one row.
	ErrProtectedLine = errors.New("orderform: first line cannot be removed")
	// ErrLineNotFound indicates the positional index is out of range.
	ErrLineNotFound = errors.New("orderform: line not found")
)

// LineItem is one order row. Total is derived by the pricing engine on every
// mutation and never set independently. Tiers is a snapshot copied from the
// catalog item at selection time, so later catalog changes cannot alter an
// already selected line.
type LineItem struct {
	Index           int             `json:"index"`
	EAN             string          `json:"ean"`
	ItemName        string          `json:"itemName"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Tiers           []pricing.Tier  `json:"discountTiers"`
	Total           decimal.Decimal `json:"total"`
}

// Order is an immutable draft snapshot. Every transform below returns a new
// snapshot; TotalAmount is always the rounded sum of the line totals.
type Order struct {
	ID            uuid.UUID       `json:"id"`
	OutletID      string          `json:"outletId"`
	OutletAddress string          `json:"outletAddress"`
	Lines         []LineItem      `json:"lines"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// New creates a draft with a single empty line, mirroring the one row the
// form renders up front.
func New(id uuid.UUID, now time.Time) Order {
	return Order{
		ID:          id,
		Lines:       []LineItem{emptyLine(0)},
		TotalAmount: decimal.Zero,
		UpdatedAt:   now,
	}
}

func emptyLine(index int) LineItem {
	return LineItem{
		Index:           index,
		Quantity:        decimal.Zero,
		UnitPrice:       decimal.Zero,
		DiscountPercent: decimal.Zero,
		Total:           decimal.Zero,
	}
}

func (o Order) clone() Order {
	lines := make([]LineItem, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	return o
}

func (o Order) withTotal(now time.Time) Order {
	sum := decimal.Zero
	for _, line := range o.Lines {
		sum = sum.Add(line.Total)
	}
	o.TotalAmount = pricing.Round2(sum)
	o.UpdatedAt = now
	return o
}

func (o Order) lineIndexValid(index int) bool {
	return index >= 0 && index < len(o.Lines)
}

// AddLine appends an empty line at the next positional index. An empty line
// contributes zero, so totals are untouched.
func AddLine(o Order, now time.Time) Order {
	next := o.clone()
	next.Lines = append(next.Lines, emptyLine(len(next.Lines)))
	next.UpdatedAt = now
	return next
}

// RemoveLine deletes the line at index and renumbers the remainder to a
// contiguous zero-based sequence. Index zero is protected: the first row
// carries the column headers and must always remain.
func RemoveLine(o Order, index int, now time.Time) (Order, error) {
	if index == 0 {
		return o, ErrProtectedLine
	}
	if !o.lineIndexValid(index) {
		return o, ErrLineNotFound
	}
	next := o.clone()
	next.Lines = append(next.Lines[:index], next.Lines[index+1:]...)
	for i := range next.Lines {
		next.Lines[i].Index = i
	}
	return next.withTotal(now), nil
}

// SelectItem snapshots the catalog item into the line: quantity defaults to
// one and the discount is resolved from the copied tier table.
func SelectItem(o Order, index int, item catalog.Item, now time.Time) (Order, error) {
	if !o.lineIndexValid(index) {
		return o, ErrLineNotFound
	}
	tiers := make([]pricing.Tier, len(item.DiscountTiers))
	copy(tiers, item.DiscountTiers)

	quoted := pricing.QuoteOnSelect(item.BasePrice, tiers)
	next := o.clone()
	next.Lines[index] = LineItem{
		Index:           index,
		EAN:             item.EAN,
		ItemName:        item.Name,
		Quantity:        quoted.Quantity,
		UnitPrice:       item.BasePrice,
		DiscountPercent: quoted.DiscountPercent,
		Tiers:           tiers,
		Total:           quoted.Total,
	}
	return next.withTotal(now), nil
}

// SetQuantity applies a validated quantity to the line. The discount is
// re-derived from the line's tier table when one exists; without tiers the
// previously entered manual discount carries over.
func SetQuantity(o Order, index int, qty decimal.Decimal, now time.Time) (Order, error) {
	if !o.lineIndexValid(index) {
		return o, ErrLineNotFound
	}
	line := o.Lines[index]
	quoted := pricing.QuoteOnQuantity(line.UnitPrice, qty, line.Tiers, line.DiscountPercent)
	next := o.clone()
	next.Lines[index].Quantity = quoted.Quantity
	next.Lines[index].DiscountPercent = quoted.DiscountPercent
	next.Lines[index].Total = quoted.Total
	return next.withTotal(now), nil
}

// SetDiscount applies a validated manual discount to the line. The entered
// percentage is used literally for this computation; the tier table is left
// in place and will clobber the manual value on the next quantity edit.
func SetDiscount(o Order, index int, pct decimal.Decimal, now time.Time) (Order, error) {
	if !o.lineIndexValid(index) {
		return o, ErrLineNotFound
	}
	line := o.Lines[index]
	quoted := pricing.QuoteOnDiscount(line.UnitPrice, line.Quantity, pct)
	next := o.clone()
	next.Lines[index].DiscountPercent = quoted.DiscountPercent
	next.Lines[index].Total = quoted.Total
	return next.withTotal(now), nil
}

// SelectOutlet records the chosen outlet. Totals are unaffected.
func SelectOutlet(o Order, outletID, address string, now time.Time) Order {
	next := o.clone()
	next.OutletID = outletID
	next.OutletAddress = address
	next.UpdatedAt = now
	return next
}
