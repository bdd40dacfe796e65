package orderform

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/martadelgado/pg-product-form/internal/catalog"
	"github.com/martadelgado/pg-product-form/internal/pricing"
)

var testTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func tieredItem(t *testing.T) catalog.Item {
	t.Helper()
	return catalog.Item{
		EAN:       "4006381333931",
		Name:      "Pencil HB",
		BasePrice: dec(t, "10"),
		DiscountTiers: []pricing.Tier{
			{MinQty: dec(t, "1"), MaxQty: decPtr(t, "4"), DiscountPercent: dec(t, "0")},
			{MinQty: dec(t, "5"), MaxQty: decPtr(t, "9"), DiscountPercent: dec(t, "10")},
			{MinQty: dec(t, "10"), MaxQty: nil, DiscountPercent: dec(t, "20")},
		},
	}
}

func plainItem(t *testing.T, ean, name, price string) catalog.Item {
	t.Helper()
	return catalog.Item{EAN: ean, Name: name, BasePrice: dec(t, price)}
}

func TestNewHasSingleEmptyLine(t *testing.T) {
	order := New(uuid.New(), testTime)
	if len(order.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(order.Lines))
	}
	if order.Lines[0].Index != 0 {
		t.Fatalf("first line index = %d, want 0", order.Lines[0].Index)
	}
	if !order.TotalAmount.IsZero() {
		t.Fatalf("total = %s, want 0", order.TotalAmount)
	}
}

func TestAddLineAppendsEmptyLine(t *testing.T) {
	order := New(uuid.New(), testTime)
	next := AddLine(order, testTime)
	if len(next.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(next.Lines))
	}
	if next.Lines[1].Index != 1 {
		t.Fatalf("new line index = %d, want 1", next.Lines[1].Index)
	}
	if len(order.Lines) != 1 {
		t.Fatalf("original mutated: lines = %d", len(order.Lines))
	}
}

func TestRemoveLineProtectsFirst(t *testing.T) {
	order := AddLine(New(uuid.New(), testTime), testTime)
	next, err := RemoveLine(order, 0, testTime)
	if err != ErrProtectedLine {
		t.Fatalf("err = %v, want ErrProtectedLine", err)
	}
	if len(next.Lines) != len(order.Lines) {
		t.Fatalf("draft changed on protected removal")
	}
}

func TestRemoveLineOutOfRange(t *testing.T) {
	order := New(uuid.New(), testTime)
	if _, err := RemoveLine(order, 3, testTime); err != ErrLineNotFound {
		t.Fatalf("err = %v, want ErrLineNotFound", err)
	}
	if _, err := RemoveLine(order, -1, testTime); err != ErrLineNotFound {
		t.Fatalf("err = %v, want ErrLineNotFound", err)
	}
}

func TestRemoveLineRenumbersAndRetotals(t *testing.T) {
	order := New(uuid.New(), testTime)
	order = AddLine(order, testTime)
	order = AddLine(order, testTime)

	var err error
	order, err = SelectItem(order, 0, plainItem(t, "111", "Tape", "12.50"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SelectItem(order, 1, plainItem(t, "222", "Glue", "3.10"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SelectItem(order, 2, plainItem(t, "333", "Ruler", "7.25"), testTime)
	if err != nil {
		t.Fatal(err)
	}

	next, err := RemoveLine(order, 1, testTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(next.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(next.Lines))
	}
	for i, line := range next.Lines {
		if line.Index != i {
			t.Fatalf("line %d has index %d", i, line.Index)
		}
	}
	if next.Lines[1].EAN != "333" {
		t.Fatalf("surviving line ean = %q, want 333", next.Lines[1].EAN)
	}
	if want := dec(t, "19.75"); !next.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", next.TotalAmount, want)
	}
}

func TestSelectItemDefaultsQuantityToOne(t *testing.T) {
	order := New(uuid.New(), testTime)
	next, err := SelectItem(order, 0, tieredItem(t), testTime)
	if err != nil {
		t.Fatal(err)
	}
	line := next.Lines[0]
	if !line.Quantity.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("quantity = %s, want 1", line.Quantity)
	}
	if !line.DiscountPercent.IsZero() {
		t.Fatalf("discount = %s, want 0 for qty 1", line.DiscountPercent)
	}
	if want := dec(t, "10.00"); !line.Total.Equal(want) {
		t.Fatalf("line total = %s, want %s", line.Total, want)
	}
	if len(line.Tiers) != 3 {
		t.Fatalf("tiers not snapshotted: %d", len(line.Tiers))
	}
}

func TestSelectItemSnapshotIsolatesTiers(t *testing.T) {
	item := tieredItem(t)
	order := New(uuid.New(), testTime)
	next, err := SelectItem(order, 0, item, testTime)
	if err != nil {
		t.Fatal(err)
	}
	item.DiscountTiers[1].DiscountPercent = dec(t, "99")
	if next.Lines[0].Tiers[1].DiscountPercent.Equal(dec(t, "99")) {
		t.Fatal("line tiers share storage with catalog item")
	}
}

func TestSetQuantityResolvesTierDiscount(t *testing.T) {
	order := New(uuid.New(), testTime)
	order, err := SelectItem(order, 0, tieredItem(t), testTime)
	if err != nil {
		t.Fatal(err)
	}
	next, err := SetQuantity(order, 0, dec(t, "5"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	line := next.Lines[0]
	if want := dec(t, "10"); !line.DiscountPercent.Equal(want) {
		t.Fatalf("discount = %s, want %s", line.DiscountPercent, want)
	}
	if want := dec(t, "45.00"); !line.Total.Equal(want) {
		t.Fatalf("line total = %s, want %s", line.Total, want)
	}
	if !next.TotalAmount.Equal(dec(t, "45.00")) {
		t.Fatalf("order total = %s, want 45.00", next.TotalAmount)
	}
}

func TestSetQuantityKeepsManualDiscountWithoutTiers(t *testing.T) {
	order := New(uuid.New(), testTime)
	order, err := SelectItem(order, 0, plainItem(t, "444", "Marker", "20"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SetQuantity(order, 0, dec(t, "3"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SetDiscount(order, 0, dec(t, "15"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	if want := dec(t, "51.00"); !order.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", order.TotalAmount, want)
	}
	order, err = SetQuantity(order, 0, dec(t, "4"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	line := order.Lines[0]
	if want := dec(t, "15"); !line.DiscountPercent.Equal(want) {
		t.Fatalf("manual discount lost: %s", line.DiscountPercent)
	}
	if want := dec(t, "68.00"); !order.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", order.TotalAmount, want)
	}
}

func TestSetDiscountOverridesUntilNextQuantityEdit(t *testing.T) {
	order := New(uuid.New(), testTime)
	order, err := SelectItem(order, 0, tieredItem(t), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SetQuantity(order, 0, dec(t, "5"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SetDiscount(order, 0, dec(t, "25"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	if want := dec(t, "37.50"); !order.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", order.TotalAmount, want)
	}
	// Re-entering the quantity resolves the tier table again.
	order, err = SetQuantity(order, 0, dec(t, "5"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	if want := dec(t, "45.00"); !order.TotalAmount.Equal(want) {
		t.Fatalf("total = %s, want %s", order.TotalAmount, want)
	}
}

func TestSelectOutletLeavesTotalsAlone(t *testing.T) {
	order := New(uuid.New(), testTime)
	order, err := SelectItem(order, 0, plainItem(t, "555", "Stapler", "9.99"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	next := SelectOutlet(order, "OUT-7", "12 Main St", testTime)
	if next.OutletID != "OUT-7" || next.OutletAddress != "12 Main St" {
		t.Fatalf("outlet = %q %q", next.OutletID, next.OutletAddress)
	}
	if !next.TotalAmount.Equal(order.TotalAmount) {
		t.Fatalf("total changed: %s vs %s", next.TotalAmount, order.TotalAmount)
	}
}

func TestTotalIsSumOfLineTotals(t *testing.T) {
	order := New(uuid.New(), testTime)
	order = AddLine(order, testTime)
	var err error
	order, err = SelectItem(order, 0, plainItem(t, "666", "Pen", "1.99"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SelectItem(order, 1, plainItem(t, "777", "Pad", "4.05"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	order, err = SetQuantity(order, 1, dec(t, "2.5"), testTime)
	if err != nil {
		t.Fatal(err)
	}
	sum := decimal.Zero
	for _, line := range order.Lines {
		sum = sum.Add(line.Total)
	}
	if !order.TotalAmount.Equal(pricing.Round2(sum)) {
		t.Fatalf("total = %s, sum = %s", order.TotalAmount, sum)
	}
}
