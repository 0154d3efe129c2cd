package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func line(name string, qty int, price int64) LineItem {
	return LineItem{Name: str(name), Quantity: qty, Price: dec(price)}
}

// mockSession mirrors the three-order reference dinner.
func mockSession() Session {
	return Session{
		ID:         "session-123",
		GuestName:  "John Doe",
		GuestPhone: "9876543210",
		TableName:  "T5",
		NumGuests:  4,
		Orders: []Order{
			{
				ID:       "order-1",
				Total:    decPtr(450),
				Discount: decPtr(0),
				Items: []LineItem{
					line("Pasta Carbonara", 2, 150),
					line("Caesar Salad", 1, 150),
				},
			},
			{
				ID:       "order-2",
				Total:    decPtr(350),
				Discount: decPtr(50),
				Items: []LineItem{
					line("Pasta Carbonara", 1, 150),
					line("Garlic Bread", 2, 100),
				},
			},
			{
				ID:       "order-3",
				Total:    decPtr(300),
				Discount: decPtr(0),
				Items: []LineItem{
					line("Cappuccino", 2, 100),
					line("Tiramisu", 1, 100),
				},
			},
		},
	}
}

func TestConsolidate_ReferenceSession(t *testing.T) {
	bill := Consolidate(mockSession())

	assert.True(t, bill.ItemsTotal.Equal(dec(1100)), "items total %s", bill.ItemsTotal)
	assert.True(t, bill.DiscountAmount.Equal(dec(50)))
	assert.True(t, bill.FinalTotal.Equal(dec(1050)))
	assert.Equal(t, 5, bill.ItemCount)
	assert.Equal(t, 3, bill.OrderCount)

	want := []struct {
		name   string
		qty    int
		amount int64
	}{
		{"Pasta Carbonara", 3, 450},
		{"Caesar Salad", 1, 150},
		{"Garlic Bread", 2, 200},
		{"Cappuccino", 2, 200},
		{"Tiramisu", 1, 100},
	}
	require.Len(t, bill.Items, len(want))
	for i, w := range want {
		assert.Equal(t, w.name, bill.Items[i].Name)
		assert.Equal(t, w.qty, bill.Items[i].Quantity)
		assert.True(t, bill.Items[i].Amount().Equal(dec(w.amount)), "%s amount", w.name)
	}
}

func TestConsolidate_EmptySession(t *testing.T) {
	for name, s := range map[string]Session{
		"nil orders":   {ID: "s"},
		"empty orders": {ID: "s", Orders: []Order{}},
		"empty items":  {ID: "s", Orders: []Order{{ID: "o"}}},
	} {
		t.Run(name, func(t *testing.T) {
			bill := Consolidate(s)
			assert.True(t, bill.ItemsTotal.IsZero())
			assert.True(t, bill.DiscountAmount.IsZero())
			assert.True(t, bill.FinalTotal.IsZero())
			assert.Equal(t, 0, bill.ItemCount)
			assert.NotNil(t, bill.Items)
			assert.Empty(t, bill.Items)
		})
	}
}

func TestConsolidate_SameNameDifferentPriceStaysSeparate(t *testing.T) {
	s := Session{Orders: []Order{
		{Items: []LineItem{line("Espresso", 1, 80)}},
		{Items: []LineItem{line("Espresso", 2, 90)}},
		{Items: []LineItem{line("Espresso", 1, 80)}},
	}}

	bill := Consolidate(s)

	require.Len(t, bill.Items, 2)
	assert.Equal(t, 2, bill.Items[0].Quantity)
	assert.True(t, bill.Items[0].Price.Equal(dec(80)))
	assert.Equal(t, 2, bill.Items[1].Quantity)
	assert.True(t, bill.Items[1].Price.Equal(dec(90)))
	assert.True(t, bill.ItemsTotal.Equal(dec(340)))
}

func TestConsolidate_EquivalentDecimalPricesMerge(t *testing.T) {
	s := Session{Orders: []Order{
		{Items: []LineItem{{Name: str("Lassi"), Quantity: 1, Price: decimal.RequireFromString("60")}}},
		{Items: []LineItem{{Name: str("Lassi"), Quantity: 1, Price: decimal.RequireFromString("60.00")}}},
	}}

	bill := Consolidate(s)

	require.Len(t, bill.Items, 1)
	assert.Equal(t, 2, bill.Items[0].Quantity)
}

func TestConsolidate_MissingFieldsDegrade(t *testing.T) {
	s := Session{Orders: []Order{
		{Discount: nil, Items: []LineItem{
			{Name: nil, Quantity: 2, Price: dec(10)},
			{Name: str(""), Quantity: 1, Price: dec(10)},
		}},
	}}

	bill := Consolidate(s)

	require.Len(t, bill.Items, 1)
	assert.Equal(t, UnknownItemName, bill.Items[0].Name)
	assert.Equal(t, 3, bill.Items[0].Quantity)
	assert.True(t, bill.DiscountAmount.IsZero())
	assert.True(t, bill.FinalTotal.Equal(dec(30)))
}

func TestConsolidate_DiscountAboveTotalGoesNegative(t *testing.T) {
	s := Session{Orders: []Order{
		{Discount: decPtr(500), Items: []LineItem{line("Soup", 1, 120)}},
	}}

	bill := Consolidate(s)

	assert.True(t, bill.FinalTotal.Equal(dec(-380)), "final %s", bill.FinalTotal)
}

func TestConsolidate_NoFloatDrift(t *testing.T) {
	var items []LineItem
	for i := 0; i < 10; i++ {
		items = append(items, LineItem{Name: str("Mint"), Quantity: 1, Price: decimal.RequireFromString("0.10")})
	}
	s := Session{Orders: []Order{{Items: items, Discount: func() *decimal.Decimal {
		d := decimal.RequireFromString("0.30")
		return &d
	}()}}}

	bill := Consolidate(s)

	assert.Equal(t, "1.00", bill.ItemsTotal.StringFixed(2))
	assert.True(t, bill.ItemsTotal.Equal(decimal.NewFromInt(1)))
	assert.True(t, bill.FinalTotal.Equal(decimal.RequireFromString("0.7")))
}

func TestConsolidate_FinalIsItemsMinusDiscount(t *testing.T) {
	sessions := []Session{
		mockSession(),
		{Orders: []Order{{Discount: decPtr(7), Items: []LineItem{line("A", 3, 333)}}}},
		{Orders: []Order{{Discount: decPtr(1_000_000), Items: []LineItem{line("B", 1_000, 999_999)}}}},
	}
	for _, s := range sessions {
		bill := Consolidate(s)
		assert.True(t, bill.FinalTotal.Equal(bill.ItemsTotal.Sub(bill.DiscountAmount)))
	}
}

func TestConsolidate_Idempotent(t *testing.T) {
	s := mockSession()
	assert.Equal(t, Consolidate(s), Consolidate(s))
}

func TestConsolidate_OrderIndependent(t *testing.T) {
	s := mockSession()
	reversed := mockSession()
	reversed.Orders = []Order{s.Orders[2], s.Orders[0], s.Orders[1]}

	a := Consolidate(s)
	b := Consolidate(reversed)

	assert.True(t, a.ItemsTotal.Equal(b.ItemsTotal))
	assert.True(t, a.DiscountAmount.Equal(b.DiscountAmount))
	assert.True(t, a.FinalTotal.Equal(b.FinalTotal))
	assert.Equal(t, a.ItemCount, b.ItemCount)

	rows := func(bill Bill) map[string]int {
		m := make(map[string]int)
		for _, it := range bill.Items {
			m[it.Name+"@"+it.Price.String()] = it.Quantity
		}
		return m
	}
	assert.Equal(t, rows(a), rows(b))
}
