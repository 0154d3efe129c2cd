package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cavalli-app/billing"
)

const exportedSession = `{
  "id": "session-123",
  "guest_name": "John Doe",
  "guest_phone": "9876543210",
  "table_name": "T5",
  "num_guests": 4,
  "orders": [
    {"id": "order-1", "total": 450, "discount_amount": 0, "order_items": [
      {"quantity": 2, "price": 150, "menu_items": {"name": "Pasta Carbonara"}},
      {"quantity": 1, "price": 150, "menu_items": {"name": "Caesar Salad"}}
    ]},
    {"id": "order-2", "total": 350, "discount_amount": 50, "order_items": [
      {"quantity": 1, "price": 150, "name": "Pasta Carbonara"},
      {"quantity": 2, "price": 100, "menu_items": {"name": "Garlic Bread"}}
    ]},
    {"id": "order-3", "total": 300, "order_items": [
      {"quantity": 2, "price": 100, "menu_items": {"name": "Cappuccino"}},
      {"quantity": 1, "price": 100, "menu_items": {"name": "Tiramisu"}}
    ]}
  ]
}`

func TestReadSession(t *testing.T) {
	session, err := readSession(strings.NewReader(exportedSession))
	require.NoError(t, err)

	assert.Equal(t, "John Doe", session.GuestName)
	require.Len(t, session.Orders, 3)
	assert.Nil(t, session.Orders[2].Discount)

	bill := billing.Consolidate(session)
	assert.Equal(t, "1050", bill.FinalTotal.String())
	require.Len(t, bill.Items, 5)
	assert.Equal(t, "Pasta Carbonara", bill.Items[0].Name)
	assert.Equal(t, 3, bill.Items[0].Quantity)
}

func TestReadSession_InvalidJSON(t *testing.T) {
	_, err := readSession(strings.NewReader("{"))
	assert.Error(t, err)
}

func TestBillCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(exportedSession), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"bill", "--file", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		billFile = ""
		billMessage = false
	})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "CONSOLIDATED BILL")
	assert.Contains(t, out.String(), "Pasta Carbonara       3  ₹450.00")
	assert.Contains(t, out.String(), "₹1050.00")
}
