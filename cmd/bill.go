package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/cavalli-app/billing"
)

var (
	billFile    string
	billMessage bool
)

// sessionFile is the JSON shape of an exported session. Item names may sit
// on the item itself or under menu_items.
type sessionFile struct {
	ID         string `json:"id"`
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
	TableName  string `json:"table_name"`
	NumGuests  int    `json:"num_guests"`
	Orders     []struct {
		ID       string           `json:"id"`
		Total    *decimal.Decimal `json:"total"`
		Discount *decimal.Decimal `json:"discount_amount"`
		Items    []struct {
			Name      *string         `json:"name"`
			Quantity  int             `json:"quantity"`
			Price     decimal.Decimal `json:"price"`
			MenuItems *struct {
				Name *string `json:"name"`
			} `json:"menu_items"`
		} `json:"order_items"`
	} `json:"orders"`
}

func (f sessionFile) toSession() billing.Session {
	s := billing.Session{
		ID:         f.ID,
		GuestName:  f.GuestName,
		GuestPhone: f.GuestPhone,
		TableName:  f.TableName,
		NumGuests:  f.NumGuests,
		Orders:     make([]billing.Order, 0, len(f.Orders)),
	}
	for _, o := range f.Orders {
		order := billing.Order{ID: o.ID, Total: o.Total, Discount: o.Discount}
		for _, it := range o.Items {
			name := it.Name
			if name == nil && it.MenuItems != nil {
				name = it.MenuItems.Name
			}
			order.Items = append(order.Items, billing.LineItem{Name: name, Quantity: it.Quantity, Price: it.Price})
		}
		s.Orders = append(s.Orders, order)
	}
	return s
}

// readSession decodes an exported session from r.
func readSession(r io.Reader) (billing.Session, error) {
	var f sessionFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return billing.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return f.toSession(), nil
}

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Print the consolidated bill of a session exported as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if billFile != "" && billFile != "-" {
			f, err := os.Open(billFile)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		session, err := readSession(in)
		if err != nil {
			return err
		}
		bill := billing.Consolidate(session)

		out := billing.RenderReceipt(session, bill, billing.Options{})
		if billMessage {
			out = billing.RenderMessage(session, bill, billing.Options{}) + "\n"
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

func init() {
	billCmd.Flags().StringVarP(&billFile, "file", "f", "", "session JSON file, - or empty for stdin")
	billCmd.Flags().BoolVar(&billMessage, "message", false, "print the WhatsApp message instead of the receipt")
}
