package billing

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// core PDF fonts have no rupee glyph
func pdfMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-Rs. " + d.Neg().StringFixed(2)
	}
	return "Rs. " + d.StringFixed(2)
}

func pdfMoneyNeg(d decimal.Decimal) string {
	return pdfMoney(d.Neg())
}

// RenderPDF writes a printable A5 bill for the session.
func RenderPDF(w io.Writer, session Session, bill Bill, opts Options) error {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(opts.restaurant()), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Session Bill", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr("Guest: "+session.GuestName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr("Table: "+session.TableName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("Guests: %d   Orders: %d", session.NumGuests, bill.OrderCount), "", 1, "L", false, 0, "")
	if !session.StartedAt.IsZero() {
		pdf.CellFormat(0, 5, "Started: "+session.StartedAt.In(opts.location()).Format("02 Jan 2006, 03:04 PM"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(70, 7, "Item", "B", 0, "L", true, 0, "")
	pdf.CellFormat(15, 7, "Qty", "B", 0, "R", true, 0, "")
	pdf.CellFormat(43, 7, "Amount", "B", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range bill.Items {
		pdf.CellFormat(70, 6, tr(item.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(43, 6, pdfMoney(item.Amount()), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	pdf.CellFormat(85, 6, "Items Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(43, 6, pdfMoney(bill.ItemsTotal), "T", 1, "R", false, 0, "")
	if bill.DiscountAmount.IsPositive() {
		pdf.CellFormat(85, 6, "Discount", "", 0, "L", false, 0, "")
		pdf.CellFormat(43, 6, pdfMoneyNeg(bill.DiscountAmount), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(85, 8, "TOTAL", "T", 0, "L", false, 0, "")
	pdf.CellFormat(43, 8, pdfMoney(bill.FinalTotal), "T", 1, "R", false, 0, "")

	if link, ok := PaymentLink(opts.Payment, bill.FinalTotal); ok {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(0, 4, "Pay via UPI: "+link, "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Thank you for dining at %s!", opts.restaurant())), "", 1, "C", false, 0, "")

	return pdf.Output(w)
}
