// Package receipt renders booking receipts as PDF.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/ukydev/vehicle-rental/internal/models"
)

const dateLayout = "2006-01-02"

// Render builds the receipt for a populated booking from its stored price
// snapshot. It returns the PDF bytes and a download filename.
func Render(b models.BookingView, issued time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Receipt no : "+Number(b))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+issued.UTC().Format("2006-01-02 15:04"))
	pdf.Ln(7)
	pdf.Cell(0, 7, "Status     : "+string(b.Status)+" / payment "+string(b.PaymentStatus))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Rental")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	vehicle := "-"
	if b.Vehicle != nil {
		vehicle = fmt.Sprintf("%s (%s)", safe(b.Vehicle.Name), b.Vehicle.Type)
	}
	pdf.Cell(0, 6, "Vehicle : "+vehicle)
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Period  : %s to %s (%d day%s)",
		b.StartDate.UTC().Format(dateLayout), b.EndDate.UTC().Format(dateLayout), b.TotalDays, plural(b.TotalDays)))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Pickup  : "+locationLine(b.PickupLocation))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Dropoff : "+locationLine(b.DropoffLocation))
	pdf.Ln(6)
	if b.SpecialRequests != "" {
		pdf.MultiCell(0, 6, "Requests: "+b.SpecialRequests, "", "", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Charges")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Base price  : "+Money(b.TotalPrice))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Service fee : "+Money(b.ServiceFee))
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total       : "+Money(b.TotalPrice+b.ServiceFee))
	pdf.Ln(12)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "RECEIPT_" + b.ID.Hex() + ".pdf", nil
}

// Number is the human receipt number of a booking.
func Number(b models.BookingView) string {
	return fmt.Sprintf("RCT-%s-%s", b.CreatedAt.UTC().Format("20060102"), strings.ToUpper(b.ID.Hex()[18:]))
}

// Money formats an amount with two decimals.
func Money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func locationLine(l *models.LocationSummary) string {
	if l == nil {
		return "-"
	}
	if l.City != "" {
		return safe(l.Name) + ", " + l.City
	}
	if l.Address != nil && l.Address.City != "" {
		return safe(l.Name) + ", " + l.Address.City
	}
	return safe(l.Name)
}

func safe(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return "-"
	}
	return v
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
