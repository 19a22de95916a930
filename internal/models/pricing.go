package models

import "github.com/shopspring/decimal"

// ServiceFeeRate is the fixed surcharge applied to every order subtotal
var ServiceFeeRate = decimal.RequireFromString("0.05")

// AmountTolerance absorbs client-side floating point rounding when comparing totals
var AmountTolerance = decimal.RequireFromString("0.01")

// Totals holds the derived pricing of a set of lines
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Total      decimal.Decimal `json:"total"`
}

// CalculateTotals derives subtotal, service fee and total from lines.
// The fee is rounded to cents before being added.
func CalculateTotals(lines []SelectedLine) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(line.LineTotal())
	}

	fee := subtotal.Mul(ServiceFeeRate).Round(2)

	return Totals{
		Subtotal:   subtotal,
		ServiceFee: fee,
		Total:      subtotal.Add(fee),
	}
}

// WithinTolerance reports whether a client supplied amount matches the computed total
func (t Totals) WithinTolerance(amount decimal.Decimal) bool {
	return t.Total.Sub(amount).Abs().LessThanOrEqual(AmountTolerance)
}

// TicketCount sums the quantities of all lines
func TicketCount(lines []SelectedLine) int {
	count := 0
	for _, line := range lines {
		if line.Quantity > 0 {
			count += line.Quantity
		}
	}
	return count
}
