// Package summary renders allocations as plain text for sharing.
//
// Rounding to two decimal places happens here and only here. Nothing
// rendered by this package is fed back into calculations.
package summary

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tabsplit/internal/calculator"
)

// Format controls currency rendering and the share heading.
type Format struct {
	Title              string
	CurrencySymbol     string
	DecimalSeparator   string
	ThousandsSeparator string
}

// DefaultFormat renders Brazilian reais, e.g. "R$ 1.234,50".
func DefaultFormat() Format {
	return Format{
		Title:              "Divisão de conta",
		CurrencySymbol:     "R$",
		DecimalSeparator:   ",",
		ThousandsSeparator: ".",
	}
}

// Money formats v with two decimal places and the configured separators.
// Non-finite values are rendered as "+Inf", "-Inf" or "NaN".
func (f Format) Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return f.withSymbol(strconv.FormatFloat(v, 'f', -1, 64))
	}
	fixed := decimal.NewFromFloat(v).Round(2).StringFixed(2)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	// -0.001 rounds to "0.00"; don't print "-0,00"
	if fixed == "0.00" {
		negative = false
	}

	whole, frac, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	if f.CurrencySymbol != "" {
		b.WriteString(f.CurrencySymbol)
		b.WriteByte(' ')
	}
	b.WriteString(groupThousands(whole, f.ThousandsSeparator))
	sep := f.DecimalSeparator
	if sep == "" {
		sep = "."
	}
	b.WriteString(sep)
	b.WriteString(frac)
	return b.String()
}

func (f Format) withSymbol(s string) string {
	if f.CurrencySymbol == "" {
		return s
	}
	return f.CurrencySymbol + " " + s
}

// ShareText renders the per-person totals of an allocation:
//
//	Divisão de conta: Bar do João
//
//	P1: R$ 40,00
//	P2: R$ 25,00
//
//	Total: R$ 65,00
func ShareText(placeName string, a *calculator.Allocation, f Format) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n\n", f.Title, placeName)
	for i, p := range a.PerPerson {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", p.Person, f.Money(p.Total))
	}
	fmt.Fprintf(&b, "\n\nTotal: %s", f.Money(a.GrandTotal))
	return b.String()
}

// Breakdown renders every participant's entries under their total.
func Breakdown(a *calculator.Allocation, f Format) string {
	var b strings.Builder
	for _, p := range a.PerPerson {
		fmt.Fprintf(&b, "%s: %s\n", p.Person, f.Money(p.Total))
		for _, e := range p.Entries {
			fmt.Fprintf(&b, "  %s: %s\n", e.SourceName, f.Money(e.Value))
		}
	}
	if a.Unallocated > 0 {
		fmt.Fprintf(&b, "Unassigned items: %s\n", f.Money(a.Unallocated))
	}
	return b.String()
}

func groupThousands(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
