package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Invoice numbers look like INV-2025-03-017. The trailing sequence is a
// year-scoped counter: it never repeats within a year, even across months,
// so the numbers stay usable as a flat business-facing ledger key.

// InvoiceYearPrefix returns the prefix shared by all invoice numbers of a year.
func InvoiceYearPrefix(year int) string {
	return fmt.Sprintf("INV-%d-", year)
}

// FormatInvoiceNumber builds an invoice number for the given period and
// sequence value. The sequence is zero-padded to three digits but grows
// beyond that when needed.
func FormatInvoiceNumber(periodStart time.Time, seq int) string {
	return fmt.Sprintf("INV-%d-%02d-%03d", periodStart.Year(), int(periodStart.Month()), seq)
}

// InvoiceSequence extracts the trailing numeric segment of an invoice
// number. The second return value is false for malformed numbers, which
// the allocator simply skips.
func InvoiceSequence(invoiceNumber string) (int, bool) {
	idx := strings.LastIndex(invoiceNumber, "-")
	if idx < 0 || idx == len(invoiceNumber)-1 {
		return 0, false
	}
	seq, err := strconv.Atoi(invoiceNumber[idx+1:])
	if err != nil {
		return 0, false
	}
	return seq, true
}
