package services

import (
	"context"
	"time"

	"example.com/dairydesk/services/billing/internal/billing"
	"example.com/dairydesk/services/billing/internal/repositories"

	"github.com/pkg/errors"
)

// maxAllocateAttempts bounds the collision-recheck loop. With a single
// operator collisions are rare; hitting the bound means something is
// seriously wrong and is worth failing loudly.
const maxAllocateAttempts = 100

// allocateInvoiceNumber produces the next free invoice number for a bill
// whose period starts at periodStart. The sequence is scoped to the year,
// not the month: it scans every number with the year's prefix, proposes
// max+1, and rechecks existence before accepting so a concurrent writer
// in the scan-then-write window only costs an extra iteration. The unique
// index on invoice_number backs this up at the storage layer.
//
// Called only when creating a new bill; regeneration keeps the number a
// bill was first assigned.
func allocateInvoiceNumber(ctx context.Context, billRepo *repositories.BillRepository, periodStart time.Time) (string, error) {
	prefix := billing.InvoiceYearPrefix(periodStart.Year())
	numbers, err := billRepo.InvoiceNumbersForYear(ctx, prefix)
	if err != nil {
		return "", errors.Wrap(err, "failed to scan invoice numbers")
	}

	maxSeq := 0
	for _, number := range numbers {
		if seq, ok := billing.InvoiceSequence(number); ok && seq > maxSeq {
			maxSeq = seq
		}
	}

	seq := maxSeq + 1
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		candidate := billing.FormatInvoiceNumber(periodStart, seq)
		exists, err := billRepo.InvoiceNumberExists(ctx, candidate)
		if err != nil {
			return "", errors.Wrap(err, "failed to check invoice number candidate")
		}
		if !exists {
			return candidate, nil
		}
		seq++
	}

	return "", errors.Wrapf(ErrConflict, "invoice number allocation exhausted after %d attempts", maxAllocateAttempts)
}
