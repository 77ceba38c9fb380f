// Package status infers a project's operational status from its
// payment ledger. It is entirely independent of the approval workflow:
// the ledger is the only input, human sign-off never is.
package status

import (
	"time"

	"buildtrack/internal/models"
)

// A ledger whose most recent payment is older than this counts as
// stalled.
const suspendAfter = 180 * 24 * time.Hour

// Derive computes the operational status from a ledger ordered by
// (date, created_at) and the contract's total value. Rules apply in
// priority order, first match wins:
//
//  1. no payments                         -> not_started
//  2. paid >= 100% of value               -> completed
//  3. paid >= 91%                         -> handover_stage
//  4. remaining < 5% (and paid < 91%)     -> pending_financial_closure
//  5. last payment older than 180 days    -> temporarily_suspended
//  6. exactly one payment                 -> execution_started
//  7. more than one payment               -> under_execution
//  8. fallback                            -> not_started
//
// A zero or missing total value disables the percentage rules (2-4)
// and leaves payment count and recency to decide.
func Derive(payments []models.Payment, totalValue float64, now time.Time) models.OperationalStatus {
	if len(payments) == 0 {
		return models.StatusNotStarted
	}

	var totalPaid float64
	for _, p := range payments {
		totalPaid += p.Amount
	}
	last := payments[len(payments)-1]

	if totalValue > 0 {
		completion := totalPaid / totalValue * 100
		if completion >= 100 {
			return models.StatusCompleted
		}
		if completion >= 91 {
			return models.StatusHandoverStage
		}
		remaining := (totalValue - totalPaid) / totalValue * 100
		if remaining < 5 {
			return models.StatusPendingFinancialClosure
		}
	}

	if now.Sub(last.Date) > suspendAfter {
		return models.StatusTemporarilySuspended
	}

	// A single payment means execution has started, whatever its
	// description says.
	if len(payments) == 1 {
		return models.StatusExecutionStarted
	}
	if len(payments) > 1 {
		return models.StatusUnderExecution
	}
	return models.StatusNotStarted
}
