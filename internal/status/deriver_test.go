package status

import (
	"testing"
	"time"

	"buildtrack/internal/models"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func pay(amount float64, daysAgo int) models.Payment {
	return models.Payment{
		Payer:  models.PayerOwner,
		Method: models.MethodBankTransfer,
		Amount: amount,
		Date:   now.AddDate(0, 0, -daysAgo),
	}
}

func TestDeriveNoPayments(t *testing.T) {
	assert.Equal(t, models.StatusNotStarted, Derive(nil, 100000, now))
	assert.Equal(t, models.StatusNotStarted, Derive([]models.Payment{}, 0, now))
}

func TestDerivePaymentCount(t *testing.T) {
	one := []models.Payment{pay(1000, 3)}
	assert.Equal(t, models.StatusExecutionStarted, Derive(one, 100000, now))

	two := []models.Payment{pay(1000, 30), pay(2000, 3)}
	assert.Equal(t, models.StatusUnderExecution, Derive(two, 100000, now))
}

func TestDeriveSuspension(t *testing.T) {
	stale := []models.Payment{pay(1000, 200)}
	assert.Equal(t, models.StatusTemporarilySuspended, Derive(stale, 100000, now))

	// 180 days exactly is still fine; suspension needs strictly more.
	edge := []models.Payment{pay(1000, 180)}
	assert.Equal(t, models.StatusExecutionStarted, Derive(edge, 100000, now))

	// A stale ledger that cleared the handover threshold reads as
	// handover, not suspension: percentage rules win.
	staleButPaid := []models.Payment{pay(95000, 200)}
	assert.Equal(t, models.StatusHandoverStage, Derive(staleButPaid, 100000, now))
}

func TestDeriveCompletionThresholds(t *testing.T) {
	cases := []struct {
		name string
		paid float64
		want models.OperationalStatus
	}{
		{"well under", 50000, models.StatusUnderExecution},
		{"just below handover", 90000, models.StatusUnderExecution},
		{"handover floor", 91000, models.StatusHandoverStage},
		{"deep into handover", 96000, models.StatusHandoverStage},
		{"completed exactly", 100000, models.StatusCompleted},
		{"overpaid", 120000, models.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payments := []models.Payment{pay(tc.paid / 2, 40), pay(tc.paid / 2, 5)}
			assert.Equal(t, tc.want, Derive(payments, 100000, now))
		})
	}
}

func TestDeriveZeroValueDisablesPercentages(t *testing.T) {
	payments := []models.Payment{pay(1000000, 40), pay(1000000, 5)}
	assert.Equal(t, models.StatusUnderExecution, Derive(payments, 0, now))
	assert.Equal(t, models.StatusUnderExecution, Derive(payments, -1, now))
}

func TestDeriveLedgerGrowth(t *testing.T) {
	// A project's lifecycle as its ledger grows against a 1M value.
	ledger := []models.Payment{}
	assert.Equal(t, models.StatusNotStarted, Derive(ledger, 1000000, now))

	ledger = append(ledger, pay(100000, 90))
	assert.Equal(t, models.StatusExecutionStarted, Derive(ledger, 1000000, now))

	ledger = append(ledger, pay(400000, 60))
	assert.Equal(t, models.StatusUnderExecution, Derive(ledger, 1000000, now))

	ledger = append(ledger, pay(460000, 10))
	assert.Equal(t, models.StatusHandoverStage, Derive(ledger, 1000000, now))

	ledger = append(ledger, pay(40000, 2))
	assert.Equal(t, models.StatusCompleted, Derive(ledger, 1000000, now))
}
