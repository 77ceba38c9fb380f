package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Payer string

const (
	PayerBank  Payer = "bank"
	PayerOwner Payer = "owner"
)

type PaymentMethod string

const (
	MethodCashDeposit  PaymentMethod = "cash_deposit"
	MethodCashOffice   PaymentMethod = "cash_office"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodBankCheque   PaymentMethod = "bank_cheque"
)

// Payment is one entry of a project's payment ledger. Ledger order is
// (date, created_at).
type Payment struct {
	gorm.Model
	TenantID *uuid.UUID `gorm:"type:uuid;index"`

	ProjectID *uint `gorm:"index"`
	Project   *Project

	Payer       Payer         `gorm:"type:varchar(20);not null;default:'owner'"`
	Method      PaymentMethod `gorm:"type:varchar(50)"`
	Amount      float64       `gorm:"type:numeric(14,2);not null"`
	Date        time.Time     `gorm:"type:date;not null"`
	Description string        `gorm:"type:text"`
}

// Validate enforces the payer/method matrix: bank payments arrive by
// transfer only, owner payments must name a method.
func (p *Payment) Validate() error {
	switch p.Payer {
	case PayerBank:
		if p.Method != MethodBankTransfer {
			return fmt.Errorf("bank payments must use bank_transfer")
		}
	case PayerOwner:
		switch p.Method {
		case MethodCashDeposit, MethodCashOffice, MethodBankTransfer, MethodBankCheque:
		case "":
			return fmt.Errorf("payment method is required for owner payments")
		default:
			return fmt.Errorf("invalid payment method %q for owner payments", p.Method)
		}
	default:
		return fmt.Errorf("invalid payer %q", p.Payer)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("payment amount must be positive")
	}
	return nil
}
