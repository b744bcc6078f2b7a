package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DeriveCreditStatus is the only place a credit status follows from its
// amounts. A written-off credit keeps that status.
func DeriveCreditStatus(current CreditStatus, paid decimal.Decimal, total decimal.Decimal) CreditStatus {
	if current == CreditWrittenOff {
		return CreditWrittenOff
	}
	switch {
	case paid.Equal(total):
		return CreditPaid
	case paid.IsPositive():
		return CreditPartiallyPaid
	default:
		return CreditUnpaid
	}
}

func (c Credit) Outstanding() decimal.Decimal {
	return c.TotalAmount.Sub(c.PaidAmount)
}

// IsOpen reports whether the credit still counts towards the unpaid total.
func (c Credit) IsOpen() bool {
	return c.Status == CreditUnpaid || c.Status == CreditPartiallyPaid
}

// ApplyPayment records a partial payment. On error the credit is unchanged.
func (c *Credit) ApplyPayment(paymentID string, amount decimal.Decimal, at time.Time) (CreditPayment, error) {
	if !amount.IsPositive() {
		return CreditPayment{}, fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	}
	if c.Status == CreditWrittenOff {
		return CreditPayment{}, fmt.Errorf("%w: credit %s is written off", ErrInvalidState, c.ID)
	}
	if c.PaidAmount.Add(amount).GreaterThan(c.TotalAmount) {
		return CreditPayment{}, fmt.Errorf("%w: outstanding %s, offered %s", ErrOverPayment, c.Outstanding().String(), amount.String())
	}

	payment := CreditPayment{
		ID:       paymentID,
		CreditID: c.ID,
		Amount:   amount,
		PaidAt:   at,
	}
	c.PaidAmount = c.PaidAmount.Add(amount)
	c.Payments = append(c.Payments, payment)
	c.Status = DeriveCreditStatus(c.Status, c.PaidAmount, c.TotalAmount)
	c.UpdatedAt = at
	return payment, nil
}

func (c *Credit) WriteOff(at time.Time) error {
	if c.Status == CreditPaid {
		return fmt.Errorf("%w: credit %s is already paid", ErrInvalidState, c.ID)
	}
	if c.Status == CreditWrittenOff {
		return fmt.Errorf("%w: credit %s is already written off", ErrInvalidState, c.ID)
	}
	c.Status = CreditWrittenOff
	c.UpdatedAt = at
	return nil
}
