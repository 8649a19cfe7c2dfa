package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type is the direction of a money movement. Amounts are always positive;
// the direction is carried by Type, never by sign.
type Type string

const (
	TypeDeposit    Type = "Deposit"
	TypeWithdrawal Type = "Withdrawal"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// Signed returns amount with the sign implied by t.
func (t Type) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == TypeWithdrawal {
		return amount.Neg()
	}
	return amount
}

// Transaction is an immutable log entry recording one deposit or withdrawal.
type Transaction struct {
	ID        string          `json:"id"`
	AccountID int64           `json:"account_id"`
	Type      Type            `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// SignedAmount returns the amount with its direction applied.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Type.Signed(t.Amount)
}

// Order selects the timestamp ordering of a listing.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Net sums the signed amounts of txs.
func Net(txs []*Transaction) decimal.Decimal {
	net := decimal.Zero
	for _, t := range txs {
		net = net.Add(t.SignedAmount())
	}
	return net
}
