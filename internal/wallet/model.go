package wallet

import (
	"time"

	"github.com/google/uuid"
)

type Wallet struct {
	ID           int64     `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	BalanceCents int64     `db:"balance_cents" json:"balance_cents"`
	Currency     string    `db:"currency" json:"currency"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction types written to wallet_transactions.
const (
	TxTopUp          = "topup"
	TxGatewayPayment = "gateway_payment"
	TxBookingPayment = "booking_payment"
	TxBookingPayout  = "booking_payout"
)

type Transaction struct {
	ID            int64     `db:"id" json:"id"`
	WalletID      int64     `db:"wallet_id" json:"wallet_id"`
	AmountCents   int64     `db:"amount_cents" json:"amount_cents"`
	Type          string    `db:"type" json:"type"`
	BalanceAfter  int64     `db:"balance_after" json:"balance_after"`
	SettlementKey *string   `db:"settlement_key" json:"settlement_key,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Settlement kinds.
const (
	KindBooking = "booking"
	KindTopUp   = "topup"
)

// Settlement is the idempotency record of one applied money movement.
type Settlement struct {
	Key         string     `db:"idempotency_key" json:"idempotency_key"`
	Kind        string     `db:"kind" json:"kind"`
	BookingID   *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	FromUserID  *uuid.UUID `db:"from_user_id" json:"from_user_id,omitempty"`
	ToUserID    uuid.UUID  `db:"to_user_id" json:"to_user_id"`
	AmountCents int64      `db:"amount_cents" json:"amount_cents"`
	FeeCents    int64      `db:"fee_cents" json:"fee_cents"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeAlreadySettled Outcome = "already_settled"
)

// SettlementRequest moves Amount+Fee out of From's wallet and Amount into To's.
type SettlementRequest struct {
	Key       string
	BookingID uuid.UUID
	From      uuid.UUID
	To        uuid.UUID
	Amount    int64
	Fee       int64
}

func (r SettlementRequest) Total() int64 { return r.Amount + r.Fee }

// BookingKey is the idempotency key of a booking settlement.
func BookingKey(bookingID uuid.UUID) string {
	return "booking:" + bookingID.String()
}
