package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"spotshare/internal/apperror"
	"spotshare/internal/db"
	"spotshare/internal/logger"
	"spotshare/internal/metrics"
)

var ErrInsufficientFunds = apperror.New(apperror.KindInsufficientFunds, "insufficient wallet balance")

// Ledger applies money movements exactly once per idempotency key. Every
// operation runs in a single transaction and joins the caller's transaction
// when ctx carries one.
type Ledger struct {
	repo Repository
	tx   db.Transactor
}

func NewLedger(repo Repository, tx db.Transactor) *Ledger {
	return &Ledger{repo: repo, tx: tx}
}

// Settle debits Amount+Fee from the payer and credits Amount to the payee.
// A key that was already settled yields OutcomeAlreadySettled and changes
// nothing. ErrInsufficientFunds leaves no trace, the claim included.
func (l *Ledger) Settle(ctx context.Context, req SettlementRequest) (Outcome, error) {
	switch {
	case req.Key == "":
		return "", apperror.Validation("settlement key is required")
	case req.Amount < 0 || req.Fee < 0:
		return "", apperror.Validation("settlement amounts must not be negative")
	case req.From == req.To:
		return "", apperror.Validation("payer and payee must differ")
	}

	var outcome Outcome
	err := l.tx.InTx(ctx, func(ctx context.Context) error {
		from := req.From
		s := &Settlement{
			Key:         req.Key,
			Kind:        KindBooking,
			FromUserID:  &from,
			ToUserID:    req.To,
			AmountCents: req.Amount,
			FeeCents:    req.Fee,
		}
		if req.BookingID != uuid.Nil {
			id := req.BookingID
			s.BookingID = &id
		}

		claimed, err := l.repo.ClaimSettlement(ctx, s)
		if err != nil {
			return fmt.Errorf("claim settlement: %w", err)
		}
		if !claimed {
			outcome = OutcomeAlreadySettled
			return nil
		}

		wallets, err := l.lockPair(ctx, req.From, req.To)
		if err != nil {
			return err
		}
		payer, payee := wallets[req.From], wallets[req.To]

		if payer.BalanceCents < req.Total() {
			return ErrInsufficientFunds
		}
		if err := l.apply(ctx, payer, -req.Total(), TxBookingPayment, req.Key); err != nil {
			return err
		}
		if err := l.apply(ctx, payee, req.Amount, TxBookingPayout, req.Key); err != nil {
			return err
		}
		outcome = OutcomeOK
		return nil
	})
	if err != nil {
		metrics.RecordSettlement(KindBooking, settlementFailure(err), req.Amount, req.Fee)
		return "", err
	}

	db.AfterCommit(ctx, func() {
		metrics.RecordSettlement(KindBooking, string(outcome), req.Amount, req.Fee)
		logger.Info("settlement processed", "key", req.Key, "outcome", outcome,
			"amount_cents", req.Amount, "fee_cents", req.Fee)
	})
	return outcome, nil
}

// Credit adds amount to a single wallet, keyed the same way as Settle.
func (l *Ledger) Credit(ctx context.Context, key string, to uuid.UUID, amount int64, txType string) (Outcome, error) {
	if key == "" {
		return "", apperror.Validation("settlement key is required")
	}
	if amount <= 0 {
		return "", apperror.Validation("credit amount must be positive")
	}

	var outcome Outcome
	err := l.tx.InTx(ctx, func(ctx context.Context) error {
		claimed, err := l.repo.ClaimSettlement(ctx, &Settlement{
			Key:         key,
			Kind:        KindTopUp,
			ToUserID:    to,
			AmountCents: amount,
		})
		if err != nil {
			return fmt.Errorf("claim settlement: %w", err)
		}
		if !claimed {
			outcome = OutcomeAlreadySettled
			return nil
		}

		w, err := l.repo.LockWallet(ctx, to)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		if err := l.apply(ctx, w, amount, txType, key); err != nil {
			return err
		}
		outcome = OutcomeOK
		return nil
	})
	if err != nil {
		metrics.RecordSettlement(KindTopUp, settlementFailure(err), amount, 0)
		return "", err
	}

	db.AfterCommit(ctx, func() {
		metrics.RecordSettlement(KindTopUp, string(outcome), amount, 0)
		logger.Info("wallet credited", "key", key, "user_id", to, "outcome", outcome, "amount_cents", amount)
	})
	return outcome, nil
}

// lockPair locks both wallets in byte order of the user ids so concurrent
// settlements between the same users cannot deadlock.
func (l *Ledger) lockPair(ctx context.Context, a, b uuid.UUID) (map[uuid.UUID]*Wallet, error) {
	first, second := a, b
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	out := make(map[uuid.UUID]*Wallet, 2)
	for _, id := range []uuid.UUID{first, second} {
		w, err := l.repo.LockWallet(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lock wallet: %w", err)
		}
		out[id] = w
	}
	return out, nil
}

func (l *Ledger) apply(ctx context.Context, w *Wallet, delta int64, txType, key string) error {
	balance := w.BalanceCents + delta
	if balance < 0 {
		return ErrInsufficientFunds
	}
	if err := l.repo.UpdateBalance(ctx, w.ID, balance); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	k := key
	if err := l.repo.InsertTransaction(ctx, &Transaction{
		WalletID:      w.ID,
		AmountCents:   delta,
		Type:          txType,
		BalanceAfter:  balance,
		SettlementKey: &k,
	}); err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	w.BalanceCents = balance
	return nil
}

func settlementFailure(err error) string {
	if errors.Is(err, ErrInsufficientFunds) {
		return "insufficient_funds"
	}
	return "error"
}
