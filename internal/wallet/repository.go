package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"spotshare/internal/db"
)

const walletColumns = `id, user_id, balance_cents, currency, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(conn *sqlx.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	q := db.Ext(ctx, r.db)

	w := &Wallet{}
	err := sqlx.GetContext(ctx, q, w, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = sqlx.GetContext(ctx, q, w,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = wallets.updated_at
		 RETURNING `+walletColumns,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *repository) LockWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	q := db.Ext(ctx, r.db)

	if _, err := q.ExecContext(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return nil, err
	}

	w := &Wallet{}
	err := sqlx.GetContext(ctx, q, w,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *repository) UpdateBalance(ctx context.Context, walletID int64, balanceCents int64) error {
	_, err := db.Ext(ctx, r.db).ExecContext(ctx,
		`UPDATE wallets
		 SET balance_cents = $1, updated_at = NOW()
		 WHERE id = $2`,
		balanceCents, walletID,
	)
	return err
}

func (r *repository) InsertTransaction(ctx context.Context, t *Transaction) error {
	return db.Ext(ctx, r.db).QueryRowxContext(ctx,
		`INSERT INTO wallet_transactions (wallet_id, amount_cents, type, balance_after, settlement_key)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		t.WalletID, t.AmountCents, t.Type, t.BalanceAfter, t.SettlementKey,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *repository) ClaimSettlement(ctx context.Context, s *Settlement) (bool, error) {
	res, err := db.Ext(ctx, r.db).ExecContext(ctx,
		`INSERT INTO settlements (idempotency_key, kind, booking_id, from_user_id, to_user_id, amount_cents, fee_cents)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (idempotency_key) DO NOTHING`,
		s.Key, s.Kind, s.BookingID, s.FromUserID, s.ToUserID, s.AmountCents, s.FeeCents,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *repository) GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var txs []Transaction
	err := sqlx.SelectContext(ctx, db.Ext(ctx, r.db), &txs, `
		SELECT t.id, t.wallet_id, t.amount_cents, t.type, t.balance_after, t.settlement_key, t.created_at
		FROM wallet_transactions t
		JOIN wallets w ON w.id = t.wallet_id
		WHERE w.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}
