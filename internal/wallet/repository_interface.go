package wallet

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	// LockWallet creates the wallet when missing and locks its row until the
	// surrounding transaction ends.
	LockWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	UpdateBalance(ctx context.Context, walletID int64, balanceCents int64) error
	InsertTransaction(ctx context.Context, t *Transaction) error
	// ClaimSettlement records s and reports false when its key already exists.
	ClaimSettlement(ctx context.Context, s *Settlement) (bool, error)
	GetTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
}
