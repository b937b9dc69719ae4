package repo

import (
	"context"
	"fmt"

	"motionlab/internal/domain"
	"motionlab/internal/infra"
	"motionlab/internal/sqlinline"
)

// LedgerRepositoryPG implements domain.CreditLedger on a single-row-per-owner
// balance table.
type LedgerRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewLedgerRepository creates a new credit ledger backed by PostgreSQL.
func NewLedgerRepository(sql infra.SQLExecutor) *LedgerRepositoryPG {
	return &LedgerRepositoryPG{sql: sql}
}

// Balance returns the owner's current balance. Owners without a ledger row
// have a balance of zero.
func (r *LedgerRepositoryPG) Balance(ctx context.Context, ownerID string) (int, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QLedgerBalance, ownerID)
	var balance int
	if err := row.Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// Debit atomically decrements the balance. The statement is guarded so the
// balance never goes negative: zero affected rows means insufficient funds.
func (r *LedgerRepositoryPG) Debit(ctx context.Context, ownerID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QLedgerDebit, ownerID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientCredit
	}
	return nil
}

// Credit adds to the balance, creating the ledger row when missing.
func (r *LedgerRepositoryPG) Credit(ctx context.Context, ownerID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	_, err := r.sql.Exec(ctx, sqlinline.QLedgerCredit, ownerID, amount)
	return err
}

var _ domain.CreditLedger = (*LedgerRepositoryPG)(nil)
