// Package postgres provides the settlement ledger in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"lukechampine.com/uint128"

	"github.com/edgeee/likeboard/board"
)

// Ledger settles fund movements between the board's holding account and
// user accounts.
type Ledger struct {
	bun     *bun.DB
	holding string
}

// Connect connects to the database and pings it to ensure the connection
// is working. holding names the board's own settlement account.
func Connect(ctx context.Context, connStr, holding string) (*Ledger, error) {
	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(connStr)))
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Ledger{
		bun:     bun.NewDB(sqlDB, pgdialect.New()),
		holding: holding,
	}, nil
}

// Init creates the balances table if it does not exist yet.
func (l *Ledger) Init(ctx context.Context) error {
	if _, err := l.bun.NewCreateTable().Model((*balance)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Deposit credits the holding account with funds attached to a call.
func (l *Ledger) Deposit(ctx context.Context, amount board.Coin) error {
	return l.credit(ctx, l.bun, l.holding, amount)
}

// Send moves the given coin from the holding account to the named
// account. It fails if the holding account does not cover the amount and
// then leaves both balances untouched.
func (l *Ledger) Send(ctx context.Context, to string, amount board.Coin) error {
	return l.bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*balance)(nil)).
			Set("amount = b.amount - ?", amount.Amount.String()).
			Where("account = ?", l.holding).
			Where("denom = ?", amount.Denom).
			Where("amount >= ?", amount.Amount.String()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("debit holding: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("debit holding: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("ledger: holding account cannot cover %s", amount)
		}
		return l.credit(ctx, tx, to, amount)
	})
}

// Balance returns the balance of an account in the given denom, zero if
// the account has never been credited.
func (l *Ledger) Balance(ctx context.Context, account, denom string) (uint128.Uint128, error) {
	var b balance
	err := l.bun.NewSelect().
		Model(&b).
		Where("account = ?", account).
		Where("denom = ?", denom).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return uint128.Zero, nil
	}
	if err != nil {
		return uint128.Zero, fmt.Errorf("scan: %w", err)
	}
	return board.ParseAmount(b.Amount)
}

func (l *Ledger) credit(ctx context.Context, db bun.IDB, account string, amount board.Coin) error {
	b := &balance{
		Account: account,
		Denom:   amount.Denom,
		Amount:  amount.Amount.String(),
	}
	_, err := db.NewInsert().
		Model(b).
		On("CONFLICT (account, denom) DO UPDATE").
		Set("amount = b.amount + EXCLUDED.amount").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	return nil
}
