package postgres

import "github.com/uptrace/bun"

// A balance is the settled amount an account holds in one denomination.
// Amounts are stored as NUMERIC(39,0), wide enough for the full Uint128
// range.
type balance struct {
	bun.BaseModel `bun:"table:balances,alias:b"`

	Account string `bun:",pk"`
	Denom   string `bun:",pk"`
	Amount  string `bun:"type:numeric(39,0),notnull"`
}
