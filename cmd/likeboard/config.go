package main

import "log/slog"

type config struct {
	ListenAddr string     `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel   slog.Level `envconfig:"LOG_LEVEL" default:"INFO"`

	// StoreBackend selects where the board state lives: memory, badger
	// or redis.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
	BadgerPath   string `envconfig:"BADGER_PATH" default:"likeboard.badger"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	// PostgresDSN enables the PostgreSQL settlement ledger; without it
	// balances are kept in memory.
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`
	HoldingAccount string `envconfig:"HOLDING_ACCOUNT" default:"board"`

	// StipendDenom/StipendAmount initialize the board at startup when
	// set. An already initialized board is left as it is.
	StipendDenom  string `envconfig:"STIPEND_DENOM"`
	StipendAmount string `envconfig:"STIPEND_AMOUNT"`
}
