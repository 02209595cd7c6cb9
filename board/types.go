package board

import (
	"fmt"
	"math/big"

	"lukechampine.com/uint128"
)

// A Coin is an amount of a named denomination.
type Coin struct {
	Denom  string
	Amount uint128.Uint128
}

func (c Coin) String() string {
	return fmt.Sprintf("%s %s", c.Amount, c.Denom)
}

// A Message is an immutable board entry. Messages are created by a post
// operation and never updated or deleted.
type Message struct {
	ID    uint128.Uint128
	Owner string
	Topic string
	Body  string
}

// A LikeCount records how many times a message has been liked.
type LikeCount struct {
	MessageID uint128.Uint128
	Count     uint128.Uint128
}

// PostResult reports the outcome of a successful post.
type PostResult struct {
	ID uint128.Uint128
}

// LikeResult reports the outcome of a successful like: the new counter
// value and the owner the stipend was relayed to.
type LikeResult struct {
	MessageID uint128.Uint128
	Count     uint128.Uint128
	Owner     string
}

// ParseAmount parses a non-negative decimal string into a Uint128.
func ParseAmount(s string) (uint128.Uint128, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok || i.Sign() < 0 || i.BitLen() > 128 {
		return uint128.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return uint128.FromBig(i), nil
}
