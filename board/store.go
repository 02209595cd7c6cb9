package board

import (
	"context"
	"encoding/binary"
	"encoding/hex"

	"lukechampine.com/uint128"
)

// A Store provides the key-value partitions the board state lives in.
// Update must be atomic: if fn returns an error, none of its writes may
// become visible. The host is expected to serialize calls; Store
// implementations do not need to support concurrent Update transactions
// against the same keys.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// A Tx reads and writes keys within a single store transaction. Get
// returns ErrKeyNotFound for absent keys. Scan visits every key with the
// given prefix in ascending lexicographic order.
type Tx interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Scan(prefix []byte, fn func(key, value []byte) error) error
}

// A Bank settles fund transfers on behalf of the board. Send moves the
// given coin from the board's holding balance to the named account. It is
// invoked inside the store transaction of a like, so a failed Send aborts
// the like entirely.
type Bank interface {
	Send(ctx context.Context, to string, amount Coin) error
}

// State partitions. Message and like keys carry a fixed-width big-endian
// hex ID suffix so lexicographic scan order equals numeric ID order.
const (
	keyStipend     = "config:stipend"
	keyCurrentID   = "state:current_id"
	prefixMessages = "messages:"
	prefixLikes    = "likes:"
)

func idKey(prefix string, id uint128.Uint128) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:], id.Lo)
	return append([]byte(prefix), hex.EncodeToString(b[:])...)
}
