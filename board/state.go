package board

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"lukechampine.com/uint128"
)

// Typed accessors over the store partitions. Records are encoded with
// msgpack; the store only ever sees opaque bytes.

func loadStipend(tx Tx) (Coin, error) {
	raw, err := tx.Get([]byte(keyStipend))
	if errors.Is(err, ErrKeyNotFound) {
		return Coin{}, ErrNotInitialized
	}
	if err != nil {
		return Coin{}, fmt.Errorf("load stipend: %w", err)
	}
	var stipend Coin
	if err := msgpack.Unmarshal(raw, &stipend); err != nil {
		return Coin{}, fmt.Errorf("decode stipend: %w", err)
	}
	return stipend, nil
}

func saveStipend(tx Tx, stipend Coin) error {
	raw, err := msgpack.Marshal(stipend)
	if err != nil {
		return fmt.Errorf("encode stipend: %w", err)
	}
	return tx.Set([]byte(keyStipend), raw)
}

func loadCurrentID(tx Tx) (uint128.Uint128, error) {
	raw, err := tx.Get([]byte(keyCurrentID))
	if errors.Is(err, ErrKeyNotFound) {
		return uint128.Zero, ErrNotInitialized
	}
	if err != nil {
		return uint128.Zero, fmt.Errorf("load current id: %w", err)
	}
	var id uint128.Uint128
	if err := msgpack.Unmarshal(raw, &id); err != nil {
		return uint128.Zero, fmt.Errorf("decode current id: %w", err)
	}
	return id, nil
}

func saveCurrentID(tx Tx, id uint128.Uint128) error {
	raw, err := msgpack.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode current id: %w", err)
	}
	return tx.Set([]byte(keyCurrentID), raw)
}

func loadMessage(tx Tx, id uint128.Uint128) (Message, error) {
	raw, err := tx.Get(idKey(prefixMessages, id))
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := msgpack.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return msg, nil
}

func saveMessage(tx Tx, msg Message) error {
	raw, err := msgpack.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return tx.Set(idKey(prefixMessages, msg.ID), raw)
}

// scanMessages visits all messages in ascending ID order, keeping those
// the filter accepts. A nil filter keeps everything.
func scanMessages(tx Tx, keep func(Message) bool) ([]Message, error) {
	msgs := []Message{}
	err := tx.Scan([]byte(prefixMessages), func(_, value []byte) error {
		var msg Message
		if err := msgpack.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if keep == nil || keep(msg) {
			msgs = append(msgs, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func loadLike(tx Tx, id uint128.Uint128) (LikeCount, error) {
	raw, err := tx.Get(idKey(prefixLikes, id))
	if err != nil {
		return LikeCount{}, err
	}
	var like LikeCount
	if err := msgpack.Unmarshal(raw, &like); err != nil {
		return LikeCount{}, fmt.Errorf("decode like counter: %w", err)
	}
	return like, nil
}

func saveLike(tx Tx, like LikeCount) error {
	raw, err := msgpack.Marshal(like)
	if err != nil {
		return fmt.Errorf("encode like counter: %w", err)
	}
	return tx.Set(idKey(prefixLikes, like.MessageID), raw)
}
