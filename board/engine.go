// Package board implements the pay-to-post, pay-to-like message board as
// deterministic transitions over an injected key-value store. Every
// operation is a single atomic store transaction; the surrounding system
// is expected to serialize calls.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lukechampine.com/uint128"
)

// An Engine applies board transitions against a Store and relays like
// stipends through a Bank.
type Engine struct {
	Store  Store
	Bank   Bank
	Logger *slog.Logger
}

// Initialize persists the stipend config and resets the ID counter. It
// runs exactly once: a board that already holds a stipend config rejects
// a second call. An unnamed coin or an amount below 1 is rejected before
// anything is persisted.
func (e *Engine) Initialize(ctx context.Context, stipend Coin) error {
	if stipend.Denom == "" || stipend.Amount.Cmp(uint128.From64(1)) < 0 {
		return ErrInvalidStipend
	}
	err := e.Store.Update(ctx, func(tx Tx) error {
		if _, err := tx.Get([]byte(keyStipend)); err == nil {
			return ErrAlreadyInitialized
		} else if !errors.Is(err, ErrKeyNotFound) {
			return fmt.Errorf("check stipend: %w", err)
		}
		if err := saveCurrentID(tx, uint128.Zero); err != nil {
			return err
		}
		return saveStipend(tx, stipend)
	})
	if err != nil {
		return err
	}
	e.Logger.Info("Board initialized", "stipend", stipend.String())
	return nil
}

// PostMessage appends a new message after validating that the attached
// funds are exactly the configured stipend.
func (e *Engine) PostMessage(ctx context.Context, sender, topic, body string, funds []Coin) (PostResult, error) {
	var res PostResult
	err := e.Store.Update(ctx, func(tx Tx) error {
		stipend, err := loadStipend(tx)
		if err != nil {
			return err
		}
		if err := checkFunds(funds, stipend); err != nil {
			return err
		}
		res, err = appendMessage(tx, sender, topic, body)
		return err
	})
	if err != nil {
		return PostResult{}, err
	}
	e.Logger.Info("Message added", "action", "add_message", "id", res.ID.String())
	return res, nil
}

// PostMessageUnfunded appends a new message with no funds check at all.
// Anything attached to the call is ignored. The asymmetry with liking,
// which always costs the stipend, is deliberate.
func (e *Engine) PostMessageUnfunded(ctx context.Context, sender, topic, body string) (PostResult, error) {
	var res PostResult
	err := e.Store.Update(ctx, func(tx Tx) error {
		var err error
		res, err = appendMessage(tx, sender, topic, body)
		return err
	})
	if err != nil {
		return PostResult{}, err
	}
	e.Logger.Info("Message added", "action", "add_message_without_funds", "id", res.ID.String())
	return res, nil
}

// LikeMessage validates the attached funds, increments the like counter
// for the message and relays the stipend to the message owner. Funds are
// validated before the message ID is resolved, so a like of a nonexistent
// message with bad funds reports the funds error. The bank transfer runs
// inside the store transaction: if it cannot be requested, no like is
// recorded.
func (e *Engine) LikeMessage(ctx context.Context, sender string, id uint128.Uint128, funds []Coin) (LikeResult, error) {
	var res LikeResult
	err := e.Store.Update(ctx, func(tx Tx) error {
		stipend, err := loadStipend(tx)
		if err != nil {
			return err
		}
		if err := checkFunds(funds, stipend); err != nil {
			return err
		}
		msg, err := loadMessage(tx, id)
		if errors.Is(err, ErrKeyNotFound) {
			return ErrInvalidMessageID
		} else if err != nil {
			return err
		}
		like, err := loadLike(tx, id)
		switch {
		case errors.Is(err, ErrKeyNotFound):
			like = LikeCount{MessageID: id, Count: uint128.From64(1)}
		case err != nil:
			return err
		default:
			like.Count = like.Count.Add64(1)
		}
		if err := saveLike(tx, like); err != nil {
			return err
		}
		if err := e.Bank.Send(ctx, msg.Owner, stipend); err != nil {
			return fmt.Errorf("relay stipend: %w", err)
		}
		res = LikeResult{MessageID: id, Count: like.Count, Owner: msg.Owner}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}
	e.Logger.Info("Message liked",
		"action", "message_like",
		"message_id", res.MessageID.String(),
		"sent_to", res.Owner,
	)
	return res, nil
}

// CurrentID returns the next ID the allocator will assign.
func (e *Engine) CurrentID(ctx context.Context) (uint128.Uint128, error) {
	var id uint128.Uint128
	err := e.Store.View(ctx, func(tx Tx) error {
		var err error
		id, err = loadCurrentID(tx)
		return err
	})
	return id, err
}

// Messages returns all messages in ascending ID order.
func (e *Engine) Messages(ctx context.Context) ([]Message, error) {
	return e.listMessages(ctx, nil)
}

// MessagesByOwner returns the messages posted by owner, in ascending ID
// order.
func (e *Engine) MessagesByOwner(ctx context.Context, owner string) ([]Message, error) {
	return e.listMessages(ctx, func(m Message) bool { return m.Owner == owner })
}

// MessagesByTopic returns the messages under topic, in ascending ID order.
func (e *Engine) MessagesByTopic(ctx context.Context, topic string) ([]Message, error) {
	return e.listMessages(ctx, func(m Message) bool { return m.Topic == topic })
}

func (e *Engine) listMessages(ctx context.Context, keep func(Message) bool) ([]Message, error) {
	var msgs []Message
	err := e.Store.View(ctx, func(tx Tx) error {
		var err error
		msgs, err = scanMessages(tx, keep)
		return err
	})
	return msgs, err
}

// MessageByID returns the message with the given ID.
func (e *Engine) MessageByID(ctx context.Context, id uint128.Uint128) (Message, error) {
	var msg Message
	err := e.Store.View(ctx, func(tx Tx) error {
		var err error
		msg, err = loadMessage(tx, id)
		if errors.Is(err, ErrKeyNotFound) {
			return &MessageNotFoundError{ID: id}
		}
		return err
	})
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// LikesByID returns the like counter for the given message ID.
func (e *Engine) LikesByID(ctx context.Context, id uint128.Uint128) (LikeCount, error) {
	var like LikeCount
	err := e.Store.View(ctx, func(tx Tx) error {
		var err error
		like, err = loadLike(tx, id)
		if errors.Is(err, ErrKeyNotFound) {
			return &LikesNotFoundError{MessageID: id}
		}
		return err
	})
	if err != nil {
		return LikeCount{}, err
	}
	return like, nil
}

// checkFunds requires exactly one attached coin matching the stipend.
// The count, denom and amount checks short-circuit in that order.
func checkFunds(funds []Coin, stipend Coin) error {
	if len(funds) != 1 ||
		funds[0].Denom != stipend.Denom ||
		!funds[0].Amount.Equals(stipend.Amount) {
		return &InvalidFundsError{
			ExpectedDenom:  stipend.Denom,
			ExpectedAmount: stipend.Amount,
		}
	}
	return nil
}

// appendMessage allocates the next ID, persists the message and advances
// the counter. A counter overflow panics via the checked add; an ID that
// is somehow already taken is an allocator invariant violation, also
// fatal.
func appendMessage(tx Tx, sender, topic, body string) (PostResult, error) {
	id, err := loadCurrentID(tx)
	if err != nil {
		return PostResult{}, err
	}
	if _, err := tx.Get(idKey(prefixMessages, id)); !errors.Is(err, ErrKeyNotFound) {
		if err != nil {
			return PostResult{}, fmt.Errorf("check message slot: %w", err)
		}
		panic(fmt.Sprintf("board: id %s already allocated", id))
	}
	if err := saveMessage(tx, Message{ID: id, Owner: sender, Topic: topic, Body: body}); err != nil {
		return PostResult{}, err
	}
	if err := saveCurrentID(tx, id.Add64(1)); err != nil {
		return PostResult{}, err
	}
	return PostResult{ID: id}, nil
}
