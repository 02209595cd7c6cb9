package api

import (
	"fmt"

	"lukechampine.com/uint128"

	"github.com/edgeee/likeboard/board"
)

// A Message is the wire form of a board message. IDs are decimal strings
// since they exceed the safe integer range of JSON numbers.
type Message struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Topic string `json:"topic"`
	Body  string `json:"body"`
}

// A Coin is the wire form of an attached payment.
type Coin struct {
	Denom  string `json:"denom" validate:"required"`
	Amount string `json:"amount" validate:"required"`
}

func apiMessage(m board.Message) Message {
	return Message{
		ID:    m.ID.String(),
		Owner: m.Owner,
		Topic: m.Topic,
		Body:  m.Body,
	}
}

func apiMessages(msgs []board.Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = apiMessage(m)
	}
	return out
}

func parseCoins(coins []Coin) ([]board.Coin, error) {
	out := make([]board.Coin, len(coins))
	for i, c := range coins {
		amount, err := board.ParseAmount(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("coin %d: %w", i, err)
		}
		out[i] = board.Coin{Denom: c.Denom, Amount: amount}
	}
	return out, nil
}

func parseID(s string) (uint128.Uint128, error) {
	id, err := board.ParseAmount(s)
	if err != nil {
		return uint128.Zero, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}
