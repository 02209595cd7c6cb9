package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neilotoole/slogt"
	"lukechampine.com/uint128"

	"github.com/edgeee/likeboard/api/validator"
	"github.com/edgeee/likeboard/board"
)

func TestAPI_initialize(t *testing.T) {
	tests := []struct {
		name       string
		req        string
		brd        *testboard
		wantStatus int
		wantBody   string
	}{
		{
			name: "OK",
			req: `{
				"denom": "like_coin",
				"amount": "100"
			}`,
			brd: &testboard{
				initialize: func(t *testing.T, stipend board.Coin) error {
					if stipend.Denom != "like_coin" {
						t.Errorf("Got denom %q, want like_coin", stipend.Denom)
					}
					if !stipend.Amount.Equals(uint128.From64(100)) {
						t.Errorf("Got amount %s, want 100", stipend.Amount)
					}
					return nil
				},
			},
			wantStatus: 201,
			wantBody: `{
				"denom": "like_coin",
				"amount": "100"
			}`,
		},
		{
			name: "InvalidStipend",
			req: `{
				"denom": "like_coin",
				"amount": "0"
			}`,
			brd: &testboard{
				initialize: func(t *testing.T, stipend board.Coin) error {
					return board.ErrInvalidStipend
				},
			},
			wantStatus: 400,
			wantBody: `{
				"error": "A named coin with an amount of at least 1 is required"
			}`,
		},
		{
			name: "AlreadyInitialized",
			req: `{
				"denom": "like_coin",
				"amount": "100"
			}`,
			brd: &testboard{
				initialize: func(t *testing.T, stipend board.Coin) error {
					return board.ErrAlreadyInitialized
				},
			},
			wantStatus: 409,
			wantBody: `{
				"error": "Board is already initialized"
			}`,
		},
		{
			name: "MissingDenom",
			req: `{
				"amount": "100"
			}`,
			brd:        &testboard{},
			wantStatus: 400,
			wantBody: `{
				"errors": [
					{"field": "denom", "rule": "required"}
				]
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.brd, &testledger{})
			resp := do(t, srv, "POST", "/initialize", tt.req)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_createMessage(t *testing.T) {
	tests := []struct {
		name       string
		req        string
		brd        *testboard
		wantStatus int
		wantBody   string
	}{
		{
			name: "OK",
			req: `{
				"sender": "alice",
				"topic": "go",
				"body": "hello",
				"funds": [{"denom": "like_coin", "amount": "100"}]
			}`,
			brd: &testboard{
				postMessage: func(t *testing.T, sender, topic, body string, funds []board.Coin) (board.PostResult, error) {
					if sender != "alice" {
						t.Errorf("Got sender %q, want alice", sender)
					}
					if len(funds) != 1 || funds[0].Denom != "like_coin" {
						t.Errorf("Got funds %v, want one like_coin coin", funds)
					}
					return board.PostResult{ID: uint128.From64(7)}, nil
				},
			},
			wantStatus: 201,
			wantBody: `{
				"id": "7"
			}`,
		},
		{
			name: "InvalidFunds",
			req: `{
				"sender": "alice",
				"topic": "go",
				"body": "hello",
				"funds": [{"denom": "like_coin", "amount": "50"}]
			}`,
			brd: &testboard{
				postMessage: func(t *testing.T, sender, topic, body string, funds []board.Coin) (board.PostResult, error) {
					return board.PostResult{}, &board.InvalidFundsError{
						ExpectedDenom:  "like_coin",
						ExpectedAmount: uint128.From64(100),
					}
				},
			},
			wantStatus: 402,
			wantBody: `{
				"error": "Invalid funds",
				"expected_denom": "like_coin",
				"expected_amount": "100"
			}`,
		},
		{
			name: "NotInitialized",
			req: `{
				"sender": "alice"
			}`,
			brd: &testboard{
				postMessage: func(t *testing.T, sender, topic, body string, funds []board.Coin) (board.PostResult, error) {
					return board.PostResult{}, board.ErrNotInitialized
				},
			},
			wantStatus: 503,
			wantBody: `{
				"error": "Board is not initialized"
			}`,
		},
		{
			name: "MissingSender",
			req: `{
				"topic": "go",
				"body": "hello"
			}`,
			brd:        &testboard{},
			wantStatus: 400,
			wantBody: `{
				"errors": [
					{"field": "sender", "rule": "required"}
				]
			}`,
		},
		{
			name: "BadAmount",
			req: `{
				"sender": "alice",
				"funds": [{"denom": "like_coin", "amount": "lots"}]
			}`,
			brd:        &testboard{},
			wantStatus: 400,
			wantBody: `{
				"error": "Could not parse attached funds"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.brd, &testledger{})
			resp := do(t, srv, "POST", "/messages", tt.req)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_createMessage_RefundsOnFailure(t *testing.T) {
	brd := &testboard{
		postMessage: func(t *testing.T, sender, topic, body string, funds []board.Coin) (board.PostResult, error) {
			return board.PostResult{}, &board.InvalidFundsError{
				ExpectedDenom:  "like_coin",
				ExpectedAmount: uint128.From64(100),
			}
		},
	}
	ledger := &testledger{}
	srv := newServer(t, brd, ledger)

	resp := do(t, srv, "POST", "/messages", `{
		"sender": "alice",
		"funds": [{"denom": "like_coin", "amount": "50"}]
	}`)
	checkStatus(t, resp.StatusCode, 402)

	if len(ledger.deposits) != 1 || !ledger.deposits[0].Amount.Equals(uint128.From64(50)) {
		t.Errorf("Got deposits %v, want a single 50 like_coin deposit", ledger.deposits)
	}
	if len(ledger.sends) != 1 || ledger.sends[0].to != "alice" {
		t.Errorf("Got sends %v, want a single refund to alice", ledger.sends)
	}
}

func TestAPI_createUnfundedMessage(t *testing.T) {
	brd := &testboard{
		postUnfunded: func(t *testing.T, sender, topic, body string) (board.PostResult, error) {
			if sender != "alice" {
				t.Errorf("Got sender %q, want alice", sender)
			}
			return board.PostResult{ID: uint128.From64(0)}, nil
		},
	}
	ledger := &testledger{}
	srv := newServer(t, brd, ledger)

	resp := do(t, srv, "POST", "/messages/unfunded", `{
		"sender": "alice",
		"topic": "go",
		"body": "hello"
	}`)
	checkStatus(t, resp.StatusCode, 201)
	checkBody(t, resp, `{
		"id": "0"
	}`)
	if len(ledger.deposits) != 0 {
		t.Errorf("Got %d deposits, want 0", len(ledger.deposits))
	}
}

func TestAPI_createLike(t *testing.T) {
	tests := []struct {
		name       string
		messageID  string
		req        string
		brd        *testboard
		wantStatus int
		wantBody   string
	}{
		{
			name:      "OK",
			messageID: "0",
			req: `{
				"sender": "bob",
				"funds": [{"denom": "like_coin", "amount": "100"}]
			}`,
			brd: &testboard{
				likeMessage: func(t *testing.T, sender string, id uint128.Uint128, funds []board.Coin) (board.LikeResult, error) {
					if sender != "bob" {
						t.Errorf("Got sender %q, want bob", sender)
					}
					if !id.IsZero() {
						t.Errorf("Got id %s, want 0", id)
					}
					return board.LikeResult{
						MessageID: id,
						Count:     uint128.From64(2),
						Owner:     "alice",
					}, nil
				},
			},
			wantStatus: 201,
			wantBody: `{
				"message_id": "0",
				"count": "2",
				"sent_to": "alice"
			}`,
		},
		{
			name:      "UnknownMessage",
			messageID: "99",
			req: `{
				"sender": "bob",
				"funds": [{"denom": "like_coin", "amount": "100"}]
			}`,
			brd: &testboard{
				likeMessage: func(t *testing.T, sender string, id uint128.Uint128, funds []board.Coin) (board.LikeResult, error) {
					return board.LikeResult{}, board.ErrInvalidMessageID
				},
			},
			wantStatus: 404,
			wantBody: `{
				"error": "No message with that id"
			}`,
		},
		{
			name:       "BadID",
			messageID:  "abc",
			req:        `{"sender": "bob"}`,
			brd:        &testboard{},
			wantStatus: 400,
			wantBody: `{
				"error": "Could not parse message id"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.brd, &testledger{})
			resp := do(t, srv, "POST", "/messages/"+tt.messageID+"/likes", tt.req)
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_listMessages(t *testing.T) {
	msgs := []board.Message{
		{ID: uint128.From64(0), Owner: "alice", Topic: "go", Body: "m0"},
		{ID: uint128.From64(1), Owner: "bob", Topic: "go", Body: "m1"},
	}
	tests := []struct {
		name       string
		path       string
		brd        *testboard
		wantStatus int
		wantBody   string
	}{
		{
			name: "All",
			path: "/messages",
			brd: &testboard{
				messages: func(t *testing.T) ([]board.Message, error) {
					return msgs, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"messages": [
					{"id": "0", "owner": "alice", "topic": "go", "body": "m0"},
					{"id": "1", "owner": "bob", "topic": "go", "body": "m1"}
				]
			}`,
		},
		{
			name: "ByOwner",
			path: "/messages?owner=alice",
			brd: &testboard{
				messagesByOwner: func(t *testing.T, owner string) ([]board.Message, error) {
					if owner != "alice" {
						t.Errorf("Got owner %q, want alice", owner)
					}
					return msgs[:1], nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"messages": [
					{"id": "0", "owner": "alice", "topic": "go", "body": "m0"}
				]
			}`,
		},
		{
			name: "ByTopic",
			path: "/messages?topic=go",
			brd: &testboard{
				messagesByTopic: func(t *testing.T, topic string) ([]board.Message, error) {
					if topic != "go" {
						t.Errorf("Got topic %q, want go", topic)
					}
					return msgs, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"messages": [
					{"id": "0", "owner": "alice", "topic": "go", "body": "m0"},
					{"id": "1", "owner": "bob", "topic": "go", "body": "m1"}
				]
			}`,
		},
		{
			name: "Empty",
			path: "/messages",
			brd: &testboard{
				messages: func(t *testing.T) ([]board.Message, error) {
					return nil, nil
				},
			},
			wantStatus: 200,
			wantBody: `{
				"messages": []
			}`,
		},
		{
			name:       "ConflictingFilters",
			path:       "/messages?owner=alice&topic=go",
			brd:        &testboard{},
			wantStatus: 400,
			wantBody: `{
				"error": "Filter by either owner or topic, not both"
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.brd, &testledger{})
			resp := do(t, srv, "GET", tt.path, "")
			checkStatus(t, resp.StatusCode, tt.wantStatus)
			checkBody(t, resp, tt.wantBody)
		})
	}
}

func TestAPI_getMessage(t *testing.T) {
	brd := &testboard{
		messageByID: func(t *testing.T, id uint128.Uint128) (board.Message, error) {
			if id.Equals(uint128.From64(1)) {
				return board.Message{ID: id, Owner: "bob", Topic: "go", Body: "m1"}, nil
			}
			return board.Message{}, &board.MessageNotFoundError{ID: id}
		},
	}
	srv := newServer(t, brd, &testledger{})

	resp := do(t, srv, "GET", "/messages/1", "")
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"id": "1",
		"owner": "bob",
		"topic": "go",
		"body": "m1"
	}`)

	resp = do(t, srv, "GET", "/messages/9", "")
	checkStatus(t, resp.StatusCode, 404)
	checkBody(t, resp, `{
		"error": "Message not found"
	}`)
}

func TestAPI_getLikes(t *testing.T) {
	brd := &testboard{
		likesByID: func(t *testing.T, id uint128.Uint128) (board.LikeCount, error) {
			if id.IsZero() {
				return board.LikeCount{MessageID: id, Count: uint128.From64(2)}, nil
			}
			return board.LikeCount{}, &board.LikesNotFoundError{MessageID: id}
		},
	}
	srv := newServer(t, brd, &testledger{})

	resp := do(t, srv, "GET", "/messages/0/likes", "")
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"message_id": "0",
		"count": "2"
	}`)

	resp = do(t, srv, "GET", "/messages/5/likes", "")
	checkStatus(t, resp.StatusCode, 404)
	checkBody(t, resp, `{
		"error": "No likes recorded for that message"
	}`)
}

func TestAPI_getCurrentID(t *testing.T) {
	brd := &testboard{
		currentID: func(t *testing.T) (uint128.Uint128, error) {
			return uint128.From64(3), nil
		},
	}
	srv := newServer(t, brd, &testledger{})

	resp := do(t, srv, "GET", "/state/current-id", "")
	checkStatus(t, resp.StatusCode, 200)
	checkBody(t, resp, `{
		"current_id": "3"
	}`)
}

type testboard struct {
	T               *testing.T
	initialize      func(t *testing.T, stipend board.Coin) error
	postMessage     func(t *testing.T, sender, topic, body string, funds []board.Coin) (board.PostResult, error)
	postUnfunded    func(t *testing.T, sender, topic, body string) (board.PostResult, error)
	likeMessage     func(t *testing.T, sender string, id uint128.Uint128, funds []board.Coin) (board.LikeResult, error)
	currentID       func(t *testing.T) (uint128.Uint128, error)
	messages        func(t *testing.T) ([]board.Message, error)
	messagesByOwner func(t *testing.T, owner string) ([]board.Message, error)
	messagesByTopic func(t *testing.T, topic string) ([]board.Message, error)
	messageByID     func(t *testing.T, id uint128.Uint128) (board.Message, error)
	likesByID       func(t *testing.T, id uint128.Uint128) (board.LikeCount, error)
}

func (b *testboard) Initialize(_ context.Context, stipend board.Coin) error {
	return b.initialize(b.T, stipend)
}

func (b *testboard) PostMessage(_ context.Context, sender, topic, body string, funds []board.Coin) (board.PostResult, error) {
	return b.postMessage(b.T, sender, topic, body, funds)
}

func (b *testboard) PostMessageUnfunded(_ context.Context, sender, topic, body string) (board.PostResult, error) {
	return b.postUnfunded(b.T, sender, topic, body)
}

func (b *testboard) LikeMessage(_ context.Context, sender string, id uint128.Uint128, funds []board.Coin) (board.LikeResult, error) {
	return b.likeMessage(b.T, sender, id, funds)
}

func (b *testboard) CurrentID(_ context.Context) (uint128.Uint128, error) {
	return b.currentID(b.T)
}

func (b *testboard) Messages(_ context.Context) ([]board.Message, error) {
	return b.messages(b.T)
}

func (b *testboard) MessagesByOwner(_ context.Context, owner string) ([]board.Message, error) {
	return b.messagesByOwner(b.T, owner)
}

func (b *testboard) MessagesByTopic(_ context.Context, topic string) ([]board.Message, error) {
	return b.messagesByTopic(b.T, topic)
}

func (b *testboard) MessageByID(_ context.Context, id uint128.Uint128) (board.Message, error) {
	return b.messageByID(b.T, id)
}

func (b *testboard) LikesByID(_ context.Context, id uint128.Uint128) (board.LikeCount, error) {
	return b.likesByID(b.T, id)
}

type send struct {
	to   string
	coin board.Coin
}

type testledger struct {
	deposits   []board.Coin
	sends      []send
	depositErr error
	sendErr    error
}

func (l *testledger) Deposit(_ context.Context, amount board.Coin) error {
	if l.depositErr != nil {
		return l.depositErr
	}
	l.deposits = append(l.deposits, amount)
	return nil
}

func (l *testledger) Send(_ context.Context, to string, amount board.Coin) error {
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sends = append(l.sends, send{to: to, coin: amount})
	return nil
}

func newServer(t *testing.T, brd *testboard, ledger *testledger) *httptest.Server {
	t.Helper()
	brd.T = t
	api := &API{
		Logger: slogt.New(t),
		Board:  brd,
		Ledger: ledger,
		Val:    validator.New(),
	}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func checkStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("Got HTTP status %d, want %d", got, want)
	}
}

func checkBody(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	gotBody := normalizeJSON(t, resp.Body)
	wantBody := normalizeJSON(t, bytes.NewReader([]byte(want)))
	if gotBody != wantBody {
		t.Errorf("Body does not match\nGot\n  %s\n\nWant\n  %s", gotBody, wantBody)
	}
}

func normalizeJSON(t *testing.T, r io.Reader) string {
	t.Helper()
	var buf bytes.Buffer
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Could not read JSON: %v", err)
	}
	if err := json.Indent(&buf, b, "  ", "  "); err != nil {
		t.Fatalf("Could not indent JSON: %v", err)
	}
	return strings.TrimSpace(buf.String())
}
