// Package api provides the REST endpoints for the board.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"lukechampine.com/uint128"

	"github.com/edgeee/likeboard/api/validator"
	"github.com/edgeee/likeboard/board"
)

// A Board applies the state transitions and answers the queries.
type Board interface {
	Initialize(ctx context.Context, stipend board.Coin) error
	PostMessage(ctx context.Context, sender, topic, body string, funds []board.Coin) (board.PostResult, error)
	PostMessageUnfunded(ctx context.Context, sender, topic, body string) (board.PostResult, error)
	LikeMessage(ctx context.Context, sender string, id uint128.Uint128, funds []board.Coin) (board.LikeResult, error)
	CurrentID(ctx context.Context) (uint128.Uint128, error)
	Messages(ctx context.Context) ([]board.Message, error)
	MessagesByOwner(ctx context.Context, owner string) ([]board.Message, error)
	MessagesByTopic(ctx context.Context, topic string) ([]board.Message, error)
	MessageByID(ctx context.Context, id uint128.Uint128) (board.Message, error)
	LikesByID(ctx context.Context, id uint128.Uint128) (board.LikeCount, error)
}

// A Ledger books attached funds into the board's holding balance and
// refunds them when a funded call fails.
type Ledger interface {
	Deposit(ctx context.Context, amount board.Coin) error
	Send(ctx context.Context, to string, amount board.Coin) error
}

// API provides the REST endpoints for the application.
type API struct {
	Logger *slog.Logger
	Board  Board
	Ledger Ledger
	Val    *validator.Validator

	once sync.Once
	mux  *http.ServeMux
}

func (a *API) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /initialize", a.initialize)
	mux.HandleFunc("POST /messages", a.createMessage)
	mux.HandleFunc("POST /messages/unfunded", a.createUnfundedMessage)
	mux.HandleFunc("POST /messages/{messageID}/likes", a.createLike)
	mux.HandleFunc("GET /messages", a.listMessages)
	mux.HandleFunc("GET /messages/{messageID}", a.getMessage)
	mux.HandleFunc("GET /messages/{messageID}/likes", a.getLikes)
	mux.HandleFunc("GET /state/current-id", a.getCurrentID)

	a.mux = mux
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.once.Do(a.setupRoutes)
	a.Logger.Info("Request received", "method", r.Method, "path", r.URL.Path)
	a.mux.ServeHTTP(w, r)
}

func (a *API) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.Logger.Error("Could not encode JSON body", "error", err.Error())
	}
}

func (a *API) respondError(w http.ResponseWriter, status int, err error, msg string) {
	type response struct {
		Error string `json:"error"`
	}
	a.Logger.Error("Error", "error", err.Error())
	a.respond(w, status, response{Error: msg})
}

// respondBoardError maps the core error taxonomy onto HTTP statuses.
// InvalidFunds responses carry the expected payment so the caller can
// reconstruct what was required.
func (a *API) respondBoardError(w http.ResponseWriter, err error) {
	var (
		funds     *board.InvalidFundsError
		noMessage *board.MessageNotFoundError
		noLikes   *board.LikesNotFoundError
	)
	switch {
	case errors.As(err, &funds):
		type response struct {
			Error          string `json:"error"`
			ExpectedDenom  string `json:"expected_denom"`
			ExpectedAmount string `json:"expected_amount"`
		}
		a.Logger.Error("Error", "error", err.Error())
		a.respond(w, http.StatusPaymentRequired, response{
			Error:          "Invalid funds",
			ExpectedDenom:  funds.ExpectedDenom,
			ExpectedAmount: funds.ExpectedAmount.String(),
		})
	case errors.Is(err, board.ErrInvalidMessageID):
		a.respondError(w, http.StatusNotFound, err, "No message with that id")
	case errors.As(err, &noMessage):
		a.respondError(w, http.StatusNotFound, err, "Message not found")
	case errors.As(err, &noLikes):
		a.respondError(w, http.StatusNotFound, err, "No likes recorded for that message")
	case errors.Is(err, board.ErrInvalidStipend):
		a.respondError(w, http.StatusBadRequest, err, "A named coin with an amount of at least 1 is required")
	case errors.Is(err, board.ErrAlreadyInitialized):
		a.respondError(w, http.StatusConflict, err, "Board is already initialized")
	case errors.Is(err, board.ErrNotInitialized):
		a.respondError(w, http.StatusServiceUnavailable, err, "Board is not initialized")
	default:
		a.respondError(w, http.StatusInternalServerError, err, "Internal error")
	}
}

func (a *API) validateBody(w http.ResponseWriter, s any) bool {
	errs := a.Val.Struct(s)
	type response struct {
		Errors []validator.FieldError `json:"errors"`
	}

	if len(errs) > 0 {
		a.respond(w, http.StatusBadRequest, &response{
			Errors: errs,
		})
		return false
	}
	return true
}

func (a *API) decodeBody(w http.ResponseWriter, r *http.Request, s any) bool {
	if err := json.NewDecoder(r.Body).Decode(s); err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not decode request body")
		return false
	}
	if err := r.Body.Close(); err != nil {
		a.respondError(w, http.StatusInternalServerError, err, "Could not close request body")
		return false
	}
	return a.validateBody(w, s)
}

// deposit books attached funds into the holding balance before the
// transition runs; refund returns them when the transition fails.
func (a *API) deposit(ctx context.Context, w http.ResponseWriter, funds []board.Coin) bool {
	for _, c := range funds {
		if err := a.Ledger.Deposit(ctx, c); err != nil {
			a.respondError(w, http.StatusInternalServerError, err, "Could not book attached funds")
			return false
		}
	}
	return true
}

func (a *API) refund(ctx context.Context, to string, funds []board.Coin) {
	for _, c := range funds {
		if err := a.Ledger.Send(ctx, to, c); err != nil {
			a.Logger.Error("Could not refund attached funds", "to", to, "coin", c.String(), "error", err.Error())
		}
	}
}

func (a *API) initialize(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			Denom  string `json:"denom" validate:"required"`
			Amount string `json:"amount" validate:"required"`
		}
		response struct {
			Denom  string `json:"denom"`
			Amount string `json:"amount"`
		}
	)

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	amount, err := board.ParseAmount(body.Amount)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not parse stipend amount")
		return
	}

	if err := a.Board.Initialize(r.Context(), board.Coin{Denom: body.Denom, Amount: amount}); err != nil {
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusCreated, response{Denom: body.Denom, Amount: amount.String()})
}

func (a *API) createMessage(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			Sender string `json:"sender" validate:"required"`
			Topic  string `json:"topic"`
			Body   string `json:"body"`
			Funds  []Coin `json:"funds"`
		}
		response struct {
			ID string `json:"id"`
		}
	)

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	funds, err := parseCoins(body.Funds)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not parse attached funds")
		return
	}

	if !a.deposit(r.Context(), w, funds) {
		return
	}

	res, err := a.Board.PostMessage(r.Context(), body.Sender, body.Topic, body.Body, funds)
	if err != nil {
		a.refund(r.Context(), body.Sender, funds)
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusCreated, response{ID: res.ID.String()})
}

func (a *API) createUnfundedMessage(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			Sender string `json:"sender" validate:"required"`
			Topic  string `json:"topic"`
			Body   string `json:"body"`
		}
		response struct {
			ID string `json:"id"`
		}
	)

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	res, err := a.Board.PostMessageUnfunded(r.Context(), body.Sender, body.Topic, body.Body)
	if err != nil {
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusCreated, response{ID: res.ID.String()})
}

func (a *API) createLike(w http.ResponseWriter, r *http.Request) {
	type (
		request struct {
			Sender string `json:"sender" validate:"required"`
			Funds  []Coin `json:"funds"`
		}
		response struct {
			MessageID string `json:"message_id"`
			Count     string `json:"count"`
			SentTo    string `json:"sent_to"`
		}
	)

	id, err := parseID(r.PathValue("messageID"))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not parse message id")
		return
	}

	var body request
	if !a.decodeBody(w, r, &body) {
		return
	}

	funds, err := parseCoins(body.Funds)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not parse attached funds")
		return
	}

	if !a.deposit(r.Context(), w, funds) {
		return
	}

	res, err := a.Board.LikeMessage(r.Context(), body.Sender, id, funds)
	if err != nil {
		a.refund(r.Context(), body.Sender, funds)
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusCreated, response{
		MessageID: res.MessageID.String(),
		Count:     res.Count.String(),
		SentTo:    res.Owner,
	})
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Messages []Message `json:"messages"`
	}

	var (
		owner = r.URL.Query().Get("owner")
		topic = r.URL.Query().Get("topic")
	)
	if owner != "" && topic != "" {
		a.respondError(w, http.StatusBadRequest, errors.New("conflicting filters"), "Filter by either owner or topic, not both")
		return
	}

	var (
		msgs []board.Message
		err  error
	)
	switch {
	case owner != "":
		msgs, err = a.Board.MessagesByOwner(r.Context(), owner)
	case topic != "":
		msgs, err = a.Board.MessagesByTopic(r.Context(), topic)
	default:
		msgs, err = a.Board.Messages(r.Context())
	}
	if err != nil {
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusOK, response{Messages: apiMessages(msgs)})
}

func (a *API) getMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("messageID"))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not parse message id")
		return
	}

	msg, err := a.Board.MessageByID(r.Context(), id)
	if err != nil {
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusOK, apiMessage(msg))
}

func (a *API) getLikes(w http.ResponseWriter, r *http.Request) {
	type response struct {
		MessageID string `json:"message_id"`
		Count     string `json:"count"`
	}

	id, err := parseID(r.PathValue("messageID"))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, err, "Could not parse message id")
		return
	}

	likes, err := a.Board.LikesByID(r.Context(), id)
	if err != nil {
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusOK, response{
		MessageID: likes.MessageID.String(),
		Count:     likes.Count.String(),
	})
}

func (a *API) getCurrentID(w http.ResponseWriter, r *http.Request) {
	type response struct {
		CurrentID string `json:"current_id"`
	}

	id, err := a.Board.CurrentID(r.Context())
	if err != nil {
		a.respondBoardError(w, err)
		return
	}

	a.respond(w, http.StatusOK, response{CurrentID: id.String()})
}
