package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bankapi/internal/domain/account"
)

// AccountHandler serves the account lifecycle endpoints.
type AccountHandler struct {
	accountService *account.Service
	log            *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *account.Service, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accountService: accountService, log: log}
}

var errNotInteger = errors.New("not an integer literal")

// Request bodies keep raw members so absent, null and malformed values can
// be told apart.
type createAccountRequest struct {
	Name       json.RawMessage `json:"name"`
	Balance    json.RawMessage `json:"balance"`
	NoOfMonths json.RawMessage `json:"no_of_months"`
	Address    json.RawMessage `json:"address"`
}

type updateAccountRequest struct {
	Name       json.RawMessage `json:"name"`
	NoOfMonths json.RawMessage `json:"no_of_months"`
	Address    json.RawMessage `json:"address"`
}

// AccountResponse is the wire form of an account.
type AccountResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Balance    float64 `json:"balance"`
	Status     string  `json:"status"`
	NoOfMonths int     `json:"no_of_months"`
	Address    string  `json:"address"`
	CreatedAt  string  `json:"created_at"`
}

func toAccountResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:         acc.ID,
		Name:       acc.Name,
		Balance:    money(acc.Balance),
		Status:     string(acc.Status),
		NoOfMonths: acc.NoOfMonths,
		Address:    acc.Address,
		CreatedAt:  acc.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// HandleAccounts handles GET (list) and POST (create) on /accounts.
func (h *AccountHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListAccounts(w, r)
	case http.MethodPost:
		h.handleCreateAccount(w, r)
	default:
		methodNotAllowed(w)
	}
}

// HandleAccountByID handles GET, PUT and DELETE on /accounts/{id}.
func (h *AccountHandler) HandleAccountByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGetAccount(w, r, id)
	case http.MethodPut:
		h.handleUpdateAccount(w, r, id)
	case http.MethodDelete:
		h.handleDeleteAccount(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (h *AccountHandler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		response = append(response, toAccountResponse(acc))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *AccountHandler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var params account.CreateParams
	if present(req.Name) {
		var name string
		if err := json.Unmarshal(req.Name, &name); err != nil {
			writeMessage(w, http.StatusBadRequest, "Name must be a string")
			return
		}
		params.Name = &name
	}
	if present(req.Balance) {
		balance, err := parseDecimal(req.Balance)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid balance format")
			return
		}
		params.Balance = &balance
	}
	if present(req.NoOfMonths) {
		months, err := strictInt(req.NoOfMonths)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "no_of_months must be a non-negative integer")
			return
		}
		params.NoOfMonths = &months
	}
	if present(req.Address) {
		var address string
		if err := json.Unmarshal(req.Address, &address); err != nil {
			writeMessage(w, http.StatusBadRequest, "Address must be a string")
			return
		}
		params.Address = &address
	}

	acc, err := h.accountService.CreateAccount(r.Context(), params)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.log.Info("account created", zap.Int64("account_id", acc.ID))
	writeJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (h *AccountHandler) handleGetAccount(w http.ResponseWriter, r *http.Request, id int64) {
	acc, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *AccountHandler) handleUpdateAccount(w http.ResponseWriter, r *http.Request, id int64) {
	var req updateAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var params account.UpdateParams
	// An explicit null name or address is a request to blank it, which is
	// rejected as empty.
	if supplied(req.Name) {
		var name string
		if err := json.Unmarshal(req.Name, &name); err != nil {
			writeMessage(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		params.Name = &name
	}
	if present(req.NoOfMonths) {
		months, err := strictInt(req.NoOfMonths)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "no_of_months must be a non-negative integer")
			return
		}
		params.NoOfMonths = &months
	}
	if supplied(req.Address) {
		var address string
		if err := json.Unmarshal(req.Address, &address); err != nil {
			writeMessage(w, http.StatusBadRequest, "Address cannot be empty")
			return
		}
		params.Address = &address
	}

	acc, err := h.accountService.UpdateAccount(r.Context(), id, params)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (h *AccountHandler) handleDeleteAccount(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.accountService.DeleteAccount(r.Context(), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.log.Info("account deleted", zap.Int64("account_id", id))
	writeMessage(w, http.StatusOK, fmt.Sprintf("Account with id %d and all related transactions deleted", id))
}

// HandleBlock handles PUT /accounts/block/{id}.
func (h *AccountHandler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.accountService.BlockAccount)
}

// HandleClose handles PUT /accounts/close/{id}.
func (h *AccountHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.accountService.CloseAccount)
}

type transitionFunc func(ctx context.Context, id int64) (*account.TransitionResult, error)

func (h *AccountHandler) handleTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if !res.Changed {
		writeMessage(w, http.StatusOK, res.Notice)
		return
	}

	h.log.Info("account status changed",
		zap.Int64("account_id", id),
		zap.String("status", string(res.Account.Status)),
	)
	writeJSON(w, http.StatusOK, toAccountResponse(res.Account))
}

// strictInt accepts only a JSON integer literal.
func strictInt(raw json.RawMessage) (int, error) {
	if len(raw) > 0 && raw[0] == '"' {
		return 0, errNotInteger
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	i, err := n.Int64()
	if err != nil {
		return 0, err
	}
	return int(i), nil
}
