package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/ledger"
	"bankapi/internal/domain/transaction"
)

// TransactionHandler serves deposits, withdrawals and transaction history.
type TransactionHandler struct {
	ledgerService *ledger.Service
	log           *zap.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledgerService *ledger.Service, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{ledgerService: ledgerService, log: log}
}

type movementRequest struct {
	ID     json.RawMessage `json:"id"`
	Amount json.RawMessage `json:"amount"`
}

// TransactionResponse is the wire form of a logged transaction.
type TransactionResponse struct {
	ID        string  `json:"id"`
	AccountID int64   `json:"account_id"`
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
}

func toTransactionResponse(t *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:        t.ID,
		AccountID: t.AccountID,
		Type:      string(t.Type),
		Amount:    money(t.Amount),
		Timestamp: t.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// HandleDeposit handles POST /accounts/deposit.
func (h *TransactionHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, h.ledgerService.Deposit)
}

// HandleWithdraw handles POST /accounts/withdraw.
func (h *TransactionHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.handleMovement(w, r, h.ledgerService.Withdraw)
}

type movementFunc func(ctx context.Context, accountID int64, amount decimal.Decimal) (*account.Account, error)

func (h *TransactionHandler) handleMovement(w http.ResponseWriter, r *http.Request, fn movementFunc) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req movementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !present(req.ID) || !present(req.Amount) {
		writeMessage(w, http.StatusBadRequest, "Missing required fields: id and amount")
		return
	}

	id, err := parseInt(req.ID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id or amount format")
		return
	}
	amount, err := parseDecimal(req.Amount)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid id or amount format")
		return
	}

	acc, err := fn(r.Context(), id, amount)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acc))
}

// HandleHistory handles GET /accounts/transactions/{id}/.
func (h *TransactionHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	txs, err := h.ledgerService.History(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	response := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		response = append(response, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, response)
}
