package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/interest"
	"bankapi/internal/domain/ledger"
	"bankapi/internal/domain/statement"
	"bankapi/internal/infrastructure/badgerstore"
	"bankapi/internal/infrastructure/pdf"
	"bankapi/internal/shared/validation"
)

// newTestMux wires real services over an in-memory store behind the
// same paths the API serves.
func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()

	db, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var mu sync.Mutex
	tick := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	accounts := badgerstore.NewAccountRepository(db)
	txs := badgerstore.NewTransactionRepository(db)
	log := zap.NewNop()

	accountService := account.NewService(accounts, badgerstore.NewSequenceRepository(db), validation.New()).WithClock(clock)
	ledgerService := ledger.NewService(badgerstore.NewLedgerStore(db), accounts, txs).WithClock(clock)
	statementService := statement.NewService(accounts, txs).WithClock(clock)

	accountHandler := NewAccountHandler(accountService, log)
	transactionHandler := NewTransactionHandler(ledgerService, log)
	reportHandler := NewReportHandler(statementService, interest.NewService(accounts), pdf.NewRenderer("Test Bank"), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/accounts", accountHandler.HandleAccounts)
	mux.HandleFunc("/accounts/{id}", accountHandler.HandleAccountByID)
	mux.HandleFunc("/accounts/block/{id}", accountHandler.HandleBlock)
	mux.HandleFunc("/accounts/close/{id}", accountHandler.HandleClose)
	mux.HandleFunc("/accounts/deposit", transactionHandler.HandleDeposit)
	mux.HandleFunc("/accounts/withdraw", transactionHandler.HandleWithdraw)
	mux.HandleFunc("/accounts/transactions/{id}/{$}", transactionHandler.HandleHistory)
	mux.HandleFunc("/accounts/statement/{id}", reportHandler.HandleStatement)
	mux.HandleFunc("/accounts/statement/pdf/{id}", reportHandler.HandleStatementPDF)
	mux.HandleFunc("/accounts/interest/{id}", reportHandler.HandleInterest)
	mux.HandleFunc("/health", HandleHealth)
	mux.HandleFunc("/", HandleNotFound)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func createAccount(t *testing.T, mux http.Handler, body string) int64 {
	t.Helper()
	rr := do(t, mux, http.MethodPost, "/accounts", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return int64(decode(t, rr)["id"].(float64))
}

func TestHandleCreateAccount(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMsg    string
	}{
		{"valid", `{"name":"Jane","balance":100.5,"no_of_months":12}`, http.StatusCreated, ""},
		{"balance as string", `{"name":"Jane","balance":"42"}`, http.StatusCreated, ""},
		{"missing balance", `{"name":"Jane"}`, http.StatusBadRequest, "Missing required fields: name and balance"},
		{"missing name", `{"balance":1}`, http.StatusBadRequest, "Missing required fields: name and balance"},
		{"null name", `{"name":null,"balance":1}`, http.StatusBadRequest, "Missing required fields: name and balance"},
		{"bad balance", `{"name":"Jane","balance":"abc"}`, http.StatusBadRequest, "Invalid balance format"},
		{"negative balance", `{"name":"Jane","balance":-5}`, http.StatusBadRequest, "Balance cannot be negative"},
		{"tiny negative balance", `{"name":"Jane","balance":-1e-400}`, http.StatusBadRequest, "Balance cannot be negative"},
		{"sub-cent balance", `{"name":"Jane","balance":0.001}`, http.StatusBadRequest, "Balance must have at most 2 decimal places"},
		{"negative term", `{"name":"Jane","balance":5,"no_of_months":-1}`, http.StatusBadRequest, "no_of_months must be a non-negative integer"},
		{"fractional term", `{"name":"Jane","balance":5,"no_of_months":1.5}`, http.StatusBadRequest, "no_of_months must be a non-negative integer"},
		{"string term", `{"name":"Jane","balance":5,"no_of_months":"3"}`, http.StatusBadRequest, "no_of_months must be a non-negative integer"},
		{"not json", `nope`, http.StatusBadRequest, msgInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(t)
			rr := do(t, mux, http.MethodPost, "/accounts", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, decode(t, rr)["message"])
			}
		})
	}
}

func TestHandleCreateAccount_Response(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, "/accounts", `{"name":"Jane","balance":10.005}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	got := decode(t, rr)
	assert.Equal(t, float64(1), got["id"])
	assert.Equal(t, "Jane", got["name"])
	assert.Equal(t, 10.01, got["balance"])
	assert.Equal(t, "Active", got["status"])
	assert.Equal(t, float64(0), got["no_of_months"])
	assert.Equal(t, account.DefaultAddress, got["address"])

	id := createAccount(t, mux, `{"name":"John","balance":0}`)
	assert.Equal(t, int64(2), id)

	// Creation logs nothing.
	rr = do(t, mux, http.MethodGet, "/accounts/transactions/1/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestHandleListAccounts(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodGet, "/accounts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	createAccount(t, mux, `{"name":"A","balance":1}`)
	createAccount(t, mux, `{"name":"B","balance":2}`)

	rr = do(t, mux, http.MethodGet, "/accounts", "")
	var list []AccountResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestHandleAccountByID(t *testing.T) {
	mux := newTestMux(t)
	createAccount(t, mux, `{"name":"Jane","balance":0,"address":"1 Road"}`)

	t.Run("get", func(t *testing.T) {
		rr := do(t, mux, http.MethodGet, "/accounts/1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "1 Road", decode(t, rr)["address"])
	})

	t.Run("get missing", func(t *testing.T) {
		rr := do(t, mux, http.MethodGet, "/accounts/99", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Account with id 99 not found", decode(t, rr)["message"])
	})

	t.Run("non numeric id", func(t *testing.T) {
		rr := do(t, mux, http.MethodGet, "/accounts/abc", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, msgNotFoundURL, decode(t, rr)["message"])
	})

	t.Run("method not allowed", func(t *testing.T) {
		rr := do(t, mux, http.MethodPatch, "/accounts/1", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
		assert.Equal(t, msgMethodNotAllowed, decode(t, rr)["message"])
	})

	t.Run("update", func(t *testing.T) {
		rr := do(t, mux, http.MethodPut, "/accounts/1", `{"name":"Janet","no_of_months":6}`)
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode(t, rr)
		assert.Equal(t, "Janet", got["name"])
		assert.Equal(t, float64(6), got["no_of_months"])
		assert.Equal(t, "1 Road", got["address"])
	})

	t.Run("update then get", func(t *testing.T) {
		rr := do(t, mux, http.MethodPut, "/accounts/1", `{"no_of_months":9,"address":"22 Lane"}`)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		got := decode(t, do(t, mux, http.MethodGet, "/accounts/1", ""))
		assert.Equal(t, float64(9), got["no_of_months"])
		assert.Equal(t, "22 Lane", got["address"])
		assert.Equal(t, "Janet", got["name"])
	})

	t.Run("update rejects", func(t *testing.T) {
		cases := map[string]string{
			`{}`:                        "No valid fields provided for update (valid fields: name, no_of_months, address)",
			`{"balance":5}`:             "No valid fields provided for update (valid fields: name, no_of_months, address)",
			`{"name":""}`:               "Name cannot be empty",
			`{"address":""}`:            "Address cannot be empty",
			`{"no_of_months":-2}`:       "no_of_months must be a non-negative integer",
			`{"no_of_months":"x"}`:      "no_of_months must be a non-negative integer",
			`{"name":"A","address":""}`: "Address cannot be empty",
			`{"name":null}`:             "Name cannot be empty",
			`{"address":null}`:          "Address cannot be empty",
		}
		for body, msg := range cases {
			rr := do(t, mux, http.MethodPut, "/accounts/1", body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
			assert.Equal(t, msg, decode(t, rr)["message"], body)
		}

		// All-or-nothing: the rejected name change above was not applied.
		rr := do(t, mux, http.MethodGet, "/accounts/1", "")
		assert.Equal(t, "Janet", decode(t, rr)["name"])
	})

	t.Run("update missing", func(t *testing.T) {
		rr := do(t, mux, http.MethodPut, "/accounts/42", `{"name":"X"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rr := do(t, mux, http.MethodDelete, "/accounts/1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Account with id 1 and all related transactions deleted", decode(t, rr)["message"])

		rr = do(t, mux, http.MethodGet, "/accounts/1", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleDeleteAccount_NonZeroBalance(t *testing.T) {
	mux := newTestMux(t)
	createAccount(t, mux, `{"name":"Jane","balance":12.35}`)

	rr := do(t, mux, http.MethodDelete, "/accounts/1", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	got := decode(t, rr)
	assert.Equal(t, "Account must have a zero balance before deletion.", got["message"])
	assert.Equal(t, 12.35, got["current_balance"])

	rr = do(t, mux, http.MethodDelete, "/accounts/7", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleBlockAndClose(t *testing.T) {
	mux := newTestMux(t)
	createAccount(t, mux, `{"name":"Jane","balance":0}`)
	createAccount(t, mux, `{"name":"Rich","balance":10}`)

	rr := do(t, mux, http.MethodPut, "/accounts/block/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Blocked", decode(t, rr)["status"])

	rr = do(t, mux, http.MethodPut, "/accounts/block/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"message": "Account with id 1 is already Blocked"}, decode(t, rr))

	rr = do(t, mux, http.MethodPut, "/accounts/close/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Closed", decode(t, rr)["status"])

	rr = do(t, mux, http.MethodPut, "/accounts/close/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Account with id 1 is already Closed", decode(t, rr)["message"])

	rr = do(t, mux, http.MethodPut, "/accounts/block/1", "")
	assert.Equal(t, "Account with id 1 is already Closed", decode(t, rr)["message"])

	rr = do(t, mux, http.MethodPut, "/accounts/close/2", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	got := decode(t, rr)
	assert.Equal(t, "Account must have a zero balance before closing.", got["message"])
	assert.Equal(t, float64(10), got["current_balance"])

	rr = do(t, mux, http.MethodPut, "/accounts/block/9", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(t, mux, http.MethodPut, "/accounts/close/9", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, mux, http.MethodGet, "/accounts/block/1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleHealthAndNotFound(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(t, mux, http.MethodGet, "/nowhere/at/all", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"Resource not found on this URL"}`, rr.Body.String())
}
