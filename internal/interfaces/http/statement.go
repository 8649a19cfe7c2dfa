package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"bankapi/internal/domain/interest"
	"bankapi/internal/domain/statement"
	"bankapi/internal/infrastructure/pdf"
)

const statementDateLayout = "2006-01-02T15:04:05-0700"

// ReportHandler serves statements and interest quotes.
type ReportHandler struct {
	statementService *statement.Service
	interestService  *interest.Service
	renderer         *pdf.Renderer
	log              *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(statements *statement.Service, interests *interest.Service, renderer *pdf.Renderer, log *zap.Logger) *ReportHandler {
	return &ReportHandler{
		statementService: statements,
		interestService:  interests,
		renderer:         renderer,
		log:              log,
	}
}

type statementLine struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	Timestamp      string  `json:"timestamp"`
	RunningBalance float64 `json:"running_balance"`
}

// StatementResponse is the wire form of a statement.
type StatementResponse struct {
	AccountID      int64           `json:"account_id"`
	AccountHolder  string          `json:"account_holder"`
	OpeningBalance float64         `json:"opening_balance"`
	ClosingBalance float64         `json:"closing_balance"`
	StatementDate  string          `json:"statement_date"`
	Transactions   []statementLine `json:"transactions"`
}

func toStatementResponse(st *statement.Statement) StatementResponse {
	lines := make([]statementLine, 0, len(st.Lines))
	for _, l := range st.Lines {
		lines = append(lines, statementLine{
			ID:             l.ID,
			Type:           string(l.Type),
			Amount:         money(l.Amount),
			Timestamp:      l.Timestamp.UTC().Format(time.RFC3339Nano),
			RunningBalance: money(l.RunningBalance),
		})
	}
	return StatementResponse{
		AccountID:      st.AccountID,
		AccountHolder:  st.AccountHolder,
		OpeningBalance: money(st.OpeningBalance),
		ClosingBalance: money(st.ClosingBalance),
		StatementDate:  st.GeneratedAt.UTC().Format(statementDateLayout),
		Transactions:   lines,
	}
}

// HandleStatement handles GET /accounts/statement/{id}.
func (h *ReportHandler) HandleStatement(w http.ResponseWriter, r *http.Request) {
	st, ok := h.buildStatement(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStatementResponse(st))
}

// HandleStatementPDF handles GET /accounts/statement/pdf/{id}. The document
// is rendered fully before any byte is written so a failure still yields a
// JSON error.
func (h *ReportHandler) HandleStatementPDF(w http.ResponseWriter, r *http.Request) {
	st, ok := h.buildStatement(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, st); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=%s", pdf.Filename(st.AccountID, st.GeneratedAt)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (h *ReportHandler) buildStatement(w http.ResponseWriter, r *http.Request) (*statement.Statement, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return nil, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	st, err := h.statementService.Build(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return nil, false
	}
	return st, true
}

// InterestResponse is the wire form of an interest quote.
type InterestResponse struct {
	AccountID           int64   `json:"account_id"`
	CurrentBalance      float64 `json:"current_balance"`
	NoOfMonths          int     `json:"no_of_months"`
	AnnualInterestRate  string  `json:"annual_interest_rate"`
	MonthlyInterestRate float64 `json:"monthly_interest_rate"`
	CalculatedInterest  float64 `json:"calculated_interest_amount"`
}

// HandleInterest handles GET /accounts/interest/{id}.
func (h *ReportHandler) HandleInterest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	q, err := h.interestService.Quote(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, InterestResponse{
		AccountID:           q.AccountID,
		CurrentBalance:      money(q.Balance),
		NoOfMonths:          q.NoOfMonths,
		AnnualInterestRate:  q.AnnualRate.Shift(2).StringFixed(1) + "%",
		MonthlyInterestRate: q.MonthlyRate.Shift(2).Round(4).InexactFloat64(),
		CalculatedInterest:  money(q.Interest),
	})
}
