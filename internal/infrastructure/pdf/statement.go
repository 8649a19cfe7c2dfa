// Package pdf renders printable account statements.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"bankapi/internal/domain/statement"
	"bankapi/internal/domain/transaction"
)

// Layout in points on a Letter page, measured from the bottom edge.
const (
	pageHeight = 792.0

	xStart      = 50.0
	yStart      = 750.0
	yStep       = 14.0
	yBottom     = 50.0
	ruleWidth   = 500.0
	headerFirst = yStart - yStep*8
)

var columns = [...]struct {
	offset float64
	title  string
}{
	{0, "Date/Time"},
	{150, "Type"},
	{250, "Amount ($)"},
	{400, "Running Balance ($)"},
}

// Renderer draws statements as PDF documents.
type Renderer struct {
	bankName string
}

func NewRenderer(bankName string) *Renderer {
	return &Renderer{bankName: bankName}
}

// Filename is the attachment name offered for a statement generated at.
func Filename(accountID int64, at time.Time) string {
	return fmt.Sprintf("statement_%d_%s.pdf", accountID, at.UTC().Format("20060102"))
}

// Render writes st as a PDF to w.
func (r *Renderer) Render(w io.Writer, st *statement.Statement) error {
	doc := r.draw(st)
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("failed to render statement pdf: %w", err)
	}
	return nil
}

func (r *Renderer) draw(st *statement.Statement) *fpdf.Fpdf {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetTitle(fmt.Sprintf("Account Statement %d", st.AccountID), true)
	doc.SetCreationDate(st.GeneratedAt)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	// text places s with its baseline y points above the bottom edge.
	text := func(x, y float64, s string) {
		doc.Text(x, pageHeight-y, tr(s))
	}

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 16)
	text(xStart, yStart, r.bankName)
	text(xStart, yStart-yStep*2, "Account Statement")

	doc.SetFont("Helvetica", "", 10)
	text(xStart, yStart-yStep*3, fmt.Sprintf("Account Holder: %s (ID: %d)", st.AccountHolder, st.AccountID))
	text(xStart, yStart-yStep*4, "Statement Date: "+st.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	text(xStart, yStart-yStep*5, "Opening Balance: $"+st.OpeningBalance.StringFixed(2))
	text(xStart, yStart-yStep*6, "Closing Balance: $"+st.ClosingBalance.StringFixed(2))

	header := func(y float64) {
		doc.SetFont("Helvetica", "B", 10)
		for _, c := range columns {
			text(xStart+c.offset, y, c.title)
		}
		doc.Line(xStart, pageHeight-(y-2), xStart+ruleWidth, pageHeight-(y-2))
		doc.SetFont("Helvetica", "", 9)
	}

	firstRows, restRows := rowsPerPage()
	header(headerFirst)
	y := headerFirst - yStep*2
	room := firstRows
	for _, line := range st.Lines {
		if room == 0 {
			doc.AddPage()
			header(yStart)
			y = yStart - yStep*2
			room = restRows
		}
		room--

		amount := line.Amount.StringFixed(2)
		if line.Type == transaction.TypeWithdrawal {
			amount = "-" + amount
		}
		text(xStart+columns[0].offset, y, line.Timestamp.UTC().Format("2006-01-02 15:04:05"))
		text(xStart+columns[1].offset, y, string(line.Type))
		text(xStart+columns[2].offset, y, amount)
		text(xStart+columns[3].offset, y, line.RunningBalance.StringFixed(2))
		y -= yStep
	}

	return doc
}

// rowsPerPage reports how many transaction rows fit on the first and on
// each following page.
func rowsPerPage() (first, rest int) {
	fit := func(top float64) int {
		return int((top-yBottom)/yStep) + 1
	}
	return fit(headerFirst - yStep*2), fit(yStart - yStep*2)
}
