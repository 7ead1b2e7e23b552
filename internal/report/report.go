// Package report renders stored transactions for chat replies, CSV export
// and the operator console.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"expense-tracker-bot-go/internal/common"
	"expense-tracker-bot-go/internal/models"
	"expense-tracker-bot-go/internal/normalize"

	"github.com/shopspring/decimal"
)

const (
	EmptyList    = "No transactions yet."
	EmptySummary = "No transactions for the selected period."
	NoDataReply  = "No data to export."

	CSVHeader   = "id,date,category,amount,currency,description"
	CSVFilename = "expenses.csv"
)

// ErrNoData is returned by ExportCSV when there is nothing to export.
var ErrNoData = errors.New("no data to export")

// FormatAmount renders amounts with two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatList renders one line per transaction, in the order given.
func FormatList(rows []models.RecentTransaction) string {
	if len(rows) == 0 {
		return EmptyList
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		description := ""
		if r.Description != nil {
			description = *r.Description
		}
		lines = append(lines, fmt.Sprintf("%s | %s | %s | %s (id:%d)",
			normalize.FormatDate(r.Date), r.Category, FormatAmount(r.Amount), description, r.Id))
	}
	return strings.Join(lines, "\n")
}

// FormatSummary renders per-category totals sorted by category name.
func FormatSummary(totals []models.CategoryTotal) string {
	if len(totals) == 0 {
		return EmptySummary
	}

	sorted := sortedTotals(totals)
	var b strings.Builder
	b.WriteString("Summary:")
	for _, t := range sorted {
		fmt.Fprintf(&b, "\n%s : %s", t.Category, FormatAmount(t.Total))
	}
	return b.String()
}

// ExportCSV renders the export file. The description column is always quoted;
// the other columns are written as is.
func ExportCSV(rows []models.Transaction) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	var b strings.Builder
	b.WriteString(CSVHeader)
	for _, r := range rows {
		b.WriteByte('\n')
		b.WriteString(strings.Join([]string{
			strconv.FormatInt(r.Id, 10),
			normalize.FormatDate(r.Date),
			r.Category,
			FormatAmount(r.Amount),
			r.Currency,
			quote(r.DescriptionOrEmpty()),
		}, ","))
	}
	return []byte(b.String()), nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sortedTotals(totals []models.CategoryTotal) []models.CategoryTotal {
	sorted := make([]models.CategoryTotal, len(totals))
	copy(sorted, totals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Category < sorted[j].Category })
	return sorted
}

// Console is the operator view of one user's activity.
type Console struct {
	UserId int64
	Period string
	Totals []models.CategoryTotal
	Recent []models.RecentTransaction
}

// PrintReport writes the console view to w.
func PrintReport(w io.Writer, c Console) {
	common.PrintHeader(w, fmt.Sprintf("EXPENSE REPORT: user %d (%s)", c.UserId, c.Period), common.DefaultWidth)

	fmt.Fprintln(w, "Totals by category")
	common.PrintBoxSeparator(w, common.DefaultWidth-1)
	if len(c.Totals) == 0 {
		fmt.Fprintln(w, common.BoxPrefix(true)+EmptySummary)
	}
	grand := decimal.Zero
	sorted := sortedTotals(c.Totals)
	for i, t := range sorted {
		grand = grand.Add(t.Total)
		fmt.Fprintf(w, "%s%-30s %15s\n", common.BoxPrefix(i == len(sorted)-1), t.Category, FormatAmount(t.Total))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent transactions")
	common.PrintBoxSeparator(w, common.DefaultWidth-1)
	if len(c.Recent) == 0 {
		fmt.Fprintln(w, common.BoxPrefix(true)+EmptyList)
	}
	for i, r := range c.Recent {
		description := ""
		if r.Description != nil {
			description = *r.Description
		}
		fmt.Fprintf(w, "%s#%-6d %s  %-20s %12s  %s\n", common.BoxPrefix(i == len(c.Recent)-1),
			r.Id, normalize.FormatDate(r.Date), r.Category, FormatAmount(r.Amount), description)
	}

	common.PrintFooter(w, fmt.Sprintf("Total: %s across %d categories", FormatAmount(grand), len(c.Totals)), common.DefaultWidth)
}
