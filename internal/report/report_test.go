package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"expense-tracker-bot-go/internal/models"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func strPtr(s string) *string { return &s }

func TestFormatList(t *testing.T) {
	rows := []models.RecentTransaction{
		{Id: 3, Category: "food", Amount: decimal.NewFromInt(250), Date: day(2025, time.January, 15), Description: strPtr("lunch")},
		{Id: 2, Category: "fuel", Amount: decimal.RequireFromString("99.5"), Date: day(2025, time.January, 14)},
	}

	want := "2025-01-15 | food | 250.00 | lunch (id:3)\n" +
		"2025-01-14 | fuel | 99.50 |  (id:2)"
	if got := FormatList(rows); got != want {
		t.Errorf("FormatList mismatch:\n got %q\nwant %q", got, want)
	}

	if got := FormatList(nil); got != EmptyList {
		t.Errorf("Expected %q for no rows, got %q", EmptyList, got)
	}
}

func TestFormatSummary_SortedByCategory(t *testing.T) {
	totals := []models.CategoryTotal{
		{Category: "rent", Total: decimal.NewFromInt(12000)},
		{Category: "food", Total: decimal.RequireFromString("150.5")},
		{Category: "emi", Total: decimal.NewFromInt(5000)},
	}

	want := "Summary:\nemi : 5000.00\nfood : 150.50\nrent : 12000.00"
	if got := FormatSummary(totals); got != want {
		t.Errorf("FormatSummary mismatch:\n got %q\nwant %q", got, want)
	}
	if totals[0].Category != "rent" {
		t.Error("FormatSummary must not reorder the caller's slice")
	}

	if got := FormatSummary(nil); got != EmptySummary {
		t.Errorf("Expected %q, got %q", EmptySummary, got)
	}
}

func TestExportCSV(t *testing.T) {
	rows := []models.Transaction{
		{Id: 1, Category: "food", Amount: decimal.NewFromInt(80), Currency: "INR", Date: day(2025, time.January, 5), Description: strPtr(`said "hi", paid`)},
		{Id: 4, Category: "travel", Amount: decimal.RequireFromString("1200.5"), Currency: "USD", Date: day(2025, time.January, 20)},
	}

	data, err := ExportCSV(rows)
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}

	want := "id,date,category,amount,currency,description\n" +
		`1,2025-01-05,food,80.00,INR,"said ""hi"", paid"` + "\n" +
		`4,2025-01-20,travel,1200.50,USD,""`
	if string(data) != want {
		t.Errorf("ExportCSV mismatch:\n got %q\nwant %q", string(data), want)
	}
}

func TestExportCSV_NoData(t *testing.T) {
	data, err := ExportCSV([]models.Transaction{})
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("Expected ErrNoData, got %v", err)
	}
	if data != nil {
		t.Errorf("Expected no file content, got %q", data)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, Console{
		UserId: 42,
		Period: "month",
		Totals: []models.CategoryTotal{
			{Category: "fuel", Total: decimal.NewFromInt(500)},
			{Category: "food", Total: decimal.NewFromInt(150)},
		},
		Recent: []models.RecentTransaction{
			{Id: 9, Category: "fuel", Amount: decimal.NewFromInt(500), Date: day(2025, time.March, 5)},
		},
	})

	out := buf.String()
	for _, want := range []string{
		"EXPENSE REPORT: user 42 (month)",
		"food",
		"500.00",
		"#9",
		"2025-03-05",
		"Total: 650.00 across 2 categories",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "food") > strings.Index(out, "fuel") {
		t.Error("Expected categories in alphabetical order")
	}
}

func TestPrintReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, Console{UserId: 1, Period: "all"})

	out := buf.String()
	if !strings.Contains(out, EmptySummary) || !strings.Contains(out, EmptyList) {
		t.Errorf("Expected empty markers in report:\n%s", out)
	}
}
