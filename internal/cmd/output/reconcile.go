package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/bookingsync/pkg/guestname"
	"github.com/agentstation/bookingsync/pkg/reconciler"
)

// SummaryTable renders the run counters.
func SummaryTable(result *reconciler.Result) Data {
	s := result.Summary
	title := "Import summary"
	if result.Metadata.DryRun {
		title += " (dry run)"
	}
	return Data{
		Title:   title,
		Headers: []string{"Total", "Created", "Auto-updated", "Unchanged", "Review", "Errors"},
		Rows: [][]string{{
			strconv.Itoa(s.TotalRows),
			strconv.Itoa(s.CreatedCount),
			strconv.Itoa(s.AutoUpdatedCount),
			strconv.Itoa(s.UnchangedCount),
			strconv.Itoa(s.RequiresReviewCount),
			strconv.Itoa(s.ErrorCount),
		}},
		ColumnAlignment: []Align{AlignRight, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	}
}

// RowsTable lists every row that did something other than stay unchanged.
func RowsTable(result *reconciler.Result) Data {
	data := Data{
		Title:           "Rows",
		Headers:         []string{"Row", "Outcome", "Booking", "Conflicts", "Detail"},
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignRight, AlignLeft, AlignLeft},
	}
	for _, row := range result.Rows {
		if row.Outcome == reconciler.OutcomeUnchanged {
			continue
		}
		booking := "-"
		if row.BookingID != nil {
			booking = strconv.FormatUint(uint64(*row.BookingID), 10)
		}
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(row.RowNumber),
			string(row.Outcome),
			booking,
			strings.Join(row.ConflictTags, ", "),
			row.Message,
		})
	}
	return data
}

// ResultTables is the table rendering of a run.
func ResultTables(result *reconciler.Result) []Data {
	tables := []Data{SummaryTable(result)}
	if rows := RowsTable(result); len(rows.Rows) > 0 {
		tables = append(tables, rows)
	}
	return tables
}

// AnalysisTable renders a guest name comparison.
func AnalysisTable(existing, incoming string, a guestname.Analysis) Data {
	return Data{
		Headers: []string{"Field", "Value"},
		Rows: [][]string{
			{"Existing", existing},
			{"Incoming", incoming},
			{"Classification", string(a.Classification)},
			{"Description", a.Description},
			{"Likely encoding issue", strconv.FormatBool(a.LikelyEncodingIssue)},
			{"Edit distance", strconv.Itoa(a.Distance)},
			{"Preferred", a.Preferred},
			{"Cosmetic", fmt.Sprint(a.IsCosmetic())},
		},
	}
}
