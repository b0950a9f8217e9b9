package output_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bookingsync/internal/cmd/output"
	"github.com/agentstation/bookingsync/pkg/guestname"
	"github.com/agentstation/bookingsync/pkg/reconciler"
)

func sampleResult() *reconciler.Result {
	one, two := uint(1), uint(2)
	return &reconciler.Result{
		Summary: reconciler.Summary{TotalRows: 4, CreatedCount: 1, AutoUpdatedCount: 1, UnchangedCount: 1, ErrorCount: 1},
		Rows: []reconciler.RowResult{
			{RowNumber: 1, Outcome: reconciler.OutcomeCreated, BookingID: &one},
			{RowNumber: 2, Outcome: reconciler.OutcomeAutoApplied, BookingID: &two, ConflictTags: []string{"status_change"}, Message: "status-only update from platform"},
			{RowNumber: 3, Outcome: reconciler.OutcomeUnchanged, BookingID: &two},
			{RowNumber: 4, Outcome: reconciler.OutcomeError, Message: "row 4 (normalize): malformed"},
		},
		Metadata: reconciler.ResultMetadata{DryRun: true},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    output.Format
		wantErr bool
	}{
		{in: "json", want: output.FormatJSON},
		{in: " YAML ", want: output.FormatYAML},
		{in: "table", want: output.FormatTable},
		{in: "", want: ""},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := output.ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, output.FormatYAML, output.DetectFormat("YAML"))
}

func TestRowsTableSkipsUnchanged(t *testing.T) {
	data := output.RowsTable(sampleResult())

	require.Len(t, data.Rows, 3)
	assert.Equal(t, []string{"2", "auto_applied", "2", "status_change", "status-only update from platform"}, data.Rows[1])
	assert.Equal(t, "-", data.Rows[2][2])
}

func TestSummaryTable(t *testing.T) {
	data := output.SummaryTable(sampleResult())
	assert.Equal(t, "Import summary (dry run)", data.Title)
	assert.Equal(t, []string{"4", "1", "1", "1", "0", "1"}, data.Rows[0])
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatTable).Format(&buf, output.ResultTables(sampleResult())))

	out := buf.String()
	assert.Contains(t, out, "Import summary (dry run)")
	assert.Contains(t, out, "auto_applied")
	assert.NotContains(t, out, "unchanged")
}

func TestTableFormatterStruct(t *testing.T) {
	var buf bytes.Buffer
	analysis := guestname.Classify("Kathrin Müller", "Kathrin Muller")
	require.NoError(t, output.NewFormatter(output.FormatTable).Format(&buf, analysis))
	assert.Contains(t, buf.String(), "diacritics_only")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatJSON).Format(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), summary["total_rows"])
	assert.Equal(t, float64(1), summary["error_count"])
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.NewFormatter(output.FormatYAML).Format(&buf, sampleResult().Summary))

	assert.Contains(t, buf.String(), "total_rows: 4")
	assert.Contains(t, buf.String(), "requires_review_count: 0")
}

func TestAnalysisTable(t *testing.T) {
	a := guestname.Classify("José García", "Jose Garcia")
	data := output.AnalysisTable("José García", "Jose Garcia", a)
	assert.Contains(t, data.Rows, []string{"Classification", "diacritics_only"})
	assert.Contains(t, data.Rows, []string{"Cosmetic", "true"})
}
