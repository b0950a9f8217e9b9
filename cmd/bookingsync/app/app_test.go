package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/bookingsync/pkg/errors"
	"github.com/agentstation/bookingsync/pkg/logging"
	"github.com/agentstation/bookingsync/pkg/store/gormstore"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Database: gormstore.Config{
			Driver: gormstore.DriverSQLite,
			DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
		},
		Timezone:               "UTC",
		DefaultSource:          "Direct",
		Actor:                  "tester",
		AutoApplyCosmeticNames: true,
		LogFormat:              "json",
		LogOutput:              "discard",
	}
}

func newTestApp(t *testing.T, cfg *Config) *App {
	t.Helper()
	a, err := New("1.2.3", "abc123", "2025-01-01", "test", WithConfig(cfg), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

// run executes the CLI and returns everything it printed.
func run(t *testing.T, a *App, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := a.createRootCommand()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestApp_New(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	assert.Equal(t, "1.2.3", a.Version())
	assert.Equal(t, "abc123", a.Commit())
	assert.Equal(t, "2025-01-01", a.Date())
	assert.Equal(t, "test", a.BuiltBy())
	assert.NotNil(t, a.Logger())
	assert.Equal(t, "tester", a.Config().Actor)

	_, err := New("dev", "", "", "", WithConfig(nil))
	assert.True(t, errors.IsValidationError(err))
}

func TestApp_StoreIsShared(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	first, err := a.Store()
	require.NoError(t, err)
	second, err := a.Store()
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, a.Shutdown(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
}

func TestApp_StoreRequiresDSN(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.DSN = ""
	a := newTestApp(t, cfg)

	_, err := a.Store()
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	out, err := run(t, a, "version")
	require.NoError(t, err)
	assert.Equal(t, "bookingsync 1.2.3\n", out)

	out, err = run(t, a, "version", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "commit:   abc123")
}

func TestInvalidFormatIsRejected(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	_, err := run(t, a, "--format", "xml", "version")
	assert.ErrorContains(t, err, "invalid format")
}

func TestClassifyNameCommand(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	out, err := run(t, a, "-o", "json", "classify-name", "Kathrin Müller", "Kathrin Muller")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "diacritics_only", decoded["classification"])
	assert.Equal(t, true, decoded["likely_encoding_issue"])

	out, err = run(t, a, "-o", "table", "classify-name", "John Smith", "Jane Doe")
	require.NoError(t, err)
	assert.Contains(t, out, "significant_change")

	_, err = run(t, a, "classify-name", "only-one")
	assert.Error(t, err)
}

const exportCSV = `Property,Source,Confirmation Code,Guest Name,Check-In,Check-Out,Status
Lakeside Cabin,airbnb,HM1,Kathrin Müller,2025-07-01,2025-07-04,confirmed
Lakeside Cabin,vrbo,VR1,John Smith,2025-07-05,2025-07-08,reserved
`

type importOutput struct {
	Summary struct {
		TotalRows           int `json:"total_rows"`
		CreatedCount        int `json:"created_count"`
		AutoUpdatedCount    int `json:"auto_updated_count"`
		UnchangedCount      int `json:"unchanged_count"`
		RequiresReviewCount int `json:"requires_review_count"`
		ErrorCount          int `json:"error_count"`
	} `json:"summary"`
	Metadata struct {
		Actor  string `json:"actor"`
		DryRun bool   `json:"dry_run"`
	} `json:"metadata"`
}

func runImport(t *testing.T, a *App, args ...string) importOutput {
	t.Helper()
	out, err := run(t, a, append([]string{"-o", "json", "import"}, args...)...)
	require.NoError(t, err, out)

	var decoded importOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded), out)
	return decoded
}

func TestMigrateAndImport(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	out, err := run(t, a, "migrate", "--property", "Lakeside Cabin", "--property", "Lakeside Cabin")
	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")
	assert.Contains(t, out, `Created property "Lakeside Cabin"`)
	assert.Contains(t, out, `Property "Lakeside Cabin" already exists`)

	first := runImport(t, a, writeFile(t, "export.csv", exportCSV), "--actor", "ops")
	assert.Equal(t, 2, first.Summary.TotalRows)
	assert.Equal(t, 2, first.Summary.CreatedCount)
	assert.Equal(t, "ops", first.Metadata.Actor)

	again := runImport(t, a, writeFile(t, "export.csv", exportCSV))
	assert.Equal(t, 2, again.Summary.UnchangedCount)
	assert.Equal(t, "tester", again.Metadata.Actor)

	changed := strings.Replace(exportCSV, "reserved", "cancelled", 1)
	changed = strings.Replace(changed, "2025-07-04", "2025-07-06", 1)
	ledger := filepath.Join(t.TempDir(), "ledger.json")

	dry := runImport(t, a, writeFile(t, "export.csv", changed), "--dry-run")
	assert.True(t, dry.Metadata.DryRun)
	assert.Equal(t, 1, dry.Summary.AutoUpdatedCount)

	third := runImport(t, a, writeFile(t, "export.csv", changed), "--ledger", ledger)
	assert.Equal(t, 1, third.Summary.AutoUpdatedCount)
	assert.Equal(t, 1, third.Summary.RequiresReviewCount)

	raw, err := os.ReadFile(ledger)
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, false, entries[0]["auto_resolved"])
	assert.Equal(t, []any{"date_change"}, entries[0]["conflict_types"])
	assert.Equal(t, true, entries[1]["auto_resolved"])

	st, err := a.Store()
	require.NoError(t, err)
	found, err := st.FindByIdentity(context.Background(), 1, "VRBO", "VR1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "cancelled", found[0].ExternalStatus)
	assert.Equal(t, "ops", found[0].CreatedBy)
	assert.Equal(t, "tester", found[0].UpdatedBy)
}

func TestImportTableOutput(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	_, err := run(t, a, "migrate", "--property", "Lakeside Cabin")
	require.NoError(t, err)

	csv := exportCSV + "Unknown Place,airbnb,HM9,Ann Lee,2025-07-01,2025-07-02,confirmed\n"
	out, err := run(t, a, "-o", "table", "import", writeFile(t, "export.csv", csv))
	require.NoError(t, err)
	assert.Contains(t, out, "Import summary")
	assert.Contains(t, out, "error")
}

func TestImportErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Actor = ""
	a := newTestApp(t, cfg)

	_, err := run(t, a, "import", writeFile(t, "export.csv", exportCSV))
	assert.True(t, errors.IsValidationError(err))

	_, err = run(t, a, "import", writeFile(t, "export.pdf", "x"), "--actor", "ops")
	assert.True(t, errors.IsValidationError(err))

	_, err = run(t, a, "import", writeFile(t, "export.csv", exportCSV), "--actor", "ops", "--timezone", "Mars/Olympus")
	assert.True(t, errors.IsValidationError(err))
}
