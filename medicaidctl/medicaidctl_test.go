package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/COG-GTM/devin-hhs/analysis"
	"github.com/COG-GTM/devin-hhs/config"
	"github.com/COG-GTM/devin-hhs/logging"
	"github.com/COG-GTM/devin-hhs/refdata"
	"github.com/COG-GTM/devin-hhs/snapshot"
)

// setup points the command globals at a temporary snapshot directory.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DEVINHHS_SNAPSHOT_DIR", filepath.Join(dir, "snapshots"))
	t.Setenv("DEVINHHS_OUTPUT_PATH", filepath.Join(dir, "outliers.json"))

	var err error
	cfg, err = config.Load("")
	require.NoError(t, err)
	log = logging.Discard()
	ds = refdata.MustLoad()
	return dir
}

// providers returns twenty identical providers and one that billed $1B.
func providers() []analysis.ProviderAggregate {
	rows := make([]analysis.ProviderAggregate, 0, 21)
	for i := 0; i < 20; i++ {
		rows = append(rows, analysis.ProviderAggregate{
			NPI:           fmt.Sprintf("10000000%02d", i),
			TotalSpending: 100,
			TotalClaims:   200,
			Beneficiaries: 10,
		})
	}
	return append(rows, analysis.ProviderAggregate{
		NPI:           "1417262056",
		TotalSpending: 1e9,
		TotalClaims:   5000,
		Beneficiaries: 900,
	})
}

func TestBuildReportsFromSnapshot(t *testing.T) {
	setup(t)
	require.NoError(t, snapshot.Save(cfg.SnapshotDir, analysis.Inputs{Providers: providers()}))

	reports, err := buildReports(context.Background(), nil, false)
	require.NoError(t, err)

	require.Len(t, reports.Outliers.ProviderOutliers, 1)
	top := reports.Outliers.ProviderOutliers[0]
	assert.Equal(t, "1417262056", top.NPI)
	assert.Equal(t, "PUBLIC PARTNERSHIPS LLC", top.Name)
	assert.InDelta(t, 4.47, top.SpendingZScore, 0.005)

	require.Len(t, reports.Outliers.CostPerClaimOutliers, 1)
	assert.Equal(t, "1417262056", reports.Outliers.CostPerClaimOutliers[0].NPI)

	assert.Len(t, reports.Providers, 21)
	assert.Len(t, reports.States.AllStates, 51)
	require.NotNil(t, reports.Federal)
	assert.Len(t, reports.Federal.Efficiency.AllStates, 51)

	require.NotNil(t, reports.Risk)
	assert.Equal(t, 21, reports.Risk.Scored)
	assert.Equal(t, "1417262056", reports.Risk.Providers[0].NPI)
	assert.NotNil(t, reports.PriceVariance)
	assert.Empty(t, reports.PriceVariance)
}

func TestLoadInputsWithoutSource(t *testing.T) {
	setup(t)
	_, err := loadInputs(context.Background(), nil, cfg.SnapshotDir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database configured")

	// fromDB without a database fails even when a snapshot exists.
	require.NoError(t, snapshot.Save(cfg.SnapshotDir, analysis.Inputs{}))
	_, err = loadInputs(context.Background(), nil, cfg.SnapshotDir, true)
	require.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	dir := setup(t)
	report, err := analysis.BuildOutlierReport(context.Background(),
		analysis.Inputs{Providers: providers()}, analysis.DefaultReportConfig(), ds)
	require.NoError(t, err)

	require.NoError(t, writeJSON(cfg.OutputPath, report))

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded["providerOutliers"], 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteJSONRenameFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory in the way makes the final rename fail.
	path := filepath.Join(dir, "outliers.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "occupied"), 0o755))

	err := writeJSON(path, map[string]int{"n": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rename "+path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestPrintTop(t *testing.T) {
	setup(t)
	color.NoColor = true

	report, err := analysis.BuildOutlierReport(context.Background(),
		analysis.Inputs{Providers: providers()}, analysis.DefaultReportConfig(), ds)
	require.NoError(t, err)

	var buf bytes.Buffer
	printTop(&buf, report, 10)
	out := buf.String()
	assert.Contains(t, out, "1 providers, 0 codes, 0 billing mismatches, 1 cost per claim flagged")
	assert.Contains(t, out, "1417262056")
	assert.Contains(t, out, "z=4.47")
	assert.Contains(t, out, "$1.000B")
	assert.Contains(t, out, "$200000.00/claim")

	buf.Reset()
	printTop(&buf, report, -1)
	assert.NotContains(t, buf.String(), "1417262056")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdef", 4))
}
