package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdnbench/internal/runner"
	"cdnbench/internal/stats"
)

func TestWriteTable_Dates(t *testing.T) {
	var buf bytes.Buffer
	rows := []runner.ReportRow{
		{Label: "2024-03-01", EdgeAKBps: 51234, EdgeBKBps: 812, OriginKBps: 7},
		{Label: "2024-02-29", EdgeAKBps: 1, EdgeBKBps: 22, OriginKBps: 333},
	}

	require.NoError(t, WriteTable(&buf, "Date", rows))

	want := "" +
		"| Date       | Fastly     | Cloudfront | S3         |\n" +
		"| 2024-03-01 |      51234 |        812 |          7 |\n" +
		"| 2024-02-29 |          1 |         22 |        333 |\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTable_WidensForLongLabels(t *testing.T) {
	var buf bytes.Buffer
	rows := []runner.ReportRow{
		{Label: "1.0.0-alpha.12", EdgeAKBps: 1, EdgeBKBps: 2, OriginKBps: 3},
		{Label: "0.1.0", EdgeAKBps: 4, EdgeBKBps: 5, OriginKBps: 6},
	}

	require.NoError(t, WriteTable(&buf, "Version", rows))

	want := "" +
		"| Version        | Fastly     | Cloudfront | S3         |\n" +
		"| 1.0.0-alpha.12 |          1 |          2 |          3 |\n" +
		"| 0.1.0          |          4 |          5 |          6 |\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTable_HeaderOnlyWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, "Date", nil))
	assert.Equal(t, "| Date       | Fastly     | Cloudfront | S3         |\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteTable(&buf, "Version", nil))
	assert.Equal(t, "| Version    | Fastly     | Cloudfront | S3         |\n", buf.String())
}

func TestWriteTable_ShortLabelsKeepValueWidth(t *testing.T) {
	var buf bytes.Buffer
	rows := []runner.ReportRow{{Label: "1.2.0", EdgeAKBps: 10, EdgeBKBps: 20, OriginKBps: 30}}

	require.NoError(t, WriteTable(&buf, "Version", rows))

	want := "" +
		"| Version    | Fastly     | Cloudfront | S3         |\n" +
		"| 1.2.0      |         10 |         20 |         30 |\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSummary(t *testing.T) {
	s := stats.NewStats()
	s.AddAttempt()
	s.AddAttempt()
	s.AddSample([3]int{100, 50, 10})

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, s.Summary()))

	out := buf.String()
	assert.Contains(t, out, "Attempts: 2  Samples: 1  Cache hits: 0  Failures: 0  Discarded: 50%")
	assert.Contains(t, out, "Fastly            100        100        100")
	assert.Contains(t, out, "S3                 10         10         10")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	rows := []runner.ReportRow{{Label: "0.1.0", EdgeAKBps: 4, EdgeBKBps: 5, OriginKBps: 6}}

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, ExportCSV(rows, "Version", csvPath))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "Version,fastly_kbps,cloudfront_kbps,s3_kbps\n0.1.0,4,5,6\n", string(data))

	jsonPath := filepath.Join(dir, "out.json")
	doc := Document{Kind: "Version", Source: "crates:serde", StartedAt: time.Unix(0, 0).UTC(), Rows: rows}
	require.NoError(t, ExportJSON(doc, jsonPath))

	data, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, doc.Rows, back.Rows)
	assert.Equal(t, "crates:serde", back.Source)
}
