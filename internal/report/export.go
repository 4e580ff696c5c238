package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"cdnbench/internal/runner"
	"cdnbench/internal/stats"
)

// ExportCSV writes one line per row, throughputs in KB/s.
func ExportCSV(rows []runner.ReportRow, kind, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create csv report")
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{kind, "fastly_kbps", "cloudfront_kbps", "s3_kbps"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			row.Label,
			strconv.Itoa(row.EdgeAKBps),
			strconv.Itoa(row.EdgeBKBps),
			strconv.Itoa(row.OriginKBps),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// Document is the JSON export of a run.
type Document struct {
	Kind      string             `json:"kind"`
	Source    string             `json:"source"`
	StartedAt time.Time          `json:"started_at"`
	Rows      []runner.ReportRow `json:"rows"`
	Summary   stats.Summary      `json:"summary"`
}

// ExportJSON writes doc, indented.
func ExportJSON(doc Document, filename string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal json report")
	}
	return os.WriteFile(filename, data, 0644)
}
