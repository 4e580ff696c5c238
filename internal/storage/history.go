package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"cdnbench/internal/runner"
	"cdnbench/internal/stats"
)

// HistoryItem is one finished run.
type HistoryItem struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Source    string             `json:"source"`
	Kind      string             `json:"kind"`
	Config    runner.Config      `json:"config"`
	Rows      []runner.ReportRow `json:"rows"`
	Summary   stats.Summary      `json:"summary"`
}

func NewHistoryItem(src, kind string, cfg runner.Config, rows []runner.ReportRow, sum stats.Summary) HistoryItem {
	return HistoryItem{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    src,
		Kind:      kind,
		Config:    cfg,
		Rows:      rows,
		Summary:   sum,
	}
}

// key sorts items by time inside the bucket.
func (item HistoryItem) key() []byte {
	return []byte(fmt.Sprintf("%020d-%s", item.Timestamp.UnixNano(), item.ID))
}
