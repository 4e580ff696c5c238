package stats

import (
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxKBps is the highest throughput the histograms track (100 GB/s).
const maxKBps = 100_000_000

// SafeHistogram is a thread-safe wrapper around hdrhistogram
type SafeHistogram struct {
	hist *hdrhistogram.Histogram
	mu   sync.Mutex
}

func NewSafeHistogram() *SafeHistogram {
	// 1 KB/s to 100 GB/s, 3 significant figures
	h := hdrhistogram.New(1, maxKBps, 3)
	return &SafeHistogram{hist: h}
}

// RecordValue records a throughput in KB/s. Values outside the trackable
// range are clamped.
func (h *SafeHistogram) RecordValue(v int64) error {
	if v < 1 {
		v = 1
	}
	if v > maxKBps {
		v = maxKBps
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.RecordValue(v)
}

func (h *SafeHistogram) ValueAtQuantile(q float64) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.ValueAtQuantile(q)
}

func (h *SafeHistogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Mean()
}

func (h *SafeHistogram) Min() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Min()
}

func (h *SafeHistogram) Max() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Max()
}

func (h *SafeHistogram) TotalCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}
