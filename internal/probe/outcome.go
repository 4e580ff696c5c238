package probe

import (
	"fmt"
	"time"
)

// Kind classifies the result of a single download.
type Kind int

const (
	// Failed covers transport errors, non-success statuses, missing cache
	// headers and unusable timings.
	Failed Kind = iota
	// Measured means the body was downloaded and a throughput computed.
	Measured
	// CacheHit means the edge reported serving the artifact from its cache.
	CacheHit
	// Skipped means the download was never issued because the step had
	// already been discarded.
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Measured:
		return "measured"
	case CacheHit:
		return "cache-hit"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome is the result of one download attempt.
type Outcome struct {
	Kind        Kind
	URL         string
	Status      int
	CacheStatus string // raw value of the cache header, if one was checked

	Bytes   int64
	Start   time.Time
	Elapsed time.Duration
	KBps    float64

	Err error
}

// Usable reports whether the outcome can contribute to a report row.
func (o Outcome) Usable() bool {
	return o.Kind == Measured
}

// Reason is a short human readable explanation used in logs and the live view.
func (o Outcome) Reason() string {
	switch o.Kind {
	case Measured:
		return fmt.Sprintf("%.0f KB/s", o.KBps)
	case CacheHit:
		return "cache hit (" + o.CacheStatus + ")"
	case Skipped:
		return "skipped"
	}
	if o.Err != nil {
		return o.Err.Error()
	}
	return "failed"
}

// Fail builds a Failed outcome for url.
func Fail(url string, err error) Outcome {
	return Outcome{Kind: Failed, URL: url, Err: err}
}

// Skip builds a Skipped outcome for url.
func Skip(url string) Outcome {
	return Outcome{Kind: Skipped, URL: url}
}
