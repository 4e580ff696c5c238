package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Timeout bounds the whole request, response and body read of one download.
const Timeout = 10 * time.Minute

// maxErrorBody caps how much of a failed response body is kept for the error.
const maxErrorBody = 4096

var (
	ErrTimeout          = errors.New("download timed out")
	ErrStatus           = errors.New("non-success status")
	ErrMissingHeader    = errors.New("expected cache header missing")
	ErrDegenerateTiming = errors.New("elapsed time is zero")
)

// Prober downloads artifacts and measures their effective throughput.
type Prober struct {
	client *http.Client
	now    func() time.Time
	log    zerolog.Logger
}

type Option func(*Prober)

// WithClient replaces the HTTP client. The caller owns its timeout.
func WithClient(c *http.Client) Option {
	return func(p *Prober) {
		p.client = c
	}
}

// WithClock replaces the clock used for the start and end timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Prober) {
		p.now = now
	}
}

func New(opts ...Option) *Prober {
	t := http.DefaultTransport.(*http.Transport).Clone()
	// every download pays for its own connection setup, and the byte count
	// is the artifact as stored rather than a transparently decoded body
	t.DisableKeepAlives = true
	t.DisableCompression = true

	p := &Prober{
		client: &http.Client{
			Timeout:   Timeout,
			Transport: t,
		},
		now: time.Now,
		log: log.With().Str("component", "probe").Logger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe downloads url once. When both cacheHeader and hitPrefix are set the
// response must carry cacheHeader, and a value starting with hitPrefix is
// reported as CacheHit without reading the body.
func (p *Prober) Probe(ctx context.Context, url, cacheHeader, hitPrefix string) Outcome {
	log := p.log.With().Str("url", url).Logger()
	log.Debug().Msg("downloading artifact")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Fail(url, errors.Wrap(err, "failed to create http request"))
	}

	start := p.now()

	resp, err := p.client.Do(req)
	if err != nil {
		return Fail(url, classify(err, "failed to download artifact"))
	}
	defer resp.Body.Close()

	out := Outcome{
		URL:    url,
		Status: resp.StatusCode,
		Start:  start,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(body))
		log.Warn().Int("status", resp.StatusCode).Str("body", text).Msg("failed to download artifact")
		out.Err = errors.Wrapf(ErrStatus, "%s: %s", resp.Status, text)
		return out
	}

	if cacheHeader != "" && hitPrefix != "" {
		values := resp.Header.Values(cacheHeader)
		if len(values) == 0 {
			log.Warn().Str("header", cacheHeader).Msg("failed to confirm cache status")
			out.Err = errors.Wrapf(ErrMissingHeader, "header %s", cacheHeader)
			return out
		}

		// a hit on any value counts
		for _, v := range values {
			if strings.HasPrefix(v, hitPrefix) {
				out.CacheStatus = v
				log.Debug().Str("cache_status", v).Msg("cache hit - skipping")
				out.Kind = CacheHit
				return out
			}
		}
		out.CacheStatus = strings.Join(values, ", ")
	}

	n, err := io.Copy(io.Discard, resp.Body)
	end := p.now()
	out.Bytes = n
	out.Elapsed = end.Sub(start)

	if err != nil {
		out.Err = classify(err, "failed to read response body")
		return out
	}

	log.Debug().
		Int64("bytes", n).
		Time("start", start).
		Time("end", end).
		Msgf("downloaded %d MB", n/1000/1000)

	kbps, err := Throughput(n, out.Elapsed)
	if err != nil {
		log.Warn().Dur("elapsed", out.Elapsed).Msg("discarding download with unusable timing")
		out.Err = err
		return out
	}

	out.Kind = Measured
	out.KBps = kbps

	return out
}

// Throughput returns kilobytes (1000 bytes) per second.
func Throughput(bytes int64, elapsed time.Duration) (float64, error) {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0, errors.Wrapf(ErrDegenerateTiming, "%d bytes in %s", bytes, elapsed)
	}

	return float64(bytes) / 1000.0 / secs, nil
}

func classify(err error, msg string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Wrapf(ErrTimeout, "%s: %v", msg, err)
	}

	return errors.Wrap(err, msg)
}
