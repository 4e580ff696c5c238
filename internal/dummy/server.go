package dummy

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type ServerConfig struct {
	Port int

	// Size of every served artifact.
	ArtifactBytes int
	// Extra delay of an edge cache miss, jittered by up to 50%.
	MissLatency time.Duration
	// Versions listed by the fake registry, in order.
	Versions []string
}

func (cfg ServerConfig) withDefaults() ServerConfig {
	if cfg.ArtifactBytes <= 0 {
		cfg.ArtifactBytes = 1_000_000
	}
	if cfg.Versions == nil {
		cfg.Versions = []string{"1.2.0", "1.1.1", "1.1.0", "1.0.0", "0.9.0"}
	}
	return cfg
}

// edge emulates one CDN: the first request for a path misses, later ones hit.
type edge struct {
	miss string
	hit  string

	mu   sync.Mutex
	seen map[string]bool
}

func (e *edge) status(path string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seen[path] {
		return e.hit, true
	}
	e.seen[path] = true
	return e.miss, false
}

// NewHandler serves a fake CDN and registry:
//
//	/fastly/...      x-cache: MISS, then HIT, cached
//	/cloudfront/...  x-cache: Miss from cloudfront, then Hit from cloudfront
//	/s3/...          no cache header
//	/api/v1/crates/{name}/versions
func NewHandler(cfg ServerConfig) http.Handler {
	cfg = cfg.withDefaults()
	artifact := make([]byte, cfg.ArtifactBytes)

	mux := http.NewServeMux()

	serveEdge := func(prefix string, e *edge) {
		mux.HandleFunc(prefix+"/", func(w http.ResponseWriter, r *http.Request) {
			status, hit := e.status(r.URL.Path)
			if !hit && cfg.MissLatency > 0 {
				jitter := time.Duration(rand.Int63n(int64(cfg.MissLatency)/2 + 1))
				time.Sleep(cfg.MissLatency + jitter)
			}
			w.Header().Set("x-cache", status)
			w.WriteHeader(http.StatusOK)
			w.Write(artifact)
		})
	}

	serveEdge("/fastly", &edge{miss: "MISS", hit: "HIT, cached", seen: make(map[string]bool)})
	serveEdge("/cloudfront", &edge{miss: "Miss from cloudfront", hit: "Hit from cloudfront", seen: make(map[string]bool)})

	mux.HandleFunc("/s3/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(artifact)
	})

	mux.HandleFunc("/api/v1/crates/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/crates/")
		name, tail, _ := strings.Cut(rest, "/")
		if name == "" || tail != "versions" {
			http.NotFound(w, r)
			return
		}

		type version struct {
			Num   string `json:"num"`
			Crate string `json:"crate"`
		}
		payload := struct {
			Versions []version `json:"versions"`
		}{Versions: make([]version, 0, len(cfg.Versions))}
		for _, v := range cfg.Versions {
			payload.Versions = append(payload.Versions, version{Num: v, Crate: name})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	})

	return mux
}

// Start binds the port and serves the dummy CDN in the background. The
// returned server's Addr is the bound address.
func Start(cfg ServerConfig) (*http.Server, error) {
	addr := fmt.Sprintf(":%d", cfg.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot listen on %s", addr)
	}

	server := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: NewHandler(cfg),
	}

	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", server.Addr).Msg("dummy server failed")
		}
	}()

	return server, nil
}
