// Package source produces the candidate artifact identities a benchmark walks
// through, each resolved to its edge and origin URLs.
package source

// Step is one candidate artifact identity and the URLs of that artifact on
// both edges and the origin.
type Step struct {
	Label     string
	EdgeAURL  string
	EdgeBURL  string
	OriginURL string
}

// StepSource is a forward-only cursor over steps.
type StepSource interface {
	// Next advances the cursor. It returns false once the source is exhausted.
	Next() (Step, bool)
	// Kind names the identity, e.g. "Date" or "Version".
	Kind() string
}

// Provider describes how a delivery path reports cache hits. An empty
// CacheHeader disables the check.
type Provider struct {
	Name        string
	CacheHeader string
	HitPrefix   string
}

var (
	EdgeA  = Provider{Name: "Fastly", CacheHeader: "x-cache", HitPrefix: "HIT"}
	EdgeB  = Provider{Name: "Cloudfront", CacheHeader: "x-cache", HitPrefix: "Hit"}
	Origin = Provider{Name: "S3"}
)
