package source

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRegistryURL = "https://crates.io"
	UserAgent          = "cdnbench (cdn cache diagnostics)"

	versionsPath = "/api/v1/crates/{crate}/versions"
)

type versionsPayload struct {
	Versions []versionPayload `json:"versions"`
}

type versionPayload struct {
	Num string `json:"num"`
}

// RegistryClient lists the published versions of a crate.
type RegistryClient struct {
	client *resty.Client
	log    zerolog.Logger
}

// NewRegistryClient talks to the registry at baseURL. Requests answered with
// a 5xx or 429 are retried up to retries times.
func NewRegistryClient(baseURL string, retries int) *RegistryClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(time.Minute).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent)

	client.SetRetryCount(retries).SetRetryWaitTime(500 * time.Millisecond).SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(
			func(r *resty.Response, err error) bool {
				return r != nil && (r.StatusCode() >= 500 || r.StatusCode() == http.StatusTooManyRequests)
			},
		)

	return &RegistryClient{
		client: client,
		log:    log.With().Str("component", "registry").Logger(),
	}
}

// Versions returns the version identifiers of pkg in the order the registry
// lists them.
func (c *RegistryClient) Versions(ctx context.Context, pkg string) ([]string, error) {
	c.log.Debug().Str("crate", pkg).Msg("fetching versions")

	resp, err := c.client.R().SetContext(ctx).SetPathParam("crate", pkg).Get(versionsPath)
	if resp != nil {
		c.log.Debug().Str("url", resp.Request.URL).Dur("timeSpent", resp.Time()).Str(
			"status",
			resp.Status(),
		).Msg("versions response received")
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch versions of %s", pkg)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, errors.Errorf(
			"failed to fetch versions of %s: %d - %s",
			pkg, resp.StatusCode(), strings.TrimSpace(string(resp.Body())),
		)
	}

	payload := new(versionsPayload)
	if err := json.Unmarshal(resp.Body(), payload); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal versions of %s", pkg)
	}

	versions := make([]string, 0, len(payload.Versions))
	for _, v := range payload.Versions {
		versions = append(versions, v.Num)
	}

	return versions, nil
}

// Registry walks the published versions of one package in registry order.
type Registry struct {
	pkg      string
	versions []string
	tmpl     *urlTemplates
	log      zerolog.Logger
}

// NewRegistry fetches and buffers every version of pkg up front. Any failure
// to reach the registry, or a version that is not valid semver, is returned
// and leaves no usable source.
func NewRegistry(ctx context.Context, client *RegistryClient, family Family, pkg string) (*Registry, error) {
	if strings.TrimSpace(pkg) == "" {
		return nil, errors.New("package name is required")
	}

	tmpl, err := family.compile()
	if err != nil {
		return nil, err
	}

	raw, err := client.Versions(ctx, pkg)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(raw))
	for _, num := range raw {
		v, err := semver.StrictNewVersion(num)
		if err != nil {
			return nil, errors.Wrapf(err, "registry returned malformed version %q for %s", num, pkg)
		}
		versions = append(versions, v.String())
	}

	logger := log.With().Str("component", "registry").Str("crate", pkg).Logger()
	logger.Debug().Int("versions", len(versions)).Msg("buffered versions")

	return &Registry{
		pkg:      pkg,
		versions: versions,
		tmpl:     tmpl,
		log:      logger,
	}, nil
}

func (r *Registry) Kind() string {
	return "Version"
}

// Remaining is the number of versions not yet returned by Next.
func (r *Registry) Remaining() int {
	return len(r.versions)
}

func (r *Registry) Next() (Step, bool) {
	if len(r.versions) == 0 {
		return Step{}, false
	}

	version := r.versions[0]
	r.versions = r.versions[1:]

	step, err := r.tmpl.step(version, r.pkg)
	if err != nil {
		r.log.Error().Err(err).Str("version", version).Msg("failed to build step")
		return Step{}, false
	}

	return step, true
}
