package source

import (
	"bytes"
	"io"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// Family is a set of URL templates pointing at the same artifact on both
// edges and the origin bucket. Templates may use the short placeholders
// {{label}}, {{package}} and {{artifact}}.
type Family struct {
	Name     string
	Artifact string

	EdgeA  string
	EdgeB  string
	Origin string
}

var (
	RustReleases = Family{
		Name:     "rust-releases",
		Artifact: "llvm-tools-nightly-aarch64-unknown-linux-gnu.tar.gz",
		EdgeA:    "https://fastly-static.rust-lang.org/dist/{{label}}/{{artifact}}",
		EdgeB:    "https://cloudfront-static.rust-lang.org/dist/{{label}}/{{artifact}}",
		Origin:   "https://static-rust-lang-org.s3.us-west-1.amazonaws.com/dist/{{label}}/{{artifact}}",
	}

	Crates = Family{
		Name:   "crates",
		EdgeA:  "https://fastly-static.crates.io/crates/{{package}}/{{package}}-{{label}}.crate",
		EdgeB:  "https://cloudfront-static.crates.io/crates/{{package}}/{{package}}-{{label}}.crate",
		Origin: "https://crates-io.s3.us-west-1.amazonaws.com/crates/{{package}}/{{package}}-{{label}}.crate",
	}
)

// Rebase points the three templates at base, keeping their paths. The edges
// become base/fastly and base/cloudfront, the origin base/s3. Only used to
// run against a local dummy CDN.
func (f Family) Rebase(base string) Family {
	base = strings.TrimRight(base, "/")
	f.EdgeA = rebase(f.EdgeA, base+"/fastly")
	f.EdgeB = rebase(f.EdgeB, base+"/cloudfront")
	f.Origin = rebase(f.Origin, base+"/s3")
	return f
}

func rebase(tmpl, prefix string) string {
	rest := tmpl
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}

	path := ""
	if i := strings.Index(rest, "/"); i >= 0 {
		path = rest[i:]
	}

	return prefix + path
}

// TemplateData is passed to the URL templates.
type TemplateData struct {
	Label    string
	Package  string
	Artifact string
}

var sampleData = TemplateData{Label: "0.0.0", Package: "sample", Artifact: "sample.tar.gz"}

// urlTemplates holds the parsed templates of one family.
type urlTemplates struct {
	artifact string
	edgeA    *template.Template
	edgeB    *template.Template
	origin   *template.Template
}

// preprocess converts the short placeholders to template field access.
func preprocess(input string) string {
	s := input
	s = strings.ReplaceAll(s, "{{label}}", "{{.Label}}")
	s = strings.ReplaceAll(s, "{{package}}", "{{.Package}}")
	s = strings.ReplaceAll(s, "{{artifact}}", "{{.Artifact}}")
	return s
}

func (f Family) compile() (*urlTemplates, error) {
	parse := func(name, text string) (*template.Template, error) {
		if strings.TrimSpace(text) == "" {
			return nil, errors.Errorf("%s: empty %s template", f.Name, name)
		}

		t, err := template.New(name).Option("missingkey=error").Parse(preprocess(text))
		if err != nil {
			return nil, errors.Wrapf(err, "%s: failed to parse %s template", f.Name, name)
		}

		// Unknown fields only fail at execution, so render once up front.
		if err := t.Execute(io.Discard, sampleData); err != nil {
			return nil, errors.Wrapf(err, "%s: invalid %s template", f.Name, name)
		}

		return t, nil
	}

	edgeA, err := parse("edge-a", f.EdgeA)
	if err != nil {
		return nil, err
	}

	edgeB, err := parse("edge-b", f.EdgeB)
	if err != nil {
		return nil, err
	}

	origin, err := parse("origin", f.Origin)
	if err != nil {
		return nil, err
	}

	return &urlTemplates{
		artifact: f.Artifact,
		edgeA:    edgeA,
		edgeB:    edgeB,
		origin:   origin,
	}, nil
}

func (u *urlTemplates) step(label, pkg string) (Step, error) {
	data := TemplateData{
		Label:    label,
		Package:  pkg,
		Artifact: u.artifact,
	}

	edgeA, err := execute(u.edgeA, data)
	if err != nil {
		return Step{}, err
	}

	edgeB, err := execute(u.edgeB, data)
	if err != nil {
		return Step{}, err
	}

	origin, err := execute(u.origin, data)
	if err != nil {
		return Step{}, err
	}

	return Step{
		Label:     label,
		EdgeAURL:  edgeA,
		EdgeBURL:  edgeB,
		OriginURL: origin,
	}, nil
}

func execute(t *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s url", t.Name())
	}
	return buf.String(), nil
}
