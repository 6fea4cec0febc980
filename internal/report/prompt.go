package report

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/scanners"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

//go:embed prompt.tmpl
var promptTemplate string

// Header is the fixed instruction that opens every prompt.
const Header = "Summarize the following two security scan results into a short, readable **HTML report** for a DevSecOps team.\n" +
	"Focus on critical vulnerabilities, CVEs, and remediation advice.\n"

var promptTmpl = template.Must(template.New("prompt").Parse(promptTemplate))

type promptSection struct {
	Source schema.Source
	Body   string
}

// BuildPrompt embeds the compact serialization of each report, labeled by
// its source, under the fixed instruction header.
func BuildPrompt(trivy, snyk schema.ScanReport) (string, error) {
	var sections []promptSection
	for _, r := range []schema.ScanReport{trivy, snyk} {
		body, err := scanners.Encode(r.Document)
		if err != nil {
			return "", fmt.Errorf("encode %s report: %w", r.Source, err)
		}
		sections = append(sections, promptSection{Source: r.Source, Body: body})
	}

	var sb strings.Builder
	if err := promptTmpl.Execute(&sb, struct{ Sections []promptSection }{sections}); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return sb.String(), nil
}
