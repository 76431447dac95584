// Package pdf renders a BRD as a paginated A4 PDF with confidential names
// masked.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"brdflow/internal/document"
	"brdflow/internal/domain"
	"brdflow/internal/mask"
)

var (
	titleColor   = rgb{45, 58, 130}
	productColor = rgb{0, 40, 200}
	brdColor     = rgb{190, 0, 0}
	sectionColor = rgb{45, 87, 135}
)

type Options struct {
	HeaderTitle   string
	Organization  string
	DocumentTitle string
	Compress      bool
	Masker        *mask.Masker
}

// DefaultOptions mirrors the default configuration.
func DefaultOptions() Options {
	return Options{
		HeaderTitle:   "BRD for PRIME HOME LOAN LOS",
		Organization:  "ABC BANK",
		DocumentTitle: "LOS FOR PRIME HOME LOAN (PHL)",
		Compress:      true,
		Masker:        mask.Default(),
	}
}

// Document is a rendered PDF.
type Document struct {
	Bytes []byte
	Pages int
}

type Renderer struct {
	Options Options
}

func New(opts Options) Renderer {
	def := DefaultOptions()
	if opts.HeaderTitle == "" {
		opts.HeaderTitle = def.HeaderTitle
	}
	if opts.Organization == "" {
		opts.Organization = def.Organization
	}
	if opts.DocumentTitle == "" {
		opts.DocumentTitle = def.DocumentTitle
	}
	if opts.Masker == nil {
		opts.Masker = def.Masker
	}
	return Renderer{Options: opts}
}

// Render lays out the cover page and the three content pages. The output
// only depends on its inputs.
func (r Renderer) Render(req domain.StakeholderRequest, m domain.BRDMasterData) (Document, error) {
	opts := r.Options
	if opts.Masker == nil {
		opts.Masker = mask.Default()
	}
	clean := func(v string) string {
		v = strings.TrimSpace(v)
		if v == "" {
			return document.TBD
		}
		return opts.Masker.Mask(v)
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(opts.Compress)
	doc.SetAutoPageBreak(false, 0)
	doc.SetCatalogSort(true)
	stamp := pinnedDate(req)
	doc.SetCreationDate(stamp)
	doc.SetModificationDate(stamp)
	doc.SetTitle(opts.Masker.Mask(opts.HeaderTitle), true)

	l := newLayout(doc, opts.Masker.Mask(opts.HeaderTitle))
	l.newPage()

	l.paragraph(opts.Masker.Mask(opts.Organization), textStyle{fontSize: 28, bold: true, color: &titleColor, before: 18, after: 16})
	l.paragraph(opts.Masker.Mask(opts.DocumentTitle), textStyle{fontSize: 18, bold: true, color: &productColor, before: 6, after: 20})
	l.paragraph("BRD DOCUMENT", textStyle{fontSize: 16, bold: true, color: &brdColor, after: 120})
	l.paragraph("Version no. : "+document.Version(req.Status), textStyle{})
	l.paragraph("Effective Date : "+document.EffectiveDate(req), textStyle{before: 2})

	l.newPage()
	l.paragraph("1.  Objective", textStyle{fontSize: 15, bold: true, color: &sectionColor, after: 8})
	l.paragraph(clean(m.Objective), textStyle{after: 10})
	l.paragraph("Scope:", textStyle{fontSize: 13, bold: true, color: &sectionColor, after: 6})
	l.bullets([]string{
		"Product: " + clean(m.Product),
		"Business Unit: " + clean(m.BU),
		"Domain: " + clean(m.Domain),
		"Priority: " + clean(m.Priority),
		"In Scope: " + clean(m.ScopeIn),
		"Out of Scope: " + clean(m.ScopeOut),
	}, false)
	l.paragraph("2.  Process -", textStyle{fontSize: 15, bold: true, color: &sectionColor, before: 8, after: 8})
	l.bullets(processLines(opts.Masker.Mask, m.Process), false)

	l.newPage()
	l.paragraph("3.  Policy Parameters", textStyle{fontSize: 15, bold: true, color: &sectionColor, after: 10})
	l.paragraph("Document Title: "+clean(m.Title), textStyle{bold: true, after: 4})
	l.paragraph("Product Name: "+clean(m.Product), textStyle{bold: true, after: 4})
	l.paragraph("Loan Classification:", textStyle{bold: true, before: 6, after: 4})
	l.bullets([]string{
		"Tier 1 - " + clean(m.Tags),
		"Tier 2 - " + clean(m.Channels),
		"Tier 3 - " + clean(m.Personas),
	}, true)
	l.paragraph(opts.Masker.Mask("General Product and Policy Norms to be updated in system for PHL"), textStyle{fontSize: 12, bold: true, before: 8, after: 6})
	l.bullets([]string{
		"Assumptions: " + clean(m.Assumptions),
		"Constraints: " + clean(m.Constraints),
		"Regulatory Mapping: " + clean(m.RegMap),
		"Security Controls: " + clean(m.SecurityControls),
		"AuthN/AuthZ: " + clean(m.Auth),
		"Success Metrics / KPIs: " + clean(m.KPIs),
		"Upstream Sources: " + clean(m.Sources),
		"Downstream Consumers: " + clean(m.Consumers),
		fmt.Sprintf("Retention Years: %s | Audit Required: %s | PII Class: %s", clean(m.RetentionYears), clean(m.AuditRequired), clean(m.PIIClass)),
		"MIS / Reporting: " + clean(m.MIS),
		fmt.Sprintf("NFR Baseline: %s | %s | Availability %s | RPO %s | RTO %s", clean(m.TPS), clean(m.Latency), clean(m.Availability), clean(m.RPO), clean(m.RTO)),
		"Observability: " + clean(m.Observability),
		fmt.Sprintf("Request Title: %s | Owner: %s | Tenant: %s | Status: %s", clean(req.ReqTitle), clean(req.Owner), clean(req.Tenant), clean(strings.ReplaceAll(string(req.Status), "_", " "))),
		"Reviewer Comment: " + clean(req.ReviewerComment),
	}, false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("render pdf: %w", err)
	}
	return Document{Bytes: buf.Bytes(), Pages: l.page}, nil
}

// processLines masks the whole process narrative, then splits it into
// bullets, one per non-blank line.
func processLines(mask func(string) string, process string) []string {
	process = strings.TrimSpace(process)
	if process == "" {
		return []string{document.TBD}
	}
	var out []string
	for _, line := range strings.Split(mask(process), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return []string{document.TBD}
	}
	return out
}

// pinnedDate is the document timestamp: the request creation time, or the
// Unix epoch when it cannot be parsed.
func pinnedDate(req domain.StakeholderRequest) time.Time {
	if t, err := time.Parse(time.RFC3339, req.CreatedAt); err == nil {
		return t.UTC()
	}
	return time.Unix(0, 0).UTC()
}
